package publisher

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/probeware/icmpx/internal/config"
	"github.com/probeware/icmpx/internal/monitor"
)

// collectorStub upgrades one connection and forwards every text
// message it receives.
func collectorStub(t *testing.T) (*httptest.Server, chan []byte) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	messages := make(chan []byte, 10)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer ws.Close()
		for {
			_, msg, err := ws.ReadMessage()
			if err != nil {
				return
			}
			messages <- msg
		}
	}))
	t.Cleanup(srv.Close)
	return srv, messages
}

func TestPublisherProcess(t *testing.T) {
	srv, messages := collectorStub(t)
	config.SetCollectorURL("ws" + strings.TrimPrefix(srv.URL, "http"))

	p, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer p.Close()

	p.Process(&monitor.Report{
		MsgType: "PING_REPORT",
		Device:  "probe-01",
		Results: []monitor.Result{{Target: "one.example.com", IP: "192.0.2.1", Loss: 0.5}},
	})

	select {
	case msg := <-messages:
		var got monitor.Report
		if err := json.Unmarshal(msg, &got); err != nil {
			t.Fatalf("collector received invalid JSON: %v", err)
		}
		if got.Device != "probe-01" || len(got.Results) != 1 {
			t.Errorf("report = %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("collector received nothing")
	}
}

func TestPublisherClose(t *testing.T) {
	srv, _ := collectorStub(t)
	config.SetCollectorURL("ws" + strings.TrimPrefix(srv.URL, "http"))

	p, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := p.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := p.Close(); err == nil {
		t.Errorf("second Close succeeded")
	}
	if _, err := p.Write([]byte("x")); err == nil {
		t.Errorf("Write on closed publisher succeeded")
	}
}

func TestPublisherDialFailure(t *testing.T) {
	config.SetCollectorURL("ws://127.0.0.1:1/ws")
	if _, err := New(); err == nil {
		t.Fatalf("New succeeded without a collector")
	}
}
