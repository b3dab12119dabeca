// publisher streams monitoring reports to a collector endpoint over
// websocket.
package publisher

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/probeware/icmpx/internal/config"
	"github.com/probeware/icmpx/internal/logger"
	"github.com/probeware/icmpx/internal/monitor"
	"github.com/probeware/icmpx/pkg/state"
)

const pkgName = "Publisher. "

const (
	stopped = iota
	running
)

type Publisher struct {
	sync.Mutex
	state state.Machine
	ws    *websocket.Conn
	url   string
	token string
}

// New dials the collector. The endpoint and credentials come from the
// daemon configuration.
func New() (*Publisher, error) {
	p := Publisher{
		url:   config.GetCollectorURL(),
		token: config.GetCollectorToken(),
	}

	if err := p.connect(); err != nil {
		return nil, err
	}

	return &p, nil
}

func (p *Publisher) connect() error {
	headers := http.Header{}
	// Collectors drop unauthenticated connections silently
	if p.token != "" {
		headers.Set("authorization", p.token)
	}
	headers.Set("x-devicename", config.GetDeviceName())

	ws, resp, err := websocket.DefaultDialer.Dial(p.url, headers)
	if err != nil {
		var httpCode int
		if resp != nil {
			httpCode = resp.StatusCode
		}
		logger.Error().Printf("%sdial error: %s (HTTP: %d)\n", pkgName, err.Error(), httpCode)
		return err
	}

	p.ws = ws
	p.state.Set(running)
	return nil
}

// Process implements monitor.Sink. Reports are sent as JSON text
// messages. A failed write triggers one reconnect attempt, the report
// is dropped when that fails too.
func (p *Publisher) Process(r *monitor.Report) {
	b, err := json.Marshal(r)
	if err != nil {
		logger.Error().Println(pkgName, "marshal report:", err)
		return
	}

	if _, err := p.Write(b); err == nil {
		return
	}
	if p.state.Get() == stopped {
		return
	}

	logger.Warning().Println(pkgName, "write failed, reconnecting")
	p.Lock()
	p.ws.Close()
	err = p.connect()
	p.Unlock()
	if err != nil {
		return
	}
	p.Write(b)
}

func (p *Publisher) Write(b []byte) (n int, err error) {
	if p.state.Get() == stopped {
		return 0, fmt.Errorf("publisher is not running")
	}
	/*
		gorilla/websocket concurency:
			Connections support one concurrent reader and one concurrent writer.
			Applications are responsible for ensuring that no more than one goroutine calls the write methods
	*/
	p.Lock()
	defer p.Unlock()

	err = p.ws.WriteMessage(websocket.TextMessage, b)
	if err != nil {
		logger.Error().Println(pkgName, "websocket write error:", err)
	} else {
		n = len(b)
	}
	return n, err
}

// Close sends a close message and drops the connection.
func (p *Publisher) Close() error {
	if !p.state.Transition(running, stopped) {
		return fmt.Errorf("publisher already closed")
	}

	p.Lock()
	defer p.Unlock()

	err := p.ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		logger.Warning().Println(pkgName, "write close:", err)
	}

	return p.ws.Close()
}
