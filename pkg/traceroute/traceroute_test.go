package traceroute

import (
	"context"
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/probeware/icmpx/pkg/icmpsock"
)

func TestNewDefaults(t *testing.T) {
	tr := New()
	if tr.Count != DefaultCount {
		t.Errorf("count = %d, want %d", tr.Count, DefaultCount)
	}
	if tr.FirstHop != DefaultFirstHop {
		t.Errorf("first hop = %d, want %d", tr.FirstHop, DefaultFirstHop)
	}
	if tr.MaxHops != DefaultMaxHops {
		t.Errorf("max hops = %d, want %d", tr.MaxHops, DefaultMaxHops)
	}
	if tr.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", tr.Timeout, DefaultTimeout)
	}
}

// A loopback trace needs raw sockets, so it only runs privileged.
func TestTraceLoopback(t *testing.T) {
	tr := New()
	tr.Count = 1
	tr.MaxHops = 3
	tr.Timeout = time.Second

	dst := netip.MustParseAddr("127.0.0.1")
	hops, err := tr.TraceAddr(context.Background(), dst)
	if err != nil {
		var perm *icmpsock.PermissionError
		if errors.As(err, &perm) {
			t.Skipf("no raw socket access: %v", err)
		}
		t.Fatalf("TraceAddr failed: %v", err)
	}

	if len(hops) != 1 {
		t.Fatalf("hops = %d, want 1", len(hops))
	}
	hop := hops[0]
	if hop.Distance() != 1 {
		t.Errorf("distance = %d, want 1", hop.Distance())
	}
	if hop.Addr() != dst {
		t.Errorf("hop addr = %v, want %v", hop.Addr(), dst)
	}
	if !hop.IsAlive() {
		t.Errorf("loopback hop recorded no round trip")
	}
}

func TestTraceCancelled(t *testing.T) {
	tr := New()
	tr.Timeout = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.TraceAddr(ctx, netip.MustParseAddr("127.0.0.1"))
	if err == nil {
		t.Fatalf("TraceAddr with cancelled context succeeded")
	}
	var perm *icmpsock.PermissionError
	if errors.As(err, &perm) {
		t.Skipf("no raw socket access: %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want %v", err, context.Canceled)
	}
}

func TestTraceResolveFailure(t *testing.T) {
	tr := New()
	if _, err := tr.Trace(context.Background(), "host.invalid"); err == nil {
		t.Fatalf("Trace of unresolvable name succeeded")
	}
}
