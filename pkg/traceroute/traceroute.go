// Package traceroute discovers the route to a host by sending Echo
// Requests with increasing TTL and listening for Time Exceeded
// messages from intermediate routers.
package traceroute

import (
	"context"
	"errors"
	"net/netip"
	"os"
	"time"

	"github.com/probeware/icmpx/pkg/echo"
	"github.com/probeware/icmpx/pkg/icmpsock"
	"github.com/probeware/icmpx/pkg/pingdata"
	"github.com/probeware/icmpx/pkg/resolve"
)

const (
	DefaultCount    = 2
	DefaultInterval = 50 * time.Millisecond
	DefaultTimeout  = 2 * time.Second
	DefaultFirstHop = 1
	DefaultMaxHops  = 30
)

// Tracer runs a route trace. Raw ICMP sockets are required, so the
// caller needs the privileges for them.
type Tracer struct {
	// Count is the number of probes per TTL.
	Count int
	// Interval is the pause after a Time Exceeded answer before
	// probing the same TTL again. No pause follows other outcomes.
	Interval time.Duration
	// Timeout is the wait for each probe's answer.
	Timeout time.Duration

	// FirstHop is the TTL of the first probe.
	FirstHop int
	// MaxHops caps the distance probed.
	MaxHops int

	// Fast stops probing a TTL after its first response.
	Fast bool

	PayloadSize  int
	TrafficClass int

	// ID is the Echo identifier, zero derives one from the process ID.
	ID uint16

	Family    echo.Family
	Source    netip.Addr
	Interface string
}

// New returns a tracer with the usual defaults.
func New() *Tracer {
	return &Tracer{
		Count:       DefaultCount,
		Interval:    DefaultInterval,
		Timeout:     DefaultTimeout,
		FirstHop:    DefaultFirstHop,
		MaxHops:     DefaultMaxHops,
		PayloadSize: echo.DefaultPayloadSize,
		Family:      resolve.FamilyAuto,
	}
}

// Trace resolves the target and returns the responding hops in
// distance order. Distances that never answered are absent from the
// result, so consecutive hops may be more than one TTL apart.
func (t *Tracer) Trace(ctx context.Context, target string) ([]*pingdata.Hop, error) {
	addr, err := resolve.ResolveOne(ctx, target, t.Family)
	if err != nil {
		return nil, err
	}
	return t.TraceAddr(ctx, addr)
}

// TraceAddr traces the route to an already resolved address.
func (t *Tracer) TraceAddr(ctx context.Context, addr netip.Addr) ([]*pingdata.Hop, error) {
	sock, err := icmpsock.New(echo.AddrFamily(addr), icmpsock.Config{
		Source:     t.Source,
		Interface:  t.Interface,
		Privileged: true,
	})
	if err != nil {
		return nil, err
	}
	defer sock.Close()

	id := t.ID
	if id == 0 {
		id = uint16(os.Getpid())
	}

	var hops []*pingdata.Hop
	var seq uint16
	reached := false

	for ttl := t.FirstHop; ttl <= t.MaxHops && !reached; ttl++ {
		var hop *pingdata.Host
		sent := 0

		for probe := 0; probe < t.Count; probe++ {
			req := echo.NewRequest(addr, id, seq)
			seq++
			req.TTL = ttl
			req.TrafficClass = t.TrafficClass
			req.SetPayloadSize(t.PayloadSize)

			if err := sock.Send(req); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				continue
			}
			sent++

			reply, err := t.awaitReply(ctx, sock, req)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				continue
			}

			status := reply.Status()
			var timeExceeded *echo.TimeExceededError
			switch {
			case status == nil:
			case errors.As(status, &timeExceeded):
			default:
				// Destination Unreachable and friends do not tell us
				// anything about this distance.
				continue
			}

			// The first responder names the hop. Late answers from
			// other routers at the same distance only add timing.
			if hop == nil {
				hop = pingdata.NewHost(reply.Source)
			}
			hop.AddRTT(reply.RTT(req.SentAt()))

			if reply.Source == addr {
				reached = true
			}
			if t.Fast {
				break
			}
			if timeExceeded != nil && probe < t.Count-1 {
				if err := sleep(ctx, t.Interval); err != nil {
					return nil, err
				}
			}
		}

		if hop != nil {
			hop.CountSent(sent)
			hops = append(hops, pingdata.NewHop(hop, ttl))
		}
	}

	return hops, nil
}

func (t *Tracer) awaitReply(ctx context.Context, sock *icmpsock.Socket, req *echo.Request) (*echo.Reply, error) {
	deadline := req.SentAt().Add(t.Timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, icmpsock.ErrTimeout
		}
		reply, err := sock.Receive(ctx, remaining)
		if err != nil {
			return nil, err
		}
		if reply.ID == req.ID && reply.Sequence == req.Sequence {
			return reply, nil
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
