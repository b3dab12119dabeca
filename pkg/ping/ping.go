// Package ping probes a single host with ICMP Echo Requests and
// aggregates the replies.
package ping

import (
	"context"
	"net/netip"
	"os"
	"time"

	"github.com/probeware/icmpx/pkg/echo"
	"github.com/probeware/icmpx/pkg/icmpsock"
	"github.com/probeware/icmpx/pkg/pingdata"
	"github.com/probeware/icmpx/pkg/resolve"
)

const (
	DefaultCount    = 4
	DefaultInterval = time.Second
	DefaultTimeout  = 2 * time.Second
)

// Pinger probes one target. The zero value is not usable, construct
// with New and adjust fields before calling Ping.
type Pinger struct {
	// Count is how many Echo Requests to send.
	Count int
	// Interval is the pause between consecutive sends.
	Interval time.Duration
	// Timeout is the wait for each reply.
	Timeout time.Duration

	PayloadSize  int
	TTL          int
	TrafficClass int

	// ID is the Echo identifier. Zero picks one from the process ID.
	// On unprivileged sockets the kernel's identifier replaces it.
	ID uint16

	// Family forces an address family, resolve.FamilyAuto lets the
	// resolver decide.
	Family echo.Family

	Source     netip.Addr
	Interface  string
	Privileged bool

	// Broadcast enables probing IPv4 broadcast addresses. Every
	// responder's reply is counted against the same host entry.
	Broadcast bool

	// OnReply, when set, is invoked for every matching reply,
	// including ICMP error responses. RTT is zero for errors.
	OnReply func(reply *echo.Reply, rtt time.Duration)
}

// New returns a pinger with the usual defaults.
func New() *Pinger {
	return &Pinger{
		Count:       DefaultCount,
		Interval:    DefaultInterval,
		Timeout:     DefaultTimeout,
		PayloadSize: echo.DefaultPayloadSize,
		TTL:         echo.DefaultTTL,
		Family:      resolve.FamilyAuto,
	}
}

// Ping resolves the target, probes it Count times and returns the
// aggregated result. Lost probes and ICMP errors count as loss, only
// socket setup, resolution and context cancellation fail the call.
func (p *Pinger) Ping(ctx context.Context, target string) (*pingdata.Host, error) {
	addr, err := resolve.ResolveOne(ctx, target, p.Family)
	if err != nil {
		return nil, err
	}
	return p.PingAddr(ctx, addr)
}

// PingAddr probes an already resolved address.
func (p *Pinger) PingAddr(ctx context.Context, addr netip.Addr) (*pingdata.Host, error) {
	sock, err := icmpsock.New(echo.AddrFamily(addr), icmpsock.Config{
		Source:     p.Source,
		Interface:  p.Interface,
		Privileged: p.Privileged,
	})
	if err != nil {
		return nil, err
	}
	defer sock.Close()

	if p.Broadcast {
		if err := sock.SetBroadcast(true); err != nil {
			return nil, err
		}
	}

	id := p.ID
	if id == 0 {
		id = uint16(os.Getpid())
	}
	if !sock.Privileged() {
		id = sock.ID()
	}

	host := pingdata.NewHost(addr)

	for seq := 0; seq < p.Count; seq++ {
		if seq > 0 {
			if err := sleep(ctx, p.Interval); err != nil {
				return nil, err
			}
		}

		req := echo.NewRequest(addr, id, uint16(seq))
		req.TTL = p.TTL
		req.TrafficClass = p.TrafficClass
		req.SetPayloadSize(p.PayloadSize)

		if err := sock.Send(req); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			continue
		}
		host.CountSent(1)

		if p.Broadcast {
			p.collectBroadcast(ctx, sock, req, host)
			continue
		}

		reply, err := p.awaitReply(ctx, sock, req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			continue
		}

		rtt := time.Duration(0)
		if reply.Status() == nil {
			rtt = reply.RTT(req.SentAt())
			host.AddRTT(rtt)
		}
		if p.OnReply != nil {
			p.OnReply(reply, rtt)
		}
	}

	return host, nil
}

// awaitReply waits for the reply matching req, dropping unrelated
// traffic until the timeout.
func (p *Pinger) awaitReply(ctx context.Context, sock *icmpsock.Socket, req *echo.Request) (*echo.Reply, error) {
	deadline := req.SentAt().Add(p.Timeout)
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

// collectBroadcast gathers every matching reply to one request until
// the timeout runs out.
func (p *Pinger) collectBroadcast(ctx context.Context, sock *icmpsock.Socket, req *echo.Request, host *pingdata.Host) {
	deadline := req.SentAt().Add(p.Timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		reply, err := sock.Receive(ctx, remaining)
		if err != nil {
			return
		}
		if reply.ID != req.ID || reply.Sequence != req.Sequence {
			continue
		}
		rtt := time.Duration(0)
		if reply.Status() == nil {
			rtt = reply.RTT(req.SentAt())
			host.AddRTT(rtt)
		}
		if p.OnReply != nil {
			p.OnReply(reply, rtt)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
