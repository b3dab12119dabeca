package multiping

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/probeware/icmpx/pkg/echo"
	"github.com/probeware/icmpx/pkg/icmpsock"
	"github.com/probeware/icmpx/pkg/pingdata"
)

// target tracks one destination's probe schedule.
type target struct {
	host      *pingdata.Host
	id        uint16
	seq       uint16
	remaining int
	inflight  bool
	nextSend  time.Time
}

// probe is one request awaiting its reply.
type probe struct {
	t        *target
	sentAt   time.Time
	deadline time.Time
}

// key correlates a reply to its pending probe.
func key(id, seq uint16) uint32 {
	return uint32(id)<<16 | uint32(seq)
}

// schedule runs the per-family event loop: it paces sends per
// destination, bounds the number of probes in flight and matches
// replies to pending probes by identifier and sequence. Unknown
// replies are dropped, unanswered probes expire at their deadline.
func (mp *MultiPinger) schedule(ctx context.Context, sock *icmpsock.Socket, hosts []*pingdata.Host) error {
	maxInflight := mp.ConcurrentProbes
	if maxInflight < 1 {
		maxInflight = 1
	}

	// Raw sockets get one identifier per destination, derived from
	// the process ID with natural uint16 wraparound. Unprivileged
	// sockets share the kernel's identifier, so uniqueness comes
	// from a sequence counter spanning the whole batch.
	base := uint16(os.Getpid())
	targets := make([]*target, len(hosts))
	for i, h := range hosts {
		targets[i] = &target{
			host:      h,
			id:        base + uint16(i),
			remaining: mp.Count,
		}
	}
	var batchSeq uint16

	pending := make(map[uint32]*probe)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		now := time.Now()

		for k, pb := range pending {
			if !pb.deadline.After(now) {
				delete(pending, k)
				pb.t.inflight = false
			}
		}

		allDone := true
		var wake time.Time
		for _, t := range targets {
			if t.remaining == 0 {
				continue
			}
			allDone = false
			if t.inflight || len(pending) >= maxInflight {
				continue
			}
			if t.nextSend.After(now) {
				wake = earlier(wake, t.nextSend)
				continue
			}

			id, seq := t.id, t.seq
			if sock.Privileged() {
				t.seq++
			} else {
				id = sock.ID()
				seq = batchSeq
				batchSeq++
			}

			req := echo.NewRequest(t.host.Addr(), id, seq)
			req.TTL = mp.TTL
			req.TrafficClass = mp.TrafficClass
			req.SetPayloadSize(mp.PayloadSize)

			t.remaining--
			t.nextSend = now.Add(mp.Interval)
			if err := sock.Send(req); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				continue
			}
			t.host.CountSent(1)
			t.inflight = true
			pending[key(id, seq)] = &probe{
				t:        t,
				sentAt:   req.SentAt(),
				deadline: req.SentAt().Add(mp.Timeout),
			}
		}

		if allDone && len(pending) == 0 {
			return nil
		}

		for _, pb := range pending {
			wake = earlier(wake, pb.deadline)
		}

		if len(pending) == 0 {
			if err := sleepUntil(ctx, wake); err != nil {
				return err
			}
			continue
		}

		wait := time.Until(wake)
		if wait < 0 {
			wait = 0
		}
		reply, err := sock.Receive(ctx, wait)
		switch {
		case err == nil:
			k := key(reply.ID, reply.Sequence)
			pb, ok := pending[k]
			if !ok {
				continue
			}
			delete(pending, k)
			pb.t.inflight = false
			if reply.Status() == nil {
				pb.t.host.AddRTT(reply.ReceivedAt.Sub(pb.sentAt))
			}
		case errors.Is(err, icmpsock.ErrTimeout):
		default:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
	}
}

func earlier(a, b time.Time) time.Time {
	if a.IsZero() || b.Before(a) {
		return b
	}
	return a
}

func sleepUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
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
