// Package multiping probes many hosts concurrently over one shared
// ICMP socket per address family.
package multiping

import (
	"context"
	"net/netip"
	"sync"
	"time"

	"github.com/probeware/icmpx/pkg/echo"
	"github.com/probeware/icmpx/pkg/icmpsock"
	"github.com/probeware/icmpx/pkg/pingdata"
)

const (
	DefaultCount            = 2
	DefaultInterval         = 500 * time.Millisecond
	DefaultTimeout          = 2 * time.Second
	DefaultConcurrentProbes = 50
)

// MultiPinger probes a batch of addresses. One socket per address
// family is opened on demand, and a single scheduler goroutine per
// family interleaves sends and receives for its share of the batch.
type MultiPinger struct {
	// Count is how many Echo Requests each destination gets.
	Count int
	// Interval paces consecutive sends to the same destination.
	Interval time.Duration
	// Timeout is the wait for each reply.
	Timeout time.Duration
	// ConcurrentProbes bounds the probes in flight per family.
	ConcurrentProbes int

	PayloadSize  int
	TTL          int
	TrafficClass int

	// Source is bound on the socket matching its family.
	Source     netip.Addr
	Interface  string
	Privileged bool
}

// New returns a batch pinger with the usual defaults.
func New() *MultiPinger {
	return &MultiPinger{
		Count:            DefaultCount,
		Interval:         DefaultInterval,
		Timeout:          DefaultTimeout,
		ConcurrentProbes: DefaultConcurrentProbes,
		PayloadSize:      echo.DefaultPayloadSize,
		TTL:              echo.DefaultTTL,
	}
}

// Run probes all addresses and returns one host entry per address, in
// the order the addresses were given. Losses and ICMP errors show up
// in the statistics, only socket failures (setup or receive) and
// context cancellation fail the call.
func (mp *MultiPinger) Run(ctx context.Context, addrs []netip.Addr) (*pingdata.Set, error) {
	set := pingdata.NewSet()
	batches := make(map[echo.Family][]*pingdata.Host)
	seen := make(map[netip.Addr]bool)
	for _, addr := range addrs {
		host := set.Add(addr)
		if seen[addr] {
			continue
		}
		seen[addr] = true
		family := echo.AddrFamily(addr)
		batches[family] = append(batches[family], host)
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(batches))
	for family, hosts := range batches {
		sock, err := icmpsock.New(family, mp.socketConfig(family))
		if err != nil {
			return nil, err
		}
		wg.Add(1)
		go func(sock *icmpsock.Socket, hosts []*pingdata.Host) {
			defer wg.Done()
			defer sock.Close()
			if err := mp.schedule(ctx, sock, hosts); err != nil {
				errs <- err
			}
		}(sock, hosts)
	}
	wg.Wait()

	select {
	case err := <-errs:
		return nil, err
	default:
	}
	return set, nil
}

func (mp *MultiPinger) socketConfig(family echo.Family) icmpsock.Config {
	cfg := icmpsock.Config{
		Interface:  mp.Interface,
		Privileged: mp.Privileged,
	}
	if mp.Source.IsValid() && echo.AddrFamily(mp.Source) == family {
		cfg.Source = mp.Source
	}
	return cfg
}
