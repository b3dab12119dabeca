package main

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/probeware/icmpx/internal/logger"
	"github.com/probeware/icmpx/pkg/echo"
	"github.com/probeware/icmpx/pkg/icmpsock"
	"github.com/probeware/icmpx/pkg/multiping"
	"github.com/probeware/icmpx/pkg/ping"
	"github.com/probeware/icmpx/pkg/resolve"
	"github.com/probeware/icmpx/pkg/traceroute"
)

type probeOptions struct {
	count       int
	interval    time.Duration
	timeout     time.Duration
	payloadSize int
	ttl         int
	iface       string
	privileged  bool
	broadcast   bool
	fast        bool
	family      echo.Family
}

func runPing(ctx context.Context, target string, opts probeOptions) int {
	addr, err := resolve.ResolveOne(ctx, target, opts.family)
	if err != nil {
		logger.Error().Println(fullAppName, err)
		return -2 // errno.h -ENOENT
	}

	p := ping.New()
	if opts.count > 0 {
		p.Count = opts.count
	}
	p.Interval = opts.interval
	p.Timeout = opts.timeout
	p.PayloadSize = opts.payloadSize
	p.TTL = opts.ttl
	p.Privileged = opts.privileged
	p.Broadcast = opts.broadcast
	p.Source, p.Interface = sourceForInterface(opts.iface, echo.AddrFamily(addr))
	p.OnReply = func(reply *echo.Reply, rtt time.Duration) {
		if err := reply.Status(); err != nil {
			fmt.Printf("From %s: icmp_seq=%d %v\n", reply.Source, reply.Sequence, err)
			return
		}
		fmt.Printf("%d bytes from %s: icmp_seq=%d time=%.2f ms\n",
			reply.BytesReceived, reply.Source, reply.Sequence,
			float64(rtt.Microseconds())/1000)
	}

	fmt.Printf("PING %s (%s): %d data bytes\n", target, addr, p.PayloadSize)
	host, err := p.PingAddr(ctx, addr)
	if err != nil {
		return reportProbeError(err)
	}

	fmt.Printf("\n--- %s ping statistics ---\n", target)
	fmt.Printf("%d packets transmitted, %d packets received, %.1f%% packet loss\n",
		host.PacketsSent(), host.PacketsReceived(), host.PacketLoss()*100)
	if host.IsAlive() {
		fmt.Printf("round-trip min/avg/max/jitter = %.3f/%.3f/%.3f/%.3f ms\n",
			ms(host.MinRTT()), ms(host.AvgRTT()), ms(host.MaxRTT()), ms(host.Jitter()))
	}
	if !host.IsAlive() {
		return 1
	}
	return 0
}

func runMultiping(ctx context.Context, targets []string, opts probeOptions) int {
	var addrs []netip.Addr
	names := make(map[netip.Addr]string, len(targets))
	for _, target := range targets {
		addr, err := resolve.ResolveOne(ctx, target, opts.family)
		if err != nil {
			logger.Warning().Println(fullAppName, err)
			continue
		}
		addrs = append(addrs, addr)
		if _, ok := names[addr]; !ok {
			names[addr] = target
		}
	}
	if len(addrs) == 0 {
		logger.Error().Println(fullAppName, "no targets could be resolved")
		return -2
	}

	mp := multiping.New()
	if opts.count > 0 {
		mp.Count = opts.count
	}
	mp.Interval = opts.interval
	mp.Timeout = opts.timeout
	mp.PayloadSize = opts.payloadSize
	mp.TTL = opts.ttl
	mp.Privileged = opts.privileged
	mp.Interface = opts.iface

	set, err := mp.Run(ctx, addrs)
	if err != nil {
		return reportProbeError(err)
	}

	exitCode := 0
	for _, host := range set.Hosts() {
		status := "alive"
		if !host.IsAlive() {
			status = "down"
			exitCode = 1
		}
		fmt.Printf("%-24s %-40s %-6s loss=%3.0f%% avg=%.2f ms jitter=%.2f ms\n",
			names[host.Addr()], host.Addr(), status,
			host.PacketLoss()*100, ms(host.AvgRTT()), ms(host.Jitter()))
	}
	return exitCode
}

func runTraceroute(ctx context.Context, target string, opts probeOptions) int {
	addr, err := resolve.ResolveOne(ctx, target, opts.family)
	if err != nil {
		logger.Error().Println(fullAppName, err)
		return -2
	}

	t := traceroute.New()
	if opts.count > 0 {
		t.Count = opts.count
	}
	t.Timeout = opts.timeout
	t.PayloadSize = opts.payloadSize
	t.Fast = opts.fast
	t.Source, t.Interface = sourceForInterface(opts.iface, echo.AddrFamily(addr))

	fmt.Printf("traceroute to %s (%s), %d hops max\n", target, addr, t.MaxHops)
	hops, err := t.TraceAddr(ctx, addr)
	if err != nil {
		return reportProbeError(err)
	}

	reached := false
	for _, hop := range hops {
		fmt.Printf("%3d  %-40s %.2f ms\n", hop.Distance(), hop.Addr(), ms(hop.AvgRTT()))
		if hop.Addr() == addr {
			reached = true
		}
	}
	if !reached {
		return 1
	}
	return 0
}

func reportProbeError(err error) int {
	if errors.Is(err, context.Canceled) {
		return 0
	}

	logger.Error().Println(fullAppName, err)
	var perm *icmpsock.PermissionError
	if errors.As(err, &perm) {
		return -13 // errno.h -EACCES
	}
	return -5 // errno.h -EIO
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
