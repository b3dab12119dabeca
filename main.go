package main

import (
	"context"
	"flag"
	"fmt"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/probeware/icmpx/internal/config"
	"github.com/probeware/icmpx/internal/exporter"
	"github.com/probeware/icmpx/internal/logger"
	"github.com/probeware/icmpx/internal/monitor"
	"github.com/probeware/icmpx/internal/netiface"
	"github.com/probeware/icmpx/internal/publisher"
	"github.com/probeware/icmpx/pkg/echo"
	"github.com/probeware/icmpx/pkg/resolve"
)

const (
	fullAppName = "icmpx. "
	version     = "1.2.0"
)

func main() {
	exitCode := 0
	defer func() { os.Exit(exitCode) }()

	var (
		showVersionAndExit = flag.Bool("version", false, "Show version and exit")
		daemon             = flag.Bool("d", false, "Run the monitoring daemon")
		trace              = flag.Bool("t", false, "Trace the route instead of pinging")

		count       = flag.Int("c", 0, "Requests per target (0 uses the mode default)")
		interval    = flag.Float64("i", 1.0, "Seconds between requests")
		timeout     = flag.Float64("W", 2.0, "Seconds to wait for each reply")
		payloadSize = flag.Int("s", echo.DefaultPayloadSize, "Payload size in bytes")
		ttl         = flag.Int("ttl", echo.DefaultTTL, "IP time to live")
		iface       = flag.String("I", "", "Interface to send from")
		privileged  = flag.Bool("privileged", false, "Use raw ICMP sockets")
		broadcast   = flag.Bool("b", false, "Allow pinging a broadcast address")
		fast        = flag.Bool("f", false, "Traceroute: stop probing a hop after its first response")
		forceV4     = flag.Bool("4", false, "Force IPv4")
		forceV6     = flag.Bool("6", false, "Force IPv6")
		verbose     = flag.Int("v", -1, "Log level 0..3 (debug..error)")
	)
	flag.Parse()

	if *showVersionAndExit {
		fmt.Printf("%s%s\n", fullAppName, version)
		return
	}

	config.Init()
	if *verbose >= logger.DebugLevel && *verbose <= logger.ErrorLevel {
		config.SetDebugLevel(*verbose)
	}
	logger.SetupGlobalLoger(config.GetDebugLevel(), os.Stderr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	terminate := make(chan os.Signal, 1)
	signal.Notify(terminate, os.Interrupt, syscall.SIGTERM)

	if *daemon {
		applyDaemonFlags(*count, *interval, *timeout, *iface, *privileged)
		exitCode = runDaemon(ctx, terminate)
		return
	}

	go func() {
		<-terminate
		cancel()
	}()

	targets := flag.Args()
	if len(targets) == 0 {
		fmt.Fprintln(os.Stderr, "usage: icmpx [options] target...")
		flag.PrintDefaults()
		exitCode = -22 // errno.h -EINVAL
		return
	}

	family := resolve.FamilyAuto
	switch {
	case *forceV4:
		family = echo.FamilyIPv4
	case *forceV6:
		family = echo.FamilyIPv6
	}

	opts := probeOptions{
		count:       *count,
		interval:    secondsDuration(*interval),
		timeout:     secondsDuration(*timeout),
		payloadSize: *payloadSize,
		ttl:         *ttl,
		iface:       *iface,
		privileged:  *privileged,
		broadcast:   *broadcast,
		fast:        *fast,
		family:      family,
	}

	switch {
	case *trace:
		exitCode = runTraceroute(ctx, targets[0], opts)
	case len(targets) == 1:
		exitCode = runPing(ctx, targets[0], opts)
	default:
		exitCode = runMultiping(ctx, targets, opts)
	}
}

func applyDaemonFlags(count int, interval, timeout float64, iface string, privileged bool) {
	if count > 0 {
		config.SetCount(count)
	}
	if interval > 1 {
		config.SetPeriod(secondsDuration(interval))
	}
	config.SetTimeout(secondsDuration(timeout))
	if iface != "" {
		config.SetInterface(iface)
	}
	if privileged {
		config.SetPrivileged(true)
	}
	if args := flag.Args(); len(args) > 0 {
		config.SetTargets(args)
	}
}

func runDaemon(ctx context.Context, terminate <-chan os.Signal) int {
	logger.Info().Println(fullAppName, version, "daemon started")

	mon := monitor.New(ctx)

	if port := config.GetMetricsPort(); port > 0 {
		exp, err := exporter.New(port)
		if err != nil {
			logger.Error().Println(fullAppName, "metrics exporter:", err)
			return -12 // errno.h -ENOMEM
		}
		if err := exp.Run(ctx); err != nil {
			logger.Error().Println(fullAppName, "metrics exporter:", err)
			return -12
		}
		mon.AddSink(exp.Collector())
	}

	var pub *publisher.Publisher
	if config.GetCollectorURL() != "" {
		var err error
		pub, err = publisher.New()
		if err != nil {
			logger.Error().Println(fullAppName, "collector connection:", err)
			return -111 // errno.h -ECONNREFUSED
		}
		defer pub.Close()
		mon.AddSink(pub)
	}

	if err := mon.Start(); err != nil {
		logger.Error().Println(fullAppName, "monitor:", err)
		return -12
	}

	<-terminate
	logger.Info().Println(fullAppName, "terminating")
	mon.Stop()
	return 0
}

// sourceForInterface maps a device name to a source address for the
// target's family. When the lookup fails the socket still binds to
// the device itself.
func sourceForInterface(ifname string, family echo.Family) (netip.Addr, string) {
	if ifname == "" {
		return netip.Addr{}, ""
	}
	addr, err := netiface.SourceAddr(ifname, family)
	if err != nil {
		logger.Warning().Println(fullAppName, err)
		return netip.Addr{}, ifname
	}
	return addr, ""
}

func secondsDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
