// monitor runs periodic batch pings over the configured target list
// and hands every round's report to the registered sinks.
package monitor

import (
	"context"
	"net/netip"
	"sync"
	"time"

	"github.com/probeware/icmpx/internal/config"
	"github.com/probeware/icmpx/internal/logger"
	"github.com/probeware/icmpx/internal/netiface"
	"github.com/probeware/icmpx/pkg/echo"
	"github.com/probeware/icmpx/pkg/multiping"
	"github.com/probeware/icmpx/pkg/pubip"
	"github.com/probeware/icmpx/pkg/resolve"
	"github.com/probeware/icmpx/pkg/scontext"
)

const pkgName = "Monitor. "

// Sink consumes the report of a finished round.
type Sink interface {
	Process(r *Report)
}

type Monitor struct {
	sync.Mutex
	ctx    scontext.StartStopContext
	ping   *multiping.MultiPinger
	period time.Duration
	sinks  []Sink
}

// New builds a monitor from the daemon configuration.
func New(ctx context.Context) *Monitor {
	mp := multiping.New()
	mp.Count = config.GetCount()
	mp.Timeout = config.GetTimeout()
	mp.Privileged = config.GetPrivileged()
	mp.Interface = config.GetInterface()

	return &Monitor{
		ctx:    scontext.New(ctx),
		ping:   mp,
		period: config.GetPeriod(),
	}
}

// AddSink registers a report consumer. Not safe to call after Start.
func (m *Monitor) AddSink(s Sink) {
	m.sinks = append(m.sinks, s)
}

// Start begins periodic rounds. The first round runs right away.
func (m *Monitor) Start() error {
	m.Lock()
	defer m.Unlock()

	ctx, err := m.ctx.Start()
	if err != nil {
		return err
	}

	go func() {
		ticker := time.NewTicker(m.period)
		defer ticker.Stop()

		m.round(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.round(ctx)
			}
		}
	}()

	logger.Info().Println(pkgName, "started, period", m.period)
	return nil
}

// Stop cancels the running round and the ticker.
func (m *Monitor) Stop() error {
	m.Lock()
	defer m.Unlock()
	return m.ctx.Stop()
}

// round resolves the targets, probes them and fans the report out.
func (m *Monitor) round(ctx context.Context) {
	targets := config.GetTargets()
	if len(targets) == 0 {
		logger.Warning().Println(pkgName, "no targets configured")
		return
	}

	var addrs []netip.Addr
	names := make(map[netip.Addr]string, len(targets))
	for _, target := range targets {
		addr, err := resolve.ResolveOne(ctx, target, resolve.FamilyAuto)
		if err != nil {
			logger.Warning().Println(pkgName, "resolve:", err)
			continue
		}
		addrs = append(addrs, addr)
		if _, ok := names[addr]; !ok {
			names[addr] = target
		}
	}
	if len(addrs) == 0 {
		return
	}

	m.bindSource(addrs)

	set, err := m.ping.Run(ctx, addrs)
	if err != nil {
		logger.Error().Println(pkgName, "ping round:", err)
		return
	}

	report := newReport(config.GetDeviceName(), publicIP())
	for _, host := range set.Hosts() {
		result := Result{
			Target: names[host.Addr()],
			IP:     host.Addr().String(),
			Loss:   float32(host.PacketLoss()),
		}
		if host.IsAlive() {
			result.LatencyMs = float32(host.AvgRTT().Microseconds()) / 1000
			result.JitterMs = float32(host.Jitter().Microseconds()) / 1000
		}
		report.Results = append(report.Results, result)
	}

	for _, sink := range m.sinks {
		sink.Process(report)
	}
}

// bindSource maps the configured interface to a source address once a
// round, so address changes on the device are picked up.
func (m *Monitor) bindSource(addrs []netip.Addr) {
	ifname := config.GetInterface()
	if ifname == "" {
		return
	}

	family := echo.AddrFamily(addrs[0])
	src, err := netiface.SourceAddr(ifname, family)
	if err != nil {
		logger.Warning().Println(pkgName, "interface source:", err)
		return
	}
	m.ping.Source = src
}

func publicIP() string {
	addr := pubip.Get()
	if !addr.IsValid() || addr.IsUnspecified() {
		return ""
	}
	return addr.String()
}
