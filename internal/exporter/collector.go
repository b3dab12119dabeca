package exporter

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/probeware/icmpx/internal/monitor"
)

var (
	labels  = []string{"target", "ip"}
	descRTT = prometheus.NewDesc(
		"icmpx_rtt_ms",
		"Mean round trip time to the target",
		labels, nil,
	)
	descLoss = prometheus.NewDesc(
		"icmpx_packet_loss",
		"Packet loss ratio to the target",
		labels, nil,
	)
	descJitter = prometheus.NewDesc(
		"icmpx_jitter_ms",
		"Round trip time jitter to the target",
		labels, nil,
	)
)

// rttCollector exposes the latest monitoring round as gauges.
// Targets absent from a round drop out of the scrape, so a shrinking
// target list does not leave stale series behind.
type rttCollector struct {
	sync.Mutex
	results []monitor.Result
}

func newRTTCollector() *rttCollector {
	return &rttCollector{}
}

// Process implements monitor.Sink.
func (rc *rttCollector) Process(r *monitor.Report) {
	rc.Lock()
	defer rc.Unlock()
	rc.results = r.Results
}

func (rc *rttCollector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(rc, ch)
}

func (rc *rttCollector) Collect(ch chan<- prometheus.Metric) {
	rc.Lock()
	defer rc.Unlock()

	for _, res := range rc.results {
		ch <- prometheus.MustNewConstMetric(
			descRTT,
			prometheus.GaugeValue,
			float64(res.LatencyMs),
			res.Target, res.IP,
		)
		ch <- prometheus.MustNewConstMetric(
			descLoss,
			prometheus.GaugeValue,
			float64(res.Loss),
			res.Target, res.IP,
		)
		ch <- prometheus.MustNewConstMetric(
			descJitter,
			prometheus.GaugeValue,
			float64(res.JitterMs),
			res.Target, res.IP,
		)
	}
}
