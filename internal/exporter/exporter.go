// Prometheus endpoint for monitor results.
package exporter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/probeware/icmpx/internal/logger"
)

const pkgName = "Exporter. "

type Exporter struct {
	port      uint16
	reg       *prometheus.Registry
	collector *rttCollector
}

// New prepares the exporter with its own registry. Its Collector is
// the monitor sink, register that with the monitor to get data in.
func New(port uint16) (*Exporter, error) {
	obj := Exporter{
		port:      port,
		reg:       prometheus.NewRegistry(),
		collector: newRTTCollector(),
	}

	err := obj.reg.Register(obj.collector)
	if err != nil {
		return nil, err
	}

	return &obj, nil
}

// Collector returns the monitor sink feeding this exporter.
func (obj *Exporter) Collector() *rttCollector {
	return obj.collector
}

// Run serves /metrics until the context is cancelled.
func (obj *Exporter) Run(ctx context.Context) error {
	handler := promhttp.HandlerFor(obj.reg, promhttp.HandlerOpts{})
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	logger.Debug().Println(pkgName, "starting on port", obj.port)
	srv := http.Server{
		Addr:         fmt.Sprintf(":%d", obj.port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		err := srv.ListenAndServe()
		if err != http.ErrServerClosed {
			logger.Error().Println(pkgName, err)
		}
	}()

	go func() {
		<-ctx.Done()
		logger.Debug().Println(pkgName, "stopping")
		srv.Close()
	}()

	return nil
}
