// Package procinfo samples the resource usage of the driver process and
// exports it as Prometheus gauges.
package procinfo

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

type Exporter struct {
	proc *SingleProcInfo
	rss  prometheus.Gauge
	cpu  prometheus.Gauge
	log  zerolog.Logger
}

func NewExporter(reg prometheus.Registerer, proc *SingleProcInfo, log zerolog.Logger) *Exporter {
	factory := promauto.With(reg)

	return &Exporter{
		proc: proc,
		rss: factory.NewGauge(prometheus.GaugeOpts{
			Name: "serenity_driver_process_rss_mib",
			Help: "Resident memory of the driver process in MiB",
		}),
		cpu: factory.NewGauge(prometheus.GaugeOpts{
			Name: "serenity_driver_process_cpu_seconds",
			Help: "User and system CPU time of the driver process",
		}),
		log: log,
	}
}

// PollLoop refreshes the gauges every interval until ctx is done.
func (e *Exporter) PollLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := e.Update(); err != nil {
				e.log.Warn().Err(err).Msg("sampling process")
			}
		}
	}
}

// Update takes one sample and sets the gauges from it.
func (e *Exporter) Update() (Sample, error) {
	s, err := e.proc.Sample()
	if err != nil {
		return Sample{}, err
	}

	e.rss.Set(s.RSSMiB)
	e.cpu.Set(s.CPUSeconds)

	return s, nil
}
