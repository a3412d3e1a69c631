package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"serenity-driver/config"
	"serenity-driver/driver"
	"serenity-driver/procinfo"
)

const pollInterval = 2 * time.Second

func main() {
	logger := newLogger(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("loading config")
	}

	logger = logger.Level(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics := driver.NewMetrics(reg)

	var exporter *procinfo.Exporter
	if self, err := procinfo.Self(); err != nil {
		logger.Warn().Err(err).Msg("process sampling disabled")
	} else {
		exporter = procinfo.NewExporter(reg, self, logger)
		go exporter.PollLoop(ctx, pollInterval)
	}

	if cfg.MetricsAddr != "" {
		srv := newMetricsServer(cfg.MetricsAddr, reg)
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server")
			}
		}()
		defer srv.Close()
	}

	d, err := driver.New(cfg.BaseURL, driver.WithLogger(logger), driver.WithMetrics(metrics))
	if err != nil {
		logger.Fatal().Err(err).Msg("creating driver")
	}

	n, runErr := d.Run(ctx)

	if exporter != nil {
		if s, err := exporter.Update(); err == nil {
			logger.Debug().
				Int32("pid", s.Pid).
				Float64("rss_mib", s.RSSMiB).
				Float64("cpu_seconds", s.CPUSeconds).
				Msg("process usage")
		}
	}

	if runErr != nil {
		logger.Fatal().Err(runErr).Int("completed", n).Msg("mining run failed")
	}
}

// newLogger writes to stderr; stdout only carries response bodies.
func newLogger(level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Str("run_id", uuid.NewString()).
		Logger()
}

func newMetricsServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
