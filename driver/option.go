package driver

import (
	"io"

	"github.com/rs/zerolog"
)

type Option func(d *Driver)

func WithClient(c HTTPClient) Option {
	return func(d *Driver) {
		d.client = c
	}
}

// WithOutput sets where response bodies are written.
func WithOutput(w io.Writer) Option {
	return func(d *Driver) {
		d.out = w
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(d *Driver) {
		d.log = l
	}
}

func WithMetrics(m *Metrics) Option {
	return func(d *Driver) {
		d.metrics = m
	}
}
