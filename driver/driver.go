// Package driver sends the fixed mining request to a node and prints what
// the node answers.
package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const (
	// Iterations is the number of requests sent by Run.
	Iterations = 100
	// MinePath is appended to the base URL as is.
	MinePath = "/mine"
	// MinerAddress is the address sent in every request.
	MinerAddress = "blah"

	userAgent = "serenity-driver"
)

// MineRequest is the JSON body of POST /mine.
type MineRequest struct {
	Address string `json:"address"`
}

// HTTPClient is satisfied by *http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Driver struct {
	client  HTTPClient
	target  string
	payload []byte
	out     io.Writer
	log     zerolog.Logger
	metrics *Metrics
}

// New builds a driver targeting baseURL + MinePath. Without options it uses
// an http.Client with no timeout and writes to os.Stdout.
func New(baseURL string, opts ...Option) (*Driver, error) {
	payload, err := json.Marshal(MineRequest{Address: MinerAddress})
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	d := &Driver{
		client:  &http.Client{},
		target:  baseURL + MinePath,
		payload: payload,
		out:     os.Stdout,
		log:     zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// Target returns the URL every request is sent to.
func (d *Driver) Target() string {
	return d.target
}

// Run sends Iterations requests one after the other and writes each response
// body on its own line, whatever the status code. It stops at the first
// request that fails and returns how many completed before it.
func (d *Driver) Run(ctx context.Context) (int, error) {
	d.log.Info().Str("target", d.target).Int("iterations", Iterations).Msg("starting")

	for i := 0; i < Iterations; i++ {
		body, err := d.mine(ctx, i)
		if err != nil {
			return i, fmt.Errorf("request %d to %s: %w", i+1, d.target, err)
		}

		if _, err := fmt.Fprintln(d.out, string(body)); err != nil {
			return i, fmt.Errorf("writing response %d: %w", i+1, err)
		}
	}

	d.log.Info().Int("completed", Iterations).Msg("done")

	return Iterations, nil
}

func (d *Driver) mine(ctx context.Context, i int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.target, bytes.NewReader(d.payload))
	if err != nil {
		d.metrics.failed()
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()

	resp, err := d.client.Do(req)
	if err != nil {
		d.metrics.failed()
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		d.metrics.failed()
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	elapsed := time.Since(start)
	d.metrics.observe(resp.StatusCode, elapsed)

	d.log.Debug().
		Int("iteration", i+1).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("elapsed", elapsed).
		Msg("mine request")

	return body, nil
}
