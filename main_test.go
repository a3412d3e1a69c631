package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serenity-driver/driver"
	"serenity-driver/minestub"
)

func TestMetricsServer_ExposesDriverMetrics(t *testing.T) {
	node := httptest.NewServer(minestub.New())
	defer node.Close()

	reg := prometheus.NewRegistry()
	d, err := driver.New(node.URL,
		driver.WithOutput(io.Discard),
		driver.WithMetrics(driver.NewMetrics(reg)),
	)
	require.NoError(t, err)

	_, err = d.Run(context.Background())
	require.NoError(t, err)

	srv := newMetricsServer(":0", reg)
	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `serenity_driver_requests_total{code="200"} 100`)
	assert.Contains(t, string(body), "serenity_driver_request_duration_seconds_count 100")
}

func TestNewLogger_Level(t *testing.T) {
	l := newLogger(zerolog.WarnLevel)
	assert.Equal(t, zerolog.WarnLevel, l.GetLevel())

	var buf bytes.Buffer
	l = l.Output(&buf)
	l.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	l.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "run_id")
}

const mainChildEnv = "SERENITY_DRIVER_RUN_MAIN"

// TestRunMain runs main in a child process started by runMain.
func TestRunMain(t *testing.T) {
	if os.Getenv(mainChildEnv) != "1" {
		t.Skip("only runs as a child process")
	}
	main()
	// skip the test framework's PASS line so stdout only holds response bodies
	os.Exit(0)
}

func runMain(t *testing.T, env map[string]string) (stdout string, exitCode int) {
	t.Helper()

	cmd := exec.Command(os.Args[0], "-test.run=^TestRunMain$")

	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "SERENITY_") {
			continue
		}
		cmd.Env = append(cmd.Env, kv)
	}
	cmd.Env = append(cmd.Env, mainChildEnv+"=1")
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		require.True(t, errors.As(err, &exitErr), "running child: %v, stderr: %s", err, errOut.String())
		return out.String(), exitErr.ExitCode()
	}

	return out.String(), 0
}

func TestBinary_PrintsEveryResponse(t *testing.T) {
	stub := minestub.New()
	node := httptest.NewServer(stub)
	defer node.Close()

	out, code := runMain(t, map[string]string{"SERENITY_BASE_URL": node.URL})

	assert.Equal(t, 0, code)
	assert.Equal(t, strings.Repeat(minestub.DefaultReply+"\n", 100), out)
	assert.Equal(t, 100, stub.Count())
}

func TestBinary_ExitsOnConnectionFailure(t *testing.T) {
	node := httptest.NewServer(minestub.New())
	baseURL := node.URL
	node.Close()

	out, code := runMain(t, map[string]string{"SERENITY_BASE_URL": baseURL})

	assert.NotEqual(t, 0, code)
	assert.Empty(t, out)
}

func TestBinary_ExitsOnFailureMidRun(t *testing.T) {
	stub := minestub.New(minestub.WithDropAfter(5))
	node := httptest.NewServer(stub)
	defer node.Close()

	out, code := runMain(t, map[string]string{"SERENITY_BASE_URL": node.URL})

	assert.NotEqual(t, 0, code)
	assert.Equal(t, strings.Repeat(minestub.DefaultReply+"\n", 5), out)
	assert.Equal(t, 6, stub.Count())
}

func TestBinary_ExitsOnInvalidConfig(t *testing.T) {
	stub := minestub.New()
	node := httptest.NewServer(stub)
	defer node.Close()

	out, code := runMain(t, map[string]string{
		"SERENITY_BASE_URL":  node.URL,
		"SERENITY_LOG_LEVEL": "loud",
	})

	assert.NotEqual(t, 0, code)
	assert.Empty(t, out)
	assert.Equal(t, 0, stub.Count())
}
