package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrawal-rohit/palette-auto-generator/internal/config"
	"github.com/agrawal-rohit/palette-auto-generator/internal/logging"
	"github.com/agrawal-rohit/palette-auto-generator/internal/server"
)

func executeGenerate(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append([]string{"generate", "--log-level", "error"}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		genQuiet, genJSON = false, false
		genAnchor = "#3366ff"
	})
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestGenerateJSON(t *testing.T) {
	out := executeGenerate(t, "--anchor", "#ff8800", "--iterations", "30", "--seed", "9", "--json")

	var result struct {
		State   string            `json:"state"`
		Seed    int64             `json:"seed"`
		Anchor  string            `json:"anchor"`
		Palette map[string]string `json:"palette"`
		Metrics []json.RawMessage `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Contains(t, []string{"converged", "exhausted"}, result.State)
	assert.Equal(t, int64(9), result.Seed)
	assert.Equal(t, "#ff8800", result.Anchor)
	assert.Len(t, result.Palette, 5)
	assert.NotEmpty(t, result.Metrics)
	assert.LessOrEqual(t, len(result.Metrics), 30)
}

func TestGeneratePrintsIterations(t *testing.T) {
	out := executeGenerate(t, "--iterations", "1", "--seed", "4")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.NotEmpty(t, lines)
	fields := strings.Fields(lines[0])
	require.Len(t, fields, 3)
	assert.Equal(t, "0", fields[0])
	assert.Equal(t, "0.950000", fields[2], "one cooling step at the default decay rate")
	assert.Contains(t, out, "state: exhausted after 1 iterations (seed 4)")
	assert.Contains(t, out, "main_text:")
}

func TestGenerateRejectsBadAnchor(t *testing.T) {
	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"generate", "--anchor", "not-a-color"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		genAnchor = "#3366ff"
	})
	assert.Error(t, rootCmd.Execute())
}

func TestRouter(t *testing.T) {
	cfg := &config.Config{}
	cfg.Search.Patience = 3
	cfg.Search.DecayRate = 90
	cfg.Search.MaxIterations = 10
	cfg.Search.MaxRuns = 2
	cfg.Search.RunTTL = time.Hour

	log := logging.New(logging.ErrorLevel, io.Discard)
	srv := server.NewServer(cfg, log)
	t.Cleanup(func() { _ = srv.Close() })
	r := newRouter(log, srv)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(`{"anchor":"#3366ff"}`)))
	assert.Equal(t, http.StatusAccepted, rr.Code)
	srv.Wait()

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "palette_search_runs_started_total 1")
}
