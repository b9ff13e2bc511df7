package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/mzee2025/rdi-dashboard/internal/model"
	"github.com/mzee2025/rdi-dashboard/internal/refresh"
	"github.com/mzee2025/rdi-dashboard/internal/source"
	"github.com/mzee2025/rdi-dashboard/internal/storage"
	"github.com/mzee2025/rdi-dashboard/internal/store"
)

const exportJSON = `[
  {"_submission_time": "2025-11-02T08:00:00", "_duration": 2700, "district": "A", "enumerator_id": "E1", "hh_geopoint": "0.30 32.50 1200 5"},
  {"_submission_time": "2025-11-03T09:30:00", "_duration": 600, "district": "B", "enumerator_id": "E2", "hh_geopoint": "0.31 32.58"}
]`

// gatedSource blocks Fetch until gate is closed.
type gatedSource struct {
	source.Source
	gate chan struct{}
}

func (g gatedSource) Fetch(ctx context.Context) (*model.RecordSet, error) {
	<-g.gate
	return g.Source.Fetch(ctx)
}

type env struct {
	srv  *httptest.Server
	orch *refresh.Orchestrator
}

func newEnv(t *testing.T, src source.Source) *env {
	t.Helper()
	dir := t.TempDir()
	files, err := storage.NewFileStore(filepath.Join(dir, "data"))
	require.NoError(t, err)
	runs, err := store.NewSQLite(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	require.NoError(t, runs.Migrate(context.Background()))
	t.Cleanup(func() { runs.Close() }) //nolint:errcheck

	reg := prometheus.NewRegistry()
	orch := refresh.New(refresh.Config{
		Source:       src,
		Files:        files,
		Runs:         runs,
		SettingsPath: filepath.Join(dir, "rdi_config.json"),
		Metrics:      refresh.NewMetrics(reg),
	})
	s := New(Config{RefreshInterval: "@every 1h", Gatherer: reg}, orch)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(orch.Wait)
	return &env{srv: ts, orch: orch}
}

func exportSource(t *testing.T) source.Source {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, os.WriteFile(path, []byte(exportJSON), 0o644))
	return source.NewFileSource(path)
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	var sb strings.Builder
	_, err = sb.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, sb.String()
}

func TestDashboard_GeneratesOnFirstLoad(t *testing.T) {
	t.Parallel()
	e := newEnv(t, exportSource(t))

	resp, body := get(t, e.srv.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, "Last Updated:")
	assert.Contains(t, body, "Auto-refresh: Every hour")
	assert.NotContains(t, body, "Last Updated: Unknown")
	assert.Less(t, strings.Index(body, "<body>"), strings.Index(body, "Last Updated:"))

	runs, err := e.orch.Runs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.TriggerPageLoad, runs[0].Trigger)

	// Later loads serve the stored document without another cycle.
	resp, _ = get(t, e.srv.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	runs, err = e.orch.Runs(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestDashboard_SourceFailure(t *testing.T) {
	t.Parallel()
	e := newEnv(t, source.NewFileSource(filepath.Join(t.TempDir(), "missing.json")))

	resp, body := get(t, e.srv.URL+"/")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, "Dashboard Not Available")
	assert.Contains(t, body, `href="/update"`)
}

func TestStatus(t *testing.T) {
	t.Parallel()
	e := newEnv(t, exportSource(t))

	resp, body := get(t, e.srv.URL+"/api/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, "online", got["status"])
	assert.Equal(t, "idle", got["state"])
	assert.Equal(t, false, got["in_progress"])
	assert.Equal(t, false, got["document_exists"])
	assert.Nil(t, got["last_success_time"])

	require.NoError(t, e.orch.Run(context.Background(), model.TriggerCLI))
	_, body = get(t, e.srv.URL+"/api/status")
	got = nil
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, "ready", got["state"])
	assert.Equal(t, true, got["record_set_exists"])
	assert.NotNil(t, got["last_success_time"])
}

func TestUpdate_ConflictWhileRunning(t *testing.T) {
	t.Parallel()
	gate := make(chan struct{})
	e := newEnv(t, gatedSource{Source: exportSource(t), gate: gate})

	resp, err := http.Post(e.srv.URL+"/api/update", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, err = http.Post(e.srv.URL+"/api/update", "application/json", nil)
	require.NoError(t, err)
	var got updateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.False(t, got.Success)
	assert.Equal(t, "Update already in progress", got.Message)

	close(gate)
	e.orch.Wait()
	assert.Equal(t, refresh.StateReady, e.orch.Status().State)
}

func TestUpdatePage(t *testing.T) {
	t.Parallel()
	e := newEnv(t, exportSource(t))

	resp, body := get(t, e.srv.URL+"/update")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "fetch('/api/update'")
}

func TestDownloads(t *testing.T) {
	t.Parallel()
	e := newEnv(t, exportSource(t))

	resp, _ := get(t, e.srv.URL+"/download/report")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = get(t, e.srv.URL+"/download/data")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	require.NoError(t, e.orch.Run(context.Background(), model.TriggerCLI))

	resp, body := get(t, e.srv.URL+"/download/report")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, contentTypeXLSX, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), storage.ReportFile)
	f, err := xlsx.OpenBinary([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "Overview", f.Sheets[0].Name)

	resp, body = get(t, e.srv.URL+"/download/data")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), storage.ExportFile)
	assert.Contains(t, body, "enumerator_id")
	assert.Equal(t, 3, strings.Count(strings.TrimSpace(body), "\n")+1)
}

func TestRunsHealthMetrics(t *testing.T) {
	t.Parallel()
	e := newEnv(t, exportSource(t))

	_, body := get(t, e.srv.URL+"/api/runs")
	assert.JSONEq(t, `{"runs": []}`, body)

	require.NoError(t, e.orch.Run(context.Background(), model.TriggerCLI))
	require.NoError(t, e.orch.Run(context.Background(), model.TriggerCLI))

	_, body = get(t, e.srv.URL+"/api/runs?limit=1")
	var runs runsResponse
	require.NoError(t, json.Unmarshal([]byte(body), &runs))
	require.Len(t, runs.Runs, 1)
	assert.Equal(t, model.RunStatusComplete, runs.Runs[0].Status)

	resp, body := get(t, e.srv.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"healthy"`)

	_, body = get(t, e.srv.URL+"/metrics")
	assert.Contains(t, body, `rdi_refresh_cycles_total{result="success"} 2`)
	assert.Contains(t, body, "rdi_refresh_records 2")
}

func TestCORS(t *testing.T) {
	t.Parallel()
	e := newEnv(t, exportSource(t))

	req, err := http.NewRequest(http.MethodGet, e.srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://example.org")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close() //nolint:errcheck
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestBannerRefresh(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Manual only", bannerRefresh(""))
	assert.Equal(t, "Auto-refresh: Every hour", bannerRefresh("@hourly"))
}
