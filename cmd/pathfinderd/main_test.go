package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-pathfinder/pkg/config"
	"github.com/dd0wney/cluso-pathfinder/pkg/logging"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Jobs.ProcessingDelay = 0
	cfg.Log.Level = "error"
	return cfg
}

func startApp(t *testing.T, cfg *config.Config) (*app, *httptest.Server) {
	t.Helper()
	a, err := newApp(context.Background(), cfg, logging.NewNopLogger())
	require.NoError(t, err)
	ts := httptest.NewServer(a.api.Handler())
	t.Cleanup(ts.Close)
	return a, ts
}

func post(t *testing.T, base, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(base+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp.StatusCode
}

func TestNewApp_MemoryStores(t *testing.T) {
	a, ts := startApp(t, testConfig(t))
	defer a.Close()

	for _, n := range []string{"A", "B"} {
		assert.Equal(t, http.StatusCreated, post(t, ts.URL, "/create-node/", `{"name":"`+n+`"}`).StatusCode)
	}
	assert.Equal(t, http.StatusOK, post(t, ts.URL, "/connect-nodes/", `{"FromNode":"A","ToNode":"B"}`).StatusCode)

	var path struct {
		Path []string `json:"path"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/find-path/?FromNode=A&ToNode=B", &path))
	assert.Equal(t, []string{"A", "B"}, path.Path)
}

func TestNewApp_DurableStoresSurviveRestart(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.DataDir = t.TempDir()
	cfg.Jobs.Store = config.BackendBadger
	cfg.Jobs.BadgerDir = t.TempDir()

	a, ts := startApp(t, cfg)
	post(t, ts.URL, "/create-node/", `{"name":"A"}`)
	post(t, ts.URL, "/create-node/", `{"name":"B"}`)
	post(t, ts.URL, "/connect-nodes/", `{"FromNode":"A","ToNode":"B"}`)

	resp := post(t, ts.URL, "/slow-find-path/", `{"FromNode":"A","ToNode":"B"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var task struct {
		TaskID string `json:"task_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&task))

	var result struct {
		Status string   `json:"status"`
		Result []string `json:"result"`
	}
	getJSON(t, ts.URL+"/get-slow-path-result/?wait=5s&task_id="+task.TaskID, &result)
	require.Equal(t, "SUCCESS", result.Status)

	ts.Close()
	a.Close()

	b, ts2 := startApp(t, cfg)
	defer b.Close()

	result.Status, result.Result = "", nil
	getJSON(t, ts2.URL+"/get-slow-path-result/?task_id="+task.TaskID, &result)
	assert.Equal(t, "SUCCESS", result.Status)
	assert.Equal(t, []string{"A", "B"}, result.Result)

	resp = post(t, ts2.URL, "/create-node/", `{"name":"A"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestNewApp_UnreachableNATSIsNotFatal(t *testing.T) {
	cfg := testConfig(t)
	cfg.Events.NATSURL = "nats://127.0.0.1:1"

	a, err := newApp(context.Background(), cfg, logging.NewNopLogger())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.publisher)
}

func TestRun_InvalidFlag(t *testing.T) {
	err := run(context.Background(), []string{"-env-file", "", "-port", "not-a-number"}, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-port")
}

func TestRun_InvalidConfig(t *testing.T) {
	err := run(context.Background(), []string{"-env-file", "", "-store", "sqlite"}, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.backend")
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, []string{"-env-file", "", "-port", "0", "-processing-delay", "0s"}, io.Discard)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestRun_MissingTLSCertificate(t *testing.T) {
	dir := t.TempDir()
	err := run(context.Background(), []string{
		"-env-file", "",
		"-tls-cert", dir + "/server.crt",
		"-tls-key", dir + "/server.key",
	}, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load TLS certificate")
}
