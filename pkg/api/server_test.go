package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-pathfinder/pkg/jobs"
	"github.com/dd0wney/cluso-pathfinder/pkg/storage"
)

type testServer struct {
	*Server
	graph   *storage.GraphStorage
	queue   *jobs.Queue
	handler http.Handler
}

// setupTestServer creates a server over an in-memory graph and an
// instant job queue
func setupTestServer(t *testing.T, cfg Config, opts ...jobs.Option) *testServer {
	t.Helper()

	gs := storage.NewGraphStorage()
	opts = append([]jobs.Option{jobs.WithProcessingDelay(0)}, opts...)
	q, err := jobs.NewQueue(gs, jobs.NewMemoryStore(), opts...)
	require.NoError(t, err)

	s := NewServer(gs, q, cfg)
	t.Cleanup(func() {
		s.Close()
		q.Close()
		gs.Close()
	})

	return &testServer{Server: s, graph: gs, queue: q, handler: s.Handler()}
}

// setupTestServerWithData adds N1 -> N2 -> N3 and an isolated N4
func setupTestServerWithData(t *testing.T, cfg Config, opts ...jobs.Option) *testServer {
	t.Helper()
	ts := setupTestServer(t, cfg, opts...)
	ctx := context.Background()

	for _, n := range []string{"N1", "N2", "N3", "N4"} {
		_, err := ts.graph.CreateNode(ctx, n)
		require.NoError(t, err)
	}
	for _, e := range [][2]string{{"N1", "N2"}, {"N2", "N3"}} {
		_, err := ts.graph.AddEdge(ctx, e[0], e[1])
		require.NoError(t, err)
	}
	return ts
}

func (ts *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) postJSON(t *testing.T, target string, v any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), "body: %s", rr.Body.String())
	return v
}

func TestServer_EndToEndScenario(t *testing.T) {
	ts := setupTestServer(t, Config{})

	for _, n := range []string{"N1", "N2", "N3", "N4"} {
		rr := ts.postJSON(t, "/create-node/", map[string]string{"name": n})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}
	for _, e := range [][2]string{{"N1", "N2"}, {"N2", "N3"}} {
		rr := ts.postJSON(t, "/connect-nodes/", map[string]string{"FromNode": e[0], "ToNode": e[1]})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}

	rr := ts.do(t, http.MethodGet, "/find-path/?FromNode=N1&ToNode=N3", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"path":["N1","N2","N3"]}`, rr.Body.String())

	rr = ts.do(t, http.MethodGet, "/find-path/?FromNode=N1&ToNode=N4", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"path":null}`, rr.Body.String())

	rr = ts.postJSON(t, "/slow-find-path/", map[string]string{"FromNode": "N1", "ToNode": "N3"})
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	task := decodeBody[TaskResponse](t, rr)
	require.NotEmpty(t, task.TaskID)

	rr = ts.do(t, http.MethodGet, "/get-slow-path-result/?wait=5s&task_id="+task.TaskID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"SUCCESS","result":["N1","N2","N3"]}`, rr.Body.String())
}

func TestServer_RoutesWithoutTrailingSlash(t *testing.T) {
	ts := setupTestServerWithData(t, Config{})

	rr := ts.do(t, http.MethodGet, "/find-path?FromNode=N2&ToNode=N3", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"path":["N2","N3"]}`, rr.Body.String())

	rr = ts.postJSON(t, "/create-node", map[string]string{"name": "N5"})
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestServer_UnknownRoute(t *testing.T) {
	ts := setupTestServer(t, Config{})

	rr := ts.do(t, http.MethodGet, "/create-node/extra", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	ts := setupTestServer(t, Config{})

	tests := []struct {
		method string
		target string
		allow  string
	}{
		{http.MethodGet, "/create-node/", "POST"},
		{http.MethodGet, "/connect-nodes/", "POST"},
		{http.MethodPost, "/find-path/", "GET"},
		{http.MethodGet, "/slow-find-path/", "POST"},
		{http.MethodDelete, "/get-slow-path-result/", "GET"},
		{http.MethodPost, "/health", "GET"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			rr := ts.do(t, tt.method, tt.target, "")
			require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
			assert.Equal(t, tt.allow, rr.Header().Get("Allow"))

			body := decodeBody[DetailResponse](t, rr)
			assert.Equal(t, `Method "`+tt.method+`" not allowed.`, body.Detail)
		})
	}
}

func TestServer_RequestIDHeader(t *testing.T) {
	ts := setupTestServer(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "abc-123", rr.Header().Get("X-Request-ID"))
}

func TestServer_BodyLimit(t *testing.T) {
	ts := setupTestServer(t, Config{MaxBodyBytes: 32})

	rr := ts.postJSON(t, "/create-node/", map[string]string{"name": strings.Repeat("x", 100)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestServer_RateLimit(t *testing.T) {
	ts := setupTestServer(t, Config{RateLimit: 1, RateBurst: 2})

	codes := make([]int, 0, 3)
	for range 3 {
		codes = append(codes, ts.do(t, http.MethodGet, "/health/live", "").Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, float64(1), counterValue(t, ts.Metrics().HTTPRateLimitedTotal))
}

func TestServer_PanicRecovery(t *testing.T) {
	gs := storage.NewGraphStorage()
	t.Cleanup(func() { gs.Close() })

	// No queue: the stats handler dereferences nil
	s := NewServer(gs, nil, Config{})
	t.Cleanup(s.Close)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/stats", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rr.Body.String())
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}
