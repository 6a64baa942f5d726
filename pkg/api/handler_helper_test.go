package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-pathfinder/pkg/validation"
)

func TestRequestDecoder_DecodeJSON(t *testing.T) {
	ts := setupTestServer(t, Config{})

	tests := []struct {
		name       string
		body       string
		expectErr  bool
		wantStatus int
	}{
		{name: "valid JSON", body: `{"name":"test"}`},
		{name: "empty body", body: ``},
		{name: "invalid JSON", body: `{invalid json}`, expectErr: true, wantStatus: http.StatusBadRequest},
		{name: "wrong type", body: `{"name":true}`, expectErr: true, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()

			var nodeReq validation.NodeRequest
			decoder := ts.NewRequestDecoder(rr, req).DecodeJSON(&nodeReq)

			assert.Equal(t, tt.expectErr, decoder.HasError(), "error: %v", decoder.Error())
			assert.Equal(t, tt.expectErr, decoder.RespondError())
			if tt.expectErr {
				assert.Equal(t, tt.wantStatus, rr.Code)
			}
		})
	}
}

func TestRequestDecoder_OversizedBody(t *testing.T) {
	ts := setupTestServer(t, Config{})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"name":"`+strings.Repeat("x", 64)+`"}`))
	req.Body = http.MaxBytesReader(rr, req.Body, 16)

	var nodeReq validation.NodeRequest
	decoder := ts.NewRequestDecoder(rr, req).DecodeJSON(&nodeReq)

	require.True(t, decoder.RespondError())
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.JSONEq(t, `{"error":"request body exceeds 16 bytes"}`, rr.Body.String())
}

func TestRequestDecoder_ValidateStopsAfterFirstError(t *testing.T) {
	ts := setupTestServer(t, Config{})
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	calls := 0
	decoder := ts.NewRequestDecoder(rr, req).
		Validate(func() error {
			calls++
			return validation.FieldErrors{"a": {"bad"}}
		}).
		Validate(func() error {
			calls++
			return nil
		})

	assert.Equal(t, 1, calls)
	require.True(t, decoder.RespondError())
	assert.JSONEq(t, `{"error":{"a":["bad"]}}`, rr.Body.String())
}

func TestRequestDecoder_PlainValidationError(t *testing.T) {
	ts := setupTestServer(t, Config{})
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	decoder := ts.NewRequestDecoder(rr, req).
		Validate(func() error { return errors.New("nope") })

	require.True(t, decoder.RespondError())
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"nope"}`, rr.Body.String())
}

func TestQueryValues_Get(t *testing.T) {
	q := queryValues{values: map[string][]string{
		"a": {" one "},
		"b": {"first", "last"},
	}}

	assert.Equal(t, "one", q.Get("a"))
	assert.Equal(t, "last", q.Get("b"))
	assert.Equal(t, "", q.Get("missing"))
}

func TestMethodRouter(t *testing.T) {
	ts := setupTestServer(t, Config{})

	tests := []struct {
		method     string
		wantCalled string
		wantStatus int
	}{
		{http.MethodGet, "get", http.StatusOK},
		{http.MethodPost, "post", http.StatusOK},
		{http.MethodPut, "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, "/test", nil)

			var called string
			ts.NewMethodRouter(rr, req).
				Get(func() { called = "get" }).
				Post(func() { called = "post" }).
				NotAllowed()

			assert.Equal(t, tt.wantCalled, called)
			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusMethodNotAllowed {
				assert.Equal(t, "GET, POST", rr.Header().Get("Allow"))
			}
		})
	}
}

func TestSanitizeError(t *testing.T) {
	ts := setupTestServer(t, Config{})
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	msg := ts.sanitizeError(req, "find path", errors.New("open /var/lib/pathfinder/wal.log: permission denied"))
	assert.Equal(t, "find path failed", msg)
	assert.Empty(t, ts.sanitizeError(req, "noop", nil))
}
