// Package client is a Go client for the pathfinder HTTP API.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	pftls "github.com/dd0wney/cluso-pathfinder/pkg/tls"
)

const (
	// DefaultServerURL is used when NewClient gets an empty URL
	DefaultServerURL = "http://localhost:8080"

	// DefaultTimeout bounds a single request
	DefaultTimeout = 30 * time.Second

	// DefaultVersion is used when build info is not available
	DefaultVersion = "dev"
)

// Job statuses reported by Result
const (
	StatusPending = "PENDING"
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
	StatusUnknown = "UNKNOWN"
)

// getVersion returns the module version from build info
func getVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return DefaultVersion
	}

	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}

	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && setting.Value != "" {
			if len(setting.Value) > 7 {
				return setting.Value[:7]
			}
			return setting.Value
		}
	}

	return DefaultVersion
}

// JobResult is the state of a slow path search
type JobResult struct {
	Status string   `json:"status"`
	Result []string `json:"result"`
	Error  string   `json:"error,omitempty"`
}

// Terminal reports whether the job can no longer change
func (r JobResult) Terminal() bool {
	return r.Status == StatusSuccess || r.Status == StatusFailure
}

// APIError is a non-2xx response
type APIError struct {
	StatusCode int
	Message    string
	Fields     map[string][]string
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
	}

	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, f := range names {
		parts = append(parts, f+": "+strings.Join(e.Fields[f], " "))
	}
	return fmt.Sprintf("%d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), strings.Join(parts, "; "))
}

// StatusCode extracts the HTTP status of an APIError, or 0
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Client talks to one pathfinder server
type Client struct {
	serverURL  string
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a client for serverURL
func NewClient(serverURL string, timeout time.Duration) *Client {
	if serverURL == "" {
		serverURL = DefaultServerURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		serverURL: strings.TrimSuffix(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: "pathctl/" + getVersion(),
	}
}

// TrustCAFile verifies HTTPS servers against the PEM bundle in caFile
// instead of the system roots.
func (c *Client) TrustCAFile(caFile string) error {
	pool, err := pftls.LoadCAPool(caFile)
	if err != nil {
		return err
	}
	c.httpClient.Transport = &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12},
	}
	return nil
}

// CreateNode creates a node and returns its stored name
func (c *Client) CreateNode(ctx context.Context, name string) (string, error) {
	var resp struct {
		Name string `json:"name"`
	}
	err := c.do(ctx, http.MethodPost, "/create-node/", nil, map[string]string{"name": name}, &resp)
	return resp.Name, err
}

// ConnectNodes adds the edge from -> to and returns the server message
func (c *Client) ConnectNodes(ctx context.Context, from, to string) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	err := c.do(ctx, http.MethodPost, "/connect-nodes/", nil, pathBody(from, to), &resp)
	return resp.Message, err
}

// FindPath runs a synchronous search. A nil path means no route.
func (c *Client) FindPath(ctx context.Context, from, to string) ([]string, error) {
	var resp struct {
		Path []string `json:"path"`
	}
	query := url.Values{"FromNode": {from}, "ToNode": {to}}
	err := c.do(ctx, http.MethodGet, "/find-path/", query, nil, &resp)
	return resp.Path, err
}

// SubmitSlowPath queues an asynchronous search and returns its task ID
func (c *Client) SubmitSlowPath(ctx context.Context, from, to string) (string, error) {
	var resp struct {
		TaskID string `json:"task_id"`
	}
	err := c.do(ctx, http.MethodPost, "/slow-find-path/", nil, pathBody(from, to), &resp)
	return resp.TaskID, err
}

// Result fetches a job's state. A positive wait asks the server to hold the
// request until the job finishes or wait elapses.
func (c *Client) Result(ctx context.Context, taskID string, wait time.Duration) (JobResult, error) {
	query := url.Values{"task_id": {taskID}}
	if wait > 0 {
		query.Set("wait", wait.String())
	}
	var res JobResult
	err := c.do(ctx, http.MethodGet, "/get-slow-path-result/", query, nil, &res)
	return res, err
}

// WaitResult long-polls until the job is terminal, UNKNOWN, or ctx is done
func (c *Client) WaitResult(ctx context.Context, taskID string, interval time.Duration) (JobResult, error) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	for {
		res, err := c.Result(ctx, taskID, interval)
		if err != nil {
			return res, err
		}
		if res.Terminal() || res.Status == StatusUnknown {
			return res, nil
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
	}
}

// Health returns the decoded health document and the HTTP status
func (c *Client) Health(ctx context.Context) (map[string]any, int, error) {
	var doc map[string]any
	err := c.do(ctx, http.MethodGet, "/health", nil, nil, &doc)
	if code := StatusCode(err); code == http.StatusServiceUnavailable {
		return doc, code, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return doc, http.StatusOK, nil
}

func pathBody(from, to string) map[string]string {
	return map[string]string{"FromNode": from, "ToNode": to}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	target := c.serverURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := decodeError(resp.StatusCode, data)
		// Unhealthy health documents still carry a body worth returning
		if out != nil && len(data) > 0 {
			_ = json.Unmarshal(data, out)
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError understands {"error": "..."}, {"error": {field: [...]}} and {"detail": "..."}
func decodeError(status int, data []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var envelope struct {
		Error  json.RawMessage `json:"error"`
		Detail string          `json:"detail"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		apiErr.Message = strings.TrimSpace(string(data))
		return apiErr
	}

	switch {
	case envelope.Detail != "":
		apiErr.Message = envelope.Detail
	case len(envelope.Error) > 0:
		var msg string
		if err := json.Unmarshal(envelope.Error, &msg); err == nil {
			apiErr.Message = msg
			break
		}
		var fields map[string][]string
		if err := json.Unmarshal(envelope.Error, &fields); err == nil {
			apiErr.Message = "validation failed"
			apiErr.Fields = fields
			break
		}
		apiErr.Message = string(envelope.Error)
	default:
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
