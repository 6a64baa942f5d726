package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dd0wney/cluso-pathfinder/pkg/validation"
)

// requestDecoder decodes and validates request input.
// It provides a fluent interface for common request handling patterns.
type requestDecoder struct {
	r      *http.Request
	w      http.ResponseWriter
	server *Server

	err        error
	statusCode int
	fields     validation.FieldErrors
	detail     bool
}

// NewRequestDecoder creates a new request decoder for the given request.
func (s *Server) NewRequestDecoder(w http.ResponseWriter, r *http.Request) *requestDecoder {
	return &requestDecoder{
		r:      r,
		w:      w,
		server: s,
	}
}

// DecodeJSON decodes the request body into v. An empty body decodes as an
// empty object so missing fields surface as field errors.
func (rd *requestDecoder) DecodeJSON(v any) *requestDecoder {
	if rd.HasError() {
		return rd
	}

	err := json.NewDecoder(rd.r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return rd
	}

	var (
		maxBytesErr *http.MaxBytesError
		typeErr     *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &maxBytesErr):
		rd.err = fmt.Errorf("request body exceeds %d bytes", maxBytesErr.Limit)
		rd.statusCode = http.StatusRequestEntityTooLarge
	case errors.As(err, &typeErr) && typeErr.Field == "":
		rd.fields = validation.FieldErrors{
			"non_field_errors": {fmt.Sprintf("Invalid data. Expected a dictionary, but got %s.", typeErr.Value)},
		}
	case errors.As(err, &typeErr):
		rd.fields = validation.FieldErrors{typeErr.Field: {msgInvalidString}}
	default:
		rd.err = fmt.Errorf("JSON parse error - %s", err.Error())
		rd.statusCode = http.StatusBadRequest
		rd.detail = true
	}
	return rd
}

// DecodeQuery hands the query string to fill.
func (rd *requestDecoder) DecodeQuery(fill func(query queryValues)) *requestDecoder {
	if rd.HasError() {
		return rd
	}
	fill(queryValues{values: rd.r.URL.Query()})
	return rd
}

// Validate runs fn and records its field errors.
func (rd *requestDecoder) Validate(fn func() error) *requestDecoder {
	if rd.HasError() {
		return rd
	}
	if err := fn(); err != nil {
		if fe, ok := validation.AsFieldErrors(err); ok {
			rd.fields = fe
			return rd
		}
		rd.err = err
		rd.statusCode = http.StatusBadRequest
	}
	return rd
}

// HasError returns true if any error occurred during decoding/validation.
func (rd *requestDecoder) HasError() bool {
	return rd.err != nil || len(rd.fields) > 0
}

// Error returns the error if any occurred.
func (rd *requestDecoder) Error() error {
	if len(rd.fields) > 0 {
		return rd.fields
	}
	return rd.err
}

// RespondError sends the error response and returns true if there was an error.
// Returns false if no error occurred.
func (rd *requestDecoder) RespondError() bool {
	switch {
	case len(rd.fields) > 0:
		rd.server.respondFieldErrors(rd.w, rd.fields)
	case rd.err != nil && rd.detail:
		rd.server.respondDetail(rd.w, rd.statusCode, rd.err.Error())
	case rd.err != nil:
		rd.server.respondError(rd.w, rd.statusCode, rd.err.Error())
	default:
		return false
	}
	return true
}

// queryValues reads trimmed query parameters
type queryValues struct {
	values map[string][]string
}

// Get returns the last value of key, matching how form frameworks resolve
// repeated parameters.
func (q queryValues) Get(key string) string {
	vs := q.values[key]
	if len(vs) == 0 {
		return ""
	}
	return strings.TrimSpace(vs[len(vs)-1])
}

// methodRouter routes requests based on HTTP method.
// Provides a cleaner alternative to switch statements for method routing.
type methodRouter struct {
	w       http.ResponseWriter
	r       *http.Request
	server  *Server
	handled bool
	allowed []string
}

// NewMethodRouter creates a new method router.
func (s *Server) NewMethodRouter(w http.ResponseWriter, r *http.Request) *methodRouter {
	return &methodRouter{
		w:      w,
		r:      r,
		server: s,
	}
}

func (mr *methodRouter) route(method string, handler func()) *methodRouter {
	mr.allowed = append(mr.allowed, method)
	if !mr.handled && mr.r.Method == method {
		handler()
		mr.handled = true
	}
	return mr
}

// Get handles GET requests with the provided handler.
func (mr *methodRouter) Get(handler func()) *methodRouter {
	return mr.route(http.MethodGet, handler)
}

// Post handles POST requests with the provided handler.
func (mr *methodRouter) Post(handler func()) *methodRouter {
	return mr.route(http.MethodPost, handler)
}

// NotAllowed sends a 405 response if no method matched.
func (mr *methodRouter) NotAllowed() {
	if mr.handled {
		return
	}
	mr.w.Header().Set("Allow", strings.Join(mr.allowed, ", "))
	mr.server.respondDetail(mr.w, http.StatusMethodNotAllowed,
		fmt.Sprintf("Method %q not allowed.", mr.r.Method))
}

func trimSpace(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}
