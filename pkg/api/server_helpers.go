package api

import (
	"encoding/json"
	"net/http"

	"github.com/dd0wney/cluso-pathfinder/pkg/api/middleware"
	"github.com/dd0wney/cluso-pathfinder/pkg/logging"
	"github.com/dd0wney/cluso-pathfinder/pkg/validation"
)

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message})
}

func (s *Server) respondDetail(w http.ResponseWriter, status int, detail string) {
	s.respondJSON(w, status, DetailResponse{Detail: detail})
}

func (s *Server) respondFieldErrors(w http.ResponseWriter, fe validation.FieldErrors) {
	s.respondJSON(w, http.StatusBadRequest, FieldErrorResponse{Error: fe})
}

// respondInternal logs err with the request ID and sends a generic 500.
// Internal details like file paths and SQL never reach the client.
func (s *Server) respondInternal(w http.ResponseWriter, r *http.Request, operation string, err error) {
	s.respondError(w, http.StatusInternalServerError, s.sanitizeError(r, operation, err))
}

// sanitizeError converts an internal error to a user-safe message
func (s *Server) sanitizeError(r *http.Request, operation string, err error) string {
	if err == nil {
		return ""
	}

	s.logger.Error("request failed",
		logging.Operation(operation),
		logging.RequestID(middleware.GetRequestID(r)),
		logging.Error(err))

	return operation + " failed"
}
