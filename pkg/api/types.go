package api

import (
	"time"

	"github.com/dd0wney/cluso-pathfinder/pkg/jobs"
	"github.com/dd0wney/cluso-pathfinder/pkg/validation"
)

// Response messages shared with existing clients of the service
const (
	msgNodeExists       = "Node with this name already exists"
	msgNodesConnected   = "Nodes connected successfully"
	msgAlreadyConnected = "Nodes are already connected"
	msgNodeNotFound     = "No Node matches the given query."
	msgInvalidString    = "Not a valid string."
	msgInvalidDuration  = "Enter a valid duration."
)

// NodeResponse is returned by create-node
type NodeResponse struct {
	Name string `json:"name"`
}

// MessageResponse is returned by connect-nodes
type MessageResponse struct {
	Message string `json:"message"`
}

// PathResponse carries a synchronous search result; Path is null when no route exists
type PathResponse struct {
	Path []string `json:"path"`
}

// TaskResponse is returned when a slow search is accepted
type TaskResponse struct {
	TaskID string `json:"task_id"`
}

// JobResultResponse reports the state of a slow search
type JobResultResponse struct {
	Status string   `json:"status"`
	Result []string `json:"result"`
	Error  string   `json:"error,omitempty"`
}

// StatsResponse summarizes the graph and the job queue
type StatsResponse struct {
	Backend string          `json:"backend"`
	Nodes   uint64          `json:"nodes"`
	Edges   uint64          `json:"edges"`
	Jobs    jobs.QueueStats `json:"jobs"`
	Uptime  string          `json:"uptime"`
}

// ErrorResponse is the body of a non-field error
type ErrorResponse struct {
	Error string `json:"error"`
}

// FieldErrorResponse is the body of a 400 caused by invalid input
type FieldErrorResponse struct {
	Error validation.FieldErrors `json:"error"`
}

// DetailResponse is used for lookups and protocol errors
type DetailResponse struct {
	Detail string `json:"detail"`
}

func newJobResultResponse(res jobs.Result) JobResultResponse {
	return JobResultResponse{
		Status: string(res.Status),
		Result: res.Path,
		Error:  res.Error,
	}
}

func uptime(start time.Time) string {
	return time.Since(start).Round(time.Second).String()
}
