package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dd0wney/cluso-pathfinder/pkg/algorithms"
	"github.com/dd0wney/cluso-pathfinder/pkg/jobs"
	"github.com/dd0wney/cluso-pathfinder/pkg/logging"
	"github.com/dd0wney/cluso-pathfinder/pkg/validation"
)

func (s *Server) handleFindPath(w http.ResponseWriter, r *http.Request) {
	s.NewMethodRouter(w, r).Get(func() {
		var req validation.PathRequest
		if s.NewRequestDecoder(w, r).
			DecodeQuery(func(q queryValues) {
				req.FromNode = q.Get("FromNode")
				req.ToNode = q.Get("ToNode")
			}).
			Validate(func() error { return validation.ValidatePathRequest(&req) }).
			RespondError() {
			return
		}

		start := time.Now()
		path, stats, err := algorithms.ShortestPathWithStats(r.Context(), s.graph, req.FromNode, req.ToNode)
		s.metrics.RecordPathQuery("sync", pathResult(path, err), time.Since(start),
			stats.NodesExpanded, stats.EdgesScanned, len(path))

		if err != nil {
			if r.Context().Err() != nil {
				// Client went away; nobody reads the response
				return
			}
			s.respondInternal(w, r, "find path", err)
			return
		}

		s.respondJSON(w, http.StatusOK, PathResponse{Path: path})
	}).NotAllowed()
}

func (s *Server) handleSlowFindPath(w http.ResponseWriter, r *http.Request) {
	s.NewMethodRouter(w, r).Post(func() {
		var req validation.PathRequest
		if s.NewRequestDecoder(w, r).
			DecodeJSON(&req).
			Validate(func() error {
				trimSpace(&req.FromNode, &req.ToNode)
				return validation.ValidatePathRequest(&req)
			}).
			RespondError() {
			return
		}

		job, err := s.queue.Submit(r.Context(), req.FromNode, req.ToNode)
		switch {
		case errors.Is(err, jobs.ErrQueueClosed), errors.Is(err, jobs.ErrQueueFull):
			w.Header().Set("Retry-After", "1")
			s.respondError(w, http.StatusServiceUnavailable, err.Error())
		case err != nil:
			s.respondInternal(w, r, "submit job", err)
		default:
			s.logger.Info("slow path job accepted",
				logging.JobID(job.ID), logging.FromNode(job.From), logging.ToNode(job.To))
			s.respondJSON(w, http.StatusAccepted, TaskResponse{TaskID: job.ID})
		}
	}).NotAllowed()
}

func (s *Server) handleSlowPathResult(w http.ResponseWriter, r *http.Request) {
	s.NewMethodRouter(w, r).Get(func() {
		var (
			req     validation.JobResultRequest
			rawWait string
		)
		decoder := s.NewRequestDecoder(w, r).
			DecodeQuery(func(q queryValues) {
				req.TaskID = q.Get("task_id")
				rawWait = q.Get("wait")
			}).
			Validate(func() error { return validation.ValidateJobResultRequest(&req) })

		var wait time.Duration
		decoder.Validate(func() error {
			var err error
			wait, err = parseWait(rawWait)
			return err
		})
		if decoder.RespondError() {
			return
		}

		res, err := s.jobResult(r.Context(), req.TaskID, wait)
		if err != nil {
			s.respondInternal(w, r, "poll job", err)
			return
		}

		s.respondJSON(w, http.StatusOK, newJobResultResponse(res))
	}).NotAllowed()
}

// jobResult polls, or long-polls up to wait for a terminal state
func (s *Server) jobResult(ctx context.Context, id string, wait time.Duration) (jobs.Result, error) {
	if wait <= 0 {
		return s.queue.Poll(ctx, id)
	}

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	res, err := s.queue.Wait(waitCtx, id)
	switch {
	case err == nil:
		return res, nil
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), errors.Is(err, jobs.ErrQueueClosed):
		return s.queue.Poll(context.WithoutCancel(ctx), id)
	default:
		return jobs.Result{}, err
	}
}

// parseWait accepts a Go duration and clamps it to MaxResultWait
func parseWait(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, validation.FieldErrors{"wait": {msgInvalidDuration}}
	}
	return min(d, MaxResultWait), nil
}

func pathResult(path []string, err error) string {
	switch {
	case err != nil:
		return "error"
	case path == nil:
		return "not_found"
	default:
		return "found"
	}
}
