package api

import (
	"net/http"
	"time"

	"github.com/dd0wney/cluso-pathfinder/pkg/logging"
	"github.com/dd0wney/cluso-pathfinder/pkg/storage"
	"github.com/dd0wney/cluso-pathfinder/pkg/validation"
)

func (s *Server) handleCreateNode(w http.ResponseWriter, r *http.Request) {
	s.NewMethodRouter(w, r).Post(func() {
		var req validation.NodeRequest
		if s.NewRequestDecoder(w, r).
			DecodeJSON(&req).
			Validate(func() error {
				trimSpace(&req.Name)
				return validation.ValidateNodeRequest(&req)
			}).
			RespondError() {
			return
		}

		start := time.Now()
		node, err := s.graph.CreateNode(r.Context(), req.Name)
		s.recordStorage("create_node", start, err)

		switch {
		case storage.IsDuplicate(err):
			s.respondError(w, http.StatusConflict, msgNodeExists)
		case storage.IsClosed(err):
			s.respondError(w, http.StatusServiceUnavailable, "graph store is closed")
		case err != nil:
			s.respondInternal(w, r, "create node", err)
		default:
			s.logger.Debug("node created", logging.NodeName(node.Name))
			s.respondJSON(w, http.StatusCreated, NodeResponse{Name: node.Name})
		}
	}).NotAllowed()
}

func (s *Server) handleConnectNodes(w http.ResponseWriter, r *http.Request) {
	s.NewMethodRouter(w, r).Post(func() {
		var req validation.ConnectRequest
		if s.NewRequestDecoder(w, r).
			DecodeJSON(&req).
			Validate(func() error {
				trimSpace(&req.FromNode, &req.ToNode)
				return validation.ValidateConnectRequest(&req)
			}).
			RespondError() {
			return
		}

		start := time.Now()
		created, err := s.graph.AddEdge(r.Context(), req.FromNode, req.ToNode)
		s.recordStorage("add_edge", start, err)

		switch {
		case storage.IsNotFound(err):
			s.respondDetail(w, http.StatusNotFound, msgNodeNotFound)
		case storage.IsClosed(err):
			s.respondError(w, http.StatusServiceUnavailable, "graph store is closed")
		case err != nil:
			s.respondInternal(w, r, "connect nodes", err)
		case created:
			s.logger.Debug("nodes connected",
				logging.FromNode(req.FromNode), logging.ToNode(req.ToNode))
			s.respondJSON(w, http.StatusOK, MessageResponse{Message: msgNodesConnected})
		default:
			s.respondJSON(w, http.StatusOK, MessageResponse{Message: msgAlreadyConnected})
		}
	}).NotAllowed()
}

// recordStorage labels expected domain outcomes separately from failures
func (s *Server) recordStorage(op string, start time.Time, err error) {
	status := "success"
	switch {
	case err == nil:
	case storage.IsDuplicate(err):
		status = "duplicate"
	case storage.IsNotFound(err):
		status = "not_found"
	default:
		status = "error"
	}
	s.metrics.RecordStorageOperation(op, status, time.Since(start))
}
