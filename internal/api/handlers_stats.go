package api

import (
	"net/http"
)

func (s *Server) handleConvertStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":       s.svc.Stats(),
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}
