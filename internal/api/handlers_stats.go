package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	docs, chunks, err := s.orchestrator.Store().Counts(r.Context())
	if err != nil {
		jsonError(w, "failed to read catalog counts: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"queue_depth": s.orchestrator.QueueDepth(),
		"documents":   docs,
		"chunks":      chunks,
		"embedder": map[string]any{
			"model": s.orchestrator.Embedder().Model(),
			"stats": s.orchestrator.Embedder().Stats.Snapshot(),
		},
	})
}
