package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.llm == nil || s.llm.Stats == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"provider":    s.llm.Provider(),
		"model":       s.llm.Model(),
		"stats":       s.llm.Stats.Snapshot(),
		"queue_depth": s.orchestrator.QueueDepth(),
		"runs":        s.orchestrator.RunCount(),
	})
}

func (s *Server) handleThemes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"themes": s.orchestrator.Themes()})
}
