package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docdeck/internal/outline"
	"github.com/dgallion1/docdeck/internal/pipeline"
	"github.com/dgallion1/docdeck/internal/render"
)

// maxEditBytes bounds JSON bodies of the review endpoints.
const maxEditBytes = 8 << 20

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	snap, err := s.orchestrator.Get(chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleRunLog returns audit entries; ?since=N skips the first N so clients
// can poll for new ones.
func (s *Server) handleRunLog(w http.ResponseWriter, r *http.Request) {
	since := 0
	if v := r.URL.Query().Get("since"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			jsonError(w, "since must be a non-negative integer", http.StatusBadRequest)
			return
		}
		since = n
	}
	entries, err := s.orchestrator.Log(chi.URLParam(r, "runID"), since)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"next":    since + len(entries),
	})
}

// action adapts an orchestrator action that takes only the run id.
func (s *Server) action(fn func(id string) (pipeline.RunSnapshot, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := fn(chi.URLParam(r, "runID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func (s *Server) handleEditStructuredText(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	snap, err := s.orchestrator.EditStructuredText(chi.URLParam(r, "runID"), body.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSelectTheme(w http.ResponseWriter, r *http.Request) {
	var body struct {
		render.Selection
		Options *pipeline.Options `json:"options"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	snap, err := s.orchestrator.SelectTheme(chi.URLParam(r, "runID"), body.Selection, body.Options)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, snap)
}

// handleEditOutline accepts {"outline": [...]} in the same lenient wire form
// the outline is served in.
func (s *Server) handleEditOutline(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Outline []outline.Wire `json:"outline"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	snap, err := s.orchestrator.EditOutline(chi.URLParam(r, "runID"), body.Outline)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSlide(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		jsonError(w, "slide index must be an integer", http.StatusBadRequest)
		return
	}
	markup, err := s.orchestrator.Slide(chi.URLParam(r, "runID"), idx)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(markup))
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxEditBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}
