package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/docdeck/internal/parser"
	"github.com/dgallion1/docdeck/internal/pipeline"
	"github.com/dgallion1/docdeck/internal/render"
)

// handleCreateRun accepts a multipart upload and starts a run. Optional form
// fields preset the theme and the deck options.
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	opts, err := formOptions(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	snap, err := s.orchestrator.Create(pipeline.CreateRequest{
		Filename:  filename,
		Data:      data,
		Selection: render.Selection{Theme: r.FormValue("theme"), Mode: r.FormValue("mode")},
		Options:   opts,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"run_id":   snap.ID,
		"stage":    snap.Stage,
		"poll_url": fmt.Sprintf("/api/runs/%s", snap.ID),
	})
}

func formOptions(r *http.Request) (pipeline.Options, error) {
	var opts pipeline.Options
	flags := []struct {
		name string
		dst  *bool
	}{
		{"include_agenda", &opts.IncludeAgenda},
		{"include_section_headers", &opts.IncludeSectionHeaders},
		{"manual_approval", &opts.ManualApproval},
	}
	for _, f := range flags {
		v := r.FormValue(f.name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("%s must be a boolean", f.name)
		}
		*f.dst = b
	}
	if v := r.FormValue("slide_count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, errors.New("slide_count must be a non-negative integer")
		}
		opts.SlideCount = n
	}
	opts.Language = r.FormValue("language")
	return opts, nil
}

// writeError maps pipeline errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, pipeline.ErrRunNotFound):
		code = http.StatusNotFound
	case errors.Is(err, pipeline.ErrInvalidTransition):
		code = http.StatusConflict
	case errors.Is(err, pipeline.ErrQueueFull), errors.Is(err, pipeline.ErrStopped):
		code = http.StatusServiceUnavailable
	case errors.Is(err, pipeline.ErrInvalidInput), errors.Is(err, pipeline.ErrUnsupportedFormat):
		code = http.StatusBadRequest
	}
	jsonError(w, err.Error(), code)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
