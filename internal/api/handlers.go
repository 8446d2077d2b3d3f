package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pzc163/ragflow-dev/internal/config"
	"github.com/pzc163/ragflow-dev/internal/parser"
	"github.com/pzc163/ragflow-dev/internal/pipeline"
)

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
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

	overrides, err := overridesFromForm(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// An optional JSON config object sits between per-request overrides
	// and process defaults.
	var jobCfg map[string]any
	if raw := r.FormValue("config"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &jobCfg); err != nil {
			jsonError(w, "invalid config json: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	resolved, err := config.Resolve(overrides, jobCfg, &s.cfg, s.log)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := pipeline.NewJob(filename, data, resolved)
	if err := s.orchestrator.Submit(r.Context(), job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   job.ID,
		"status":   job.Status,
		"priority": job.Priority,
		"poll_url": fmt.Sprintf("/api/parse/%s/status", job.ID),
	})
}

// overridesFromForm collects typed per-request option overrides from the
// multipart form. A malformed value rejects the request rather than being
// silently dropped.
func overridesFromForm(r *http.Request) (map[string]any, error) {
	overrides := make(map[string]any)
	for _, key := range []string{"chunk_token_num", "timeout", "cohesion_slack_pct"} {
		if v := r.FormValue(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("%s must be an integer: %q", key, v)
			}
			overrides[key] = n
		}
	}
	for _, key := range []string{"enable_primary_tier", "fallback_enabled", "return_content_list"} {
		if v := r.FormValue(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("%s must be a boolean: %q", key, v)
			}
			overrides[key] = b
		}
	}
	for _, key := range []string{"delimiter", "parse_method", "endpoint"} {
		if v := r.FormValue(key); v != "" {
			overrides[key] = v
		}
	}
	if len(overrides) == 0 {
		return nil, nil
	}
	return overrides, nil
}

func (s *Server) handleParseStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

func (s *Server) handleParseChunks(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}

	chunks, tables, ok := job.Results()
	if !ok {
		snap := job.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{
			"error":  "job has not completed",
			"status": snap.Status,
			"phase":  snap.Phase,
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":       jobID,
		"content_hash": job.Snapshot().ContentHash,
		"chunks":       chunks,
		"tables":       tables,
	})
}

func (s *Server) handleServiceStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"conversion_service": s.orchestrator.ServiceStatus(r.Context()),
		"tiers":              s.orchestrator.TierSnapshots(),
		"queue_depth":        s.orchestrator.QueueDepth(),
	})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
