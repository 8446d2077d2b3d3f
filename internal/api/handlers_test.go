package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pzc163/ragflow-dev/internal/config"
	"github.com/pzc163/ragflow-dev/internal/mineru"
	"github.com/pzc163/ragflow-dev/internal/pipeline"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Defaults{
		APIKey:            "secret",
		Endpoint:          "http://mineru.local/file_parse",
		Timeout:           600,
		ParseMethod:       "auto",
		EnablePrimaryTier: true,
		FallbackEnabled:   true,
		ChunkTokenNum:     128,
		CohesionSlackPct:  10,
		TransportRetries:  3,
		WorkerCount:       1,
		MaxQueueSize:      4,
		MaxUploadBytes:    1 << 20,
		JobTTL:            time.Hour,
	}
	stats := pipeline.NewTierStats(time.Hour)
	fallback := pipeline.NewFallbackOrchestrator(mineru.NewClient(log), log, stats)
	prober := mineru.NewHealthProber("", time.Minute)
	orch := pipeline.NewOrchestrator(cfg, fallback, prober, stats, log)
	return NewServer(orch, log, cfg)
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/parse", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer secret")
	return req
}

func TestHandleParse_AcceptsSupportedUpload(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, uploadRequest(t, "notes.md", "# Notes\n\nSome body text."))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if id, _ := resp["job_id"].(string); id == "" {
		t.Error("expected a job_id in the response")
	}
}

func TestHandleParse_RejectsUnsupportedExtension(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, uploadRequest(t, "payload.exe", "MZ"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "unsupported file type") {
		t.Errorf("expected an unsupported file type error, got %s", rec.Body.String())
	}
}

func TestHandleParse_RequiresAuth(t *testing.T) {
	srv := newTestServer(t)

	req := uploadRequest(t, "notes.md", "hello")
	req.Header.Del("Authorization")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
