package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgallion1/docslice/internal/config"
	"github.com/dgallion1/docslice/internal/embedder"
	"github.com/dgallion1/docslice/internal/pipeline"
	"github.com/dgallion1/docslice/internal/store"
	"github.com/dgallion1/docslice/internal/tokenizer"
)

const testAPIKey = "test-key"

func newTestServer(t *testing.T) (*Server, *pipeline.Orchestrator) {
	t.Helper()

	embedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ChunkID string `json:"chunk_id"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]any{"chunk_id": req.ChunkID})
	}))
	t.Cleanup(embedSrv.Close)

	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := config.Config{
		APIKey:             testAPIKey,
		EmbedderURL:        embedSrv.URL,
		WorkerCount:        1,
		MaxQueueSize:       10,
		MaxConcurrentEmbed: 2,
		MaxUploadBytes:     1 << 20,
		ChunkSize:          64,
		ChunkOverlap:       0.1,
		JobTTL:             time.Hour,
	}

	embed := embedder.NewClient(cfg.EmbedderURL, "", "test-model")
	orch := pipeline.NewOrchestrator(cfg, st, embed, tokenizer.Words{}, slog.Default())
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)

	return NewServer(orch, slog.Default(), cfg), orch
}

func authedRequest(method, target string, body *bytes.Buffer, contentType string) *http.Request {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req
}

func uploadForm(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fw.Write([]byte(content))
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestHealthIsPublic(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing auth status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	req.Header.Set("Authorization", "Bearer wrong-key")
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad key status = %d", rec.Code)
	}
}

func TestIngestLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	body, ct := uploadForm(t, "file", "guide.md", "# Guide\n\nFirst sentence here. Second one too.")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/ingest", body, ct))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("ingest status = %d: %s", rec.Code, rec.Body.String())
	}

	var accepted struct {
		JobID   string `json:"job_id"`
		DocID   string `json:"doc_id"`
		PollURL string `json:"poll_url"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if accepted.JobID == "" || accepted.DocID == "" {
		t.Fatalf("incomplete accept response: %+v", accepted)
	}

	// Poll until the pipeline finishes.
	var status string
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec = httptest.NewRecorder()
		srv.ServeHTTP(rec, authedRequest(http.MethodGet, accepted.PollURL, nil, ""))
		if rec.Code != http.StatusOK {
			t.Fatalf("status poll = %d", rec.Code)
		}
		var poll struct {
			Status string `json:"status"`
		}
		json.Unmarshal(rec.Body.Bytes(), &poll)
		status = poll.Status
		if status == "completed" || status == "failed" || status == "partial" {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if status != "completed" {
		t.Fatalf("final status = %q", status)
	}

	// The document and its chunks are now readable.
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/documents/"+accepted.DocID, nil, ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("get document = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/documents/"+accepted.DocID+"/chunks", nil, ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("get chunks = %d", rec.Code)
	}
	var chunkResp struct {
		Count int `json:"count"`
	}
	json.Unmarshal(rec.Body.Bytes(), &chunkResp)
	if chunkResp.Count == 0 {
		t.Errorf("no chunks returned")
	}

	// Delete and confirm 404 afterwards.
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, authedRequest(http.MethodDelete, "/api/documents/"+accepted.DocID, nil, ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("delete = %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/documents/"+accepted.DocID, nil, ""))
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d", rec.Code)
	}
}

func TestIngestRejectsUnsupportedType(t *testing.T) {
	srv, _ := newTestServer(t)
	body, ct := uploadForm(t, "file", "scan.pdf", "%PDF-1.4")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/ingest", body, ct))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestIngestRejectsBadOverrides(t *testing.T) {
	srv, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "doc.md")
	fw.Write([]byte("Some text."))
	mw.WriteField("chunk_overlap", "1.5")
	mw.Close()

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/ingest", &buf, mw.FormDataContentType()))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/stats", nil, ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("stats = %d", rec.Code)
	}
	var stats struct {
		QueueDepth int `json:"queue_depth"`
		Documents  int `json:"documents"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
}

func TestJobNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/ingest/unknown/status", nil, ""))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
