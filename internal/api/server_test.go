package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dgallion1/docdeck/internal/config"
	"github.com/dgallion1/docdeck/internal/llm"
	"github.com/dgallion1/docdeck/internal/pipeline"
	"github.com/dgallion1/docdeck/internal/render"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testKey = "secret"

func fakeGenerate(ctx context.Context, req llm.Request) (string, error) {
	if strings.HasPrefix(req.Prompt, "Rewrite the following document") {
		return "# Plan\n\nShip it.", nil
	}
	return `{"slides": [
		{"title": "Plan", "template": "title_slide"},
		{"title": "Steps", "template": "content_basic", "items": ["build", "ship"]},
		{"title": "Done", "template": "summary_or_thankyou"}
	]}`, nil
}

func testConfig() config.Config {
	return config.Config{
		APIKey:               testKey,
		WorkerCount:          1,
		MaxQueueSize:         8,
		MaxUploadBytes:       1 << 20,
		RunTTL:               time.Hour,
		StructureChunkTokens: 6000,
		DefaultTheme:         "corporate",
		DefaultMode:          "light",
	}
}

func newTestServer(t *testing.T, cfg config.Config, start bool) (*Server, *pipeline.Orchestrator) {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	engine, err := render.NewEngine(render.Options{Logger: log})
	require.NoError(t, err)
	client := llm.NewClient(llm.GeneratorFunc(fakeGenerate), "gemini", "gemini-test")
	orch := pipeline.NewOrchestrator(cfg, client, engine, nil, log)
	if start {
		orch.Start(context.Background())
	}
	t.Cleanup(orch.Stop)
	return NewServer(orch, client, log, cfg), orch
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+testKey)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, h http.Handler, filename, content string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/runs", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testKey)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func waitStage(t *testing.T, orch *pipeline.Orchestrator, id string, stage pipeline.Stage) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := orch.Wait(ctx, id, stage)
	require.NoError(t, err)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthIsPublic(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), false)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuth(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), false)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/themes", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/themes", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/themes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	themes := decode[struct {
		Themes []render.ThemeInfo `json:"themes"`
	}](t, rec)
	var ids []string
	for _, th := range themes.Themes {
		ids = append(ids, th.ID)
	}
	assert.ElementsMatch(t, []string{"corporate", "minimal"}, ids)
}

func TestRunLifecycleOverHTTP(t *testing.T) {
	srv, orch := newTestServer(t, testConfig(), true)

	rec := upload(t, srv, "plan.md", "# Plan\n\nShip it.", map[string]string{"include_agenda": "false"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	id := created["run_id"].(string)
	assert.Equal(t, "/api/runs/"+id, created["poll_url"])

	waitStage(t, orch, id, pipeline.StageStructured)
	rec = do(t, srv, http.MethodGet, "/api/runs/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[map[string]any](t, rec)
	assert.Equal(t, "structured", snap["stage"])
	assert.Equal(t, "# Plan\n\nShip it.", snap["structured_text"])

	// Approving the outline now is out of order.
	rec = do(t, srv, http.MethodPost, "/api/runs/"+id+"/outline/approve", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, srv, http.MethodPut, "/api/runs/"+id+"/structured-text", map[string]string{"text": "# Plan v2"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, srv, http.MethodPost, "/api/runs/"+id+"/structure/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/runs/"+id+"/theme", map[string]any{"theme": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, srv, http.MethodPost, "/api/runs/"+id+"/theme", map[string]any{
		"theme": "corporate", "mode": "dark", "options": map[string]any{"slide_count": 3},
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	waitStage(t, orch, id, pipeline.StageOutlineReview)

	rec = do(t, srv, http.MethodGet, "/api/runs/"+id, nil)
	snap = decode[map[string]any](t, rec)
	items := snap["outline"].([]any)
	require.Len(t, items, 3)
	assert.Equal(t, "Steps", items[1].(map[string]any)["title"])

	rec = do(t, srv, http.MethodPut, "/api/runs/"+id+"/outline", map[string]any{"outline": []map[string]any{
		{"title": "Plan", "template": "title_slide"},
		{"title": "Steps", "template": "content_basic", "items": []string{"build", "test", "ship"}},
		{"title": "Done", "template": "summary_or_thankyou"},
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/api/runs/"+id+"/outline/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	waitStage(t, orch, id, pipeline.StageCompleted)

	rec = do(t, srv, http.MethodGet, "/api/runs/"+id+"/slides/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "test")

	rec = do(t, srv, http.MethodGet, "/api/runs/"+id+"/slides/9", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, srv, http.MethodGet, "/api/runs/"+id+"/slides/x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/runs/"+id+"/log?since=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	log := decode[struct {
		Entries []map[string]any `json:"entries"`
		Next    int              `json:"next"`
	}](t, rec)
	assert.Equal(t, 1+len(log.Entries), log.Next)

	rec = do(t, srv, http.MethodGet, "/api/stats/llm", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[struct {
		Model string            `json:"model"`
		Stats llm.StatsSnapshot `json:"stats"`
	}](t, rec)
	assert.Equal(t, "gemini-test", stats.Model)
	assert.Equal(t, 2, stats.Stats.Total.Calls)
	assert.Equal(t, 1, stats.Stats.ByStage[llm.StageStructure].Calls)
	assert.Equal(t, 1, stats.Stats.ByStage[llm.StageOutline].Calls)
	assert.NotContains(t, stats.Stats.ByStage, llm.StageOther)
}

func TestUploadRejections(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), false)

	rec := upload(t, srv, "malware.exe", "MZ", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = upload(t, srv, "notes.txt", "hello", map[string]string{"slide_count": "-2"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = upload(t, srv, "notes.txt", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	cfg := testConfig()
	cfg.MaxUploadBytes = 4
	small, _ := newTestServer(t, cfg, false)
	rec = upload(t, small, "notes.txt", "too large", nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestQueueFullIsUnavailable(t *testing.T) {
	cfg := testConfig()
	cfg.MaxQueueSize = 1
	srv, _ := newTestServer(t, cfg, false)

	rec := upload(t, srv, "a.txt", "first", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	rec = upload(t, srv, "b.txt", "second", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUnknownRun(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), false)
	for _, path := range []string{"/api/runs/missing", "/api/runs/missing/log", "/api/runs/missing/slides/0"} {
		rec := do(t, srv, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
	rec := do(t, srv, http.MethodPost, "/api/runs/missing/retry", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"report.pdf":           "report.pdf",
		"../../etc/passwd.txt": "passwd.txt",
		`C:\docs\plan.docx`:    "plan.docx",
		"a..b.md":              "a_b.md",
		"":                     "unnamed",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeFilename(in), in)
	}
}
