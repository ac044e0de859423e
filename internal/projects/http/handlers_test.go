package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/codegen-backend/internal/llm/llmtest"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/export"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/repository"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/service"
)

type apiHarness struct {
	router    *gin.Engine
	orch      *service.Orchestrator
	model     *llmtest.Scripted
	exportDir string
}

func newAPIHarness(t *testing.T, withSubscriber bool) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	events := repository.NewRedisEvents(client)
	model := llmtest.New()
	orch := service.NewOrchestrator(repository.NewRedisStore(client), model, nil,
		service.WithNotifier(events),
		service.WithStepTimeout(5*time.Second),
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = orch.Shutdown(ctx)
	})

	dir := t.TempDir()
	opts := []Option{
		WithExporter(export.NewLocalExporter(dir)),
		WithStreamIntervals(10*time.Millisecond, time.Second),
	}
	if withSubscriber {
		opts = append(opts, WithSubscriber(events))
	}

	r := gin.New()
	New(orch, opts...).Register(r.Group("/api/v1/projects"))
	return &apiHarness{router: r, orch: orch, model: model, exportDir: dir}
}

type envelope struct {
	OK       bool             `json:"ok"`
	Error    string           `json:"error"`
	Project  map[string]any   `json:"project"`
	Projects []map[string]any `json:"projects"`
	Files    []map[string]any `json:"files"`
	Export   map[string]any   `json:"export"`
}

func (h *apiHarness) do(t *testing.T, method, path string, body any) (int, envelope) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (h *apiHarness) wait(t *testing.T, id string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.orch.Wait(ctx, id))
}

func TestProjectLifecycleOverHTTP(t *testing.T) {
	h := newAPIHarness(t, false)
	h.model.Push(
		llmtest.Text(`["auth","catalog"]`),
		llmtest.Text(`[{"path":"src/main.ts","content":"bootstrap()"}]`),
	)

	code, env := h.do(t, http.MethodPost, "/api/v1/projects", gin.H{"name": "Shop", "description": "online store", "skip_interview": true})
	require.Equal(t, http.StatusCreated, code, env.Error)
	assert.True(t, env.OK)
	assert.Equal(t, "ANALYZING", env.Project["status"])
	id := env.Project["id"].(string)
	h.wait(t, id)

	code, env = h.do(t, http.MethodGet, "/api/v1/projects/"+id, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "AWAITING_REQUIREMENTS_APPROVAL", env.Project["status"])
	assert.Equal(t, []any{"auth", "catalog"}, env.Project["pending_requirements"])

	code, _ = h.do(t, http.MethodGet, "/api/v1/projects/"+id+"/files", nil)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = h.do(t, http.MethodPost, "/api/v1/projects/"+id+"/requirements/approval", gin.H{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = h.do(t, http.MethodPost, "/api/v1/projects/"+id+"/requirements/approval", gin.H{"approved": true})
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Equal(t, "GENERATING_CODE", env.Project["status"])
	h.wait(t, id)

	code, env = h.do(t, http.MethodPost, "/api/v1/projects/"+id+"/code/approval", gin.H{"approved": true})
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Equal(t, "COMPLETED", env.Project["status"])

	code, env = h.do(t, http.MethodGet, "/api/v1/projects/"+id+"/files", nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, env.Files, 1)
	assert.Equal(t, "src/main.ts", env.Files[0]["path"])

	code, env = h.do(t, http.MethodPost, "/api/v1/projects/"+id+"/export", nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Equal(t, "local", env.Export["target"])
	got, err := os.ReadFile(filepath.Join(h.exportDir, id, "src", "main.ts"))
	require.NoError(t, err)
	assert.Equal(t, "bootstrap()", string(got))

	code, env = h.do(t, http.MethodGet, "/api/v1/projects", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, env.Projects, 1)
}

func TestInterviewOverHTTP(t *testing.T) {
	h := newAPIHarness(t, false)
	h.model.Push(llmtest.Text(`{"needsMoreInfo": true, "questions": ["Who are the users?"]}`))

	code, env := h.do(t, http.MethodPost, "/api/v1/projects", gin.H{"name": "Shop", "description": "online store"})
	require.Equal(t, http.StatusCreated, code)
	id := env.Project["id"].(string)
	h.wait(t, id)

	code, _ = h.do(t, http.MethodPost, "/api/v1/projects/"+id+"/answer", gin.H{"answer": "  "})
	assert.Equal(t, http.StatusBadRequest, code)

	h.model.Push(llmtest.Text(`["auth"]`))
	code, env = h.do(t, http.MethodPost, "/api/v1/projects/"+id+"/skip-interview", nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Equal(t, "ANALYZING", env.Project["status"])
	assert.Equal(t, true, env.Project["interview_complete"])
	h.wait(t, id)

	code, env = h.do(t, http.MethodPost, "/api/v1/projects/"+id+"/answer", gin.H{"answer": "late answer"})
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, env.OK)
}

func TestErrorMapping(t *testing.T) {
	h := newAPIHarness(t, false)

	code, env := h.do(t, http.MethodGet, "/api/v1/projects/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "project not found", env.Error)

	code, _ = h.do(t, http.MethodPost, "/api/v1/projects", gin.H{"name": "Shop"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = h.do(t, http.MethodPost, "/api/v1/projects/does-not-exist/skip-interview", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

// readUntil consumes the stream up to and including the given line.
func readUntil(t *testing.T, r *bufio.Reader, want string) {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if strings.TrimRight(line, "\n") == want {
			return
		}
	}
}

func testStream(t *testing.T, withSubscriber bool) {
	h := newAPIHarness(t, withSubscriber)
	h.model.Push(llmtest.Text(`["auth"]`))

	_, env := h.do(t, http.MethodPost, "/api/v1/projects", gin.H{"name": "Shop", "description": "online store", "skip_interview": true})
	id := env.Project["id"].(string)
	h.wait(t, id)

	srv := httptest.NewServer(h.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/projects/"+id+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body := bufio.NewReader(resp.Body)
	readUntil(t, body, "event: initial")

	_, err = h.orch.ApproveRequirements(context.Background(), id, false)
	require.NoError(t, err)

	rest, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Contains(t, string(rest), "event: update")
	assert.Contains(t, string(rest), `"status":"REJECTED"`)
}

func TestStream_Polling(t *testing.T) {
	testStream(t, false)
}

func TestStream_RedisSubscription(t *testing.T) {
	testStream(t, true)
}

func TestStream_UnknownProject(t *testing.T) {
	h := newAPIHarness(t, true)
	code, _ := h.do(t, http.MethodGet, "/api/v1/projects/missing/events", nil)
	assert.Equal(t, http.StatusNotFound, code)
}
