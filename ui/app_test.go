package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"goannotate/adapters/filestore"
	"goannotate/app"
	"goannotate/domain/annotation"
	"goannotate/domain/trace"
)

func newTestApp(t *testing.T) (*App, *filestore.TestCaseRepository, *filestore.InteractionStore) {
	t.Helper()
	dir := t.TempDir()

	repo, err := filestore.NewTestCaseRepository(dir + "/test_cases")
	require.NoError(t, err)
	interactions, err := filestore.NewInteractionStore(dir + "/interactions")
	require.NoError(t, err)
	configs, err := filestore.NewConfigStore(dir + "/config")
	require.NoError(t, err)

	generator := app.NewGeneratorService(repo, interactions)
	session := app.NewSessionService(repo, configs, generator)
	return NewApp(session, interactions), repo, interactions
}

func seedSteps(t *testing.T, store *filestore.InteractionStore, n int) {
	t.Helper()
	interactionID := "i1"
	steps := make([]trace.Step, n)
	for i := range steps {
		name := fmt.Sprintf("llm call %d", i)
		steps[i] = trace.Step{ID: fmt.Sprintf("s%d", i), InteractionID: &interactionID, Name: &name}
	}
	require.NoError(t, store.WriteInteraction(context.Background(), interactionID, nil, steps))
}

const configDoc = `{
	"granularity": "step",
	"feedback_spec": {"type": "categorical", "categories": ["pass", "fail"]},
	"input_items": [{"name": "answer", "description": "The answer"}],
	"ai_rubric": "Rate {answer}",
	"attribute_matchers": []
}`

func TestHealthEndpoint(t *testing.T) {
	a, _, _ := newTestApp(t)

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestActivateConfigLifecycle(t *testing.T) {
	a, repo, interactions := newTestApp(t)
	seedSteps(t, interactions, 2)

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest("POST", "/feedback-config", strings.NewReader(configDoc)))
	require.Equal(t, http.StatusOK, rec.Code)

	var result app.ActivationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, 2, result.CreatedCases)
	require.Len(t, result.Pointwise, 2)
	require.Empty(t, result.Ranking)

	rec = httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/feedback-config", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	cases, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, cases, 2)
}

func TestActivateConfigZeroMatchesIs400(t *testing.T) {
	a, _, _ := newTestApp(t)

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest("POST", "/feedback-config", strings.NewReader(configDoc)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/feedback-config", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestActivateConfigMalformedIs400(t *testing.T) {
	a, _, _ := newTestApp(t)

	bad := `{"granularity": "step", "feedback_spec": {"type": "categorical", "categories": ["pass"]},
		"input_items": [{"name": "answer", "description": "d"}], "ai_rubric": "no variables here"}`
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest("POST", "/feedback-config", strings.NewReader(bad)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHumanAnnotationFlow(t *testing.T) {
	a, repo, interactions := newTestApp(t)
	seedSteps(t, interactions, 1)

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest("POST", "/feedback-config", strings.NewReader(configDoc)))
	require.Equal(t, http.StatusOK, rec.Code)

	ctx := context.Background()
	cases, err := repo.List(ctx)
	require.NoError(t, err)
	tc := cases[0]
	tc.SetAIAnnotation(annotation.NewCategoricalAnnotation(tc.ID, "judge", "pass", []string{"pass", "fail"}))
	require.NoError(t, repo.Save(ctx, tc))

	rec = httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api/test-cases/next", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var next annotation.TestCase
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &next))
	require.Equal(t, tc.ID, next.ID)

	body, _ := json.Marshal(app.HumanAnnotationRequest{AnnotatorID: "alice", Category: "pass"})
	rec = httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest("POST", "/test-cases/"+string(tc.ID)+"/annotate/human", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"agreement_rate":1`)

	rec = httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api/test-cases/"+string(tc.ID)+"/visualize", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	require.Contains(t, rec.Body.String(), "Human Annotation")
}

func TestHumanAnnotationMissingAnnotatorIs400(t *testing.T) {
	a, _, _ := newTestApp(t)

	body := `{"category": "pass"}`
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest("POST", "/test-cases/whatever/annotate/human", strings.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInteractionForStep(t *testing.T) {
	a, _, interactions := newTestApp(t)
	seedSteps(t, interactions, 2)

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/interaction/s0", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got trace.Interaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "i1", got.ID)
	require.Len(t, got.Steps, 2)

	rec = httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/interaction/missing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeStopsCleanlyOnShutdown(t *testing.T) {
	a, _, _ := newTestApp(t)

	require.NoError(t, a.Shutdown(context.Background()), "shutdown before serve is a no-op")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	done := make(chan error, 1)
	go func() { done <- a.Serve(Config{Port: strconv.Itoa(port)}) }()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
		if err == nil {
			resp.Body.Close()
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	require.NoError(t, a.Shutdown(context.Background()))
	require.NoError(t, <-done, "a shut-down server must not surface ErrServerClosed")
}

func TestStatsExportStreamsWorkbook(t *testing.T) {
	a, _, interactions := newTestApp(t)
	seedSteps(t, interactions, 1)

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest("POST", "/feedback-config", strings.NewReader(configDoc)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/stats/export", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	require.NotZero(t, rec.Body.Len())
}
