package rest

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clintrovert/ghasana/internal/bridge"
	"github.com/clintrovert/ghasana/internal/mirror"
	"github.com/clintrovert/ghasana/pkg/types"
)

const secret = "s3cret"

const openedPayload = `{
	"action": "opened",
	"issue": {
		"number": 12,
		"title": "Fix login bug",
		"body": "<p>Steps</p>",
		"html_url": "https://github.com/acme/widgets/issues/12"
	},
	"repository": {"name": "widgets", "owner": {"login": "acme"}},
	"sender": {"login": "alice"}
}`

type fakeMirrorer struct {
	events  []types.IssueEvent
	outcome bridge.Outcome
}

func (f *fakeMirrorer) Mirror(ctx context.Context, event types.IssueEvent) bridge.Outcome {
	f.events = append(f.events, event)
	return f.outcome
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func deliver(t *testing.T, m Mirrorer, event, body, signature string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(m, secret, zap.NewNop()).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", event)
	req.Header.Set("X-GitHub-Delivery", "delivery-1")
	req.Header.Set("X-Hub-Signature-256", signature)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) MirrorResponse {
	t.Helper()
	var resp MirrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHandleGitHubWebhook_Mirrors(t *testing.T) {
	m := &fakeMirrorer{outcome: bridge.Outcome{
		RunID:   "run-1",
		State:   bridge.StateDone,
		Created: true,
		Task:    &types.AsanaTask{ID: "task-1"},
		Loop:    &mirror.LoopResult{Status: mirror.LoopPosted},
	}}

	rec := deliver(t, m, "issues", openedPayload, sign([]byte(openedPayload)))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, "done", resp.State)
	assert.Equal(t, "task-1", resp.TaskID)
	assert.True(t, resp.Created)
	assert.Equal(t, "posted", resp.LoopClose)

	require.Len(t, m.events, 1)
	assert.Equal(t, "https://github.com/acme/widgets/issues/12", m.events[0].URL)
	assert.Equal(t, "alice", m.events[0].Actor)
	assert.Equal(t, 12, m.events[0].Number)
}

func TestHandleGitHubWebhook_Failure(t *testing.T) {
	m := &fakeMirrorer{outcome: bridge.Outcome{
		State: bridge.StateFailed,
		Err:   &bridge.StageError{Stage: bridge.StateReconciling, Err: errors.New("boom")},
	}}

	rec := deliver(t, m, "issues", openedPayload, sign([]byte(openedPayload)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed", decode(t, rec).State)
}

func TestHandleGitHubWebhook_Denied(t *testing.T) {
	m := &fakeMirrorer{outcome: bridge.Outcome{State: bridge.StateAborted}}

	rec := deliver(t, m, "issues", openedPayload, sign([]byte(openedPayload)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "aborted", decode(t, rec).State)
}

func TestHandleGitHubWebhook_BadSignature(t *testing.T) {
	m := &fakeMirrorer{}

	rec := deliver(t, m, "issues", openedPayload, "sha256=deadbeef")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, m.events)
}

func TestHandleGitHubWebhook_Ignored(t *testing.T) {
	closed := `{"action":"closed","issue":{"number":1,"html_url":"https://github.com/acme/widgets/issues/1"}}`
	ping := `{"zen":"Keep it logically awesome."}`

	tests := []struct {
		name  string
		event string
		body  string
	}{
		{name: "other event", event: "ping", body: ping},
		{name: "unhandled action", event: "issues", body: closed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeMirrorer{}

			rec := deliver(t, m, tt.event, tt.body, sign([]byte(tt.body)))

			assert.Equal(t, http.StatusAccepted, rec.Code)
			assert.Equal(t, "ignored", decode(t, rec).State)
			assert.Empty(t, m.events)
		})
	}
}

func TestHandleGitHubWebhook_MalformedPayload(t *testing.T) {
	m := &fakeMirrorer{}
	body := `{"action":`

	rec := deliver(t, m, "issues", body, sign([]byte(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, m.events)
}

func TestHealth(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(&fakeMirrorer{}, secret, zap.NewNop()).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
