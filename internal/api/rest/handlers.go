package rest

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"

	"github.com/clintrovert/ghasana/internal/bridge"
	ghclient "github.com/clintrovert/ghasana/internal/github"
	"github.com/clintrovert/ghasana/pkg/types"
)

// mirroredActions are the issues webhook actions that trigger a mirror run
var mirroredActions = map[string]struct{}{
	"opened":  {},
	"labeled": {},
	"edited":  {},
}

// Mirrorer runs the mirror pipeline for one issue
type Mirrorer interface {
	Mirror(ctx context.Context, event types.IssueEvent) bridge.Outcome
}

// Handler handles GitHub webhook deliveries
type Handler struct {
	mirrorer Mirrorer
	secret   []byte
	logger   *zap.Logger
}

// NewHandler creates a new webhook handler validating deliveries with secret
func NewHandler(mirrorer Mirrorer, secret string, logger *zap.Logger) *Handler {
	return &Handler{
		mirrorer: mirrorer,
		secret:   []byte(secret),
		logger:   logger,
	}
}

// MirrorResponse is the body returned for a webhook delivery
type MirrorResponse struct {
	RunID     string `json:"run_id,omitempty"`
	State     string `json:"state"`
	TaskID    string `json:"task_id,omitempty"`
	Created   bool   `json:"created,omitempty"`
	LoopClose string `json:"loop_close,omitempty"`
	Message   string `json:"message,omitempty"`
}

// HandleGitHubWebhook handles POST /webhooks/github
func (h *Handler) HandleGitHubWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := github.ValidatePayload(r, h.secret)
	if err != nil {
		h.logger.Warn("rejected webhook delivery", zap.Error(err))
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	eventType := github.WebHookType(r)
	if eventType != "issues" {
		writeJSON(w, http.StatusAccepted, MirrorResponse{State: "ignored", Message: "event " + eventType + " not handled"})
		return
	}

	parsed, err := github.ParseWebHook(eventType, payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	issuesEvent, ok := parsed.(*github.IssuesEvent)
	if !ok {
		http.Error(w, "unexpected payload", http.StatusBadRequest)
		return
	}

	if _, ok := mirroredActions[issuesEvent.GetAction()]; !ok {
		writeJSON(w, http.StatusAccepted, MirrorResponse{State: "ignored", Message: "action " + issuesEvent.GetAction() + " not handled"})
		return
	}

	event, err := ghclient.IssueEventFromWebhook(issuesEvent)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.logger.Info("received issue event",
		zap.String("action", issuesEvent.GetAction()),
		zap.String("issue_url", event.URL),
		zap.String("delivery_id", github.DeliveryID(r)),
	)

	out := h.mirrorer.Mirror(r.Context(), event)

	resp := MirrorResponse{
		RunID:   out.RunID,
		State:   string(out.State),
		Created: out.Created,
		Message: out.Describe(),
	}
	if out.Task != nil {
		resp.TaskID = out.Task.ID
	}
	if out.Loop != nil {
		resp.LoopClose = out.Loop.Status.String()
	}

	status := http.StatusOK
	if out.ExitCode() != 0 {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, resp)
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// RegisterRoutes registers the webhook routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/webhooks/github", h.HandleGitHubWebhook)
	r.Get("/health", h.Health)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
