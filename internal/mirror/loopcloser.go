package mirror

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/clintrovert/ghasana/internal/github"
	"github.com/clintrovert/ghasana/pkg/types"
)

// Commenter posts comments on GitHub issues
type Commenter interface {
	HasToken() bool
	CreateComment(ctx context.Context, repo types.Repository, number int, body string) (string, error)
}

// LoopStatus is the outcome of the back-comment step
type LoopStatus int

const (
	LoopPosted LoopStatus = iota
	LoopSkipped
	LoopFailed
)

func (s LoopStatus) String() string {
	switch s {
	case LoopPosted:
		return "posted"
	case LoopSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// LoopResult reports what the loop closer did
type LoopResult struct {
	Status     LoopStatus
	CommentURL string
	Reason     error
}

// LoopCloser links the issue back to its Asana task
type LoopCloser struct {
	commenter Commenter
	logger    *zap.Logger
}

// NewLoopCloser creates a new loop closer
func NewLoopCloser(commenter Commenter, logger *zap.Logger) *LoopCloser {
	return &LoopCloser{
		commenter: commenter,
		logger:    logger,
	}
}

// CloseLoop comments on the issue with a link to task. It never returns an
// error; failures are reported in the result.
func (c *LoopCloser) CloseLoop(ctx context.Context, event types.IssueEvent, task *types.AsanaTask) LoopResult {
	logger := c.logger.With(
		zap.String("issue_url", event.URL),
		zap.String("task_id", task.ID),
	)

	if !c.commenter.HasToken() {
		logger.Info("loop close skipped", zap.String("reason", "no repository token configured"))
		return LoopResult{Status: LoopSkipped, Reason: errors.New("no repository token configured")}
	}

	url, err := c.commenter.CreateComment(ctx, event.Repository, event.Number, github.CommentBody(task.Link()))
	if err != nil {
		if errors.Is(err, github.ErrPermissionDenied) {
			logger.Info("loop close skipped", zap.String("reason", "repository token cannot write comments"), zap.Error(err))
			return LoopResult{Status: LoopSkipped, Reason: err}
		}
		logger.Warn("loop close failed", zap.Error(err))
		return LoopResult{Status: LoopFailed, Reason: err}
	}

	logger.Info("asana task linked on issue", zap.String("comment_url", url))
	return LoopResult{Status: LoopPosted, CommentURL: url}
}
