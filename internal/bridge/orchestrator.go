package bridge

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clintrovert/ghasana/internal/auth"
	"github.com/clintrovert/ghasana/internal/mirror"
	"github.com/clintrovert/ghasana/pkg/types"
)

// Authorizer decides whether the triggering actor may run the mirror
type Authorizer interface {
	Authorize(ctx context.Context, actor string, policy auth.Policy, repo types.Repository) (auth.Decision, error)
}

// ProjectResolver resolves the target project and its match strategy
type ProjectResolver interface {
	Resolve(ctx context.Context, projectID string) (mirror.Project, error)
}

// TaskLocator finds the canonical task for an issue
type TaskLocator interface {
	Find(ctx context.Context, issueURL string, project mirror.Project) (mirror.FindResult, error)
}

// TaskReconciler creates or updates the canonical task
type TaskReconciler interface {
	Reconcile(ctx context.Context, event types.IssueEvent, project mirror.Project, existing *types.AsanaTask) (*types.AsanaTask, error)
}

// LoopCloser posts the back-link comment
type LoopCloser interface {
	CloseLoop(ctx context.Context, event types.IssueEvent, task *types.AsanaTask) mirror.LoopResult
}

// Components are the stages the orchestrator sequences
type Components struct {
	Authorizer Authorizer
	Resolver   ProjectResolver
	Locator    TaskLocator
	Reconciler TaskReconciler
	LoopCloser LoopCloser
}

// Orchestrator runs authorize -> locate -> reconcile -> close loop for an issue
type Orchestrator struct {
	components Components
	projectID  string
	policy     auth.Policy
	locks      *keyedLocks
	logger     *zap.Logger
}

// NewOrchestrator creates a new orchestrator mirroring into projectID under policy
func NewOrchestrator(components Components, projectID string, policy auth.Policy, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		components: components,
		projectID:  projectID,
		policy:     policy,
		locks:      newKeyedLocks(),
		logger:     logger,
	}
}

// Mirror runs the pipeline for one issue event. Runs for the same issue URL
// within this process are serialized.
func (o *Orchestrator) Mirror(ctx context.Context, event types.IssueEvent) Outcome {
	out := Outcome{RunID: uuid.NewString(), State: StateStart}
	logger := o.logger.With(
		zap.String("run_id", out.RunID),
		zap.String("issue_url", event.URL),
		zap.String("actor", event.Actor),
	)

	out.State = StateAuthorizing
	decision, err := o.components.Authorizer.Authorize(ctx, event.Actor, o.policy, event.Repository)
	if err != nil {
		return o.fail(logger, out, err)
	}
	if decision == auth.Denied {
		out.State = StateAborted
		logger.Info("mirror denied",
			zap.Stringer("policy", o.policy.Kind),
			zap.String("repo", event.Repository.FullName()),
		)
		return out
	}

	unlock := o.locks.Lock(event.URL)
	defer unlock()

	out.State = StateLocating
	project, err := o.components.Resolver.Resolve(ctx, o.projectID)
	if err != nil {
		return o.fail(logger, out, err)
	}

	found, err := o.components.Locator.Find(ctx, event.URL, project)
	if err != nil {
		return o.fail(logger, out, err)
	}
	out.Duplicates = found.Duplicates

	out.State = StateReconciling
	task, err := o.components.Reconciler.Reconcile(ctx, event, project, found.Task)
	if err != nil {
		return o.fail(logger, out, err)
	}
	out.Task = task
	out.Created = !found.Found()

	out.State = StateClosingLoop
	loop := o.components.LoopCloser.CloseLoop(ctx, event, task)
	out.Loop = &loop

	out.State = StateDone
	logger.Info("mirror complete",
		zap.String("task_id", task.ID),
		zap.Bool("created", out.Created),
		zap.Stringer("loop_close", loop.Status),
	)

	return out
}

func (o *Orchestrator) fail(logger *zap.Logger, out Outcome, err error) Outcome {
	out.Err = &StageError{Stage: out.State, Err: err}
	out.State = StateFailed
	logger.Error("mirror failed", zap.Error(out.Err))
	return out
}

// Describe returns a one-line summary of the outcome
func (out Outcome) Describe() string {
	switch out.State {
	case StateAborted:
		return "actor not authorized; nothing mirrored"
	case StateFailed:
		return fmt.Sprintf("mirror failed: %v", out.Err)
	case StateDone:
		verb := "updated"
		if out.Created {
			verb = "created"
		}
		return fmt.Sprintf("asana task %s %s; back-link comment %s", out.Task.ID, verb, out.Loop.Status)
	default:
		return string(out.State)
	}
}
