package mirror

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/clintrovert/ghasana/internal/asana"
	"github.com/clintrovert/ghasana/pkg/types"
)

// FindResult is the outcome of a canonical-task lookup
type FindResult struct {
	Task       *types.AsanaTask
	Duplicates []string // ids of other matching tasks, oldest last
}

// Found reports whether a canonical task exists
func (r FindResult) Found() bool {
	return r.Task != nil
}

// Ambiguous reports whether more than one task matched the issue
func (r FindResult) Ambiguous() bool {
	return len(r.Duplicates) > 0
}

// Locator finds the Asana task that mirrors an issue
type Locator struct {
	api    TaskAPI
	logger *zap.Logger
}

// NewLocator creates a new locator
func NewLocator(api TaskAPI, logger *zap.Logger) *Locator {
	return &Locator{
		api:    api,
		logger: logger,
	}
}

// Find returns the canonical task for issueURL in project. When several tasks
// match, the most recently modified one wins and the rest are reported.
func (l *Locator) Find(ctx context.Context, issueURL string, project Project) (FindResult, error) {
	candidates, err := l.search(ctx, issueURL, project)
	if errors.Is(err, asana.ErrSearchUnavailable) {
		l.logger.Info("task search unavailable, scanning project tasks",
			zap.String("project_id", project.ID),
		)
		candidates, err = l.scan(ctx, issueURL, project)
	}
	if err != nil {
		return FindResult{}, fmt.Errorf("failed to locate task: %w", err)
	}

	return l.pick(issueURL, project, candidates), nil
}

func (l *Locator) search(ctx context.Context, issueURL string, project Project) ([]asana.Task, error) {
	if project.Strategy.Kind == MatchByCustomField {
		tasks, err := l.api.SearchTasks(ctx, project.WorkspaceID, asana.SearchQuery{
			ProjectID:        project.ID,
			CustomFieldID:    project.Strategy.FieldID,
			CustomFieldValue: issueURL,
		})
		if err != nil {
			return nil, err
		}
		if matched := filterTasks(tasks, func(t *asana.Task) bool {
			return matchesField(t, project.Strategy.FieldID, issueURL)
		}); len(matched) > 0 {
			return matched, nil
		}
	}

	// Tasks written before the custom field existed only carry the body marker.
	tasks, err := l.api.SearchTasks(ctx, project.WorkspaceID, asana.SearchQuery{
		ProjectID: project.ID,
		Text:      issueURL,
	})
	if err != nil {
		return nil, err
	}
	return filterTasks(tasks, func(t *asana.Task) bool {
		return matchesMarker(t.HTMLNotes, issueURL)
	}), nil
}

func (l *Locator) scan(ctx context.Context, issueURL string, project Project) ([]asana.Task, error) {
	tasks, err := l.api.ListProjectTasks(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	return filterTasks(tasks, func(t *asana.Task) bool {
		if project.Strategy.Kind == MatchByCustomField && matchesField(t, project.Strategy.FieldID, issueURL) {
			return true
		}
		return matchesMarker(t.HTMLNotes, issueURL)
	}), nil
}

func (l *Locator) pick(issueURL string, project Project, candidates []asana.Task) FindResult {
	if len(candidates) == 0 {
		return FindResult{}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ModifiedAt.After(candidates[j].ModifiedAt)
	})

	canonical := toAsanaTask(&candidates[0], project)
	result := FindResult{Task: &canonical}
	for _, t := range candidates[1:] {
		result.Duplicates = append(result.Duplicates, t.GID)
	}

	if result.Ambiguous() {
		l.logger.Warn("multiple tasks match issue",
			zap.String("issue_url", issueURL),
			zap.String("task_id", canonical.ID),
			zap.Strings("duplicate_task_ids", result.Duplicates),
		)
	}

	return result
}

func filterTasks(tasks []asana.Task, keep func(*asana.Task) bool) []asana.Task {
	var out []asana.Task
	for i := range tasks {
		if keep(&tasks[i]) {
			out = append(out, tasks[i])
		}
	}
	return out
}

func matchesField(t *asana.Task, fieldID, issueURL string) bool {
	return fieldID != "" && strings.TrimSpace(t.FieldText(fieldID)) == issueURL
}

// matchesMarker looks for a link to the issue in the task body.
func matchesMarker(notes, issueURL string) bool {
	return strings.Contains(notes, `href="`+html.EscapeString(issueURL)+`"`)
}

func toAsanaTask(t *asana.Task, project Project) types.AsanaTask {
	task := types.AsanaTask{
		ID:           t.GID,
		Title:        t.Name,
		Body:         t.HTMLNotes,
		ProjectID:    project.ID,
		PermalinkURL: t.PermalinkURL,
		ModifiedAt:   t.ModifiedAt,
	}
	if project.Strategy.Kind == MatchByCustomField {
		task.IssueURL = t.FieldText(project.Strategy.FieldID)
	}
	return task
}
