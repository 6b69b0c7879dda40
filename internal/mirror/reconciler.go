package mirror

import (
	"context"
	"fmt"
	"html"
	"strings"

	"go.uber.org/zap"

	"github.com/clintrovert/ghasana/internal/asana"
	"github.com/clintrovert/ghasana/pkg/types"
)

const timestampLayout = "2006-01-02 15:04:05 UTC"

// Reconciler writes issue state onto the mirror task
type Reconciler struct {
	api       TaskAPI
	sanitizer *Sanitizer
	logger    *zap.Logger
}

// NewReconciler creates a new reconciler
func NewReconciler(api TaskAPI, sanitizer *Sanitizer, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		api:       api,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// Reconcile creates the task when existing is nil, otherwise overwrites the
// existing task's title, body and issue field with the current issue state.
func (r *Reconciler) Reconcile(ctx context.Context, event types.IssueEvent, project Project, existing *types.AsanaTask) (*types.AsanaTask, error) {
	req := r.BuildRequest(event, project)

	var (
		written *asana.Task
		err     error
	)
	if existing == nil {
		req.Projects = []string{project.ID}
		written, err = r.api.CreateTask(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("failed to create task for issue %s: %w", event.URL, err)
		}
	} else {
		written, err = r.api.UpdateTask(ctx, existing.ID, req)
		if err != nil {
			return nil, fmt.Errorf("failed to update task %s for issue %s: %w", existing.ID, event.URL, err)
		}
	}

	task := toAsanaTask(written, project)
	if task.ID == "" {
		if existing == nil {
			return nil, fmt.Errorf("asana returned no id for created task")
		}
		task.ID = existing.ID
	}
	if task.Title == "" {
		task.Title = req.Name
	}
	if task.Body == "" {
		task.Body = req.HTMLNotes
	}
	if project.Strategy.Kind == MatchByCustomField && task.IssueURL == "" {
		task.IssueURL = event.URL
	}

	action := "updated asana task"
	if existing == nil {
		action = "created asana task"
	}
	r.logger.Info(action,
		zap.String("task_id", task.ID),
		zap.String("issue_url", event.URL),
		zap.String("permalink", task.PermalinkURL),
	)

	return &task, nil
}

// BuildRequest renders the task fields for an issue under the project's
// match strategy
func (r *Reconciler) BuildRequest(event types.IssueEvent, project Project) asana.TaskRequest {
	content := r.sanitizer.Sanitize(event.Body)

	req := asana.TaskRequest{Name: event.Title}
	if project.Strategy.Kind == MatchByCustomField {
		req.HTMLNotes = wrapBody(content)
		req.CustomFields = map[string]string{project.Strategy.FieldID: event.URL}
		return req
	}

	if content == "" {
		req.HTMLNotes = wrapBody(issueMarker(event))
		return req
	}
	req.HTMLNotes = wrapBody(joinLines(descriptionHeader(event), content, "<hr/>", issueMarker(event)))
	return req
}

func descriptionHeader(event types.IssueEvent) string {
	return `<strong>Original description</strong> from <a href="` + html.EscapeString(event.URL) + `">Github</a>:`
}

// issueMarker is the trailing line that lets the locator recover identity
// from the task body.
func issueMarker(event types.IssueEvent) string {
	link := html.EscapeString(event.URL)
	line := `<em>Mirrored from <a href="` + link + `">` + link + `</a>`
	if !event.Timestamp.IsZero() {
		line += " at " + event.Timestamp.UTC().Format(timestampLayout)
	}
	return line + "</em>"
}

func wrapBody(content string) string {
	return "<body>" + content + "</body>"
}

func joinLines(lines ...string) string {
	var kept []string
	for _, line := range lines {
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
