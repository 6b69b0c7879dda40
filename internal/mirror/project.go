package mirror

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/clintrovert/ghasana/internal/asana"
	"github.com/clintrovert/ghasana/pkg/types"
)

// TaskAPI is the set of Asana operations the mirror components use
type TaskAPI interface {
	GetProject(ctx context.Context, projectID string) (*asana.Project, error)
	SearchTasks(ctx context.Context, workspaceID string, query asana.SearchQuery) ([]asana.Task, error)
	ListProjectTasks(ctx context.Context, projectID string) ([]asana.Task, error)
	CreateTask(ctx context.Context, req asana.TaskRequest) (*asana.Task, error)
	UpdateTask(ctx context.Context, taskID string, req asana.TaskRequest) (*asana.Task, error)
}

// MatchKind is how a task is tied to its issue
type MatchKind int

const (
	// MatchByBodyMarker identifies tasks by the issue link in their body
	MatchByBodyMarker MatchKind = iota
	// MatchByCustomField identifies tasks by the "Github Issue" custom field
	MatchByCustomField
)

func (k MatchKind) String() string {
	if k == MatchByCustomField {
		return "custom_field"
	}
	return "body_marker"
}

// MatchStrategy is selected once per project
type MatchStrategy struct {
	Kind    MatchKind
	FieldID string
}

// Project is a resolved target project
type Project struct {
	ID          string
	WorkspaceID string
	Strategy    MatchStrategy
}

// ProjectResolver looks up a project's workspace and match strategy
type ProjectResolver struct {
	api    TaskAPI
	cache  *expirable.LRU[string, Project]
	logger *zap.Logger
}

// NewProjectResolver creates a resolver caching up to size projects for ttl
func NewProjectResolver(api TaskAPI, size int, ttl time.Duration, logger *zap.Logger) *ProjectResolver {
	return &ProjectResolver{
		api:    api,
		cache:  expirable.NewLRU[string, Project](size, nil, ttl),
		logger: logger,
	}
}

// Resolve returns the project with its match strategy
func (r *ProjectResolver) Resolve(ctx context.Context, projectID string) (Project, error) {
	if project, ok := r.cache.Get(projectID); ok {
		return project, nil
	}

	p, err := r.api.GetProject(ctx, projectID)
	if err != nil {
		return Project{}, fmt.Errorf("failed to resolve project %s: %w", projectID, err)
	}

	if field, ok := issueField(p); ok && !isTextField(field) {
		r.logger.Warn("issue custom field is not a text field, matching by body marker",
			zap.String("project_id", projectID),
			zap.String("field_id", field.GID),
			zap.String("resource_subtype", field.ResourceSubtype),
		)
	}

	project := Project{
		ID:          projectID,
		WorkspaceID: p.Workspace.GID,
		Strategy:    SelectStrategy(p),
	}
	r.cache.Add(projectID, project)

	r.logger.Info("resolved project",
		zap.String("project_id", projectID),
		zap.String("workspace_id", project.WorkspaceID),
		zap.Stringer("match_strategy", project.Strategy.Kind),
	)

	return project, nil
}

// SelectStrategy picks custom-field matching when the project defines a text
// field named exactly "Github Issue"
func SelectStrategy(p *asana.Project) MatchStrategy {
	if field, ok := issueField(p); ok && isTextField(field) {
		return MatchStrategy{Kind: MatchByCustomField, FieldID: field.GID}
	}
	return MatchStrategy{Kind: MatchByBodyMarker}
}

func issueField(p *asana.Project) (asana.CustomField, bool) {
	for _, setting := range p.CustomFieldSettings {
		if setting.CustomField.Name == types.IssueFieldName {
			return setting.CustomField, true
		}
	}
	return asana.CustomField{}, false
}

// isTextField accepts an unreported subtype, since older API responses omit it.
func isTextField(f asana.CustomField) bool {
	return f.ResourceSubtype == "" || f.ResourceSubtype == "text"
}
