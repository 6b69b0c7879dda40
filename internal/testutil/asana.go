// Package testutil provides in-memory fakes of the Asana and GitHub APIs.
package testutil

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/clintrovert/ghasana/internal/asana"
	"github.com/clintrovert/ghasana/pkg/types"
)

// Fake Asana identifiers.
const (
	ProjectID     = "proj-1"
	WorkspaceID   = "ws-1"
	IssueFieldGID = "field-issue"
)

// FakeAsana is a stateful in-memory Asana project
type FakeAsana struct {
	mu sync.Mutex

	Project asana.Project
	tasks   []*asana.Task
	calls   map[string]int
	nextID  int
	clock   time.Time

	SearchUnavailable bool
	ProjectErr        error
	SearchErr         error
	CreateErr         error
	UpdateErr         error
}

// NewFakeAsana returns an empty project, optionally defining the
// "Github Issue" custom field
func NewFakeAsana(withIssueField bool) *FakeAsana {
	f := &FakeAsana{
		Project: asana.Project{
			GID:       ProjectID,
			Name:      "Mirrored issues",
			Workspace: asana.Resource{GID: WorkspaceID},
		},
		calls: make(map[string]int),
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if withIssueField {
		f.Project.CustomFieldSettings = []asana.CustomFieldSetting{
			{CustomField: asana.CustomField{GID: "field-priority", Name: "Priority"}},
			{CustomField: asana.CustomField{GID: IssueFieldGID, Name: types.IssueFieldName, ResourceSubtype: "text"}},
		}
	}
	return f
}

// Calls returns how many times the named operation was invoked
func (f *FakeAsana) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// TotalCalls returns the number of operations invoked
func (f *FakeAsana) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// Tasks returns a copy of the stored tasks
func (f *FakeAsana) Tasks() []asana.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]asana.Task, 0, len(f.tasks))
	for _, t := range f.tasks {
		out = append(out, *t)
	}
	return out
}

// Task returns the stored task with id
func (f *FakeAsana) Task(id string) (asana.Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tasks {
		if t.GID == id {
			return *t, true
		}
	}
	return asana.Task{}, false
}

// AddTask seeds a task, assigning an id and modification time when unset
func (f *FakeAsana) AddTask(t asana.Task) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.GID == "" {
		t.GID = f.newID()
	}
	if t.ModifiedAt.IsZero() {
		t.ModifiedAt = f.tick()
	}
	f.tasks = append(f.tasks, &t)
	return t.GID
}

func (f *FakeAsana) GetProject(ctx context.Context, projectID string) (*asana.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetProject"]++
	if f.ProjectErr != nil {
		return nil, f.ProjectErr
	}
	if projectID != f.Project.GID {
		return nil, &asana.APIError{StatusCode: http.StatusNotFound, Messages: []string{"project not found"}}
	}
	p := f.Project
	return &p, nil
}

func (f *FakeAsana) SearchTasks(ctx context.Context, workspaceID string, query asana.SearchQuery) ([]asana.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["SearchTasks"]++
	if f.SearchUnavailable {
		return nil, fmt.Errorf("fake search: %w", asana.ErrSearchUnavailable)
	}
	if f.SearchErr != nil {
		return nil, f.SearchErr
	}

	var out []asana.Task
	for _, t := range f.tasks {
		if query.CustomFieldID != "" && t.FieldText(query.CustomFieldID) != query.CustomFieldValue {
			continue
		}
		if query.Text != "" && !strings.Contains(t.Name, query.Text) && !strings.Contains(t.HTMLNotes, query.Text) {
			continue
		}
		out = append(out, *t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ModifiedAt.After(out[j].ModifiedAt)
	})
	return out, nil
}

func (f *FakeAsana) ListProjectTasks(ctx context.Context, projectID string) ([]asana.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ListProjectTasks"]++
	out := make([]asana.Task, 0, len(f.tasks))
	for _, t := range f.tasks {
		out = append(out, *t)
	}
	return out, nil
}

func (f *FakeAsana) CreateTask(ctx context.Context, req asana.TaskRequest) (*asana.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["CreateTask"]++
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}

	t := &asana.Task{GID: f.newID()}
	t.PermalinkURL = "https://app.asana.com/0/" + ProjectID + "/" + t.GID
	f.apply(t, req)
	f.tasks = append(f.tasks, t)

	out := *t
	return &out, nil
}

func (f *FakeAsana) UpdateTask(ctx context.Context, taskID string, req asana.TaskRequest) (*asana.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["UpdateTask"]++
	if f.UpdateErr != nil {
		return nil, f.UpdateErr
	}

	for _, t := range f.tasks {
		if t.GID == taskID {
			f.apply(t, req)
			out := *t
			return &out, nil
		}
	}
	return nil, &asana.APIError{StatusCode: http.StatusNotFound, Messages: []string{"task not found"}}
}

func (f *FakeAsana) apply(t *asana.Task, req asana.TaskRequest) {
	t.Name = req.Name
	t.HTMLNotes = req.HTMLNotes
	for gid, value := range req.CustomFields {
		value := value
		set := false
		for i := range t.CustomFields {
			if t.CustomFields[i].GID == gid {
				t.CustomFields[i].TextValue = &value
				set = true
			}
		}
		if !set {
			t.CustomFields = append(t.CustomFields, asana.CustomFieldValue{GID: gid, TextValue: &value})
		}
	}
	t.ModifiedAt = f.tick()
}

func (f *FakeAsana) newID() string {
	f.nextID++
	return fmt.Sprintf("task-%d", f.nextID)
}

func (f *FakeAsana) tick() time.Time {
	f.clock = f.clock.Add(time.Minute)
	return f.clock
}
