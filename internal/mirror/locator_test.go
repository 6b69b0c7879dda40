package mirror

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clintrovert/ghasana/internal/asana"
	"github.com/clintrovert/ghasana/internal/testutil"
)

const issueURL = "https://github.com/acme/widgets/issues/12"

var (
	fieldProject  = Project{ID: testutil.ProjectID, WorkspaceID: testutil.WorkspaceID, Strategy: MatchStrategy{Kind: MatchByCustomField, FieldID: testutil.IssueFieldGID}}
	markerProject = Project{ID: testutil.ProjectID, WorkspaceID: testutil.WorkspaceID, Strategy: MatchStrategy{Kind: MatchByBodyMarker}}
)

func textPtr(s string) *string {
	return &s
}

func TestFind_NoTasks(t *testing.T) {
	fake := testutil.NewFakeAsana(true)
	l := NewLocator(fake, zap.NewNop())

	result, err := l.Find(context.Background(), issueURL, fieldProject)
	require.NoError(t, err)
	assert.False(t, result.Found())
	assert.False(t, result.Ambiguous())
}

func TestFind_ByCustomField(t *testing.T) {
	fake := testutil.NewFakeAsana(true)
	id := fake.AddTask(asana.Task{
		Name:         "Fix login bug",
		HTMLNotes:    "<body>content</body>",
		CustomFields: []asana.CustomFieldValue{{GID: testutil.IssueFieldGID, TextValue: textPtr(issueURL)}},
	})
	fake.AddTask(asana.Task{
		Name:         "Other",
		CustomFields: []asana.CustomFieldValue{{GID: testutil.IssueFieldGID, TextValue: textPtr(issueURL + "0")}},
	})
	l := NewLocator(fake, zap.NewNop())

	result, err := l.Find(context.Background(), issueURL, fieldProject)
	require.NoError(t, err)
	require.True(t, result.Found())
	assert.Equal(t, id, result.Task.ID)
	assert.Equal(t, issueURL, result.Task.IssueURL)
	assert.Equal(t, testutil.ProjectID, result.Task.ProjectID)
	assert.Equal(t, 1, fake.Calls("SearchTasks"))
}

func TestFind_CustomFieldFallsBackToMarker(t *testing.T) {
	fake := testutil.NewFakeAsana(true)
	id := fake.AddTask(asana.Task{
		Name:      "Created before the field existed",
		HTMLNotes: `<body><strong>Original description</strong> from <a href="` + issueURL + `">Github</a></body>`,
	})
	l := NewLocator(fake, zap.NewNop())

	result, err := l.Find(context.Background(), issueURL, fieldProject)
	require.NoError(t, err)
	require.True(t, result.Found())
	assert.Equal(t, id, result.Task.ID)
	assert.Equal(t, 2, fake.Calls("SearchTasks"))
}

func TestFind_ByBodyMarkerRequiresExactLink(t *testing.T) {
	fake := testutil.NewFakeAsana(false)
	fake.AddTask(asana.Task{
		Name:      "Issue 123",
		HTMLNotes: `<body><a href="` + issueURL + `3">` + issueURL + `3</a></body>`,
	})
	fake.AddTask(asana.Task{
		Name:      "Mentions the url in text only",
		HTMLNotes: "<body>see " + issueURL + "</body>",
	})
	l := NewLocator(fake, zap.NewNop())

	result, err := l.Find(context.Background(), issueURL, markerProject)
	require.NoError(t, err)
	assert.False(t, result.Found())
}

func TestFind_MultipleMatchesPicksMostRecent(t *testing.T) {
	fake := testutil.NewFakeAsana(true)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	older := fake.AddTask(asana.Task{
		GID:          "old",
		ModifiedAt:   base,
		CustomFields: []asana.CustomFieldValue{{GID: testutil.IssueFieldGID, TextValue: textPtr(issueURL)}},
	})
	newest := fake.AddTask(asana.Task{
		GID:          "new",
		ModifiedAt:   base.Add(2 * time.Hour),
		CustomFields: []asana.CustomFieldValue{{GID: testutil.IssueFieldGID, TextValue: textPtr(issueURL)}},
	})
	middle := fake.AddTask(asana.Task{
		GID:          "mid",
		ModifiedAt:   base.Add(time.Hour),
		CustomFields: []asana.CustomFieldValue{{GID: testutil.IssueFieldGID, TextValue: textPtr(issueURL)}},
	})
	l := NewLocator(fake, zap.NewNop())

	result, err := l.Find(context.Background(), issueURL, fieldProject)
	require.NoError(t, err)
	require.True(t, result.Found())
	assert.Equal(t, newest, result.Task.ID)
	assert.True(t, result.Ambiguous())
	assert.Equal(t, []string{middle, older}, result.Duplicates)
}

func TestFind_SearchUnavailableScansProject(t *testing.T) {
	fake := testutil.NewFakeAsana(false)
	fake.SearchUnavailable = true
	id := fake.AddTask(asana.Task{
		HTMLNotes: `<body>x` + "\n" + `<em>Mirrored from <a href="` + issueURL + `">` + issueURL + `</a></em></body>`,
	})
	fake.AddTask(asana.Task{HTMLNotes: "<body>unrelated</body>"})
	l := NewLocator(fake, zap.NewNop())

	result, err := l.Find(context.Background(), issueURL, markerProject)
	require.NoError(t, err)
	require.True(t, result.Found())
	assert.Equal(t, id, result.Task.ID)
	assert.Equal(t, 1, fake.Calls("ListProjectTasks"))
}

func TestFind_SearchError(t *testing.T) {
	fake := testutil.NewFakeAsana(false)
	fake.SearchErr = errors.New("connection reset")
	l := NewLocator(fake, zap.NewNop())

	_, err := l.Find(context.Background(), issueURL, markerProject)
	require.Error(t, err)
	assert.ErrorIs(t, err, fake.SearchErr)
	assert.Zero(t, fake.Calls("ListProjectTasks"))
}
