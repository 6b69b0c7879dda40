package mirror

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clintrovert/ghasana/internal/asana"
	"github.com/clintrovert/ghasana/internal/testutil"
)

func TestSelectStrategy(t *testing.T) {
	withField := testutil.NewFakeAsana(true).Project
	assert.Equal(t, MatchStrategy{Kind: MatchByCustomField, FieldID: testutil.IssueFieldGID}, SelectStrategy(&withField))

	without := testutil.NewFakeAsana(false).Project
	assert.Equal(t, MatchStrategy{Kind: MatchByBodyMarker}, SelectStrategy(&without))

	nearMiss := asana.Project{CustomFieldSettings: []asana.CustomFieldSetting{
		{CustomField: asana.CustomField{GID: "f", Name: "GitHub Issue"}},
		{CustomField: asana.CustomField{GID: "g", Name: "Github Issue "}},
	}}
	assert.Equal(t, MatchByBodyMarker, SelectStrategy(&nearMiss).Kind)

	noSubtype := asana.Project{CustomFieldSettings: []asana.CustomFieldSetting{
		{CustomField: asana.CustomField{GID: "f", Name: "Github Issue"}},
	}}
	assert.Equal(t, MatchStrategy{Kind: MatchByCustomField, FieldID: "f"}, SelectStrategy(&noSubtype))
}

func TestSelectStrategy_NonTextField(t *testing.T) {
	for _, subtype := range []string{"enum", "number", "people"} {
		t.Run(subtype, func(t *testing.T) {
			p := asana.Project{CustomFieldSettings: []asana.CustomFieldSetting{
				{CustomField: asana.CustomField{GID: "f", Name: "Github Issue", ResourceSubtype: subtype}},
			}}
			assert.Equal(t, MatchStrategy{Kind: MatchByBodyMarker}, SelectStrategy(&p))
		})
	}
}

func TestProjectResolver_NonTextIssueField(t *testing.T) {
	fake := testutil.NewFakeAsana(true)
	fake.Project.CustomFieldSettings[1].CustomField.ResourceSubtype = "enum"
	r := NewProjectResolver(fake, 4, time.Minute, zap.NewNop())

	project, err := r.Resolve(context.Background(), testutil.ProjectID)
	require.NoError(t, err)
	assert.Equal(t, MatchByBodyMarker, project.Strategy.Kind)
	assert.Empty(t, project.Strategy.FieldID)
}

func TestProjectResolver_CachesProject(t *testing.T) {
	fake := testutil.NewFakeAsana(true)
	r := NewProjectResolver(fake, 4, time.Minute, zap.NewNop())

	first, err := r.Resolve(context.Background(), testutil.ProjectID)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), testutil.ProjectID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, testutil.WorkspaceID, first.WorkspaceID)
	assert.Equal(t, MatchByCustomField, first.Strategy.Kind)
	assert.Equal(t, 1, fake.Calls("GetProject"))
}

func TestProjectResolver_UnknownProject(t *testing.T) {
	fake := testutil.NewFakeAsana(false)
	r := NewProjectResolver(fake, 4, time.Minute, zap.NewNop())

	_, err := r.Resolve(context.Background(), "missing")
	require.Error(t, err)

	var apiErr *asana.APIError
	assert.ErrorAs(t, err, &apiErr)
}
