package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clintrovert/ghasana/internal/auth"
	"github.com/clintrovert/ghasana/internal/testutil"
	"github.com/clintrovert/ghasana/pkg/types"
)

var repo = types.Repository{Owner: "acme", Name: "widgets"}

func TestAuthorize_AllowAll(t *testing.T) {
	gh := testutil.NewFakeGitHub()
	a := auth.NewAuthorizer(gh, zap.NewNop())

	for _, actor := range []string{"alice", "carol", "", "dependabot[bot]"} {
		decision, err := a.Authorize(context.Background(), actor, auth.Policy{Kind: auth.AllowAll}, repo)
		require.NoError(t, err)
		assert.Equal(t, auth.Allowed, decision, actor)
	}
	assert.Zero(t, gh.Lookups())
}

func TestAuthorize_ExplicitList(t *testing.T) {
	gh := testutil.NewFakeGitHub()
	a := auth.NewAuthorizer(gh, zap.NewNop())
	policy := auth.NewExplicitListPolicy("alice", "bob")

	tests := []struct {
		actor string
		want  auth.Decision
	}{
		{"alice", auth.Allowed},
		{"bob", auth.Allowed},
		{"carol", auth.Denied},
		{"Alice", auth.Denied},
		{"", auth.Denied},
	}
	for _, tt := range tests {
		decision, err := a.Authorize(context.Background(), tt.actor, policy, repo)
		require.NoError(t, err)
		assert.Equal(t, tt.want, decision, tt.actor)
	}
	assert.Zero(t, gh.Lookups())
}

func TestAuthorize_RepoOrgMembers(t *testing.T) {
	gh := testutil.NewFakeGitHub()
	gh.OrgMembers["alice"] = true
	a := auth.NewAuthorizer(gh, zap.NewNop())
	policy := auth.Policy{Kind: auth.AllowRepoOrgMembers}

	decision, err := a.Authorize(context.Background(), "alice", policy, repo)
	require.NoError(t, err)
	assert.Equal(t, auth.Allowed, decision)

	decision, err = a.Authorize(context.Background(), "mallory", policy, repo)
	require.NoError(t, err)
	assert.Equal(t, auth.Denied, decision)

	assert.Equal(t, 2, gh.Lookups())
}

func TestAuthorize_RepoTeamMembers(t *testing.T) {
	gh := testutil.NewFakeGitHub()
	gh.TeamMembers["bob"] = true
	a := auth.NewAuthorizer(gh, zap.NewNop())
	policy := auth.Policy{Kind: auth.AllowRepoTeamMembers}

	decision, err := a.Authorize(context.Background(), "bob", policy, repo)
	require.NoError(t, err)
	assert.Equal(t, auth.Allowed, decision)

	decision, err = a.Authorize(context.Background(), "alice", policy, repo)
	require.NoError(t, err)
	assert.Equal(t, auth.Denied, decision)
}

func TestAuthorize_LookupErrorIsNotDenial(t *testing.T) {
	lookupErr := errors.New("401 bad credentials")

	for _, kind := range []auth.PolicyKind{auth.AllowRepoOrgMembers, auth.AllowRepoTeamMembers} {
		gh := testutil.NewFakeGitHub()
		gh.LookupErr = lookupErr
		a := auth.NewAuthorizer(gh, zap.NewNop())

		decision, err := a.Authorize(context.Background(), "alice", auth.Policy{Kind: kind}, repo)
		require.Error(t, err, kind.String())
		assert.Equal(t, auth.Denied, decision)

		var le *auth.LookupError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, kind, le.Policy)
		assert.Equal(t, "alice", le.Actor)
		assert.ErrorIs(t, err, lookupErr)
	}
}

func TestAuthorize_EmptyActorSkipsLookup(t *testing.T) {
	gh := testutil.NewFakeGitHub()
	a := auth.NewAuthorizer(gh, zap.NewNop())

	decision, err := a.Authorize(context.Background(), "", auth.Policy{Kind: auth.AllowRepoOrgMembers}, repo)
	require.NoError(t, err)
	assert.Equal(t, auth.Denied, decision)
	assert.Zero(t, gh.Lookups())
}
