package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/clintrovert/ghasana/pkg/types"
)

// Comment is a comment recorded by FakeGitHub
type Comment struct {
	Repo   types.Repository
	Number int
	Body   string
}

// FakeGitHub records membership lookups and comments
type FakeGitHub struct {
	mu sync.Mutex

	OrgMembers  map[string]bool
	TeamMembers map[string]bool
	LookupErr   error
	NoToken     bool
	CommentErr  error

	lookups  int
	comments []Comment
}

// NewFakeGitHub returns a fake with a token and no members
func NewFakeGitHub() *FakeGitHub {
	return &FakeGitHub{
		OrgMembers:  make(map[string]bool),
		TeamMembers: make(map[string]bool),
	}
}

// Lookups returns the number of membership queries made
func (f *FakeGitHub) Lookups() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups
}

// Comments returns the comments posted so far
func (f *FakeGitHub) Comments() []Comment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Comment(nil), f.comments...)
}

func (f *FakeGitHub) IsOrgMember(ctx context.Context, org, user string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.LookupErr != nil {
		return false, f.LookupErr
	}
	return f.OrgMembers[user], nil
}

func (f *FakeGitHub) IsRepoTeamMember(ctx context.Context, repo types.Repository, user string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.LookupErr != nil {
		return false, f.LookupErr
	}
	return f.TeamMembers[user], nil
}

func (f *FakeGitHub) HasToken() bool {
	return !f.NoToken
}

func (f *FakeGitHub) CreateComment(ctx context.Context, repo types.Repository, number int, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CommentErr != nil {
		return "", f.CommentErr
	}
	f.comments = append(f.comments, Comment{Repo: repo, Number: number, Body: body})
	return fmt.Sprintf("https://github.com/%s/issues/%d#issuecomment-%d", repo.FullName(), number, len(f.comments)), nil
}
