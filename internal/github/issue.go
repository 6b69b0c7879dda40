package github

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"

	"github.com/clintrovert/ghasana/pkg/types"
)

// ParseIssueURL extracts the repository and issue number from an issue URL.
// Both html (github.com/o/r/issues/1) and api (api.github.com/repos/o/r/issues/1)
// forms are accepted.
func ParseIssueURL(raw string) (types.Repository, int, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return types.Repository{}, 0, fmt.Errorf("invalid issue url %q", raw)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	n := len(segments)
	if n < 4 || segments[n-2] != "issues" {
		return types.Repository{}, 0, fmt.Errorf("invalid issue url %q: expected .../{owner}/{repo}/issues/{number}", raw)
	}

	number, err := strconv.Atoi(segments[n-1])
	if err != nil || number <= 0 {
		return types.Repository{}, 0, fmt.Errorf("invalid issue number in url %q", raw)
	}

	repo := types.Repository{Owner: segments[n-4], Name: segments[n-3]}
	if repo.Owner == "" || repo.Name == "" {
		return types.Repository{}, 0, fmt.Errorf("invalid issue url %q", raw)
	}

	return repo, number, nil
}

// CommentBody generates the back-link comment posted on a mirrored issue
func CommentBody(taskLink string) string {
	return "This issue has been mirrored to Asana: " + taskLink
}

// IssueEventFromWebhook converts an issues webhook payload into an IssueEvent
func IssueEventFromWebhook(event *github.IssuesEvent) (types.IssueEvent, error) {
	issue := event.GetIssue()
	if issue == nil {
		return types.IssueEvent{}, fmt.Errorf("issues event has no issue")
	}

	repo := types.Repository{
		Owner: event.GetRepo().GetOwner().GetLogin(),
		Name:  event.GetRepo().GetName(),
	}
	if repo.Owner == "" || repo.Name == "" {
		parsed, _, err := ParseIssueURL(issue.GetHTMLURL())
		if err != nil {
			return types.IssueEvent{}, err
		}
		repo = parsed
	}

	timestamp := time.Time{}
	if issue.CreatedAt != nil {
		timestamp = issue.GetCreatedAt().Time
	}

	return types.IssueEvent{
		URL:        issue.GetHTMLURL(),
		Number:     issue.GetNumber(),
		Title:      issue.GetTitle(),
		Body:       issue.GetBody(),
		Actor:      event.GetSender().GetLogin(),
		Repository: repo,
		Timestamp:  timestamp,
	}, nil
}
