package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/clintrovert/ghasana/pkg/types"
)

// ErrPermissionDenied is returned when the credential lacks the scope for a write
var ErrPermissionDenied = errors.New("permission denied")

// Client wraps the GitHub API operations used by the bridge
type Client struct {
	apiClient *github.Client
	logger    *zap.Logger
	hasToken  bool
}

// NewClient creates a new GitHub client. An empty baseURL targets api.github.com.
func NewClient(accessToken, baseURL string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	httpClient := &http.Client{}
	if accessToken != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: accessToken},
		)
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	httpClient.Timeout = timeout

	apiClient := github.NewClient(httpClient)
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse github api url: %w", err)
		}
		apiClient.BaseURL = u
	}

	return &Client{
		apiClient: apiClient,
		logger:    logger,
		hasToken:  accessToken != "",
	}, nil
}

// HasToken reports whether a repository credential was configured
func (c *Client) HasToken() bool {
	return c.hasToken
}

// IsOrgMember reports whether user is a member of org visible to the credential
func (c *Client) IsOrgMember(ctx context.Context, org, user string) (bool, error) {
	member, _, err := c.apiClient.Organizations.IsMember(ctx, org, user)
	if err != nil {
		return false, fmt.Errorf("failed to check org membership: %w", err)
	}

	c.logger.Debug("checked org membership",
		zap.String("org", org),
		zap.String("user", user),
		zap.Bool("member", member),
	)

	return member, nil
}

// IsRepoTeamMember reports whether user is an active member of any team
// granted access to the repository
func (c *Client) IsRepoTeamMember(ctx context.Context, repo types.Repository, user string) (bool, error) {
	opts := &github.ListOptions{PerPage: 100}
	for {
		teams, resp, err := c.apiClient.Repositories.ListTeams(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return false, fmt.Errorf("failed to list repository teams: %w", err)
		}

		for _, team := range teams {
			membership, _, err := c.apiClient.Teams.GetTeamMembershipBySlug(ctx, repo.Owner, team.GetSlug(), user)
			if err != nil {
				if isStatus(err, http.StatusNotFound) {
					continue
				}
				return false, fmt.Errorf("failed to get team membership: %w", err)
			}
			if membership.GetState() == "active" {
				c.logger.Debug("found team membership",
					zap.String("team", team.GetSlug()),
					zap.String("user", user),
				)
				return true, nil
			}
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return false, nil
}

// CreateComment adds a comment to an issue and returns the comment URL
func (c *Client) CreateComment(ctx context.Context, repo types.Repository, number int, body string) (string, error) {
	comment, _, err := c.apiClient.Issues.CreateComment(ctx, repo.Owner, repo.Name, number, &github.IssueComment{
		Body: github.String(body),
	})
	if err != nil {
		// A token without access to a private repository gets 404 rather than 403.
		if isPermissionError(err) || isStatus(err, http.StatusNotFound) {
			return "", fmt.Errorf("failed to create comment: %w: %w", ErrPermissionDenied, err)
		}
		return "", fmt.Errorf("failed to create comment: %w", err)
	}

	c.logger.Info("created issue comment",
		zap.String("repo", repo.FullName()),
		zap.Int("issue_number", number),
		zap.String("comment_url", comment.GetHTMLURL()),
	)

	return comment.GetHTMLURL(), nil
}

// isPermissionError matches 401/403 responses that are not rate limits
func isPermissionError(err error) bool {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return false
	}
	return isStatus(err, http.StatusUnauthorized) || isStatus(err, http.StatusForbidden)
}

func isStatus(err error, status int) bool {
	var errResp *github.ErrorResponse
	if !errors.As(err, &errResp) || errResp.Response == nil {
		return false
	}
	return errResp.Response.StatusCode == status
}
