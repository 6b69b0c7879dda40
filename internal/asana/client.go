package asana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the Asana REST API root
const DefaultBaseURL = "https://app.asana.com/api/1.0"

const (
	taskOptFields    = "name,html_notes,permalink_url,modified_at,custom_fields.gid,custom_fields.name,custom_fields.text_value,custom_fields.display_value"
	projectOptFields = "name,workspace,custom_field_settings.custom_field.name,custom_field_settings.custom_field.resource_subtype"
	pageSize         = "100"
)

// Client is the HTTP wrapper for the Asana REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient creates a new Asana client authenticated with a personal access token.
// requestsPerSecond <= 0 disables pacing.
func NewClient(accessToken, baseURL string, timeout time.Duration, requestsPerSecond float64, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: accessToken},
	)
	httpClient := oauth2.NewClient(context.Background(), ts)
	httpClient.Timeout = timeout

	limiter := rate.NewLimiter(rate.Inf, 0)
	if requestsPerSecond > 0 {
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		limiter:    limiter,
		logger:     logger,
	}
}

// GetProject fetches a project with its workspace and custom field settings
func (c *Client) GetProject(ctx context.Context, projectID string) (*Project, error) {
	q := url.Values{}
	q.Set("opt_fields", projectOptFields)

	var env dataEnvelope[Project]
	if err := c.do(ctx, http.MethodGet, "/projects/"+url.PathEscape(projectID), q, nil, &env); err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &env.Data, nil
}

// SearchTasks runs a workspace task search, most recently modified first
func (c *Client) SearchTasks(ctx context.Context, workspaceID string, query SearchQuery) ([]Task, error) {
	q := url.Values{}
	q.Set("opt_fields", taskOptFields)
	q.Set("sort_by", "modified_at")
	q.Set("sort_ascending", "false")
	if query.ProjectID != "" {
		q.Set("projects.any", query.ProjectID)
	}
	if query.CustomFieldID != "" {
		q.Set("custom_fields."+query.CustomFieldID+".value", query.CustomFieldValue)
	}
	if query.Text != "" {
		q.Set("text", query.Text)
	}

	var env dataEnvelope[[]Task]
	err := c.do(ctx, http.MethodGet, "/workspaces/"+url.PathEscape(workspaceID)+"/tasks/search", q, nil, &env)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusPaymentRequired {
			return nil, fmt.Errorf("failed to search tasks: %w: %w", ErrSearchUnavailable, err)
		}
		return nil, fmt.Errorf("failed to search tasks: %w", err)
	}
	return env.Data, nil
}

// ListProjectTasks returns every task in a project, following pagination
func (c *Client) ListProjectTasks(ctx context.Context, projectID string) ([]Task, error) {
	q := url.Values{}
	q.Set("opt_fields", taskOptFields)
	q.Set("limit", pageSize)

	var tasks []Task
	for {
		var env dataEnvelope[[]Task]
		if err := c.do(ctx, http.MethodGet, "/projects/"+url.PathEscape(projectID)+"/tasks", q, nil, &env); err != nil {
			return nil, fmt.Errorf("failed to list project tasks: %w", err)
		}
		tasks = append(tasks, env.Data...)

		if env.NextPage == nil || env.NextPage.Offset == "" {
			break
		}
		q.Set("offset", env.NextPage.Offset)
	}
	return tasks, nil
}

// CreateTask creates a new task
func (c *Client) CreateTask(ctx context.Context, req TaskRequest) (*Task, error) {
	q := url.Values{}
	q.Set("opt_fields", taskOptFields)

	var env dataEnvelope[Task]
	if err := c.do(ctx, http.MethodPost, "/tasks", q, req, &env); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return &env.Data, nil
}

// UpdateTask overwrites the given fields of an existing task
func (c *Client) UpdateTask(ctx context.Context, taskID string, req TaskRequest) (*Task, error) {
	q := url.Values{}
	q.Set("opt_fields", taskOptFields)

	var env dataEnvelope[Task]
	if err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(taskID), q, req, &env); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return &env.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for rate limiter: %w", err)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(dataEnvelope[any]{Data: body})
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call asana API: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("asana API call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode asana response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	raw, _ := io.ReadAll(resp.Body)
	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err == nil {
		for _, e := range env.Errors {
			apiErr.Messages = append(apiErr.Messages, e.Message)
		}
	}
	if len(apiErr.Messages) == 0 && len(raw) > 0 {
		apiErr.Messages = []string{strings.TrimSpace(string(raw))}
	}
	return apiErr
}
