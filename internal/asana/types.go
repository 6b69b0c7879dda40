package asana

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrSearchUnavailable is returned when the workspace has no access to task search
var ErrSearchUnavailable = errors.New("task search unavailable for workspace")

// Resource is a compact Asana object reference
type Resource struct {
	GID  string `json:"gid"`
	Name string `json:"name,omitempty"`
}

// CustomField is a custom field definition
type CustomField struct {
	GID             string `json:"gid"`
	Name            string `json:"name"`
	ResourceSubtype string `json:"resource_subtype,omitempty"`
}

// CustomFieldSetting attaches a custom field to a project
type CustomFieldSetting struct {
	CustomField CustomField `json:"custom_field"`
}

// Project is the subset of the project resource the bridge reads
type Project struct {
	GID                 string               `json:"gid"`
	Name                string               `json:"name"`
	Workspace           Resource             `json:"workspace"`
	CustomFieldSettings []CustomFieldSetting `json:"custom_field_settings"`
}

// CustomFieldValue is a custom field as it appears on a task
type CustomFieldValue struct {
	GID          string  `json:"gid"`
	Name         string  `json:"name,omitempty"`
	TextValue    *string `json:"text_value,omitempty"`
	DisplayValue *string `json:"display_value,omitempty"`
}

// Text returns the field's text value, or its display value for non-text fields
func (v CustomFieldValue) Text() string {
	if v.TextValue != nil {
		return *v.TextValue
	}
	if v.DisplayValue != nil {
		return *v.DisplayValue
	}
	return ""
}

// Task is the subset of the task resource the bridge reads
type Task struct {
	GID          string             `json:"gid"`
	Name         string             `json:"name"`
	HTMLNotes    string             `json:"html_notes"`
	PermalinkURL string             `json:"permalink_url,omitempty"`
	ModifiedAt   time.Time          `json:"modified_at"`
	CustomFields []CustomFieldValue `json:"custom_fields,omitempty"`
}

// FieldText returns the text of the custom field with the given gid
func (t *Task) FieldText(fieldGID string) string {
	for _, f := range t.CustomFields {
		if f.GID == fieldGID {
			return f.Text()
		}
	}
	return ""
}

// TaskRequest is the body for task create and update calls
type TaskRequest struct {
	Name         string            `json:"name"`
	HTMLNotes    string            `json:"html_notes"`
	Projects     []string          `json:"projects,omitempty"`
	CustomFields map[string]string `json:"custom_fields,omitempty"`
}

// SearchQuery filters a workspace task search
type SearchQuery struct {
	ProjectID        string
	CustomFieldID    string
	CustomFieldValue string
	Text             string
}

// APIError is a non-2xx response from the Asana API
type APIError struct {
	StatusCode int
	Messages   []string
}

func (e *APIError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("asana API error %d", e.StatusCode)
	}
	return fmt.Sprintf("asana API error %d: %s", e.StatusCode, strings.Join(e.Messages, "; "))
}

type dataEnvelope[T any] struct {
	Data     T         `json:"data"`
	NextPage *nextPage `json:"next_page,omitempty"`
}

type nextPage struct {
	Offset string `json:"offset"`
}

type errorEnvelope struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}
