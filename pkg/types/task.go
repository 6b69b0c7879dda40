package types

import (
	"time"
)

// IssueFieldName is the Asana custom field that holds the mirrored issue URL
const IssueFieldName = "Github Issue"

// AsanaTask is the Asana-side mirror of a GitHub issue
type AsanaTask struct {
	ID           string
	Title        string
	Body         string
	IssueURL     string // value of the "Github Issue" custom field, empty when unused
	ProjectID    string
	PermalinkURL string
	ModifiedAt   time.Time
}

// Link returns a URL that opens the task in Asana
func (t *AsanaTask) Link() string {
	if t.PermalinkURL != "" {
		return t.PermalinkURL
	}
	return "https://app.asana.com/0/" + t.ProjectID + "/" + t.ID
}
