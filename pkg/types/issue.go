package types

import (
	"time"
)

// IssueEvent is the GitHub issue activity that triggered a mirror run
type IssueEvent struct {
	URL        string
	Number     int
	Title      string
	Body       string
	Actor      string
	Repository Repository
	Timestamp  time.Time
}
