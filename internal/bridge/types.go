package bridge

import (
	"fmt"

	"github.com/clintrovert/ghasana/internal/mirror"
	"github.com/clintrovert/ghasana/pkg/types"
)

// State is a stage of a mirror run
type State string

const (
	StateStart       State = "start"
	StateAuthorizing State = "authorizing"
	StateLocating    State = "locating"
	StateReconciling State = "reconciling"
	StateClosingLoop State = "closing_loop"
	StateDone        State = "done"
	StateAborted     State = "aborted"
	StateFailed      State = "failed"
)

// StageError is a fatal error raised while the run was in Stage
type StageError struct {
	Stage State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Outcome is the terminal result of a mirror run
type Outcome struct {
	RunID      string
	State      State
	Task       *types.AsanaTask
	Created    bool
	Duplicates []string
	Loop       *mirror.LoopResult
	Err        error
}

// ExitCode maps the outcome to a process exit status
func (out Outcome) ExitCode() int {
	if out.State == StateFailed {
		return 1
	}
	return 0
}
