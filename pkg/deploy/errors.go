package deploy

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrInvalidSource = errors.New("invalid source tree")
	ErrNoRemote      = errors.New("no remote configured")
	ErrNoBranch      = errors.New("branch does not exist")
)

// StepError is a fatal failure of one step of a run. Command and Output are
// set when the failure came from an external command.
type StepError struct {
	State   State
	Command string
	Output  string
	Err     error
}

func (e *StepError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed", e.State)
	if e.Command != "" {
		fmt.Fprintf(&b, " running %q", e.Command)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}

	return b.String()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// CommandError reports an external command that exited non-zero.
type CommandError struct {
	Command  string
	ExitCode int
	Output   string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q exited with status %d", e.Command, e.ExitCode)
}

// NewStepError wraps err for state, lifting command details out of a
// CommandError anywhere in the chain.
func NewStepError(state State, err error) *StepError {
	stepErr := &StepError{State: state, Err: err}

	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		stepErr.Command = cmdErr.Command
		stepErr.Output = cmdErr.Output
	}

	return stepErr
}
