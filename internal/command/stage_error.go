package command

import "fmt"

// StageError is a stage-aware error with optional command context.
type StageError struct {
	Stage   string
	Message string
	Log     Log
	Err     error
}

// Error formats stage failures for logs.
func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	if e.Log.Command == "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}

	return fmt.Sprintf(
		"%s: %s (cmd=%s exit=%d)",
		e.Stage,
		e.Message,
		e.Log.Command,
		e.Log.ExitCode,
	)
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
