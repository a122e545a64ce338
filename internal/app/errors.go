package app

import (
	"errors"
	"strings"

	"audiototext/internal/command"
)

// Kind classifies why a job failed.
type Kind string

const (
	KindDownload      Kind = "download"
	KindModelLoad     Kind = "model_load"
	KindMissingAudio  Kind = "missing_audio"
	KindTranscription Kind = "transcription"
)

// JobError is the single error type returned by App.Run for job failures.
type JobError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *JobError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind of err, if it is a JobError.
func KindOf(err error) (Kind, bool) {
	var jobErr *JobError
	if errors.As(err, &jobErr) {
		return jobErr.Kind, true
	}
	return "", false
}

// FailedCommand returns the log of the external command behind err, if any.
func FailedCommand(err error) (command.Log, bool) {
	var stageErr *command.StageError
	if errors.As(err, &stageErr) && stageErr.Log.Command != "" {
		return stageErr.Log, true
	}
	return command.Log{}, false
}

// Chain lists each layer of err's wrap chain, outermost first. A layer's
// line carries only its own text, not the message of the error it wraps.
func Chain(err error) []string {
	var out []string
	for err != nil {
		msg := err.Error()
		inner := errors.Unwrap(err)
		if inner != nil {
			msg = strings.TrimSuffix(msg, ": "+inner.Error())
		}
		out = append(out, msg)
		err = inner
	}
	return out
}
