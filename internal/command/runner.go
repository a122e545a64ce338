package command

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

// Result is one finished process execution.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner abstracts process execution for testability.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecRunner executes commands via os/exec.
type ExecRunner struct{}

// Run executes one command and captures stdout/stderr and exit code.
// ExitCode is -1 when the process could not be started or was killed.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		return result, err
	}

	return result, nil
}

// Log captures one external command invocation for error reports and events.
type Log struct {
	Command  string
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
}

// NewLog pairs an invocation with its result.
func NewLog(name string, args []string, res Result) Log {
	return Log{
		Command:  name,
		Args:     append([]string(nil), args...),
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
	}
}

// String renders the command line for humans.
func (l Log) String() string {
	return strings.Join(append([]string{l.Command}, l.Args...), " ")
}

// Tail returns at most max trailing bytes of stderr, falling back to stdout.
func (l Log) Tail(max int) string {
	out := strings.TrimSpace(l.Stderr)
	if out == "" {
		out = strings.TrimSpace(l.Stdout)
	}
	if max > 0 && len(out) > max {
		out = "..." + out[len(out)-max:]
	}
	return out
}
