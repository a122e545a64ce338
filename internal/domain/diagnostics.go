package domain

import "time"

// DiagnosticStatus indicates whether a single environment check passed.
type DiagnosticStatus string

const (
	DiagnosticStatusPass DiagnosticStatus = "pass"
	DiagnosticStatusFail DiagnosticStatus = "fail"
)

// DiagnosticItem is one environment check result with an optional hint.
type DiagnosticItem struct {
	ID      string
	Name    string
	Status  DiagnosticStatus
	Message string
	Hint    string
}

// DiagnosticReport aggregates the checks printed by the doctor command.
type DiagnosticReport struct {
	GeneratedAt time.Time
	HasFailures bool
	Items       []DiagnosticItem
}
