package jobs

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"

	"audiototext/internal/domain"
)

// ErrJobAlreadyRunning is returned when starting a second active job.
var ErrJobAlreadyRunning = errors.New("job already running")

// ErrNoRunningJob is returned when cancel is requested for idle state.
var ErrNoRunningJob = errors.New("no running job")

// transitions lists the forward edges of the job lifecycle. Every active
// stage may additionally move to failed or cancelled.
var transitions = map[domain.JobStatus][]domain.JobStatus{
	domain.JobStatusIdle:          {domain.JobStatusDownloading, domain.JobStatusPreprocessing},
	domain.JobStatusDownloading:   {domain.JobStatusPreprocessing},
	domain.JobStatusPreprocessing: {domain.JobStatusTranscribing},
	domain.JobStatusTranscribing:  {domain.JobStatusExporting},
	domain.JobStatusExporting:     {domain.JobStatusDone},
	domain.JobStatusDone:          {domain.JobStatusIdle},
	domain.JobStatusFailed:        {domain.JobStatusIdle},
	domain.JobStatusCancelled:     {domain.JobStatusIdle},
}

// StageTiming is how long the job spent in one stage.
type StageTiming struct {
	Status   domain.JobStatus
	Duration time.Duration
}

// Manager tracks the single job of a run and validates its stage transitions.
type Manager struct {
	mu        sync.RWMutex
	current   domain.JobState
	enteredAt time.Time
	timings   []StageTiming
	now       func() time.Time
}

// NewManager creates a manager in idle state.
func NewManager() *Manager {
	return &Manager{
		current: domain.JobState{Status: domain.JobStatusIdle},
		now:     time.Now,
	}
}

// Start begins a job in its first stage: downloading for remote inputs,
// preprocessing for local files.
func (m *Manager) Start(jobID string, first domain.JobStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if isRunning(m.current.Status) {
		return ErrJobAlreadyRunning
	}
	if !lo.Contains(transitions[domain.JobStatusIdle], first) {
		return fmt.Errorf("invalid first stage: %s", first)
	}

	m.current = domain.JobState{ID: jobID, Status: first}
	m.enteredAt = m.now()
	m.timings = nil
	return nil
}

// Transition validates and applies a status change. Re-entering the current
// status is a no-op.
func (m *Manager) Transition(status domain.JobStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.ID == "" && status != domain.JobStatusIdle {
		return fmt.Errorf("cannot transition without an active job")
	}
	if status == m.current.Status {
		return nil
	}
	if !isValidTransition(m.current.Status, status) {
		return fmt.Errorf("invalid transition: %s -> %s", m.current.Status, status)
	}

	m.leave(status)
	return nil
}

// Cancel moves an active job to cancelled state.
func (m *Manager) Cancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !isRunning(m.current.Status) {
		return ErrNoRunningJob
	}
	m.leave(domain.JobStatusCancelled)
	return nil
}

// leave closes the timing of the current stage and enters next. Callers hold mu.
func (m *Manager) leave(next domain.JobStatus) {
	now := m.now()
	if isRunning(m.current.Status) {
		m.timings = append(m.timings, StageTiming{
			Status:   m.current.Status,
			Duration: now.Sub(m.enteredAt),
		})
	}
	m.current.Status = next
	m.enteredAt = now
}

// Current returns a snapshot of the current job.
func (m *Manager) Current() domain.JobState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Timings returns the durations of the stages the job has completed so far.
func (m *Manager) Timings() []StageTiming {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]StageTiming(nil), m.timings...)
}

// IsRunning reports whether the current state is an active stage.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return isRunning(m.current.Status)
}

func isRunning(status domain.JobStatus) bool {
	switch status {
	case domain.JobStatusDownloading, domain.JobStatusPreprocessing, domain.JobStatusTranscribing, domain.JobStatusExporting:
		return true
	default:
		return false
	}
}

func isValidTransition(from, to domain.JobStatus) bool {
	if isRunning(from) && (to == domain.JobStatusFailed || to == domain.JobStatusCancelled) {
		return true
	}
	return lo.Contains(transitions[from], to)
}
