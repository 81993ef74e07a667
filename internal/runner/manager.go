// Package runner executes generational optimization runs in the background:
// it tracks run lifecycles, persists checkpoints and traces, records finished
// runs in the history database and fans progress events out to subscribers.
package runner

import (
	"fmt"
	"sync"
	"time"

	"github.com/Lykos153/keyboard-layout-optimizer/internal/store"
	"github.com/google/uuid"
)

// RunState represents the current state of a run
type RunState string

const (
	StatePending   RunState = "pending"
	StateRunning   RunState = "running"
	StateCompleted RunState = "completed"
	StateFailed    RunState = "failed"
	StateCancelled RunState = "cancelled"
)

// RunConfig is an alias to avoid duplication with store.RunConfig
type RunConfig = store.RunConfig

// Run represents one generational optimization run
type Run struct {
	ID          string     `json:"id"`
	State       RunState   `json:"state"`
	Config      RunConfig  `json:"config"`
	BestChars   string     `json:"bestChars,omitempty"`
	BestCost    float64    `json:"bestCost"`
	InitialCost float64    `json:"initialCost"`
	Steps       int        `json:"steps"`
	Converged   bool       `json:"converged"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Manager manages the lifecycle of runs
type Manager struct {
	mu          sync.RWMutex
	runs        map[string]*Run
	broadcaster *Broadcaster
}

// NewManager creates a new Manager
func NewManager() *Manager {
	return &Manager{
		runs:        make(map[string]*Run),
		broadcaster: NewBroadcaster(),
	}
}

// Broadcaster returns the progress broadcaster shared by all runs
func (m *Manager) Broadcaster() *Broadcaster {
	return m.broadcaster
}

// CreateRun creates a new run with the given configuration
func (m *Manager) CreateRun(config RunConfig) *Run {
	return m.CreateRunWithID(uuid.New().String(), config)
}

// CreateRunWithID creates a run under a caller-chosen ID; a resumed run keeps
// its original checkpoint ID this way
func (m *Manager) CreateRunWithID(id string, config RunConfig) *Run {
	m.mu.Lock()
	defer m.mu.Unlock()

	run := &Run{
		ID:        id,
		State:     StatePending,
		Config:    config,
		StartTime: time.Now(),
	}

	m.runs[run.ID] = run
	return run
}

// GetRun retrieves a run by ID
func (m *Manager) GetRun(id string) (*Run, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, exists := m.runs[id]
	return run, exists
}

// ListRuns returns all runs
func (m *Manager) ListRuns() []*Run {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := make([]*Run, 0, len(m.runs))
	for _, run := range m.runs {
		runs = append(runs, run)
	}
	return runs
}

// UpdateRun atomically updates a run using the provided function
func (m *Manager) UpdateRun(id string, updateFn func(*Run)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, exists := m.runs[id]
	if !exists {
		return fmt.Errorf("run not found: %s", id)
	}

	updateFn(run)
	return nil
}
