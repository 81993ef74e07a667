package opt

import (
	"log/slog"
	"math"
)

// TrackerConfig defines when an optimization run counts as converged.
type TrackerConfig struct {
	// Patience is the number of updates without significant improvement
	// before the tracker reports convergence.
	Patience int

	// Threshold is the minimum relative improvement that counts as
	// progress, e.g. 0.001 for 0.1%.
	Threshold float64
}

// Tracker watches a best-cost series and detects when it has gone stale.
type Tracker struct {
	config          TrackerConfig
	bestCost        float64
	lastSignificant float64
	staleCount      int
	updates         int
}

// NewTracker creates a tracker with the given config.
func NewTracker(config TrackerConfig) *Tracker {
	return &Tracker{
		config:          config,
		bestCost:        math.Inf(1),
		lastSignificant: math.Inf(1),
	}
}

// Update records a new cost value and returns true once the series has been
// stale for Patience updates. After that it keeps returning true.
func (t *Tracker) Update(cost float64) bool {
	t.updates++
	if cost < t.bestCost {
		t.bestCost = cost
	}

	if t.updates == 1 {
		t.lastSignificant = cost
		return false
	}

	improvement := t.lastSignificant - cost
	relative := 0.0
	if t.lastSignificant != 0 {
		relative = improvement / t.lastSignificant
	}

	if relative >= t.config.Threshold && improvement > 0 {
		t.lastSignificant = cost
		t.staleCount = 0
		slog.Debug("Cost improvement detected",
			"cost", cost,
			"relative_improvement", relative,
		)
		return false
	}

	t.staleCount++
	if t.staleCount == t.config.Patience {
		slog.Info("Convergence detected",
			"stale_count", t.staleCount,
			"patience", t.config.Patience,
			"best_cost", t.bestCost,
		)
	}
	return t.staleCount >= t.config.Patience
}

// BestCost returns the best cost seen so far.
func (t *Tracker) BestCost() float64 {
	return t.bestCost
}

// StaleCount returns the number of updates since the last significant
// improvement.
func (t *Tracker) StaleCount() int {
	return t.staleCount
}

// Reset clears the tracker's state.
func (t *Tracker) Reset() {
	t.bestCost = math.Inf(1)
	t.lastSignificant = math.Inf(1)
	t.staleCount = 0
	t.updates = 0
}
