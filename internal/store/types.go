package store

import (
	"fmt"
	"time"

	"github.com/Lykos153/keyboard-layout-optimizer/internal/opt"
)

// RunConfig holds everything needed to rebuild a run's session: input file
// paths, seed and constraint characters, and the resolved search parameters.
// It is embedded in checkpoints so a resumed run can verify it is continuing
// the same optimization.
type RunConfig struct {
	// LayoutConfigPath is the keyboard geometry/config YAML file.
	LayoutConfigPath string `json:"layoutConfigPath"`

	// ParamsPath optionally overrides the default metric weights.
	ParamsPath string `json:"paramsPath,omitempty"`

	// CorpusPath is a raw text corpus; NgramsPath a precomputed table
	// file. Exactly one of the two is set.
	CorpusPath string `json:"corpusPath,omitempty"`
	NgramsPath string `json:"ngramsPath,omitempty"`

	// SeedChars is the starting layout. Empty means the keyboard's base
	// layout.
	SeedChars string `json:"seedChars,omitempty"`

	// FixedChars pins characters to their seed positions for the run.
	FixedChars string `json:"fixedChars,omitempty"`

	// MaxSteps caps the number of generations. Zero runs until
	// convergence.
	MaxSteps int `json:"maxSteps,omitempty"`

	// CheckpointInterval is the number of seconds between periodic
	// checkpoints. Zero disables periodic checkpointing; a final
	// checkpoint is always written.
	CheckpointInterval int `json:"checkpointInterval,omitempty"`

	// Search holds the resolved generational parameters.
	Search opt.GenerationalParams `json:"search"`
}

// Checkpoint is a saved optimization state that can be resumed later.
//
// It records the best layout found, not the optimizer's population: saving
// the population would tie the format to one search implementation for
// little gain. A resumed run therefore re-seeds a fresh population from
// BestChars and continues the step count; the best cost never gets worse,
// but the trajectory diverges from an uninterrupted run.
type Checkpoint struct {
	// RunID is the unique identifier for this optimization run.
	RunID string `json:"runId"`

	// BestChars is the best layout found so far, in key order.
	BestChars string `json:"bestChars"`

	// BestCost is the total cost of BestChars.
	BestCost float64 `json:"bestCost"`

	// InitialCost is the seed layout's cost, for improvement tracking.
	InitialCost float64 `json:"initialCost"`

	// Steps is the number of generations completed.
	Steps int `json:"steps"`

	// Converged records whether the run stopped because it went stale.
	Converged bool `json:"converged"`

	// Timestamp records when this checkpoint was created.
	Timestamp time.Time `json:"timestamp"`

	// Config is needed to validate compatibility during resume.
	Config RunConfig `json:"config"`
}

// CheckpointInfo is checkpoint metadata for listings, without the layout.
type CheckpointInfo struct {
	RunID        string    `json:"runId"`
	BestCost     float64   `json:"bestCost"`
	Steps        int       `json:"steps"`
	Converged    bool      `json:"converged"`
	Timestamp    time.Time `json:"timestamp"`
	LayoutConfig string    `json:"layoutConfig"`
	Keys         int       `json:"keys"`
}

// NewCheckpoint creates a checkpoint from runtime state, stamped now.
func NewCheckpoint(runID, bestChars string, bestCost, initialCost float64, steps int, converged bool, config RunConfig) *Checkpoint {
	return &Checkpoint{
		RunID:       runID,
		BestChars:   bestChars,
		BestCost:    bestCost,
		InitialCost: initialCost,
		Steps:       steps,
		Converged:   converged,
		Timestamp:   time.Now(),
		Config:      config,
	}
}

// ToInfo converts a full Checkpoint to its listing metadata.
func (c *Checkpoint) ToInfo() CheckpointInfo {
	return CheckpointInfo{
		RunID:        c.RunID,
		BestCost:     c.BestCost,
		Steps:        c.Steps,
		Converged:    c.Converged,
		Timestamp:    c.Timestamp,
		LayoutConfig: c.Config.LayoutConfigPath,
		Keys:         len([]rune(c.BestChars)),
	}
}

// Validate checks that the checkpoint holds a resumable state.
func (c *Checkpoint) Validate() error {
	if c.RunID == "" {
		return &ValidationError{Field: "RunID", Reason: "cannot be empty"}
	}
	if c.BestChars == "" {
		return &ValidationError{Field: "BestChars", Reason: "cannot be empty"}
	}
	seen := make(map[rune]bool)
	for _, r := range c.BestChars {
		if seen[r] {
			return &ValidationError{Field: "BestChars", Reason: fmt.Sprintf("duplicate character %q", r)}
		}
		seen[r] = true
	}
	if c.Steps < 0 {
		return &ValidationError{Field: "Steps", Reason: "cannot be negative"}
	}
	if c.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if c.Config.LayoutConfigPath == "" {
		return &ValidationError{Field: "Config.LayoutConfigPath", Reason: "cannot be empty"}
	}
	if c.Config.CorpusPath == "" && c.Config.NgramsPath == "" {
		return &ValidationError{Field: "Config", Reason: "needs a corpus or an n-gram table file"}
	}
	if c.Config.CorpusPath != "" && c.Config.NgramsPath != "" {
		return &ValidationError{Field: "Config", Reason: "corpus and n-gram table file are mutually exclusive"}
	}
	if c.Config.Search.Population < 2 {
		return &ValidationError{Field: "Config.Search.Population", Reason: "must be at least 2"}
	}
	return nil
}

// ValidationError represents a checkpoint validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// IsCompatible checks whether this checkpoint can be resumed under the given
// config. The keyboard, the metric params and the corpus define the cost
// landscape, and the fixed characters define the search space; all of them
// must match. Search parameters may change between resume legs.
func (c *Checkpoint) IsCompatible(config RunConfig) error {
	if c.Config.LayoutConfigPath != config.LayoutConfigPath {
		return &CompatibilityError{Field: "LayoutConfigPath", Expected: c.Config.LayoutConfigPath, Actual: config.LayoutConfigPath}
	}
	if c.Config.ParamsPath != config.ParamsPath {
		return &CompatibilityError{Field: "ParamsPath", Expected: c.Config.ParamsPath, Actual: config.ParamsPath}
	}
	if c.Config.CorpusPath != config.CorpusPath {
		return &CompatibilityError{Field: "CorpusPath", Expected: c.Config.CorpusPath, Actual: config.CorpusPath}
	}
	if c.Config.NgramsPath != config.NgramsPath {
		return &CompatibilityError{Field: "NgramsPath", Expected: c.Config.NgramsPath, Actual: config.NgramsPath}
	}
	if c.Config.FixedChars != config.FixedChars {
		return &CompatibilityError{Field: "FixedChars", Expected: c.Config.FixedChars, Actual: config.FixedChars}
	}
	return nil
}

// CompatibilityError represents a checkpoint compatibility error.
type CompatibilityError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *CompatibilityError) Error() string {
	return "compatibility error: " + e.Field + " mismatch (expected " + e.Expected + ", got " + e.Actual + ")"
}
