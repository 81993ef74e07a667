package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lykos153/keyboard-layout-optimizer/internal/corpus"
	"github.com/Lykos153/keyboard-layout-optimizer/internal/engine"
	"github.com/Lykos153/keyboard-layout-optimizer/internal/eval"
	"github.com/Lykos153/keyboard-layout-optimizer/internal/history"
	"github.com/Lykos153/keyboard-layout-optimizer/internal/layout"
	"github.com/Lykos153/keyboard-layout-optimizer/internal/ngram"
	"github.com/Lykos153/keyboard-layout-optimizer/internal/store"
)

// broadcastInterval throttles progress events. The final event always fires.
const broadcastInterval = 500 * time.Millisecond

// modelParams is the corpus filtering policy for runner-built sessions.
// Layouts hold lowercase characters, so uppercase input must fold onto them.
var modelParams = ngram.Params{FoldCase: true}

// Worker executes runs registered with a manager, step by step, persisting
// checkpoints, traces and history along the way. Checkpoints and history are
// optional: a nil store or history database disables them, and an empty data
// directory disables tracing.
type Worker struct {
	manager     *Manager
	checkpoints store.Store
	history     *history.DB
	dataDir     string
}

// NewWorker creates a worker bound to the given manager and persistence.
func NewWorker(manager *Manager, checkpoints store.Store, historyDB *history.DB, dataDir string) *Worker {
	return &Worker{
		manager:     manager,
		checkpoints: checkpoints,
		history:     historyDB,
		dataDir:     dataDir,
	}
}

// Execute runs a pending run until it converges, exhausts its step budget or
// the context is cancelled.
func (w *Worker) Execute(ctx context.Context, runID string) error {
	return w.run(ctx, runID, 0, false)
}

// Resume continues a run registered by PrepareResume, appending to its trace
// and counting steps from where the checkpoint left off.
func (w *Worker) Resume(ctx context.Context, runID string, fromStep int) error {
	return w.run(ctx, runID, fromStep, true)
}

// PrepareResume loads a checkpoint, applies the config overrides, verifies
// they keep the cost landscape intact and registers the continuation under
// the checkpoint's run ID. The continued run is seeded from the checkpoint's
// best layout, so its best cost can only improve. Returns the registered run
// and the number of steps already taken.
func (w *Worker) PrepareResume(runID string, override func(*RunConfig)) (*Run, int, error) {
	if w.checkpoints == nil {
		return nil, 0, fmt.Errorf("no checkpoint store configured")
	}

	checkpoint, err := w.checkpoints.LoadCheckpoint(runID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if err := checkpoint.Validate(); err != nil {
		return nil, 0, fmt.Errorf("invalid checkpoint: %w", err)
	}

	config := checkpoint.Config
	if override != nil {
		override(&config)
	}
	if err := checkpoint.IsCompatible(config); err != nil {
		return nil, 0, err
	}
	if config.MaxSteps > 0 && checkpoint.Steps >= config.MaxSteps {
		return nil, 0, fmt.Errorf("step budget exhausted: %d of %d steps already taken", checkpoint.Steps, config.MaxSteps)
	}

	config.SeedChars = checkpoint.BestChars

	run := w.manager.CreateRunWithID(runID, config)
	w.manager.UpdateRun(runID, func(r *Run) {
		r.BestChars = checkpoint.BestChars
		r.BestCost = checkpoint.BestCost
		r.InitialCost = checkpoint.InitialCost
		r.Steps = checkpoint.Steps
	})
	return run, checkpoint.Steps, nil
}

func (w *Worker) run(ctx context.Context, runID string, fromStep int, appendTrace bool) error {
	run, exists := w.manager.GetRun(runID)
	if !exists {
		return fmt.Errorf("run not found: %s", runID)
	}

	if err := w.manager.UpdateRun(runID, func(r *Run) {
		r.State = StateRunning
	}); err != nil {
		return err
	}

	config := run.Config
	slog.Info("Starting run", "run_id", runID, "layout_config", config.LayoutConfigPath, "from_step", fromStep)

	sess, seed, err := BuildSession(config)
	if err != nil {
		w.markFailed(runID, err)
		return err
	}

	resolved, err := sess.InitGenerational(seed, config.Search, []rune(config.FixedChars))
	if err != nil {
		w.markFailed(runID, err)
		return err
	}
	config.Search = resolved

	gen, err := sess.Generational()
	if err != nil {
		w.markFailed(runID, err)
		return err
	}
	best, bestCost := gen.Best()

	w.manager.UpdateRun(runID, func(r *Run) {
		r.Config.Search = resolved
		r.BestChars = best.String()
		r.BestCost = bestCost
		if fromStep == 0 {
			r.InitialCost = gen.InitialCost()
		}
	})

	var trace *store.TraceWriter
	if w.dataDir != "" {
		trace, err = store.NewTraceWriter(w.dataDir, runID, appendTrace)
		if err != nil {
			w.markFailed(runID, err)
			return err
		}
		defer trace.Close()
	}

	start := time.Now()
	var lastBroadcast time.Time
	lastCheckpoint := start
	checkpointEvery := time.Duration(config.CheckpointInterval) * time.Second

	steps := fromStep
	converged := gen.Converged()

	for {
		// Check for cancellation between generations
		select {
		case <-ctx.Done():
			w.markCancelled(runID)
			if w.checkpoints != nil {
				if err := w.saveCheckpoint(runID); err != nil {
					slog.Error("Failed to save checkpoint on cancel", "run_id", runID, "error", err)
				}
			}
			return ctx.Err()
		default:
		}

		if converged {
			break
		}
		if config.MaxSteps > 0 && steps >= config.MaxSteps {
			break
		}

		result, err := sess.Step()
		if err != nil {
			w.markFailed(runID, err)
			return err
		}

		steps = fromStep + result.Step
		converged = result.Converged
		improved := result.BestCost < bestCost
		bestCost = result.BestCost

		w.manager.UpdateRun(runID, func(r *Run) {
			r.BestChars = result.Best.String()
			r.BestCost = result.BestCost
			r.Steps = steps
			r.Converged = result.Converged
		})

		if trace != nil {
			entry := store.TraceEntry{
				Step:      steps,
				BestCost:  result.BestCost,
				Timestamp: time.Now(),
			}
			if improved {
				entry.Chars = result.Best.String()
			}
			if err := trace.Write(entry); err != nil {
				slog.Warn("Failed to write trace entry", "run_id", runID, "error", err)
			}
		}

		if now := time.Now(); now.Sub(lastBroadcast) >= broadcastInterval {
			w.broadcastProgress(runID, StateRunning, steps, result.BestCost, start, fromStep)
			lastBroadcast = now
		}

		if w.checkpoints != nil && checkpointEvery > 0 && time.Since(lastCheckpoint) >= checkpointEvery {
			if err := w.saveCheckpoint(runID); err != nil {
				slog.Error("Failed to save checkpoint", "run_id", runID, "error", err)
			}
			lastCheckpoint = time.Now()
		}
	}

	elapsed := time.Since(start)
	endTime := time.Now()
	if err := w.manager.UpdateRun(runID, func(r *Run) {
		r.State = StateCompleted
		r.EndTime = &endTime
	}); err != nil {
		return err
	}

	// Final checkpoint regardless of the periodic interval
	if w.checkpoints != nil {
		if err := w.saveCheckpoint(runID); err != nil {
			slog.Error("Failed to save final checkpoint", "run_id", runID, "error", err)
		}
	}

	final, _ := w.manager.GetRun(runID)

	var stepsPerSecond float64
	if elapsed > 0 {
		stepsPerSecond = float64(steps-fromStep) / elapsed.Seconds()
	}

	slog.Info("Run completed",
		"run_id", runID,
		"elapsed", elapsed,
		"steps", steps,
		"converged", final.Converged,
		"initial_cost", final.InitialCost,
		"best_cost", final.BestCost,
		"steps_per_second", stepsPerSecond,
	)

	if w.history != nil {
		corpusPath := config.CorpusPath
		if corpusPath == "" {
			corpusPath = config.NgramsPath
		}
		if _, err := w.history.Insert(ctx, history.Run{
			Kind:         "evolve",
			LayoutConfig: config.LayoutConfigPath,
			Corpus:       corpusPath,
			SeedChars:    seed.String(),
			BestChars:    final.BestChars,
			InitialCost:  final.InitialCost,
			BestCost:     final.BestCost,
			Steps:        steps,
			StartedAt:    run.StartTime,
			FinishedAt:   endTime,
		}); err != nil {
			slog.Error("Failed to record run in history", "run_id", runID, "error", err)
		}
	}

	// Broadcast final completion event
	w.manager.broadcaster.Broadcast(ProgressEvent{
		RunID:          runID,
		State:          StateCompleted,
		Step:           steps,
		BestCost:       final.BestCost,
		StepsPerSecond: stepsPerSecond,
		Timestamp:      time.Now(),
	})

	return nil
}

// BuildSession assembles an engine session from a run's file references and
// returns it together with the seed layout. The one-shot CLI commands share
// this assembly so every command agrees on corpus selection and seeding.
func BuildSession(config RunConfig) (*engine.Session, layout.Layout, error) {
	boardConfig, err := layout.LoadConfig(config.LayoutConfigPath)
	if err != nil {
		return nil, layout.Layout{}, fmt.Errorf("failed to load layout config: %w", err)
	}

	params := eval.DefaultParams()
	if config.ParamsPath != "" {
		if params, err = eval.LoadParams(config.ParamsPath); err != nil {
			return nil, layout.Layout{}, fmt.Errorf("failed to load metric params: %w", err)
		}
	}

	sess := engine.New()
	switch {
	case config.CorpusPath != "" && config.NgramsPath != "":
		return nil, layout.Layout{}, fmt.Errorf("corpus and n-gram table file are mutually exclusive")
	case config.CorpusPath != "":
		text, err := corpus.LoadText(config.CorpusPath)
		if err != nil {
			return nil, layout.Layout{}, err
		}
		if err := sess.InitModelFromText(modelParams, text); err != nil {
			return nil, layout.Layout{}, err
		}
	case config.NgramsPath != "":
		tables, err := corpus.LoadTables(config.NgramsPath)
		if err != nil {
			return nil, layout.Layout{}, err
		}
		if err := sess.InitModelFromTables(modelParams, tables.Unigrams, tables.Bigrams, tables.Trigrams); err != nil {
			return nil, layout.Layout{}, err
		}
	default:
		return nil, layout.Layout{}, fmt.Errorf("run config names neither a corpus nor an n-gram table file")
	}

	if err := sess.InitEvaluator(boardConfig, params); err != nil {
		return nil, layout.Layout{}, err
	}

	seed := boardConfig.BaseLayout()
	if config.SeedChars != "" {
		if seed, err = layout.ParseLayout(config.SeedChars); err != nil {
			return nil, layout.Layout{}, fmt.Errorf("failed to parse seed layout: %w", err)
		}
	}

	return sess, seed, nil
}

// broadcastProgress emits a throttled progress event for a running search.
func (w *Worker) broadcastProgress(runID string, state RunState, step int, bestCost float64, start time.Time, fromStep int) {
	elapsed := time.Since(start).Seconds()
	var stepsPerSecond float64
	if elapsed > 0 {
		stepsPerSecond = float64(step-fromStep) / elapsed
	}

	w.manager.broadcaster.Broadcast(ProgressEvent{
		RunID:          runID,
		State:          state,
		Step:           step,
		BestCost:       bestCost,
		StepsPerSecond: stepsPerSecond,
		Timestamp:      time.Now(),
	})
}

// saveCheckpoint snapshots the run's current best into the checkpoint store.
func (w *Worker) saveCheckpoint(runID string) error {
	run, exists := w.manager.GetRun(runID)
	if !exists {
		return fmt.Errorf("run not found: %s", runID)
	}

	if run.BestChars == "" {
		slog.Debug("Skipping checkpoint, no best layout yet", "run_id", runID)
		return nil
	}

	checkpoint := store.NewCheckpoint(
		runID,
		run.BestChars,
		run.BestCost,
		run.InitialCost,
		run.Steps,
		run.Converged,
		run.Config,
	)

	if err := w.checkpoints.SaveCheckpoint(runID, checkpoint); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	slog.Info("Checkpoint saved",
		"run_id", runID,
		"step", run.Steps,
		"best_cost", run.BestCost,
	)
	return nil
}

// markFailed marks a run as failed with an error message
func (w *Worker) markFailed(runID string, err error) {
	endTime := time.Now()
	w.manager.UpdateRun(runID, func(r *Run) {
		r.State = StateFailed
		r.Error = err.Error()
		r.EndTime = &endTime
	})
	slog.Error("Run failed", "run_id", runID, "error", err)
}

// markCancelled marks a run as cancelled
func (w *Worker) markCancelled(runID string) {
	endTime := time.Now()
	w.manager.UpdateRun(runID, func(r *Run) {
		r.State = StateCancelled
		r.EndTime = &endTime
	})
	slog.Info("Run cancelled", "run_id", runID)
}
