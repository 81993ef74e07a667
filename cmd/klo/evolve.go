package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Lykos153/keyboard-layout-optimizer/internal/config"
	"github.com/Lykos153/keyboard-layout-optimizer/internal/history"
	"github.com/Lykos153/keyboard-layout-optimizer/internal/layout"
	"github.com/Lykos153/keyboard-layout-optimizer/internal/opt"
	"github.com/Lykos153/keyboard-layout-optimizer/internal/runner"
	"github.com/Lykos153/keyboard-layout-optimizer/internal/store"
)

var (
	evoLayoutPath string
	evoParamsPath string
	evoCorpusPath string
	evoNgramsPath string
	evoChars      string
	evoFixed      string
	evoMaxSteps   int
	evoPopSize    int
	evoElite      int
	evoMutation   float64
	evoPatience   int
	evoSeed       int64
	evoGreedy     bool
	evoCkptEvery  int
)

var evolveCmd = &cobra.Command{
	Use:   "evolve",
	Short: "Run a resumable generational optimization",
	Long: `Evolves a population of layouts generation by generation, streaming
progress and saving periodic checkpoints so an interrupted run can be
continued with "klo resume". Without --steps the search runs until it
converges.`,
	RunE: runEvolve,
}

func init() {
	evolveCmd.Flags().StringVar(&evoLayoutPath, "layout", "", "Keyboard config YAML (required)")
	evolveCmd.Flags().StringVar(&evoParamsPath, "params", "", "Metric params YAML (default built-in weights)")
	evolveCmd.Flags().StringVar(&evoCorpusPath, "corpus", "", "Raw text corpus file")
	evolveCmd.Flags().StringVar(&evoNgramsPath, "ngrams", "", "Precomputed n-gram table YAML")
	evolveCmd.Flags().StringVar(&evoChars, "chars", "", "Seed layout characters (default base layout)")
	evolveCmd.Flags().StringVar(&evoFixed, "fixed", "", "Characters pinned to their seed positions")
	evolveCmd.Flags().IntVar(&evoMaxSteps, "steps", 0, "Generation budget (0 = run until convergence)")
	evolveCmd.Flags().IntVar(&evoPopSize, "pop", 0, "Population size (0 = default)")
	evolveCmd.Flags().IntVar(&evoElite, "elite", 0, "Layouts copied unchanged each generation (0 = default)")
	evolveCmd.Flags().Float64Var(&evoMutation, "mutation", 0, "Per-offspring swap mutation rate (0 = default)")
	evolveCmd.Flags().IntVar(&evoPatience, "patience", 0, "Stale generations before convergence (0 = default)")
	evolveCmd.Flags().Int64Var(&evoSeed, "seed", 0, "Random seed (0 = default)")
	evolveCmd.Flags().BoolVar(&evoGreedy, "greedy", false, "Seed the population with a greedy descent")
	evolveCmd.Flags().IntVar(&evoCkptEvery, "checkpoint-interval", 30, "Seconds between periodic checkpoints (0 = final only)")

	rootCmd.AddCommand(evolveCmd)
}

func runEvolve(cmd *cobra.Command, args []string) error {
	applyStringConfig(cmd, "layout", &evoLayoutPath, fileDefaults.LayoutConfig)
	applyStringConfig(cmd, "params", &evoParamsPath, fileDefaults.Params)
	applyStringConfig(cmd, "corpus", &evoCorpusPath, fileDefaults.Corpus)
	applyStringConfig(cmd, "ngrams", &evoNgramsPath, fileDefaults.Ngrams)
	applyStringConfig(cmd, "fixed", &evoFixed, fileDefaults.FixedChars)
	applyIntConfig(cmd, "steps", &evoMaxSteps, fileDefaults.MaxSteps)
	applyIntConfig(cmd, "checkpoint-interval", &evoCkptEvery, fileDefaults.CheckpointInterval)
	applyInt64Config(cmd, "seed", &evoSeed, fileDefaults.Seed)

	if evoLayoutPath == "" {
		return fmt.Errorf("no keyboard config given (--layout or config file)")
	}

	runConfig := store.RunConfig{
		LayoutConfigPath:   evoLayoutPath,
		ParamsPath:         evoParamsPath,
		CorpusPath:         evoCorpusPath,
		NgramsPath:         evoNgramsPath,
		SeedChars:          evoChars,
		FixedChars:         evoFixed,
		MaxSteps:           evoMaxSteps,
		CheckpointInterval: evoCkptEvery,
		Search: opt.GenerationalParams{
			Population:   evoPopSize,
			Elite:        evoElite,
			MutationRate: evoMutation,
			Patience:     evoPatience,
			Seed:         evoSeed,
			GreedyInit:   evoGreedy,
		},
	}

	manager, worker, historyDB, err := newRunner()
	if err != nil {
		return err
	}
	defer historyDB.Close()

	run := manager.CreateRun(runConfig)
	fmt.Printf("Run %s\n", run.ID)

	return watchRun(cmd.Context(), manager, run.ID, func(ctx context.Context) error {
		return worker.Execute(ctx, run.ID)
	})
}

// newRunner wires a manager and worker against the configured data directory.
func newRunner() (*runner.Manager, *runner.Worker, *history.DB, error) {
	checkpoints, err := store.NewFSStore(settings.DataDir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create checkpoint store: %w", err)
	}
	historyDB, err := history.Open(config.HistoryPath(settings.DataDir))
	if err != nil {
		return nil, nil, nil, err
	}
	manager := runner.NewManager()
	worker := runner.NewWorker(manager, checkpoints, historyDB, settings.DataDir)
	return manager, worker, historyDB, nil
}

// watchRun executes a run while printing its progress events, then prints the
// final summary. An interrupt cancels the run; the worker checkpoints on the
// way out so the run stays resumable.
func watchRun(parent context.Context, manager *runner.Manager, runID string, execute func(context.Context) error) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	go func() {
		<-quit
		slog.Info("Interrupt received, checkpointing and stopping")
		cancel()
	}()

	events := manager.Broadcaster().Subscribe(runID)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range events {
			fmt.Printf("step %d  best %.6f  (%.1f steps/sec)\n", event.Step, event.BestCost, event.StepsPerSecond)
		}
	}()

	execErr := execute(ctx)
	manager.Broadcaster().Unsubscribe(runID, events)
	<-done

	run, exists := manager.GetRun(runID)
	if !exists {
		return execErr
	}

	switch {
	case errors.Is(execErr, context.Canceled):
		fmt.Printf("\nRun %s cancelled at step %d (best cost %.6f).\n", runID, run.Steps, run.BestCost)
		fmt.Printf("Resume with: klo resume %s\n", runID)
		return nil
	case execErr != nil:
		return execErr
	}

	boardConfig, err := layout.LoadConfig(run.Config.LayoutConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load layout config: %w", err)
	}
	best, err := layout.ParseLayout(run.BestChars)
	if err != nil {
		return fmt.Errorf("failed to parse best layout: %w", err)
	}

	fmt.Println()
	fmt.Println(boardConfig.Plot(best))
	fmt.Printf("Best layout: %s (cost: %.6f -> %.6f, %d steps", run.BestChars, run.InitialCost, run.BestCost, run.Steps)
	if run.Converged {
		fmt.Print(", converged")
	}
	fmt.Println(")")
	return nil
}
