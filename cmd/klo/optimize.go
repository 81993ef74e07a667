package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Lykos153/keyboard-layout-optimizer/internal/config"
	"github.com/Lykos153/keyboard-layout-optimizer/internal/history"
	"github.com/Lykos153/keyboard-layout-optimizer/internal/layout"
	"github.com/Lykos153/keyboard-layout-optimizer/internal/opt"
	"github.com/Lykos153/keyboard-layout-optimizer/internal/runner"
	"github.com/Lykos153/keyboard-layout-optimizer/internal/store"
)

var (
	optLayoutPath string
	optParamsPath string
	optCorpusPath string
	optNgramsPath string
	optChars      string
	optFixed      string
	optAlgo       string
	optSteps      int
	optIters      int
	optPopSize    int
	optSeed       int64
	optGreedy     bool
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Run a one-shot layout optimization",
	Long: `Searches for a cheaper layout with simulated annealing (default) or the
mayfly swarm, prints the best layout found and records the run in history.`,
	RunE: runOptimize,
}

func init() {
	optimizeCmd.Flags().StringVar(&optLayoutPath, "layout", "", "Keyboard config YAML (required)")
	optimizeCmd.Flags().StringVar(&optParamsPath, "params", "", "Metric params YAML (default built-in weights)")
	optimizeCmd.Flags().StringVar(&optCorpusPath, "corpus", "", "Raw text corpus file")
	optimizeCmd.Flags().StringVar(&optNgramsPath, "ngrams", "", "Precomputed n-gram table YAML")
	optimizeCmd.Flags().StringVar(&optChars, "chars", "", "Seed layout characters (default base layout)")
	optimizeCmd.Flags().StringVar(&optFixed, "fixed", "", "Characters pinned to their seed positions")
	optimizeCmd.Flags().StringVar(&optAlgo, "algo", "anneal", "Search algorithm: anneal, mayfly")
	optimizeCmd.Flags().IntVar(&optSteps, "steps", 0, "Annealing step budget (0 = default)")
	optimizeCmd.Flags().IntVar(&optIters, "iters", 0, "Mayfly iterations (0 = default)")
	optimizeCmd.Flags().IntVar(&optPopSize, "pop", 0, "Mayfly population size (0 = default)")
	optimizeCmd.Flags().Int64Var(&optSeed, "seed", 0, "Random seed (0 = default)")
	optimizeCmd.Flags().BoolVar(&optGreedy, "greedy", false, "Run a greedy descent before annealing")

	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	applyStringConfig(cmd, "layout", &optLayoutPath, fileDefaults.LayoutConfig)
	applyStringConfig(cmd, "params", &optParamsPath, fileDefaults.Params)
	applyStringConfig(cmd, "corpus", &optCorpusPath, fileDefaults.Corpus)
	applyStringConfig(cmd, "ngrams", &optNgramsPath, fileDefaults.Ngrams)
	applyStringConfig(cmd, "fixed", &optFixed, fileDefaults.FixedChars)
	applyInt64Config(cmd, "seed", &optSeed, fileDefaults.Seed)

	if optLayoutPath == "" {
		return fmt.Errorf("no keyboard config given (--layout or config file)")
	}

	sess, seed, err := runner.BuildSession(store.RunConfig{
		LayoutConfigPath: optLayoutPath,
		ParamsPath:       optParamsPath,
		CorpusPath:       optCorpusPath,
		NgramsPath:       optNgramsPath,
		SeedChars:        optChars,
	})
	if err != nil {
		return err
	}

	sess.SetObserver(func(p opt.Progress) {
		if p.Improved {
			slog.Debug("Improved", "step", p.Step, "best_cost", p.BestCost, "temperature", p.Temperature)
		}
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	go func() {
		<-quit
		slog.Info("Interrupt received, stopping search")
		cancel()
	}()

	slog.Info("Starting optimization", "algo", optAlgo, "layout_config", optLayoutPath, "seed", optSeed)

	start := time.Now()
	var result *opt.Result

	switch optAlgo {
	case "anneal":
		params := opt.AnnealParams{MaxSteps: optSteps, Seed: optSeed, GreedyInit: optGreedy}
		result, err = sess.RunAnnealing(ctx, seed, params, []rune(optFixed))
	case "mayfly":
		params := opt.MayflyParams{Iterations: optIters, Population: optPopSize, Seed: optSeed}
		result, err = sess.RunMayfly(ctx, seed, params, []rune(optFixed))
	default:
		return fmt.Errorf("unknown algorithm: %s", optAlgo)
	}

	interrupted := false
	if err != nil {
		if result == nil || !errors.Is(err, context.Canceled) {
			return err
		}
		// Annealing hands back the best layout found so far on cancellation
		interrupted = true
	}

	elapsed := time.Since(start)

	var stepsPerSecond float64
	if elapsed > 0 {
		stepsPerSecond = float64(result.Steps) / elapsed.Seconds()
	}

	slog.Info("Optimization complete",
		"elapsed", elapsed,
		"steps", result.Steps,
		"accepted", result.Accepted,
		"initial_cost", result.InitialCost,
		"best_cost", result.BestCost,
		"improvement", result.InitialCost-result.BestCost,
		"steps_per_second", fmt.Sprintf("%.0f", stepsPerSecond),
		"interrupted", interrupted,
	)

	boardConfig, err := layout.LoadConfig(optLayoutPath)
	if err != nil {
		return fmt.Errorf("failed to load layout config: %w", err)
	}
	fmt.Println(boardConfig.Plot(result.Best))
	fmt.Printf("Best layout: %s (cost: %.6f -> %.6f, %.0f steps/sec)\n",
		result.Best.String(), result.InitialCost, result.BestCost, stepsPerSecond)

	if !interrupted {
		corpusPath := optCorpusPath
		if corpusPath == "" {
			corpusPath = optNgramsPath
		}
		recordHistory(history.Run{
			Kind:         optAlgo,
			LayoutConfig: optLayoutPath,
			Corpus:       corpusPath,
			SeedChars:    seed.String(),
			BestChars:    result.Best.String(),
			InitialCost:  result.InitialCost,
			BestCost:     result.BestCost,
			Steps:        result.Steps,
			StartedAt:    start,
			FinishedAt:   start.Add(elapsed),
		})
	}
	return nil
}

// recordHistory stores a finished one-shot run. History is an accessory, so
// failures are logged rather than returned.
func recordHistory(run history.Run) {
	db, err := history.Open(config.HistoryPath(settings.DataDir))
	if err != nil {
		slog.Warn("Failed to open history database", "error", err)
		return
	}
	defer db.Close()

	if _, err := db.Insert(context.Background(), run); err != nil {
		slog.Warn("Failed to record run in history", "error", err)
	}
}
