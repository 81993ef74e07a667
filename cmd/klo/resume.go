package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Lykos153/keyboard-layout-optimizer/internal/store"
)

var (
	resumeMaxSteps  int
	resumeCkptEvery int
)

var resumeCmd = &cobra.Command{
	Use:   "resume [run-id]",
	Short: "Resume an optimization from its checkpoint",
	Long: `Continues a checkpointed generational run from its best layout. The
keyboard, metric params, corpus and fixed characters must match the
original run; the step budget may be raised with --steps.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().IntVar(&resumeMaxSteps, "steps", 0, "New total generation budget (0 = run until convergence)")
	resumeCmd.Flags().IntVar(&resumeCkptEvery, "checkpoint-interval", 0, "Seconds between periodic checkpoints (0 = final only)")

	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	runID := args[0]

	manager, worker, historyDB, err := newRunner()
	if err != nil {
		return err
	}
	defer historyDB.Close()

	run, fromStep, err := worker.PrepareResume(runID, func(config *store.RunConfig) {
		if cmd.Flags().Changed("steps") {
			config.MaxSteps = resumeMaxSteps
		}
		if cmd.Flags().Changed("checkpoint-interval") {
			config.CheckpointInterval = resumeCkptEvery
		}
	})
	if err != nil {
		return err
	}

	fmt.Printf("Resuming run %s from step %d (best cost %.6f)\n", run.ID, fromStep, run.BestCost)

	return watchRun(cmd.Context(), manager, run.ID, func(ctx context.Context) error {
		return worker.Resume(ctx, run.ID, fromStep)
	})
}
