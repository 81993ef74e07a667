package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Lykos153/keyboard-layout-optimizer/internal/config"
	"github.com/Lykos153/keyboard-layout-optimizer/internal/history"
)

var (
	historyLimit  int
	historyBest   bool
	historyLayout string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List finished optimization runs",
	Long: `Lists finished runs from the history database, newest first. With
--best the cheapest layouts come first; --layout narrows the listing to
one keyboard config and implies cost ordering.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum rows to show (0 = all)")
	historyCmd.Flags().BoolVar(&historyBest, "best", false, "Order by best cost instead of recency")
	historyCmd.Flags().StringVar(&historyLayout, "layout", "", "Only show runs for this keyboard config")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	db, err := history.Open(config.HistoryPath(settings.DataDir))
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	var runs []history.Run
	if historyBest || historyLayout != "" {
		runs, err = db.Best(ctx, historyLayout, historyLimit)
	} else {
		runs, err = db.List(ctx, historyLimit)
	}
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tFINISHED\tSTEPS\tCOST\tBEST LAYOUT")
	fmt.Fprintln(w, "--\t----\t--------\t-----\t----\t-----------")
	for _, run := range runs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%.6f -> %.6f\t%s\n",
			run.ID,
			run.Kind,
			run.FinishedAt.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.InitialCost,
			run.BestCost,
			run.BestChars,
		)
	}
	w.Flush()

	fmt.Printf("\nTotal runs shown: %d\n", len(runs))
	return nil
}
