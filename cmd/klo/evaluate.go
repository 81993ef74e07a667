package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Lykos153/keyboard-layout-optimizer/internal/eval"
	"github.com/Lykos153/keyboard-layout-optimizer/internal/layout"
	"github.com/Lykos153/keyboard-layout-optimizer/internal/runner"
	"github.com/Lykos153/keyboard-layout-optimizer/internal/store"
)

var (
	evalLayoutPath string
	evalParamsPath string
	evalCorpusPath string
	evalNgramsPath string
	evalChars      string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score a layout against an n-gram model",
	Long: `Evaluates a layout against the given corpus or n-gram table file
and prints the per-metric cost breakdown. Without --chars the keyboard's
base layout is scored.`,
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVar(&evalLayoutPath, "layout", "", "Keyboard config YAML (required)")
	evaluateCmd.Flags().StringVar(&evalParamsPath, "params", "", "Metric params YAML (default built-in weights)")
	evaluateCmd.Flags().StringVar(&evalCorpusPath, "corpus", "", "Raw text corpus file")
	evaluateCmd.Flags().StringVar(&evalNgramsPath, "ngrams", "", "Precomputed n-gram table YAML")
	evaluateCmd.Flags().StringVar(&evalChars, "chars", "", "Layout characters to score (default base layout)")

	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	applyStringConfig(cmd, "layout", &evalLayoutPath, fileDefaults.LayoutConfig)
	applyStringConfig(cmd, "params", &evalParamsPath, fileDefaults.Params)
	applyStringConfig(cmd, "corpus", &evalCorpusPath, fileDefaults.Corpus)
	applyStringConfig(cmd, "ngrams", &evalNgramsPath, fileDefaults.Ngrams)

	if evalLayoutPath == "" {
		return fmt.Errorf("no keyboard config given (--layout or config file)")
	}

	sess, seed, err := runner.BuildSession(store.RunConfig{
		LayoutConfigPath: evalLayoutPath,
		ParamsPath:       evalParamsPath,
		CorpusPath:       evalCorpusPath,
		NgramsPath:       evalNgramsPath,
		SeedChars:        evalChars,
	})
	if err != nil {
		return err
	}

	result, err := sess.Evaluate(seed)
	if err != nil {
		return err
	}

	boardConfig, err := layout.LoadConfig(evalLayoutPath)
	if err != nil {
		return fmt.Errorf("failed to load layout config: %w", err)
	}

	fmt.Println(boardConfig.Plot(result.Layout))
	printCostTable(result.Layout, result.Cost)
	return nil
}

// printCostTable writes the per-metric breakdown as an aligned table.
func printCostTable(l layout.Layout, cost eval.CostResult) {
	fmt.Printf("Layout: %s\n\n", l.String())

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tRAW\tWEIGHTED")
	fmt.Fprintln(w, "------\t---\t--------")
	for _, c := range cost.Components {
		fmt.Fprintf(w, "%s\t%.6f\t%.6f\n", c.Metric, c.Raw, c.Weighted)
	}
	fmt.Fprintln(w, "------\t---\t--------")
	fmt.Fprintf(w, "total\t\t%.6f\n", cost.Total)
	w.Flush()
}
