package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Lykos153/keyboard-layout-optimizer/internal/corpus"
	"github.com/Lykos153/keyboard-layout-optimizer/internal/ngram"
)

var (
	corpusTextPath   string
	corpusTablesPath string
	corpusTop        int
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Summarize an n-gram model",
	Long: `Builds the n-gram model from a text corpus or a precomputed table file
and prints its distribution statistics: distinct n-grams, entropy and the
heaviest sequences per order.`,
	RunE: runCorpus,
}

func init() {
	corpusCmd.Flags().StringVar(&corpusTextPath, "corpus", "", "Raw text corpus file")
	corpusCmd.Flags().StringVar(&corpusTablesPath, "ngrams", "", "Precomputed n-gram table YAML")
	corpusCmd.Flags().IntVar(&corpusTop, "top", 10, "Heaviest n-grams to list per order (0 = none)")

	rootCmd.AddCommand(corpusCmd)
}

var orderNames = [3]string{"unigrams", "bigrams", "trigrams"}

func runCorpus(cmd *cobra.Command, args []string) error {
	applyStringConfig(cmd, "corpus", &corpusTextPath, fileDefaults.Corpus)
	applyStringConfig(cmd, "ngrams", &corpusTablesPath, fileDefaults.Ngrams)

	model, err := corpus.LoadModel(ngram.Params{FoldCase: true}, corpusTextPath, corpusTablesPath)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ORDER\tDISTINCT\tENTROPY")
	fmt.Fprintln(w, "-----\t--------\t-------")
	for order := 1; order <= 3; order++ {
		fmt.Fprintf(w, "%s\t%d\t%.4f\n", orderNames[order-1], model.Len(order), model.Entropy(order))
	}
	w.Flush()

	if corpusTop <= 0 {
		return nil
	}

	for order := 1; order <= 3; order++ {
		top := model.Top(order, corpusTop)
		if len(top) == 0 {
			continue
		}
		fmt.Printf("\nTop %s:\n", orderNames[order-1])
		for _, entry := range top {
			fmt.Printf("  %-6q %8.4f%%\n", entry.Seq, entry.Weight*100)
		}
	}
	return nil
}
