// Package ngram builds normalized character n-gram frequency models from
// precomputed tables or from raw text. Models are pure in-memory values:
// building one touches no files and two builds from the same input are
// identical, entry for entry.
package ngram

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// MaxOrder is the longest n-gram length the model tracks.
const MaxOrder = 3

// ErrInvalidCorpusData is returned when corpus input cannot produce a usable
// model (empty unigrams, negative weights, malformed sequences).
// Use errors.Is(err, ErrInvalidCorpusData) to check for this error.
var ErrInvalidCorpusData = errors.New("invalid corpus data")

// Table maps an n-gram sequence to a raw occurrence weight.
type Table map[string]float64

// Params controls how corpus input is filtered before counting.
// Characters listed in IgnoredChars are removed from the stream, so n-grams
// join across them. FoldCase lowercases input first. Nothing else is
// normalized.
type Params struct {
	IgnoredChars string
	FoldCase     bool
}

// Entry is one n-gram with its normalized share within its order.
type Entry struct {
	Seq    string
	Weight float64
}

// Model holds normalized 1-, 2- and 3-gram frequencies. Entries per order are
// sorted lexicographically so that every aggregation over them is
// order-stable.
type Model struct {
	grams  [MaxOrder][]Entry
	totals [MaxOrder]float64
}

// FromTables builds a model from three raw frequency tables. Weights are
// normalized to sum to 1 per order. The unigram table must be non-empty;
// bigram and trigram tables may be empty (a one-character corpus has no
// bigrams). Params filtering applies to table keys exactly as it applies to
// text, so equivalent inputs produce equivalent models.
func FromTables(p Params, unigrams, bigrams, trigrams Table) (*Model, error) {
	m := &Model{}
	tables := []Table{unigrams, bigrams, trigrams}
	for order := 1; order <= MaxOrder; order++ {
		entries, total, err := normalizeTable(p, tables[order-1], order)
		if err != nil {
			return nil, err
		}
		m.grams[order-1] = entries
		m.totals[order-1] = total
	}
	if len(m.grams[0]) == 0 {
		return nil, fmt.Errorf("unigram table is empty: %w", ErrInvalidCorpusData)
	}
	return m, nil
}

// FromText builds a model by counting overlapping n-gram windows in the text.
// Ignored characters are removed before windowing.
func FromText(p Params, text string) (*Model, error) {
	if p.FoldCase {
		text = strings.ToLower(text)
	}

	ignored := make(map[rune]bool, len(p.IgnoredChars))
	for _, r := range p.IgnoredChars {
		ignored[r] = true
	}

	var runes []rune
	for _, r := range text {
		if ignored[r] {
			continue
		}
		runes = append(runes, r)
	}

	if len(runes) == 0 {
		return nil, fmt.Errorf("text contains no countable characters: %w", ErrInvalidCorpusData)
	}

	counts := [MaxOrder]Table{{}, {}, {}}
	for i := range runes {
		for order := 1; order <= MaxOrder; order++ {
			if i+order > len(runes) {
				break
			}
			counts[order-1][string(runes[i:i+order])]++
		}
	}

	m := &Model{}
	for order := 1; order <= MaxOrder; order++ {
		// Counting already applied the params, so normalize plain.
		entries, total, err := normalizeTable(Params{}, counts[order-1], order)
		if err != nil {
			return nil, err
		}
		m.grams[order-1] = entries
		m.totals[order-1] = total
	}
	return m, nil
}

// normalizeTable filters, validates, sorts and normalizes one table.
func normalizeTable(p Params, t Table, order int) ([]Entry, float64, error) {
	ignored := make(map[rune]bool, len(p.IgnoredChars))
	for _, r := range p.IgnoredChars {
		ignored[r] = true
	}

	merged := make(map[string]float64, len(t))
	for seq, w := range t {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, 0, fmt.Errorf("%d-gram %q has weight %g: %w", order, seq, w, ErrInvalidCorpusData)
		}
		if p.FoldCase {
			seq = strings.ToLower(seq)
		}
		runes := []rune(seq)
		if len(runes) != order {
			return nil, 0, fmt.Errorf("%d-gram table contains %q (%d characters): %w", order, seq, len(runes), ErrInvalidCorpusData)
		}
		skip := false
		for _, r := range runes {
			if ignored[r] {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		merged[seq] += w
	}

	if len(merged) == 0 {
		return nil, 0, nil
	}

	seqs := make([]string, 0, len(merged))
	for seq := range merged {
		seqs = append(seqs, seq)
	}
	sort.Strings(seqs)

	weights := make([]float64, len(seqs))
	for i, seq := range seqs {
		weights[i] = merged[seq]
	}
	total := floats.Sum(weights)
	if total <= 0 {
		return nil, 0, fmt.Errorf("%d-gram weights sum to %g: %w", order, total, ErrInvalidCorpusData)
	}

	entries := make([]Entry, 0, len(seqs))
	for i, seq := range seqs {
		if weights[i] == 0 {
			continue
		}
		entries = append(entries, Entry{Seq: seq, Weight: weights[i] / total})
	}
	return entries, total, nil
}

// Grams returns the normalized entries for the given order (1 to 3), sorted
// lexicographically by sequence. The returned slice must not be modified.
func (m *Model) Grams(order int) []Entry {
	return m.grams[order-1]
}

// Len returns the number of distinct n-grams of the given order.
func (m *Model) Len(order int) int {
	return len(m.grams[order-1])
}

// Total returns the raw pre-normalization weight mass of the given order.
func (m *Model) Total(order int) float64 {
	return m.totals[order-1]
}

// Entropy returns the Shannon entropy (nats) of the normalized distribution
// for the given order.
func (m *Model) Entropy(order int) float64 {
	entries := m.grams[order-1]
	if len(entries) == 0 {
		return 0
	}
	weights := make([]float64, len(entries))
	for i, e := range entries {
		weights[i] = e.Weight
	}
	return stat.Entropy(weights)
}

// Top returns the n highest-weighted entries of the given order, heaviest
// first. Ties break lexicographically for stable output.
func (m *Model) Top(order, n int) []Entry {
	entries := make([]Entry, len(m.grams[order-1]))
	copy(entries, m.grams[order-1])
	sort.SliceStable(entries, func(a, b int) bool {
		if entries[a].Weight != entries[b].Weight {
			return entries[a].Weight > entries[b].Weight
		}
		return entries[a].Seq < entries[b].Seq
	})
	if n > len(entries) {
		n = len(entries)
	}
	return entries[:n]
}
