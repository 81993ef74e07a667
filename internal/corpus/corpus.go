// Package corpus loads n-gram sources from disk: raw text corpora and
// precomputed frequency tables. Only this layer and the stores touch the
// filesystem; the engine consumes in-memory structures.
package corpus

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Lykos153/keyboard-layout-optimizer/internal/ngram"
)

// Tables is the on-disk YAML shape of precomputed n-gram frequencies.
// Bigrams and trigrams may be absent.
type Tables struct {
	Unigrams ngram.Table `yaml:"unigrams"`
	Bigrams  ngram.Table `yaml:"bigrams"`
	Trigrams ngram.Table `yaml:"trigrams"`
}

// Model builds a normalized n-gram model from the tables.
func (t Tables) Model(p ngram.Params) (*ngram.Model, error) {
	return ngram.FromTables(p, t.Unigrams, t.Bigrams, t.Trigrams)
}

// LoadText reads a raw UTF-8 corpus file.
func LoadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read corpus: %w", err)
	}
	return string(data), nil
}

// LoadTables reads precomputed n-gram frequency tables from a YAML file.
func LoadTables(path string) (Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("failed to read n-gram tables: %w", err)
	}
	return ParseTables(data)
}

// ParseTables parses a YAML document with unigrams/bigrams/trigrams maps.
func ParseTables(data []byte) (Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tables{}, fmt.Errorf("failed to parse n-gram tables: %w", err)
	}
	return t, nil
}

// LoadModel builds a model from whichever source is configured: a raw text
// corpus or a table file. Exactly one of textPath and tablesPath must be
// set.
func LoadModel(p ngram.Params, textPath, tablesPath string) (*ngram.Model, error) {
	switch {
	case textPath != "" && tablesPath != "":
		return nil, errors.New("both a corpus text and an n-gram table file are configured")
	case textPath != "":
		text, err := LoadText(textPath)
		if err != nil {
			return nil, err
		}
		return ngram.FromText(p, text)
	case tablesPath != "":
		t, err := LoadTables(tablesPath)
		if err != nil {
			return nil, err
		}
		return t.Model(p)
	default:
		return nil, errors.New("no corpus source configured")
	}
}
