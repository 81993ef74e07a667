package corpus

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Lykos153/keyboard-layout-optimizer/internal/ngram"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadText(t *testing.T) {
	path := writeFile(t, "corpus.txt", "hello world")

	text, err := LoadText(path)
	if err != nil {
		t.Fatalf("LoadText failed: %v", err)
	}
	if text != "hello world" {
		t.Errorf("Expected corpus text back, got %q", text)
	}
}

func TestLoadTextMissingFile(t *testing.T) {
	_, err := LoadText(filepath.Join(t.TempDir(), "nope.txt"))
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
}

func TestLoadTables(t *testing.T) {
	path := writeFile(t, "ngrams.yaml", `
unigrams:
  a: 3
  b: 1
bigrams:
  ab: 2
`)

	tables, err := LoadTables(path)
	if err != nil {
		t.Fatalf("LoadTables failed: %v", err)
	}
	if tables.Unigrams["a"] != 3 {
		t.Errorf("Expected unigram a weight 3, got %g", tables.Unigrams["a"])
	}
	if len(tables.Trigrams) != 0 {
		t.Errorf("Expected no trigrams, got %d", len(tables.Trigrams))
	}

	model, err := tables.Model(ngram.Params{})
	if err != nil {
		t.Fatalf("Model failed: %v", err)
	}
	grams := model.Grams(1)
	if len(grams) != 2 {
		t.Fatalf("Expected 2 unigrams, got %d", len(grams))
	}
	if math.Abs(grams[0].Weight-0.75) > 1e-12 {
		t.Errorf("Expected normalized weight 0.75 for a, got %g", grams[0].Weight)
	}
}

func TestParseTablesMalformed(t *testing.T) {
	_, err := ParseTables([]byte("unigrams: [not, a, map]"))
	if err == nil {
		t.Fatal("Expected error for malformed tables")
	}
}

func TestLoadModelFromText(t *testing.T) {
	path := writeFile(t, "corpus.txt", "abab")

	model, err := LoadModel(ngram.Params{}, path, "")
	if err != nil {
		t.Fatalf("LoadModel failed: %v", err)
	}
	if model.Len(1) != 2 {
		t.Errorf("Expected 2 unigrams, got %d", model.Len(1))
	}
}

func TestLoadModelFromTables(t *testing.T) {
	path := writeFile(t, "ngrams.yaml", "unigrams: {a: 1, b: 1}")

	model, err := LoadModel(ngram.Params{}, "", path)
	if err != nil {
		t.Fatalf("LoadModel failed: %v", err)
	}
	if model.Len(1) != 2 {
		t.Errorf("Expected 2 unigrams, got %d", model.Len(1))
	}
}

func TestLoadModelSourceSelection(t *testing.T) {
	if _, err := LoadModel(ngram.Params{}, "", ""); err == nil {
		t.Error("Expected error with no source configured")
	}
	if _, err := LoadModel(ngram.Params{}, "a.txt", "b.yaml"); err == nil {
		t.Error("Expected error with both sources configured")
	}
}

func TestLoadModelInvalidCorpus(t *testing.T) {
	path := writeFile(t, "empty.txt", "")

	_, err := LoadModel(ngram.Params{}, path, "")
	if !errors.Is(err, ngram.ErrInvalidCorpusData) {
		t.Fatalf("Expected ErrInvalidCorpusData, got %v", err)
	}
}
