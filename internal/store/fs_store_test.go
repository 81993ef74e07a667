package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Lykos153/keyboard-layout-optimizer/internal/opt"
)

// setupTestStore creates a temporary directory and returns an FSStore.
func setupTestStore(t *testing.T) (*FSStore, string) {
	t.Helper()

	tempDir := t.TempDir()
	store, err := NewFSStore(tempDir)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	return store, tempDir
}

// createTestCheckpoint creates a checkpoint with plausible run data.
func createTestCheckpoint(runID string) *Checkpoint {
	return &Checkpoint{
		RunID:       runID,
		BestChars:   "jduaxphlmwqßctieobnrsgfvüäöyz,.k",
		BestCost:    0.4231,
		InitialCost: 0.7804,
		Steps:       120,
		Converged:   false,
		Timestamp:   time.Now(),
		Config: RunConfig{
			LayoutConfigPath:   "keyboards/standard.yaml",
			NgramsPath:         "corpora/deu_mixed.yaml",
			FixedChars:         ",.",
			MaxSteps:           500,
			CheckpointInterval: 30,
			Search:             opt.DefaultGenerationalParams(),
		},
	}
}

func TestNewFSStore(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewFSStore(tempDir)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	if store == nil {
		t.Fatal("Expected non-nil store")
	}
	if _, err := os.Stat(tempDir); os.IsNotExist(err) {
		t.Fatal("Base directory was not created")
	}
}

func TestSaveCheckpoint(t *testing.T) {
	store, tempDir := setupTestStore(t)

	runID := "test-run-123"
	checkpoint := createTestCheckpoint(runID)

	if err := store.SaveCheckpoint(runID, checkpoint); err != nil {
		t.Fatalf("SaveCheckpoint failed: %v", err)
	}

	expectedPath := filepath.Join(tempDir, "runs", runID, "checkpoint.json")
	if _, err := os.Stat(expectedPath); os.IsNotExist(err) {
		t.Fatalf("Checkpoint file was not created at %s", expectedPath)
	}

	// No temp file may remain after the atomic rename.
	if _, err := os.Stat(expectedPath + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("Temp file should not exist after save")
	}
}

func TestSaveCheckpoint_EmptyRunID(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.SaveCheckpoint("", createTestCheckpoint("any-id")); err == nil {
		t.Fatal("Expected error for empty runID")
	}
}

func TestSaveCheckpoint_NilCheckpoint(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.SaveCheckpoint("test-run", nil); err == nil {
		t.Fatal("Expected error for nil checkpoint")
	}
}

func TestSaveCheckpoint_Overwrite(t *testing.T) {
	store, _ := setupTestStore(t)

	runID := "test-run-overwrite"
	first := createTestCheckpoint(runID)
	first.BestCost = 0.5
	second := createTestCheckpoint(runID)
	second.BestCost = 0.1

	if err := store.SaveCheckpoint(runID, first); err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	if err := store.SaveCheckpoint(runID, second); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	loaded, err := store.LoadCheckpoint(runID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.BestCost != 0.1 {
		t.Errorf("Expected BestCost=0.1, got %f", loaded.BestCost)
	}
}

func TestLoadCheckpoint(t *testing.T) {
	store, _ := setupTestStore(t)

	runID := "test-run-load"
	original := createTestCheckpoint(runID)

	if err := store.SaveCheckpoint(runID, original); err != nil {
		t.Fatalf("SaveCheckpoint failed: %v", err)
	}

	loaded, err := store.LoadCheckpoint(runID)
	if err != nil {
		t.Fatalf("LoadCheckpoint failed: %v", err)
	}

	if loaded.RunID != original.RunID {
		t.Errorf("RunID mismatch: expected %s, got %s", original.RunID, loaded.RunID)
	}
	if loaded.BestChars != original.BestChars {
		t.Errorf("BestChars mismatch: expected %s, got %s", original.BestChars, loaded.BestChars)
	}
	if loaded.BestCost != original.BestCost {
		t.Errorf("BestCost mismatch: expected %f, got %f", original.BestCost, loaded.BestCost)
	}
	if loaded.Steps != original.Steps {
		t.Errorf("Steps mismatch: expected %d, got %d", original.Steps, loaded.Steps)
	}
	if loaded.Config.LayoutConfigPath != original.Config.LayoutConfigPath {
		t.Errorf("LayoutConfigPath mismatch: expected %s, got %s",
			original.Config.LayoutConfigPath, loaded.Config.LayoutConfigPath)
	}
	if loaded.Config.Search.Population != original.Config.Search.Population {
		t.Errorf("Search.Population mismatch: expected %d, got %d",
			original.Config.Search.Population, loaded.Config.Search.Population)
	}
}

func TestLoadCheckpoint_NotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.LoadCheckpoint("nonexistent-run")
	if err == nil {
		t.Fatal("Expected error for nonexistent checkpoint")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %T: %v", err, err)
	}
}

func TestLoadCheckpoint_EmptyRunID(t *testing.T) {
	store, _ := setupTestStore(t)

	if _, err := store.LoadCheckpoint(""); err == nil {
		t.Fatal("Expected error for empty runID")
	}
}

func TestListCheckpoints_Empty(t *testing.T) {
	store, _ := setupTestStore(t)

	infos, err := store.ListCheckpoints()
	if err != nil {
		t.Fatalf("ListCheckpoints failed: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("Expected empty list, got %d checkpoints", len(infos))
	}
}

func TestListCheckpoints_Multiple(t *testing.T) {
	store, _ := setupTestStore(t)

	runs := []string{"run-1", "run-2", "run-3"}
	for _, runID := range runs {
		if err := store.SaveCheckpoint(runID, createTestCheckpoint(runID)); err != nil {
			t.Fatalf("Failed to save checkpoint %s: %v", runID, err)
		}
	}

	infos, err := store.ListCheckpoints()
	if err != nil {
		t.Fatalf("ListCheckpoints failed: %v", err)
	}
	if len(infos) != len(runs) {
		t.Errorf("Expected %d checkpoints, got %d", len(runs), len(infos))
	}

	found := make(map[string]bool)
	for _, info := range infos {
		found[info.RunID] = true
	}
	for _, runID := range runs {
		if !found[runID] {
			t.Errorf("Run %s not found in list", runID)
		}
	}
}

func TestListCheckpoints_SkipsInvalidDirectories(t *testing.T) {
	store, tempDir := setupTestStore(t)

	validRunID := "valid-run"
	if err := store.SaveCheckpoint(validRunID, createTestCheckpoint(validRunID)); err != nil {
		t.Fatalf("Failed to save valid checkpoint: %v", err)
	}

	// A run directory without checkpoint.json and a stray file must both
	// be skipped.
	if err := os.MkdirAll(filepath.Join(tempDir, "runs", "empty-run"), 0755); err != nil {
		t.Fatalf("Failed to create empty run directory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tempDir, "runs", "stray.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create stray file: %v", err)
	}

	infos, err := store.ListCheckpoints()
	if err != nil {
		t.Fatalf("ListCheckpoints failed: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("Expected 1 checkpoint, got %d", len(infos))
	}
	if infos[0].RunID != validRunID {
		t.Errorf("Expected runID %s, got %s", validRunID, infos[0].RunID)
	}
}

func TestDeleteCheckpoint(t *testing.T) {
	store, _ := setupTestStore(t)

	runID := "test-run-delete"
	if err := store.SaveCheckpoint(runID, createTestCheckpoint(runID)); err != nil {
		t.Fatalf("SaveCheckpoint failed: %v", err)
	}

	if err := store.DeleteCheckpoint(runID); err != nil {
		t.Fatalf("DeleteCheckpoint failed: %v", err)
	}

	_, err := store.LoadCheckpoint(runID)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestDeleteCheckpoint_NotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	err := store.DeleteCheckpoint("nonexistent-run")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDeleteCheckpoint_EmptyRunID(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.DeleteCheckpoint(""); err == nil {
		t.Fatal("Expected error for empty runID")
	}
}

func TestConcurrentSave(t *testing.T) {
	store, _ := setupTestStore(t)

	const numRuns = 10
	done := make(chan bool, numRuns)

	for i := 0; i < numRuns; i++ {
		go func(idx int) {
			runID := fmt.Sprintf("concurrent-run-%d", idx)
			if err := store.SaveCheckpoint(runID, createTestCheckpoint(runID)); err != nil {
				t.Errorf("Concurrent save failed for run %s: %v", runID, err)
			}
			done <- true
		}(i)
	}
	for i := 0; i < numRuns; i++ {
		<-done
	}

	infos, err := store.ListCheckpoints()
	if err != nil {
		t.Fatalf("ListCheckpoints failed: %v", err)
	}
	if len(infos) != numRuns {
		t.Errorf("Expected %d checkpoints, got %d", numRuns, len(infos))
	}
}
