package runner

import (
	"testing"
	"time"
)

func TestManager_CreateRun(t *testing.T) {
	m := NewManager()

	config := RunConfig{
		LayoutConfigPath: "keyboards/standard.yaml",
		NgramsPath:       "corpora/deu_mixed.yaml",
		MaxSteps:         100,
	}

	run := m.CreateRun(config)

	if run.ID == "" {
		t.Error("Run ID should not be empty")
	}

	if run.State != StatePending {
		t.Errorf("Initial state should be pending, got %s", run.State)
	}

	if run.Config.LayoutConfigPath != "keyboards/standard.yaml" {
		t.Errorf("Config not set correctly")
	}
}

func TestManager_CreateRunWithID(t *testing.T) {
	m := NewManager()

	run := m.CreateRunWithID("resumed-run", RunConfig{LayoutConfigPath: "board.yaml"})

	if run.ID != "resumed-run" {
		t.Errorf("Expected ID resumed-run, got %s", run.ID)
	}

	retrieved, exists := m.GetRun("resumed-run")
	if !exists {
		t.Fatal("Run should exist under the chosen ID")
	}
	if retrieved.State != StatePending {
		t.Errorf("Initial state should be pending, got %s", retrieved.State)
	}
}

func TestManager_GetRun(t *testing.T) {
	m := NewManager()

	config := RunConfig{LayoutConfigPath: "board.yaml"}
	run := m.CreateRun(config)

	retrieved, exists := m.GetRun(run.ID)
	if !exists {
		t.Error("Run should exist")
	}

	if retrieved.ID != run.ID {
		t.Error("Retrieved wrong run")
	}

	_, exists = m.GetRun("nonexistent")
	if exists {
		t.Error("Should not find nonexistent run")
	}
}

func TestManager_ListRuns(t *testing.T) {
	m := NewManager()

	if len(m.ListRuns()) != 0 {
		t.Error("Should start with no runs")
	}

	m.CreateRun(RunConfig{LayoutConfigPath: "board1.yaml"})
	m.CreateRun(RunConfig{LayoutConfigPath: "board2.yaml"})

	runs := m.ListRuns()
	if len(runs) != 2 {
		t.Errorf("Expected 2 runs, got %d", len(runs))
	}
}

func TestManager_UpdateRun(t *testing.T) {
	m := NewManager()

	run := m.CreateRun(RunConfig{LayoutConfigPath: "board.yaml"})

	err := m.UpdateRun(run.ID, func(r *Run) {
		r.State = StateRunning
		r.Steps = 10
		r.BestCost = 123.45
	})

	if err != nil {
		t.Errorf("Update should succeed: %v", err)
	}

	updated, _ := m.GetRun(run.ID)
	if updated.State != StateRunning {
		t.Error("State should be updated")
	}
	if updated.Steps != 10 {
		t.Error("Steps should be updated")
	}
	if updated.BestCost != 123.45 {
		t.Error("BestCost should be updated")
	}

	err = m.UpdateRun("nonexistent", func(r *Run) {})
	if err == nil {
		t.Error("Update of nonexistent run should fail")
	}
}

func TestManager_ThreadSafety(t *testing.T) {
	m := NewManager()

	run := m.CreateRun(RunConfig{LayoutConfigPath: "board.yaml"})

	// Simulate concurrent updates
	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(step int) {
			m.UpdateRun(run.ID, func(r *Run) {
				r.Steps = step
				time.Sleep(1 * time.Millisecond)
			})
			done <- true
		}(i)
	}

	// Wait for all updates
	for i := 0; i < 10; i++ {
		<-done
	}

	// Should not crash - actual value depends on scheduling
	_, exists := m.GetRun(run.ID)
	if !exists {
		t.Error("Run should still exist after concurrent updates")
	}
}
