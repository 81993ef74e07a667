package opt

import (
	"errors"
	"testing"
)

func TestMayflyParamsResolveDefaults(t *testing.T) {
	p, err := MayflyParams{}.Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if p != DefaultMayflyParams() {
		t.Errorf("Expected defaults %+v, got %+v", DefaultMayflyParams(), p)
	}
}

func TestMayflyParamsInvalid(t *testing.T) {
	if _, err := (MayflyParams{Iterations: -1}).Resolve(); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("Expected ErrInvalidParameters for negative iterations, got %v", err)
	}
	// The swarm library needs at least 20 mayflies.
	if _, err := (MayflyParams{Population: 10}).Resolve(); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("Expected ErrInvalidParameters for tiny population, got %v", err)
	}
}

func TestDecodePermutation(t *testing.T) {
	cfg := optBoard(t)
	seed := cfg.BaseLayout()

	space, err := NewSpace(seed, cfg.PermutableKeys(), nil)
	if err != nil {
		t.Fatalf("NewSpace failed: %v", err)
	}

	// Sorting the coordinates ranks the slots 1, 3, 2, 4, 0; the movable
	// characters a..e land in that slot order.
	l, err := decodePermutation([]float64{0.9, 0.1, 0.5, 0.3, 0.7}, space)
	if err != nil {
		t.Fatalf("decodePermutation failed: %v", err)
	}
	if l.String() != "eacbdf" {
		t.Errorf("Expected layout eacbdf, got %q", l)
	}
	if err := space.CheckFixed(l); err != nil {
		t.Errorf("Decoded layout violates constraints: %v", err)
	}
}

func TestDecodePermutationTiesKeepSeedOrder(t *testing.T) {
	cfg := optBoard(t)
	seed := cfg.BaseLayout()

	space, err := NewSpace(seed, cfg.PermutableKeys(), nil)
	if err != nil {
		t.Fatalf("NewSpace failed: %v", err)
	}

	l, err := decodePermutation([]float64{0.5, 0.5, 0.5, 0.5, 0.5}, space)
	if err != nil {
		t.Fatalf("decodePermutation failed: %v", err)
	}
	if !l.Equal(seed) {
		t.Errorf("Expected all-equal coordinates to decode to the seed, got %q", l)
	}
}

func TestDecodePermutationWrongLength(t *testing.T) {
	cfg := optBoard(t)
	space, err := NewSpace(cfg.BaseLayout(), cfg.PermutableKeys(), nil)
	if err != nil {
		t.Fatalf("NewSpace failed: %v", err)
	}

	if _, err := decodePermutation([]float64{0.1, 0.2}, space); err == nil {
		t.Error("Expected error for wrong coordinate count")
	}
}

func TestRunMayflyImprovesBaseLayout(t *testing.T) {
	ev := optEvaluator(t)
	seed := optBoard(t).BaseLayout()

	p := MayflyParams{Iterations: 30, Population: 20, Seed: 1}
	res, err := RunMayfly(seed, p, ev, nil)
	if err != nil {
		t.Fatalf("RunMayfly failed: %v", err)
	}

	if res.BestCost > res.InitialCost {
		t.Errorf("Best cost %g worse than initial %g", res.BestCost, res.InitialCost)
	}
	if res.Best.CharAt(5) != 'f' {
		t.Errorf("Expected fixed key 5 to keep 'f', got %q", res.Best.CharAt(5))
	}
}

func TestRunMayflyReproducible(t *testing.T) {
	ev := optEvaluator(t)
	seed := optBoard(t).BaseLayout()
	p := MayflyParams{Iterations: 20, Population: 20, Seed: 8}

	first, err := RunMayfly(seed, p, ev, nil)
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	second, err := RunMayfly(seed, p, ev, nil)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	if !first.Best.Equal(second.Best) {
		t.Errorf("Expected identical best layouts, got %q and %q", first.Best, second.Best)
	}
	if first.BestCost != second.BestCost {
		t.Errorf("Expected identical best costs, got %g and %g", first.BestCost, second.BestCost)
	}
}

func TestRunMayflyAllCharsPinned(t *testing.T) {
	ev := optEvaluator(t)
	seed := optBoard(t).BaseLayout()

	res, err := RunMayfly(seed, MayflyParams{}, ev, []rune("abcde"))
	if err != nil {
		t.Fatalf("RunMayfly failed: %v", err)
	}
	if !res.Best.Equal(seed) {
		t.Errorf("Expected seed layout back, got %q", res.Best)
	}
	if res.Steps != 0 {
		t.Errorf("Expected no iterations in a single-point space, got %d", res.Steps)
	}
}
