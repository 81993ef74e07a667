package opt

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestAnnealParamsResolveDefaults(t *testing.T) {
	p, err := AnnealParams{}.Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	def := DefaultAnnealParams()
	if p != def {
		t.Errorf("Expected defaults %+v, got %+v", def, p)
	}
	if p.Seed != DefaultSeed {
		t.Errorf("Expected seed %d, got %d", DefaultSeed, p.Seed)
	}
}

func TestAnnealParamsResolveKeepsExplicitValues(t *testing.T) {
	p, err := AnnealParams{MaxSteps: 100, Seed: 7}.Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if p.MaxSteps != 100 {
		t.Errorf("Expected max steps 100, got %d", p.MaxSteps)
	}
	if p.Seed != 7 {
		t.Errorf("Expected seed 7, got %d", p.Seed)
	}
	if p.Cooling != DefaultAnnealParams().Cooling {
		t.Errorf("Expected default cooling, got %g", p.Cooling)
	}
}

func TestAnnealParamsInvalid(t *testing.T) {
	cases := []struct {
		name   string
		params AnnealParams
	}{
		{"negative max steps", AnnealParams{MaxSteps: -1}},
		{"negative steps per epoch", AnnealParams{StepsPerEpoch: -5}},
		{"negative max epochs", AnnealParams{MaxEpochs: -1}},
		{"negative temperature", AnnealParams{InitialTemp: -0.5}},
		{"cooling above one", AnnealParams{Cooling: 1.5}},
		{"negative cooling", AnnealParams{Cooling: -0.1}},
		{"negative floor", AnnealParams{MinTemp: -1}},
		{"floor above initial", AnnealParams{InitialTemp: 0.01, MinTemp: 0.1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.params.Resolve()
			if err == nil {
				t.Fatal("Expected error")
			}
			if !errors.Is(err, ErrInvalidParameters) {
				t.Errorf("Expected ErrInvalidParameters, got %v", err)
			}
		})
	}
}

func TestGeometricSchedule(t *testing.T) {
	s := GeometricSchedule{Initial: 1.0, Factor: 0.5, Epoch: 10}

	cases := []struct {
		step int
		want float64
	}{
		{0, 1.0},
		{9, 1.0},
		{10, 0.5},
		{19, 0.5},
		{25, 0.25},
		{30, 0.125},
	}
	for _, tc := range cases {
		if got := s.Temperature(tc.step); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("Temperature(%d) = %g, expected %g", tc.step, got, tc.want)
		}
	}
}

func TestAnnealImprovesBaseLayout(t *testing.T) {
	ev := optEvaluator(t)
	seed := optBoard(t).BaseLayout()

	p := AnnealParams{MaxSteps: 2000, StepsPerEpoch: 100, InitialTemp: 0.2, Seed: 1}
	res, err := Anneal(context.Background(), seed, p, ev, nil, nil)
	if err != nil {
		t.Fatalf("Anneal failed: %v", err)
	}

	if res.BestCost >= res.InitialCost {
		t.Errorf("Expected improvement over initial cost %g, got %g", res.InitialCost, res.BestCost)
	}
	if res.Best.CharAt(5) != 'f' {
		t.Errorf("Expected fixed key 5 to keep 'f', got %q", res.Best.CharAt(5))
	}
	if res.Steps == 0 {
		t.Error("Expected at least one step")
	}

	// The heavy character belongs on one of the two cheapest keys.
	if c0, c1 := res.Best.CharAt(0), res.Best.CharAt(1); c0 != 'c' && c1 != 'c' {
		t.Errorf("Expected 'c' on key 0 or 1, got layout %q", res.Best)
	}
}

func TestAnnealReproducible(t *testing.T) {
	ev := optEvaluator(t)
	seed := optBoard(t).BaseLayout()
	p := AnnealParams{MaxSteps: 1500, StepsPerEpoch: 100, Seed: 99}

	first, err := Anneal(context.Background(), seed, p, ev, nil, nil)
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	second, err := Anneal(context.Background(), seed, p, ev, nil, nil)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	if !first.Best.Equal(second.Best) {
		t.Errorf("Expected identical best layouts, got %q and %q", first.Best, second.Best)
	}
	if first.BestCost != second.BestCost {
		t.Errorf("Expected identical best costs, got %g and %g", first.BestCost, second.BestCost)
	}
	if first.Accepted != second.Accepted {
		t.Errorf("Expected identical accept counts, got %d and %d", first.Accepted, second.Accepted)
	}
}

func TestAnnealBestNeverWorseThanSeed(t *testing.T) {
	ev := optEvaluator(t)
	seed := optBoard(t).BaseLayout()

	// A hot, barely cooling walk accepts plenty of worsening moves. The
	// reported best must still be at least as good as the seed.
	p := AnnealParams{MaxSteps: 500, StepsPerEpoch: 100, InitialTemp: 10, Cooling: 0.99, Seed: 3}
	res, err := Anneal(context.Background(), seed, p, ev, nil, nil)
	if err != nil {
		t.Fatalf("Anneal failed: %v", err)
	}
	if res.BestCost > res.InitialCost {
		t.Errorf("Best cost %g worse than initial %g", res.BestCost, res.InitialCost)
	}
}

func TestAnnealObserver(t *testing.T) {
	ev := optEvaluator(t)
	seed := optBoard(t).BaseLayout()

	var seen []Progress
	p := AnnealParams{MaxSteps: 300, StepsPerEpoch: 50, Seed: 5}
	res, err := Anneal(context.Background(), seed, p, ev, nil, func(pr Progress) {
		seen = append(seen, pr)
	})
	if err != nil {
		t.Fatalf("Anneal failed: %v", err)
	}

	if len(seen) != res.Steps {
		t.Fatalf("Expected %d progress updates, got %d", res.Steps, len(seen))
	}
	for i, pr := range seen {
		if pr.Step != i+1 {
			t.Fatalf("Expected step %d at update %d, got %d", i+1, i, pr.Step)
		}
		if i > 0 && pr.BestCost > seen[i-1].BestCost {
			t.Errorf("Best cost rose from %g to %g at step %d", seen[i-1].BestCost, pr.BestCost, pr.Step)
		}
	}
	last := seen[len(seen)-1]
	if last.BestCost != res.BestCost {
		t.Errorf("Expected final best cost %g, got %g", res.BestCost, last.BestCost)
	}
}

func TestAnnealCancelled(t *testing.T) {
	ev := optEvaluator(t)
	seed := optBoard(t).BaseLayout()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Anneal(ctx, seed, AnnealParams{}, ev, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if res == nil {
		t.Fatal("Expected partial result on cancellation")
	}
	if !res.Best.Equal(seed) {
		t.Errorf("Expected seed layout back, got %q", res.Best)
	}
}

func TestAnnealGreedyInit(t *testing.T) {
	ev := optEvaluator(t)
	seed := optBoard(t).BaseLayout()

	// One annealing step on its own almost certainly finds nothing; the
	// greedy descent must have done the work.
	p := AnnealParams{MaxSteps: 1, GreedyInit: true, Seed: 11}
	res, err := Anneal(context.Background(), seed, p, ev, nil, nil)
	if err != nil {
		t.Fatalf("Anneal failed: %v", err)
	}
	if res.BestCost >= res.InitialCost {
		t.Errorf("Expected greedy descent to improve on %g, got %g", res.InitialCost, res.BestCost)
	}
}

func TestAnnealAllCharsPinned(t *testing.T) {
	ev := optEvaluator(t)
	seed := optBoard(t).BaseLayout()

	res, err := Anneal(context.Background(), seed, AnnealParams{}, ev, []rune("abcde"), nil)
	if err != nil {
		t.Fatalf("Anneal failed: %v", err)
	}
	if res.Steps != 0 {
		t.Errorf("Expected no steps in a single-point space, got %d", res.Steps)
	}
	if !res.Best.Equal(seed) {
		t.Errorf("Expected seed layout back, got %q", res.Best)
	}
}

func TestAnnealInvalidParams(t *testing.T) {
	ev := optEvaluator(t)
	seed := optBoard(t).BaseLayout()

	_, err := Anneal(context.Background(), seed, AnnealParams{Cooling: 2}, ev, nil, nil)
	if !errors.Is(err, ErrInvalidParameters) {
		t.Fatalf("Expected ErrInvalidParameters, got %v", err)
	}
}

func TestAnnealInvalidConstraint(t *testing.T) {
	ev := optEvaluator(t)
	seed := optBoard(t).BaseLayout()

	_, err := Anneal(context.Background(), seed, AnnealParams{}, ev, []rune{'z'}, nil)
	if !errors.Is(err, ErrInvalidConstraint) {
		t.Fatalf("Expected ErrInvalidConstraint, got %v", err)
	}
}
