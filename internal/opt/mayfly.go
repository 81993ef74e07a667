package opt

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/cwbudde/mayfly"

	"github.com/Lykos153/keyboard-layout-optimizer/internal/eval"
	"github.com/Lykos153/keyboard-layout-optimizer/internal/layout"
)

// MayflyParams configures the mayfly-algorithm backend. Layouts are encoded
// as random keys: each movable board key gets a coordinate in [0, 1], and
// sorting the coordinates yields a permutation of the movable characters.
// The zero value of any field means "use the default".
type MayflyParams struct {
	// Iterations is the number of swarm iterations.
	Iterations int `json:"iterations"`
	// Population is the swarm size. The library needs at least 20.
	Population int `json:"population"`
	// Seed drives all randomness. Zero selects DefaultSeed.
	Seed int64 `json:"seed"`
}

// DefaultMayflyParams returns the stock mayfly configuration.
func DefaultMayflyParams() MayflyParams {
	return MayflyParams{
		Iterations: 200,
		Population: 40,
		Seed:       DefaultSeed,
	}
}

// Resolve fills zero-valued fields with defaults and validates the rest.
func (p MayflyParams) Resolve() (MayflyParams, error) {
	def := DefaultMayflyParams()
	if p.Iterations == 0 {
		p.Iterations = def.Iterations
	}
	if p.Population == 0 {
		p.Population = def.Population
	}
	if p.Seed == 0 {
		p.Seed = def.Seed
	}

	if p.Iterations < 0 {
		return p, fmt.Errorf("iterations must be positive, got %d: %w", p.Iterations, ErrInvalidParameters)
	}
	if p.Population < 20 {
		return p, fmt.Errorf("population must be at least 20, got %d: %w", p.Population, ErrInvalidParameters)
	}
	return p, nil
}

// decodePermutation maps a position vector to a layout in the space. The
// movable key with the i-th smallest coordinate receives the i-th movable
// character of the seed. Ties break by index, so decoding is deterministic.
func decodePermutation(x []float64, space *Space) (layout.Layout, error) {
	if len(x) != len(space.keys) {
		return layout.Layout{}, fmt.Errorf("position has %d coordinates for %d movable keys", len(x), len(space.keys))
	}

	order := make([]int, len(x))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return x[order[a]] < x[order[b]]
	})

	chars := make([]rune, len(space.keys))
	for i, k := range space.keys {
		chars[i] = space.seed.CharAt(k)
	}

	out := space.seed.Runes()
	for rank, slot := range order {
		out[space.keys[slot]] = chars[rank]
	}
	return layout.FromRunes(out)
}

// RunMayfly searches the permutation space with the mayfly swarm algorithm
// over the random-key encoding. The seed layout is kept when the swarm finds
// nothing better, so the result can never be worse than the seed.
func RunMayfly(seed layout.Layout, p MayflyParams, ev *eval.Evaluator, fixedChars []rune) (*Result, error) {
	p, err := p.Resolve()
	if err != nil {
		return nil, err
	}

	seedRes, err := ev.Evaluate(seed)
	if err != nil {
		return nil, err
	}

	space, err := NewSpace(seed, ev.PermutableKeys(), fixedChars)
	if err != nil {
		return nil, err
	}

	result := &Result{Best: seed, BestCost: seedRes.Total, InitialCost: seedRes.Total}
	if space.PairCount() == 0 {
		return result, nil
	}

	objective := func(x []float64) float64 {
		l, err := decodePermutation(x, space)
		if err != nil {
			return math.Inf(1)
		}
		res, err := ev.Evaluate(l)
		if err != nil {
			return math.Inf(1)
		}
		return res.Total
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = objective
	config.ProblemSize = len(space.keys)
	config.MaxIterations = p.Iterations
	config.NPop = p.Population
	config.LowerBound = 0
	config.UpperBound = 1
	config.Rand = rand.New(rand.NewSource(p.Seed))

	out, err := mayfly.Optimize(config)
	if err != nil {
		return nil, fmt.Errorf("mayfly optimization failed: %w", err)
	}

	best, err := decodePermutation(out.GlobalBest.Position, space)
	if err != nil {
		return nil, fmt.Errorf("decoding best position: %w", err)
	}
	bestRes, err := ev.Evaluate(best)
	if err != nil {
		return nil, err
	}

	result.Steps = p.Iterations
	if bestRes.Total < result.BestCost {
		result.Best = best
		result.BestCost = bestRes.Total
	}
	if err := space.CheckFixed(result.Best); err != nil {
		return nil, fmt.Errorf("search produced a constraint-violating layout: %w", err)
	}
	return result, nil
}
