package opt

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/Lykos153/keyboard-layout-optimizer/internal/eval"
	"github.com/Lykos153/keyboard-layout-optimizer/internal/layout"
)

// GenerationalParams configures the steady-state genetic search. The zero
// value of any field means "use the default".
type GenerationalParams struct {
	// Population is the number of layouts kept between generations.
	Population int `json:"population"`
	// Elite is the number of best layouts copied unchanged into the next
	// generation.
	Elite int `json:"elite"`
	// TournamentK is the tournament size used for parent selection.
	TournamentK int `json:"tournamentK"`
	// MutationRate is the per-offspring probability of a random swap.
	MutationRate float64 `json:"mutationRate"`
	// Patience is the number of generations without significant
	// improvement before the search reports convergence.
	Patience int `json:"patience"`
	// Threshold is the minimum relative improvement that counts as
	// progress for convergence tracking.
	Threshold float64 `json:"threshold"`
	// Seed drives all randomness. Zero selects DefaultSeed.
	Seed int64 `json:"seed"`
	// GreedyInit seeds the population with a best-improving descent from
	// the seed layout instead of the raw seed.
	GreedyInit bool `json:"greedyInit,omitempty"`
}

// DefaultGenerationalParams returns the stock genetic search configuration.
func DefaultGenerationalParams() GenerationalParams {
	return GenerationalParams{
		Population:   48,
		Elite:        4,
		TournamentK:  3,
		MutationRate: 0.35,
		Patience:     25,
		Threshold:    1e-6,
		Seed:         DefaultSeed,
	}
}

// Resolve fills zero-valued fields with defaults and validates the rest.
// It returns the fully resolved parameter set actually used by a run.
func (p GenerationalParams) Resolve() (GenerationalParams, error) {
	def := DefaultGenerationalParams()
	if p.Population == 0 {
		p.Population = def.Population
	}
	if p.Elite == 0 {
		p.Elite = def.Elite
	}
	if p.TournamentK == 0 {
		p.TournamentK = def.TournamentK
	}
	if p.MutationRate == 0 {
		p.MutationRate = def.MutationRate
	}
	if p.Patience == 0 {
		p.Patience = def.Patience
	}
	if p.Threshold == 0 {
		p.Threshold = def.Threshold
	}
	if p.Seed == 0 {
		p.Seed = def.Seed
	}

	if p.Population < 2 {
		return p, fmt.Errorf("population must be at least 2, got %d: %w", p.Population, ErrInvalidParameters)
	}
	if p.Elite < 1 || p.Elite >= p.Population {
		return p, fmt.Errorf("elite count must be in [1, population), got %d: %w", p.Elite, ErrInvalidParameters)
	}
	if p.TournamentK < 1 || p.TournamentK > p.Population {
		return p, fmt.Errorf("tournament size must be in [1, population], got %d: %w", p.TournamentK, ErrInvalidParameters)
	}
	if p.MutationRate < 0 || p.MutationRate > 1 {
		return p, fmt.Errorf("mutation rate must be in [0, 1], got %g: %w", p.MutationRate, ErrInvalidParameters)
	}
	if p.Patience < 0 {
		return p, fmt.Errorf("patience must be positive, got %d: %w", p.Patience, ErrInvalidParameters)
	}
	if p.Threshold < 0 {
		return p, fmt.Errorf("convergence threshold must not be negative, got %g: %w", p.Threshold, ErrInvalidParameters)
	}
	return p, nil
}

type individual struct {
	l    layout.Layout
	cost float64
}

// Generational evolves a population of layouts one generation at a time.
// Callers drive it by calling Step repeatedly; each call never worsens the
// best layout, and once Converged the optimizer is a fixpoint: further Step
// calls return the same result without touching the RNG.
type Generational struct {
	params  GenerationalParams
	space   *Space
	ev      *eval.Evaluator
	rng     *rand.Rand
	tracker *Tracker

	pop     []individual
	best    individual
	initial float64
	steps   int
	done    bool
}

// StepResult is the optimizer's state after a generation.
type StepResult struct {
	Step      int
	Best      layout.Layout
	BestCost  float64
	Converged bool
}

// NewGenerational builds the initial population around the seed layout and
// returns the optimizer together with the resolved parameters it runs with.
// The population always contains the seed (or its greedy descendant), so the
// best layout can never be worse than the seed.
func NewGenerational(seed layout.Layout, p GenerationalParams, ev *eval.Evaluator, fixedChars []rune) (*Generational, GenerationalParams, error) {
	p, err := p.Resolve()
	if err != nil {
		return nil, p, err
	}

	seedRes, err := ev.Evaluate(seed)
	if err != nil {
		return nil, p, err
	}

	space, err := NewSpace(seed, ev.PermutableKeys(), fixedChars)
	if err != nil {
		return nil, p, err
	}

	g := &Generational{
		params:  p,
		space:   space,
		ev:      ev,
		rng:     rand.New(rand.NewSource(p.Seed)),
		tracker: NewTracker(TrackerConfig{Patience: p.Patience, Threshold: p.Threshold}),
		initial: seedRes.Total,
	}

	first := individual{l: seed, cost: seedRes.Total}
	if p.GreedyInit && space.PairCount() > 0 {
		l, cost, err := greedyDescent(space, ev, seed, seedRes.Total)
		if err != nil {
			return nil, p, err
		}
		first = individual{l: l, cost: cost}
	}

	pop := make([]individual, 0, p.Population)
	pop = append(pop, first)
	for len(pop) < p.Population {
		l := g.shuffle(seed)
		res, err := ev.Evaluate(l)
		if err != nil {
			return nil, p, err
		}
		pop = append(pop, individual{l: l, cost: res.Total})
	}
	sortPopulation(pop)

	g.pop = pop
	g.best = pop[0]
	g.tracker.Update(g.best.cost)
	return g, p, nil
}

// Step advances the population by one generation and returns the state
// afterwards. Once converged, Step is a no-op returning the final state.
func (g *Generational) Step() (StepResult, error) {
	if g == nil || len(g.pop) == 0 {
		return StepResult{}, errors.New("generational optimizer has no population")
	}
	if g.done {
		return g.snapshot(), nil
	}

	next := make([]individual, 0, g.params.Population)
	next = append(next, g.pop[:g.params.Elite]...)
	for len(next) < g.params.Population {
		a := g.tournament()
		b := g.tournament()
		child := g.mutate(g.crossover(a.l, b.l))
		res, err := g.ev.Evaluate(child)
		if err != nil {
			return StepResult{}, fmt.Errorf("evaluating offspring: %w", err)
		}
		next = append(next, individual{l: child, cost: res.Total})
	}
	sortPopulation(next)

	g.pop = next
	g.steps++
	if next[0].cost < g.best.cost {
		g.best = next[0]
	}
	if g.tracker.Update(g.best.cost) {
		g.done = true
	}

	if err := g.space.CheckFixed(g.best.l); err != nil {
		return StepResult{}, fmt.Errorf("search produced a constraint-violating layout: %w", err)
	}
	return g.snapshot(), nil
}

// Best returns the best layout found so far and its cost.
func (g *Generational) Best() (layout.Layout, float64) {
	return g.best.l, g.best.cost
}

// InitialCost returns the cost of the seed layout.
func (g *Generational) InitialCost() float64 {
	return g.initial
}

// Steps returns the number of generations evolved so far.
func (g *Generational) Steps() int {
	return g.steps
}

// Converged reports whether the search has gone stale.
func (g *Generational) Converged() bool {
	return g.done
}

// Params returns the resolved parameters the optimizer runs with.
func (g *Generational) Params() GenerationalParams {
	return g.params
}

func (g *Generational) snapshot() StepResult {
	return StepResult{
		Step:      g.steps,
		Best:      g.best.l,
		BestCost:  g.best.cost,
		Converged: g.done,
	}
}

// shuffle produces a uniformly random permutation of l's movable keys via a
// Fisher-Yates pass, leaving pinned keys in place.
func (g *Generational) shuffle(l layout.Layout) layout.Layout {
	keys := g.space.keys
	out := l
	for i := len(keys) - 1; i > 0; i-- {
		j := g.rng.Intn(i + 1)
		if i != j {
			out = out.Swap(keys[i], keys[j])
		}
	}
	return out
}

// crossover pulls child keys toward parent b, one movable key at a time.
// Each disagreeing key is, with probability 1/2, resolved by swapping b's
// character into place. Both characters involved sit on movable keys, so
// pinned keys are never disturbed.
func (g *Generational) crossover(a, b layout.Layout) layout.Layout {
	child := a
	for _, k := range g.space.keys {
		want := b.CharAt(k)
		if child.CharAt(k) == want || g.rng.Float64() >= 0.5 {
			continue
		}
		j, ok := child.KeyOf(want)
		if !ok {
			continue
		}
		child = child.Swap(k, j)
	}
	return child
}

// mutate applies one random swap with probability MutationRate.
func (g *Generational) mutate(l layout.Layout) layout.Layout {
	if len(g.space.keys) < 2 {
		return l
	}
	if g.rng.Float64() >= g.params.MutationRate {
		return l
	}
	i, j := g.space.RandomPair(g.rng)
	return l.Swap(i, j)
}

// tournament picks the cheapest of TournamentK uniformly drawn layouts.
func (g *Generational) tournament() individual {
	best := g.pop[g.rng.Intn(len(g.pop))]
	for i := 1; i < g.params.TournamentK; i++ {
		c := g.pop[g.rng.Intn(len(g.pop))]
		if c.cost < best.cost {
			best = c
		}
	}
	return best
}

// sortPopulation orders by cost, breaking ties by the layout string so that
// equal-cost populations sort the same way on every run.
func sortPopulation(pop []individual) {
	sort.SliceStable(pop, func(a, b int) bool {
		if pop[a].cost != pop[b].cost {
			return pop[a].cost < pop[b].cost
		}
		return pop[a].l.String() < pop[b].l.String()
	})
}
