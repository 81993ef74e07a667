package opt

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/Lykos153/keyboard-layout-optimizer/internal/eval"
	"github.com/Lykos153/keyboard-layout-optimizer/internal/layout"
)

// cancelCheckInterval is how many annealing steps pass between context
// checks. Checking every step would dominate the cheap swap-evaluate loop.
const cancelCheckInterval = 256

// AnnealParams configures simulated annealing. The zero value of any field
// means "use the default"; Resolve reports ErrInvalidParameters for values
// that are explicitly out of range.
type AnnealParams struct {
	// MaxSteps caps the total number of candidate evaluations.
	MaxSteps int `json:"maxSteps"`
	// StepsPerEpoch is the number of steps between temperature drops.
	StepsPerEpoch int `json:"stepsPerEpoch"`
	// MaxEpochs optionally caps the number of epochs. Zero means no cap.
	MaxEpochs int `json:"maxEpochs,omitempty"`
	// InitialTemp is the starting temperature.
	InitialTemp float64 `json:"initialTemp"`
	// Cooling is the geometric factor applied once per epoch, in (0, 1].
	Cooling float64 `json:"cooling"`
	// MinTemp stops the search once the schedule drops below it.
	MinTemp float64 `json:"minTemp"`
	// Seed drives all randomness. Zero selects DefaultSeed.
	Seed int64 `json:"seed"`
	// GreedyInit runs a best-improving descent before annealing starts.
	GreedyInit bool `json:"greedyInit,omitempty"`
}

// DefaultAnnealParams returns the stock annealing configuration.
func DefaultAnnealParams() AnnealParams {
	return AnnealParams{
		MaxSteps:      50000,
		StepsPerEpoch: 500,
		InitialTemp:   0.1,
		Cooling:       0.95,
		MinTemp:       1e-6,
		Seed:          DefaultSeed,
	}
}

// Resolve fills zero-valued fields with defaults and validates the rest.
// It returns the fully resolved parameter set actually used by a run.
func (p AnnealParams) Resolve() (AnnealParams, error) {
	def := DefaultAnnealParams()
	if p.MaxSteps == 0 {
		p.MaxSteps = def.MaxSteps
	}
	if p.StepsPerEpoch == 0 {
		p.StepsPerEpoch = def.StepsPerEpoch
	}
	if p.InitialTemp == 0 {
		p.InitialTemp = def.InitialTemp
	}
	if p.Cooling == 0 {
		p.Cooling = def.Cooling
	}
	if p.MinTemp == 0 {
		p.MinTemp = def.MinTemp
	}
	if p.Seed == 0 {
		p.Seed = def.Seed
	}

	if p.MaxSteps < 0 {
		return p, fmt.Errorf("max steps must be positive, got %d: %w", p.MaxSteps, ErrInvalidParameters)
	}
	if p.StepsPerEpoch < 0 {
		return p, fmt.Errorf("steps per epoch must be positive, got %d: %w", p.StepsPerEpoch, ErrInvalidParameters)
	}
	if p.MaxEpochs < 0 {
		return p, fmt.Errorf("max epochs must not be negative, got %d: %w", p.MaxEpochs, ErrInvalidParameters)
	}
	if p.InitialTemp < 0 {
		return p, fmt.Errorf("initial temperature must be positive, got %g: %w", p.InitialTemp, ErrInvalidParameters)
	}
	if p.Cooling < 0 || p.Cooling > 1 {
		return p, fmt.Errorf("cooling factor must be in (0, 1], got %g: %w", p.Cooling, ErrInvalidParameters)
	}
	if p.MinTemp < 0 {
		return p, fmt.Errorf("temperature floor must be positive, got %g: %w", p.MinTemp, ErrInvalidParameters)
	}
	if p.MinTemp > p.InitialTemp {
		return p, fmt.Errorf("temperature floor %g exceeds initial temperature %g: %w", p.MinTemp, p.InitialTemp, ErrInvalidParameters)
	}
	return p, nil
}

// GeometricSchedule cools the temperature by a constant factor once per
// epoch.
type GeometricSchedule struct {
	Initial float64
	Factor  float64
	Epoch   int
}

// Temperature returns the temperature at a zero-based step index.
func (s GeometricSchedule) Temperature(step int) float64 {
	epoch := s.Epoch
	if epoch <= 0 {
		epoch = 1
	}
	return s.Initial * math.Pow(s.Factor, float64(step/epoch))
}

// Progress is a point-in-time view of a running search.
type Progress struct {
	Step        int
	Temperature float64
	CurrentCost float64
	BestCost    float64
	Improved    bool
}

// Observer receives progress updates synchronously, once per step. A nil
// observer is skipped. Observers must be fast and must not call back into
// the search; slow consumers belong behind a channel the observer feeds
// without blocking.
type Observer func(Progress)

// Result is the outcome of a one-shot search.
type Result struct {
	Best        layout.Layout
	BestCost    float64
	InitialCost float64
	Steps       int
	Accepted    int
}

// Anneal runs simulated annealing over single-swap neighbors of the seed
// layout. Improving candidates are always accepted; worsening ones with
// probability exp(-delta/temperature). The best layout ever visited is
// returned even when the walk ends somewhere worse.
//
// Identical inputs and seed produce identical results. On cancellation the
// best result found so far is returned together with ctx.Err().
func Anneal(ctx context.Context, seed layout.Layout, p AnnealParams, ev *eval.Evaluator, fixedChars []rune, observe Observer) (*Result, error) {
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

	rng := rand.New(rand.NewSource(p.Seed))
	cur := seed
	curCost := seedRes.Total

	if p.GreedyInit {
		cur, curCost, err = greedyDescent(space, ev, cur, curCost)
		if err != nil {
			return nil, err
		}
		if curCost < result.BestCost {
			result.Best = cur
			result.BestCost = curCost
		}
	}

	sched := GeometricSchedule{Initial: p.InitialTemp, Factor: p.Cooling, Epoch: p.StepsPerEpoch}

	for step := 0; step < p.MaxSteps; step++ {
		temp := sched.Temperature(step)
		if temp < p.MinTemp {
			break
		}
		if p.MaxEpochs > 0 && step/p.StepsPerEpoch >= p.MaxEpochs {
			break
		}
		if step%cancelCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			default:
			}
		}

		i, j := space.RandomPair(rng)
		cand := cur.Swap(i, j)
		candRes, err := ev.Evaluate(cand)
		if err != nil {
			return nil, fmt.Errorf("evaluating neighbor: %w", err)
		}

		improved := false
		if candRes.Total < curCost || rng.Float64() < math.Exp(-(candRes.Total-curCost)/temp) {
			cur = cand
			curCost = candRes.Total
			result.Accepted++
			if curCost < result.BestCost {
				result.Best = cur
				result.BestCost = curCost
				improved = true
			}
		}
		result.Steps = step + 1

		if observe != nil {
			observe(Progress{
				Step:        step + 1,
				Temperature: temp,
				CurrentCost: curCost,
				BestCost:    result.BestCost,
				Improved:    improved,
			})
		}
	}

	if err := space.CheckFixed(result.Best); err != nil {
		return nil, fmt.Errorf("search produced a constraint-violating layout: %w", err)
	}
	return result, nil
}
