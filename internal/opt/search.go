package opt

import (
	"context"

	"github.com/Lykos153/keyboard-layout-optimizer/internal/eval"
	"github.com/Lykos153/keyboard-layout-optimizer/internal/layout"
)

// Search is a one-shot layout optimization algorithm. Parameter structs
// implement it, so a resolved parameter set doubles as the strategy.
type Search interface {
	// Run executes the search from the seed layout.
	// fixedChars pins characters to their seed positions for this run.
	Run(ctx context.Context, seed layout.Layout, ev *eval.Evaluator, fixedChars []rune, observe Observer) (*Result, error)
}

// Run implements Search using simulated annealing.
func (p AnnealParams) Run(ctx context.Context, seed layout.Layout, ev *eval.Evaluator, fixedChars []rune, observe Observer) (*Result, error) {
	return Anneal(ctx, seed, p, ev, fixedChars, observe)
}

// Run implements Search using the mayfly swarm. The library runs to
// completion, so ctx is only honored between the call boundaries and the
// observer fires once with the final state.
func (p MayflyParams) Run(ctx context.Context, seed layout.Layout, ev *eval.Evaluator, fixedChars []rune, observe Observer) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := RunMayfly(seed, p, ev, fixedChars)
	if err != nil {
		return nil, err
	}
	if observe != nil {
		observe(Progress{
			Step:        res.Steps,
			CurrentCost: res.BestCost,
			BestCost:    res.BestCost,
			Improved:    res.BestCost < res.InitialCost,
		})
	}
	return res, nil
}
