package opt

import (
	"github.com/Lykos153/keyboard-layout-optimizer/internal/eval"
	"github.com/Lykos153/keyboard-layout-optimizer/internal/layout"
)

// greedyDescent repeatedly applies the best strictly improving swap until no
// swap improves the layout. Deterministic: the neighbor enumeration order is
// fixed and ties keep the earlier candidate.
func greedyDescent(space *Space, ev *eval.Evaluator, start layout.Layout, startCost float64) (layout.Layout, float64, error) {
	cur := start
	curCost := startCost
	for {
		best := cur
		bestCost := curCost
		var evalErr error
		space.Neighbors(cur, func(n layout.Layout) bool {
			res, err := ev.Evaluate(n)
			if err != nil {
				evalErr = err
				return false
			}
			if res.Total < bestCost {
				best = n
				bestCost = res.Total
			}
			return true
		})
		if evalErr != nil {
			return cur, curCost, evalErr
		}
		if bestCost >= curCost {
			return cur, curCost, nil
		}
		cur = best
		curCost = bestCost
	}
}
