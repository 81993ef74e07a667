package opt

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/Lykos153/keyboard-layout-optimizer/internal/layout"
)

var (
	// ErrInvalidConstraint is returned when a fixed-character constraint
	// cannot be applied to the seed layout.
	ErrInvalidConstraint = errors.New("invalid constraint")

	// ErrInvalidParameters is returned when search parameters are out of
	// range. Zero-valued fields are not errors; Resolve fills them with
	// defaults first.
	ErrInvalidParameters = errors.New("invalid parameters")
)

// DefaultSeed is used when params leave the RNG seed unset (zero), so runs
// are reproducible by default.
const DefaultSeed = 42

// Space is the set of layouts reachable from a seed by swapping its movable
// keys. Two layers pin keys down: fixed positions declared by the keyboard
// configuration, and fixed characters requested for a single run.
type Space struct {
	seed   layout.Layout
	keys   []int // movable key indices, ascending
	pinned []int // all other key indices, ascending
}

// NewSpace builds the permutation space around a seed layout. permutableKeys
// are the key indices the keyboard allows to move; fixedChars additionally
// pins characters to wherever the seed places them. A fixed character that
// does not occur in the seed is an ErrInvalidConstraint.
func NewSpace(seed layout.Layout, permutableKeys []int, fixedChars []rune) (*Space, error) {
	movable := make(map[int]bool, len(permutableKeys))
	for _, k := range permutableKeys {
		if k < 0 || k >= seed.Size() {
			return nil, fmt.Errorf("permutable key %d out of range for %d keys: %w", k, seed.Size(), ErrInvalidConstraint)
		}
		movable[k] = true
	}

	for _, c := range fixedChars {
		key, ok := seed.KeyOf(c)
		if !ok {
			return nil, fmt.Errorf("fixed character %q does not occur in the layout: %w", c, ErrInvalidConstraint)
		}
		delete(movable, key)
	}

	keys := make([]int, 0, len(movable))
	pinned := make([]int, 0, seed.Size()-len(movable))
	for k := 0; k < seed.Size(); k++ {
		if movable[k] {
			keys = append(keys, k)
		} else {
			pinned = append(pinned, k)
		}
	}
	sort.Ints(keys)

	return &Space{seed: seed, keys: keys, pinned: pinned}, nil
}

// Seed returns the layout the space was built around.
func (s *Space) Seed() layout.Layout {
	return s.seed
}

// Keys returns a copy of the movable key indices, ascending.
func (s *Space) Keys() []int {
	return append([]int(nil), s.keys...)
}

// PairCount returns the number of distinct swaps, i.e. the neighborhood size
// of any layout in the space. Zero means the space is a single point.
func (s *Space) PairCount() int {
	n := len(s.keys)
	return n * (n - 1) / 2
}

// Neighbors enumerates every single-swap neighbor of l in a fixed order and
// passes it to visit. Enumeration stops early when visit returns false.
// The identity is never yielded: swapping two distinct keys of a layout with
// distinct characters always produces a different layout.
func (s *Space) Neighbors(l layout.Layout, visit func(layout.Layout) bool) {
	for i := 0; i < len(s.keys); i++ {
		for j := i + 1; j < len(s.keys); j++ {
			if !visit(l.Swap(s.keys[i], s.keys[j])) {
				return
			}
		}
	}
}

// RandomPair draws two distinct movable key indices from rng. It must not be
// called on a space with fewer than two movable keys.
func (s *Space) RandomPair(rng *rand.Rand) (int, int) {
	i := rng.Intn(len(s.keys))
	j := rng.Intn(len(s.keys) - 1)
	if j >= i {
		j++
	}
	return s.keys[i], s.keys[j]
}

// CheckFixed verifies that l keeps every pinned key on its seed character.
func (s *Space) CheckFixed(l layout.Layout) error {
	if l.Size() != s.seed.Size() {
		return fmt.Errorf("layout has %d keys, seed has %d", l.Size(), s.seed.Size())
	}
	for _, k := range s.pinned {
		if l.CharAt(k) != s.seed.CharAt(k) {
			return fmt.Errorf("pinned key %d moved from %q to %q", k, s.seed.CharAt(k), l.CharAt(k))
		}
	}
	return nil
}
