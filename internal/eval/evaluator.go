package eval

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/Lykos153/keyboard-layout-optimizer/internal/layout"
	"github.com/Lykos153/keyboard-layout-optimizer/internal/ngram"
)

// Component is one metric's contribution to a layout's cost.
type Component struct {
	Metric   string
	Raw      float64
	Weighted float64
}

// CostResult is the scored breakdown for one layout. Components appear in
// fixed metric order and their weighted values sum to Total.
type CostResult struct {
	Total      float64
	Components []Component
}

// Component returns the named component, if that metric was enabled.
func (r CostResult) Component(name string) (Component, bool) {
	for _, c := range r.Components {
		if c.Metric == name {
			return c, true
		}
	}
	return Component{}, false
}

// unigram, bigram and trigram entries with pre-decoded runes. Decoding once
// at construction keeps the per-evaluation loops allocation-free.
type uniEntry struct {
	r rune
	w float64
}

type biEntry struct {
	a, b rune
	w    float64
}

type triEntry struct {
	a, b, c rune
	w       float64
}

// Evaluator scores layouts against a fixed keyboard, params and model. It
// holds no per-layout state: the same layout always produces the same result.
type Evaluator struct {
	cfg      *layout.Config
	params   Params
	alphabet map[rune]bool

	unigrams []uniEntry
	bigrams  []biEntry
	trigrams []triEntry

	minRows        float64
	redirectFactor float64
}

// New builds an evaluator. The config must describe at least one key, the
// params must only name recognized metrics and thresholds, and the model
// provides the n-gram distributions.
func New(cfg *layout.Config, params Params, model *ngram.Model) (*Evaluator, error) {
	if cfg == nil || cfg.KeyCount() == 0 {
		return nil, fmt.Errorf("keyboard has no keys: %w", layout.ErrInvalidConfig)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if model == nil {
		return nil, fmt.Errorf("no corpus model provided: %w", ngram.ErrInvalidCorpusData)
	}

	alphabet := make(map[rune]bool, cfg.KeyCount())
	for _, r := range cfg.BaseChars() {
		alphabet[r] = true
	}

	e := &Evaluator{
		cfg:            cfg,
		params:         params,
		alphabet:       alphabet,
		minRows:        params.threshold(ThresholdRowTravelMinRows, 1),
		redirectFactor: params.threshold(ThresholdRedirectFactor, 2),
	}

	for _, g := range model.Grams(1) {
		rs := []rune(g.Seq)
		e.unigrams = append(e.unigrams, uniEntry{r: rs[0], w: g.Weight})
	}
	for _, g := range model.Grams(2) {
		rs := []rune(g.Seq)
		e.bigrams = append(e.bigrams, biEntry{a: rs[0], b: rs[1], w: g.Weight})
	}
	for _, g := range model.Grams(3) {
		rs := []rune(g.Seq)
		e.trigrams = append(e.trigrams, triEntry{a: rs[0], b: rs[1], c: rs[2], w: g.Weight})
	}

	return e, nil
}

// Config returns the keyboard configuration the evaluator scores against.
func (e *Evaluator) Config() *layout.Config {
	return e.cfg
}

// PermutableKeys returns the key indices free to permute, per the keyboard's
// fixed-position declarations.
func (e *Evaluator) PermutableKeys() []int {
	return e.cfg.PermutableKeys()
}

// Evaluate scores one layout. The layout must be a bijection between the
// keyboard's keys and its base alphabet; anything else fails with
// ErrInvalidLayout. Model characters missing from the layout contribute
// nothing.
func (e *Evaluator) Evaluate(l layout.Layout) (CostResult, error) {
	if err := e.validateLayout(l); err != nil {
		return CostResult{}, err
	}

	keys := e.cfg.Keys

	// Unigram pass: per-key, per-hand and per-finger loads.
	keyLoad := make([]float64, len(keys))
	var handLoad [2]float64
	var fingerLoad [2][5]float64
	for _, g := range e.unigrams {
		k, ok := l.KeyOf(g.r)
		if !ok {
			continue
		}
		keyLoad[k] += g.w
		handLoad[keys[k].Hand] += g.w
		fingerLoad[keys[k].Hand][keys[k].Finger] += g.w
	}

	var keyCost, unbalancing float64
	for k, load := range keyLoad {
		keyCost += load * keys[k].Cost
		unbalancing += load * keys[k].Unbalancing
	}

	handBalance := handLoad[layout.LeftHand] - handLoad[layout.RightHand]
	if handBalance < 0 {
		handBalance = -handBalance
	}

	// Quadratic concentration penalty: spreading load lowers it.
	var fingerConc float64
	for h := range fingerLoad {
		for f := range fingerLoad[h] {
			fingerConc += fingerLoad[h][f] * fingerLoad[h][f]
		}
	}

	// Bigram pass.
	var sameFinger, rowTravel, handAlternation, inwardRoll float64
	for _, g := range e.bigrams {
		k1, ok1 := l.KeyOf(g.a)
		k2, ok2 := l.KeyOf(g.b)
		if !ok1 || !ok2 {
			continue
		}
		a, b := keys[k1], keys[k2]

		if a.Hand != b.Hand {
			continue
		}
		handAlternation += g.w

		if a.Finger == b.Finger {
			if k1 != k2 {
				sameFinger += g.w * (1 + a.Pos.Distance(b.Pos))
			}
			continue
		}

		rows := a.Matrix.Row - b.Matrix.Row
		if rows < 0 {
			rows = -rows
		}
		if float64(rows) >= e.minRows {
			rowTravel += g.w * float64(rows) * float64(rows)
		}

		// Rolls: outward means moving away from the index finger.
		if a.Finger != layout.Thumb && b.Finger != layout.Thumb && b.Finger > a.Finger {
			inwardRoll += g.w
		}
	}

	// Trigram pass.
	var noHandswitch float64
	for _, g := range e.trigrams {
		k1, ok1 := l.KeyOf(g.a)
		k2, ok2 := l.KeyOf(g.b)
		k3, ok3 := l.KeyOf(g.c)
		if !ok1 || !ok2 || !ok3 {
			continue
		}
		a, b, c := keys[k1], keys[k2], keys[k3]
		if a.Hand != b.Hand || b.Hand != c.Hand {
			continue
		}
		cost := g.w
		d1 := b.Matrix.Col - a.Matrix.Col
		d2 := c.Matrix.Col - b.Matrix.Col
		if d1*d2 < 0 {
			cost *= e.redirectFactor
		}
		noHandswitch += cost
	}

	raw := map[string]float64{
		MetricKeyCost:         keyCost,
		MetricHandBalance:     handBalance,
		MetricFingerLoad:      fingerConc,
		MetricUnbalancing:     unbalancing,
		MetricSameFinger:      sameFinger,
		MetricRowTravel:       rowTravel,
		MetricHandAlternation: handAlternation,
		MetricInwardRoll:      inwardRoll,
		MetricNoHandswitch:    noHandswitch,
	}

	components := make([]Component, 0, len(e.params.Weights))
	weighted := make([]float64, 0, len(e.params.Weights))
	for _, name := range metricNames {
		w, ok := e.params.Weights[name]
		if !ok || w == 0 {
			continue
		}
		c := Component{Metric: name, Raw: raw[name], Weighted: raw[name] * w}
		components = append(components, c)
		weighted = append(weighted, c.Weighted)
	}

	return CostResult{
		Total:      floats.Sum(weighted),
		Components: components,
	}, nil
}

func (e *Evaluator) validateLayout(l layout.Layout) error {
	if l.Size() != e.cfg.KeyCount() {
		return fmt.Errorf("layout covers %d keys, keyboard has %d: %w", l.Size(), e.cfg.KeyCount(), layout.ErrInvalidLayout)
	}
	for _, r := range l.Runes() {
		if !e.alphabet[r] {
			return fmt.Errorf("character %q is not in the keyboard's alphabet: %w", r, layout.ErrInvalidLayout)
		}
	}
	return nil
}
