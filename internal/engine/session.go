package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/Lykos153/keyboard-layout-optimizer/internal/eval"
	"github.com/Lykos153/keyboard-layout-optimizer/internal/layout"
	"github.com/Lykos153/keyboard-layout-optimizer/internal/ngram"
	"github.com/Lykos153/keyboard-layout-optimizer/internal/opt"
)

// ErrNotInitialized is returned when a session operation runs before the
// handles it depends on exist. Use errors.Is to check for it.
var ErrNotInitialized = errors.New("not initialized")

// Session owns the state of one optimization workflow: at most one n-gram
// model, one evaluator and one generational optimizer. Initialization runs
// model → evaluator → search; calls out of order fail with
// ErrNotInitialized, and a failed init leaves the previous handle in place.
//
// A Session is not safe for concurrent use. Run one session per search.
type Session struct {
	model   *ngram.Model
	ev      *eval.Evaluator
	gen     *opt.Generational
	observe opt.Observer
}

// New returns an empty session.
func New() *Session {
	return &Session{}
}

// SetObserver installs a progress callback forwarded to every search this
// session runs. Pass nil to remove it. The callback fires synchronously on
// the searching goroutine and must not block.
func (s *Session) SetObserver(observe opt.Observer) {
	s.observe = observe
}

// InitModelFromTables replaces the session model with one built from
// explicit n-gram frequency tables.
func (s *Session) InitModelFromTables(p ngram.Params, unigrams, bigrams, trigrams ngram.Table) error {
	m, err := ngram.FromTables(p, unigrams, bigrams, trigrams)
	if err != nil {
		return fmt.Errorf("failed to build n-gram model: %w", err)
	}
	s.model = m
	return nil
}

// InitModelFromText replaces the session model with one counted from raw
// corpus text.
func (s *Session) InitModelFromText(p ngram.Params, text string) error {
	m, err := ngram.FromText(p, text)
	if err != nil {
		return fmt.Errorf("failed to build n-gram model: %w", err)
	}
	s.model = m
	return nil
}

// InitEvaluator replaces the session evaluator with one scoring against the
// given keyboard and metric params, backed by the session model.
func (s *Session) InitEvaluator(cfg *layout.Config, params eval.Params) error {
	if s.model == nil {
		return fmt.Errorf("no n-gram model loaded: %w", ErrNotInitialized)
	}
	ev, err := eval.New(cfg, params, s.model)
	if err != nil {
		return fmt.Errorf("failed to build evaluator: %w", err)
	}
	s.ev = ev
	return nil
}

// Model returns the session's n-gram model.
func (s *Session) Model() (*ngram.Model, error) {
	if s.model == nil {
		return nil, fmt.Errorf("no n-gram model loaded: %w", ErrNotInitialized)
	}
	return s.model, nil
}

// Evaluator returns the session's evaluator.
func (s *Session) Evaluator() (*eval.Evaluator, error) {
	if s.ev == nil {
		return nil, fmt.Errorf("no evaluator configured: %w", ErrNotInitialized)
	}
	return s.ev, nil
}

// EvalResult pairs a layout with its cost breakdown.
type EvalResult struct {
	Layout layout.Layout
	Cost   eval.CostResult
}

// Evaluate scores one layout and echoes it back alongside the breakdown.
func (s *Session) Evaluate(l layout.Layout) (EvalResult, error) {
	if s.ev == nil {
		return EvalResult{}, fmt.Errorf("no evaluator configured: %w", ErrNotInitialized)
	}
	cost, err := s.ev.Evaluate(l)
	if err != nil {
		return EvalResult{}, err
	}
	return EvalResult{Layout: l, Cost: cost}, nil
}

// PermutableKeys returns the key indices a search may permute.
func (s *Session) PermutableKeys() ([]int, error) {
	if s.ev == nil {
		return nil, fmt.Errorf("no evaluator configured: %w", ErrNotInitialized)
	}
	return s.ev.PermutableKeys(), nil
}

// Run executes a one-shot search strategy against the session evaluator.
func (s *Session) Run(ctx context.Context, seed layout.Layout, search opt.Search, fixedChars []rune) (*opt.Result, error) {
	if s.ev == nil {
		return nil, fmt.Errorf("no evaluator configured: %w", ErrNotInitialized)
	}
	return search.Run(ctx, seed, s.ev, fixedChars, s.observe)
}

// RunAnnealing runs simulated annealing from the seed layout.
func (s *Session) RunAnnealing(ctx context.Context, seed layout.Layout, p opt.AnnealParams, fixedChars []rune) (*opt.Result, error) {
	return s.Run(ctx, seed, p, fixedChars)
}

// RunMayfly runs the mayfly swarm from the seed layout.
func (s *Session) RunMayfly(ctx context.Context, seed layout.Layout, p opt.MayflyParams, fixedChars []rune) (*opt.Result, error) {
	return s.Run(ctx, seed, p, fixedChars)
}

// InitGenerational replaces any previous generational optimizer with a fresh
// one seeded from the given layout, and returns the resolved params the run
// will use.
func (s *Session) InitGenerational(seed layout.Layout, p opt.GenerationalParams, fixedChars []rune) (opt.GenerationalParams, error) {
	if s.ev == nil {
		return p, fmt.Errorf("no evaluator configured: %w", ErrNotInitialized)
	}
	gen, resolved, err := opt.NewGenerational(seed, p, s.ev, fixedChars)
	if err != nil {
		return resolved, fmt.Errorf("failed to initialize generational search: %w", err)
	}
	s.gen = gen
	return resolved, nil
}

// Step advances the generational search by one generation.
func (s *Session) Step() (opt.StepResult, error) {
	if s.gen == nil {
		return opt.StepResult{}, fmt.Errorf("no generational search initialized: %w", ErrNotInitialized)
	}
	return s.gen.Step()
}

// Generational returns the live generational optimizer handle.
func (s *Session) Generational() (*opt.Generational, error) {
	if s.gen == nil {
		return nil, fmt.Errorf("no generational search initialized: %w", ErrNotInitialized)
	}
	return s.gen, nil
}
