// Package eval scores layouts against an n-gram model using weighted,
// independently computed metrics.
package eval

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrUnknownMetric is returned when params name a metric or threshold the
// evaluator does not recognize.
// Use errors.Is(err, ErrUnknownMetric) to check for this error.
var ErrUnknownMetric = errors.New("unknown metric")

// Recognized metric names. Unigram metrics read per-key loads, bigram metrics
// read key transitions, trigram metrics read three-key patterns.
const (
	MetricKeyCost         = "key_cost"
	MetricHandBalance     = "hand_balance"
	MetricFingerLoad      = "finger_load"
	MetricUnbalancing     = "unbalancing"
	MetricSameFinger      = "same_finger"
	MetricRowTravel       = "row_travel"
	MetricHandAlternation = "hand_alternation"
	MetricInwardRoll      = "inward_roll"
	MetricNoHandswitch    = "no_handswitch"
)

// metricNames lists every recognized metric in evaluation order. The order is
// fixed so that cost breakdowns and totals are reproducible bit for bit.
var metricNames = []string{
	MetricKeyCost,
	MetricHandBalance,
	MetricFingerLoad,
	MetricUnbalancing,
	MetricSameFinger,
	MetricRowTravel,
	MetricHandAlternation,
	MetricInwardRoll,
	MetricNoHandswitch,
}

// Recognized threshold names.
const (
	// ThresholdRowTravelMinRows is the smallest row jump row_travel penalizes.
	ThresholdRowTravelMinRows = "row_travel_min_rows"
	// ThresholdRedirectFactor multiplies no_handswitch cost when the column
	// direction reverses inside the trigram.
	ThresholdRedirectFactor = "no_handswitch_redirect_factor"
)

var thresholdNames = []string{
	ThresholdRowTravelMinRows,
	ThresholdRedirectFactor,
}

// Params selects and weights metrics. A metric with weight zero (or absent
// from Weights) is disabled. Thresholds tune individual metrics; unset
// thresholds take documented defaults.
type Params struct {
	Weights    map[string]float64 `yaml:"weights"`
	Thresholds map[string]float64 `yaml:"thresholds,omitempty"`
}

// DefaultParams returns the standard metric weighting.
func DefaultParams() Params {
	return Params{
		Weights: map[string]float64{
			MetricKeyCost:         1.0,
			MetricHandBalance:     0.5,
			MetricFingerLoad:      0.5,
			MetricUnbalancing:     0.25,
			MetricSameFinger:      3.0,
			MetricRowTravel:       1.0,
			MetricHandAlternation: 0.5,
			MetricInwardRoll:      1.0,
			MetricNoHandswitch:    0.5,
		},
	}
}

// LoadParams reads evaluation params from a YAML file.
func LoadParams(path string) (Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Params{}, fmt.Errorf("failed to read eval params: %w", err)
	}
	return ParseParams(data)
}

// ParseParams parses and validates YAML evaluation params.
func ParseParams(data []byte) (Params, error) {
	var p Params
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Params{}, fmt.Errorf("failed to parse eval params: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Validate checks that every named metric and threshold is recognized.
func (p Params) Validate() error {
	for name := range p.Weights {
		if !knownMetric(name) {
			return fmt.Errorf("weight for %q: %w", name, ErrUnknownMetric)
		}
	}
	for name := range p.Thresholds {
		if !knownThreshold(name) {
			return fmt.Errorf("threshold %q: %w", name, ErrUnknownMetric)
		}
	}
	return nil
}

func knownMetric(name string) bool {
	for _, m := range metricNames {
		if m == name {
			return true
		}
	}
	return false
}

func knownThreshold(name string) bool {
	for _, t := range thresholdNames {
		if t == name {
			return true
		}
	}
	return false
}

// threshold returns the configured threshold value, or the default.
func (p Params) threshold(name string, def float64) float64 {
	if v, ok := p.Thresholds[name]; ok {
		return v
	}
	return def
}
