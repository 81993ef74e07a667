package eval

import (
	"errors"
	"testing"
)

func TestParseParams(t *testing.T) {
	data := []byte(`
weights:
  key_cost: 1.5
  same_finger: 4.0
thresholds:
  row_travel_min_rows: 2
`)

	p, err := ParseParams(data)
	if err != nil {
		t.Fatalf("ParseParams failed: %v", err)
	}

	if p.Weights[MetricKeyCost] != 1.5 {
		t.Errorf("Expected key_cost weight 1.5, got %g", p.Weights[MetricKeyCost])
	}
	if p.Thresholds[ThresholdRowTravelMinRows] != 2 {
		t.Errorf("Expected threshold 2, got %g", p.Thresholds[ThresholdRowTravelMinRows])
	}
}

func TestParseParamsUnknownMetric(t *testing.T) {
	data := []byte(`
weights:
  comfort: 1.0
`)

	_, err := ParseParams(data)
	if err == nil {
		t.Fatal("Expected error for unknown metric name")
	}
	if !errors.Is(err, ErrUnknownMetric) {
		t.Errorf("Expected ErrUnknownMetric, got %v", err)
	}
}

func TestDefaultParamsValid(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("Default params must validate: %v", err)
	}
	if len(DefaultParams().Weights) != len(metricNames) {
		t.Errorf("Expected defaults to enable all %d metrics", len(metricNames))
	}
}
