// Package reference holds the per-feature reference samples drawn from
// training data. Loaded once at service start and immutable afterwards, so
// concurrent readers need no locking.
package reference

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

// DefaultMinSamples is the smallest reference sample that still yields a
// statistically meaningful two-sample test.
const DefaultMinSamples = 30

var (
	// ErrUnknownFeature reports a feature with no loaded reference sample.
	ErrUnknownFeature = errors.New("no reference sample for feature")
	// ErrConfig reports a reference artifact that cannot back drift
	// detection: missing, corrupt, or with an undersized sample.
	ErrConfig = errors.New("invalid reference distribution")
)

// Manager owns the loaded reference samples for the life of the process.
type Manager struct {
	samples map[string][]float64
}

// Load builds a Manager from per-feature samples. Each sample must have at
// least minSamples observations (DefaultMinSamples when minSamples <= 0).
// Samples are copied and kept sorted ascending, the form the drift test
// consumes.
func Load(samples map[string][]float64, minSamples int) (*Manager, error) {
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no features", ErrConfig)
	}
	owned := make(map[string][]float64, len(samples))
	for name, sample := range samples {
		if len(sample) < minSamples {
			return nil, fmt.Errorf("%w: feature %q has %d observations, need %d",
				ErrConfig, name, len(sample), minSamples)
		}
		cp := append([]float64(nil), sample...)
		sort.Float64s(cp)
		owned[name] = cp
	}
	return &Manager{samples: owned}, nil
}

// LoadFile reads the JSON reference artifact exported by the training job:
// a mapping from feature name to the historical sample.
func LoadFile(path string, minSamples int) (*Manager, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrConfig, path, err)
	}
	var samples map[string][]float64
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrConfig, path, err)
	}
	return Load(samples, minSamples)
}

// Sample returns the sorted reference sample for a feature. The returned
// slice is shared and must be treated as read-only.
func (m *Manager) Sample(name string) ([]float64, error) {
	s, ok := m.samples[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, name)
	}
	return s, nil
}

// Features returns the monitored feature names, sorted.
func (m *Manager) Features() []string {
	out := make([]string, 0, len(m.samples))
	for name := range m.samples {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
