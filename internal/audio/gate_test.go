package audio

import (
	"testing"

	"github.com/quietcut/quietcut/internal/types"
)

func TestClassify(t *testing.T) {
	gate := DefaultGateConfig()

	tests := []struct {
		name     string
		volume   float64
		baseline float64
		expected types.Classification
	}{
		{
			name:     "well below silence threshold",
			volume:   5,
			baseline: 10,
			expected: types.ClassSilent,
		},
		{
			name:     "just below silence threshold",
			volume:   19.99,
			baseline: 10,
			expected: types.ClassSilent,
		},
		{
			name:     "exactly at silence threshold is not silent",
			volume:   20,
			baseline: 10,
			expected: types.ClassNeutral,
		},
		{
			name:     "inside dead zone",
			volume:   22,
			baseline: 10,
			expected: types.ClassNeutral,
		},
		{
			name:     "exactly at loud threshold is not loud",
			volume:   25,
			baseline: 10,
			expected: types.ClassNeutral,
		},
		{
			name:     "just above loud threshold",
			volume:   25.01,
			baseline: 10,
			expected: types.ClassLoud,
		},
		{
			name:     "well above loud threshold",
			volume:   200,
			baseline: 10,
			expected: types.ClassLoud,
		},
		{
			name:     "zero volume at minimum baseline",
			volume:   0,
			baseline: 1,
			expected: types.ClassSilent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := gate.Classify(tt.volume, tt.baseline)
			if got != tt.expected {
				t.Errorf("Classify(%v, %v) = %v, want %v", tt.volume, tt.baseline, got, tt.expected)
			}
		})
	}
}

// The silent and loud regions must never overlap for any volume, so a single
// sample can never be both.
func TestClassifyMutualExclusivity(t *testing.T) {
	gate := DefaultGateConfig()
	baseline := 10.0

	for volume := 0.0; volume <= 50; volume += 0.25 {
		class := gate.Classify(volume, baseline)
		silent := volume < baseline*gate.SilenceMultiplier
		loud := volume > baseline*gate.SoundMultiplier

		if silent && loud {
			t.Fatalf("thresholds overlap at volume %v", volume)
		}
		if silent && class != types.ClassSilent {
			t.Errorf("volume %v: expected silent, got %v", volume, class)
		}
		if loud && class != types.ClassLoud {
			t.Errorf("volume %v: expected loud, got %v", volume, class)
		}
		if !silent && !loud && class != types.ClassNeutral {
			t.Errorf("volume %v: expected neutral, got %v", volume, class)
		}
	}
}
