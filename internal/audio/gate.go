package audio

import (
	"github.com/quietcut/quietcut/internal/types"
)

// GateConfig holds the multiplicative thresholds for the hysteresis gate.
type GateConfig struct {
	SilenceMultiplier float64 // volume below baseline*this is silent
	SoundMultiplier   float64 // volume above baseline*this is loud
}

// DefaultGateConfig returns the reference gate thresholds.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		SilenceMultiplier: types.SilenceMultiplier,
		SoundMultiplier:   types.SoundMultiplier,
	}
}

// Classify compares a volume sample against the calibrated baseline.
// Silent and Loud use two distinct multipliers; the gap between them is a
// dead zone that prevents oscillation when the level hovers near a single
// cutoff. Pure function, deterministic for any pair of inputs.
func (g GateConfig) Classify(volume, baseline float64) types.Classification {
	switch {
	case volume < baseline*g.SilenceMultiplier:
		return types.ClassSilent
	case volume > baseline*g.SoundMultiplier:
		return types.ClassLoud
	default:
		return types.ClassNeutral
	}
}
