package audio

// SpectrumSource provides the most recent frequency-bin magnitudes of a live
// audio signal, each bin scaled to the 0-255 byte range.
type SpectrumSource interface {
	Spectrum() []byte
}

// LevelMeter samples the average magnitude of a live signal's spectrum.
type LevelMeter struct {
	source SpectrumSource
}

// NewLevelMeter creates a meter reading from the given spectrum source.
func NewLevelMeter(source SpectrumSource) *LevelMeter {
	return &LevelMeter{source: source}
}

// Sample returns the arithmetic mean of the current frequency-bin magnitudes.
// Returns 0 when the source exposes no bins (disconnected or malformed
// signal); callers treat 0 specially during calibration. No side effects,
// safe to call at analysis-loop cadence.
func (m *LevelMeter) Sample() float64 {
	bins := m.source.Spectrum()
	if len(bins) == 0 {
		return 0
	}

	var sum float64
	for _, bin := range bins {
		sum += float64(bin)
	}
	return sum / float64(len(bins))
}
