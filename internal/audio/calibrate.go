package audio

import (
	"context"
	"time"
)

// SampleFunc returns the current average volume of the live signal.
type SampleFunc func() float64

// MinBaseline is the floor for the calibrated baseline. A zero baseline would
// make the silence test vacuously true for all subsequent audio.
const MinBaseline = 1.0

// BaselineFrom computes the ambient-noise baseline as the arithmetic mean of
// the collected samples. An empty set or an all-zero mean yields MinBaseline.
func BaselineFrom(samples []float64) float64 {
	if len(samples) == 0 {
		return MinBaseline
	}

	var sum float64
	for _, s := range samples {
		sum += s
	}

	mean := sum / float64(len(samples))
	if mean == 0 {
		return MinBaseline
	}
	return mean
}

// Calibrator measures ambient noise by polling a level source at a fixed
// interval over a fixed window.
type Calibrator struct {
	window   time.Duration
	interval time.Duration
}

// NewCalibrator creates a calibrator with the given window and poll interval.
func NewCalibrator(window, interval time.Duration) *Calibrator {
	return &Calibrator{window: window, interval: interval}
}

// Run polls sample until the window elapses and returns the baseline.
// Context cancellation aborts calibration: the partial sample set is
// discarded and ctx.Err is returned.
func (c *Calibrator) Run(ctx context.Context, sample SampleFunc) (float64, error) {
	samples := make([]float64, 0, int(c.window/c.interval)+1)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	deadline := time.NewTimer(c.window)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.C:
			samples = append(samples, sample())
		case <-deadline.C:
			return BaselineFrom(samples), nil
		}
	}
}
