// Package audio provides level analysis, ambient-noise calibration, and the
// silence gating primitives that drive automatic pause/resume.
package audio

import (
	"encoding/binary"
	"math"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/quietcut/quietcut/internal/types"
)

// maxSampleValue is the maximum absolute value for 16-bit signed audio.
const maxSampleValue = 32768.0

// fftWindow is the transform window in samples; a fixed power of two that
// yields types.SpectrumBins frequency bins.
const fftWindow = 2 * types.SpectrumBins

// Analyser converts live S16LE mono PCM into a frequency-bin magnitude
// snapshot, each bin scaled to the 0-255 byte range.
// It is safe for concurrent use.
type Analyser struct {
	mu       sync.RWMutex
	fft      *fourier.FFT
	window   []float64 // sliding window of the most recent samples
	filled   int       // samples accumulated so far, capped at fftWindow
	spectrum []byte    // latest bin magnitudes; nil until the window fills
}

// NewAnalyser creates an analyser with the fixed transform window.
func NewAnalyser() *Analyser {
	return &Analyser{
		fft:    fourier.NewFFT(fftWindow),
		window: make([]float64, fftWindow),
	}
}

// ProcessPCM feeds raw S16LE mono PCM into the sliding window and refreshes
// the spectrum snapshot. Called from the capture reader goroutine.
func (a *Analyser) ProcessPCM(buf []byte, n int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := 0; i+1 < n; i += 2 {
		sample := int16(binary.LittleEndian.Uint16(buf[i:]))
		if a.filled < fftWindow {
			a.window[a.filled] = float64(sample)
			a.filled++
		} else {
			copy(a.window, a.window[1:])
			a.window[fftWindow-1] = float64(sample)
		}
	}

	if a.filled < fftWindow {
		return
	}

	coeffs := a.fft.Coefficients(nil, a.window)

	spectrum := make([]byte, types.SpectrumBins)
	for bin := range types.SpectrumBins {
		// Coefficient magnitude normalized back to sample amplitude,
		// then scaled to the 0-255 byte range.
		amp := cmplx.Abs(coeffs[bin]) / (fftWindow / 2)
		scaled := math.Round(amp / maxSampleValue * 255)
		if scaled > 255 {
			scaled = 255
		}
		spectrum[bin] = byte(scaled)
	}
	a.spectrum = spectrum
}

// Spectrum returns the latest bin magnitudes, or nil when no full window has
// been analysed yet.
func (a *Analyser) Spectrum() []byte {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.spectrum
}

// Reset discards the window and spectrum for a fresh session.
func (a *Analyser) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.filled = 0
	a.spectrum = nil
}
