package audio

import (
	"encoding/binary"
	"testing"

	"github.com/quietcut/quietcut/internal/types"
)

// pcmConstant builds S16LE mono PCM holding the same sample value n times.
func pcmConstant(value int16, n int) []byte {
	buf := make([]byte, n*2)
	for i := range n {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(value))
	}
	return buf
}

func TestAnalyserSpectrumNilUntilWindowFills(t *testing.T) {
	a := NewAnalyser()

	buf := pcmConstant(1000, fftWindow-1)
	a.ProcessPCM(buf, len(buf))

	if got := a.Spectrum(); got != nil {
		t.Errorf("Spectrum() = %v before full window, want nil", got)
	}

	more := pcmConstant(1000, 1)
	a.ProcessPCM(more, len(more))

	if got := a.Spectrum(); got == nil {
		t.Error("Spectrum() still nil after full window")
	}
}

func TestAnalyserDCSignal(t *testing.T) {
	a := NewAnalyser()

	// A constant signal concentrates all energy in bin 0. Half the int16
	// range doubles through the transform normalization and saturates the
	// byte scale.
	buf := pcmConstant(16384, fftWindow)
	a.ProcessPCM(buf, len(buf))

	spectrum := a.Spectrum()
	if len(spectrum) != types.SpectrumBins {
		t.Fatalf("len(spectrum) = %d, want %d", len(spectrum), types.SpectrumBins)
	}
	if spectrum[0] != 255 {
		t.Errorf("bin 0 = %d, want 255", spectrum[0])
	}
	for bin := 1; bin < types.SpectrumBins; bin++ {
		if spectrum[bin] != 0 {
			t.Errorf("bin %d = %d, want 0 for a constant signal", bin, spectrum[bin])
		}
	}
}

func TestAnalyserSilence(t *testing.T) {
	a := NewAnalyser()

	buf := pcmConstant(0, fftWindow)
	a.ProcessPCM(buf, len(buf))

	for bin, magnitude := range a.Spectrum() {
		if magnitude != 0 {
			t.Errorf("bin %d = %d, want 0 for silence", bin, magnitude)
		}
	}
}

func TestAnalyserReset(t *testing.T) {
	a := NewAnalyser()

	buf := pcmConstant(5000, fftWindow)
	a.ProcessPCM(buf, len(buf))
	if a.Spectrum() == nil {
		t.Fatal("expected a spectrum before reset")
	}

	a.Reset()
	if got := a.Spectrum(); got != nil {
		t.Errorf("Spectrum() = %v after Reset, want nil", got)
	}

	// The window must refill from scratch after a reset.
	partial := pcmConstant(5000, fftWindow-1)
	a.ProcessPCM(partial, len(partial))
	if got := a.Spectrum(); got != nil {
		t.Errorf("Spectrum() = %v on partial refill after Reset, want nil", got)
	}
}

func TestAnalyserOddByteTail(t *testing.T) {
	a := NewAnalyser()

	// A trailing odd byte is not a complete sample and must be ignored.
	buf := append(pcmConstant(100, 4), 0x7f)
	a.ProcessPCM(buf, len(buf))

	if a.Spectrum() != nil {
		t.Error("partial window produced a spectrum")
	}
}
