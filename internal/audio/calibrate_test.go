package audio

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBaselineFrom(t *testing.T) {
	tests := []struct {
		name     string
		samples  []float64
		expected float64
	}{
		{"empty set yields floor", nil, 1},
		{"all zero yields floor", []float64{0, 0, 0}, 1},
		{"mean of samples", []float64{10, 20, 30}, 20},
		{"single sample", []float64{42}, 42},
		{"sub-floor mean is kept", []float64{0.25, 0.75}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BaselineFrom(tt.samples); got != tt.expected {
				t.Errorf("BaselineFrom(%v) = %v, want %v", tt.samples, got, tt.expected)
			}
		})
	}
}

func TestCalibratorRun(t *testing.T) {
	c := NewCalibrator(100*time.Millisecond, 10*time.Millisecond)

	baseline, err := c.Run(context.Background(), func() float64 { return 12 })
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if baseline != 12 {
		t.Errorf("baseline = %v, want 12", baseline)
	}
}

func TestCalibratorRunSilentInput(t *testing.T) {
	c := NewCalibrator(60*time.Millisecond, 10*time.Millisecond)

	baseline, err := c.Run(context.Background(), func() float64 { return 0 })
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if baseline != MinBaseline {
		t.Errorf("baseline = %v, want floor %v for silent input", baseline, MinBaseline)
	}
}

func TestCalibratorCancellation(t *testing.T) {
	c := NewCalibrator(10*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := c.Run(ctx, func() float64 { return 5 })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancellation took %v, should abort promptly", elapsed)
	}
}
