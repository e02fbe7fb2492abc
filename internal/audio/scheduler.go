package audio

import (
	"sync"
	"time"

	"github.com/quietcut/quietcut/internal/types"
)

// PauseDelay maps a tightness setting to the effective debounce delay.
// Tightness is clamped to [MinTightness, MaxTightness] and the result is
// clamped to at least one analysis tick, so no configuration can produce a
// non-positive delay.
func PauseDelay(tightness int) time.Duration {
	tightness = ClampTightness(tightness)
	delay := types.BasePauseDelay - time.Duration(tightness)*types.TightnessStep
	if delay < types.AnalysisTickInterval {
		delay = types.AnalysisTickInterval
	}
	return delay
}

// ClampTightness bounds a tightness value to the supported range.
func ClampTightness(tightness int) int {
	if tightness < types.MinTightness {
		return types.MinTightness
	}
	if tightness > types.MaxTightness {
		return types.MaxTightness
	}
	return tightness
}

// PauseScheduler converts sustained silence into debounced pause decisions
// and loud audio into immediate resume decisions. The debounce is tracked as
// a timestamp rather than a timer, so cancellation is a plain state reset and
// nothing can fire after the analysis loop stops.
// It is safe for concurrent use.
type PauseScheduler struct {
	mu           sync.Mutex
	pendingSince time.Time // when the current silent run started; zero when nothing is armed
}

// NewPauseScheduler creates a new pause scheduler.
func NewPauseScheduler() *PauseScheduler {
	return &PauseScheduler{}
}

// Observe processes one analysis tick and returns the decision for it.
//
// While Recording: a Silent sample arms the debounce window; any non-Silent
// sample cancels it (Neutral cancels too, favoring caution over premature
// cuts); once the window has been armed for at least delay, DecisionPause is
// emitted and the window resets. The cancellation check runs before arming,
// so a Silent-Loud-Silent flicker within one window cannot stack timers.
//
// While Paused: a Loud sample yields DecisionResume immediately, with no
// debounce. Resuming fast beats clipping the start of speech.
//
// Any other state clears pending and yields DecisionNone.
func (s *PauseScheduler) Observe(state types.SessionState, class types.Classification, delay time.Duration, now time.Time) types.Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch state {
	case types.StateRecording:
		if class != types.ClassSilent {
			s.pendingSince = time.Time{}
			return types.DecisionNone
		}
		if s.pendingSince.IsZero() {
			s.pendingSince = now
			return types.DecisionNone
		}
		if now.Sub(s.pendingSince) >= delay {
			s.pendingSince = time.Time{}
			return types.DecisionPause
		}
		return types.DecisionNone

	case types.StatePaused:
		s.pendingSince = time.Time{}
		if class == types.ClassLoud {
			return types.DecisionResume
		}
		return types.DecisionNone

	default:
		s.pendingSince = time.Time{}
		return types.DecisionNone
	}
}

// Pending reports whether a debounce window is currently armed.
func (s *PauseScheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.pendingSince.IsZero()
}

// Reset clears any armed debounce window.
func (s *PauseScheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingSince = time.Time{}
}
