package session

import "testing"

func TestScriptCursor(t *testing.T) {
	var s ScriptCursor

	if got := s.Line(); got != 0 {
		t.Errorf("initial Line() = %d, want 0", got)
	}

	if got := s.Next(); got != 1 {
		t.Errorf("Next() = %d, want 1", got)
	}
	s.Next()
	if got := s.Prev(); got != 1 {
		t.Errorf("Prev() = %d, want 1", got)
	}

	// The cursor floors at the first line.
	s.Prev()
	if got := s.Prev(); got != 0 {
		t.Errorf("Prev() below zero = %d, want 0", got)
	}

	s.Next()
	s.Reset()
	if got := s.Line(); got != 0 {
		t.Errorf("Line() after Reset = %d, want 0", got)
	}
}
