package session

import "sync"

// ScriptCursor tracks the current line in the talent's script. It is a plain
// index with a floor at zero; the client supplies the script text itself.
type ScriptCursor struct {
	mu   sync.Mutex
	line int
}

// Line returns the current line index.
func (s *ScriptCursor) Line() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.line
}

// Next advances the cursor and returns the new line index.
func (s *ScriptCursor) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.line++
	return s.line
}

// Prev moves the cursor back one line, never below zero, and returns the new
// line index.
func (s *ScriptCursor) Prev() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.line > 0 {
		s.line--
	}
	return s.line
}

// Reset returns the cursor to the first line.
func (s *ScriptCursor) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.line = 0
}
