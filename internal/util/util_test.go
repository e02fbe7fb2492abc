package util

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestWrapError(t *testing.T) {
	if WrapError("do thing", nil) != nil {
		t.Error("WrapError(nil) != nil")
	}

	base := errors.New("boom")
	wrapped := WrapError("start encoder", base)
	if !errors.Is(wrapped, base) {
		t.Error("wrapped error lost its cause")
	}
	if got := wrapped.Error(); got != "failed to start encoder: boom" {
		t.Errorf("wrapped message = %q", got)
	}
}

func TestExtractLastError(t *testing.T) {
	tests := []struct {
		name     string
		stderr   string
		expected string
	}{
		{"empty", "", ""},
		{"whitespace only", "  \n\t\n", ""},
		{"single line", "device busy", "device busy"},
		{"last non-empty line", "warning: something\nerror: device busy\n\n", "error: device busy"},
		{"long line truncated", strings.Repeat("x", 250), strings.Repeat("x", 200) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractLastError(tt.stderr); got != tt.expected {
				t.Errorf("ExtractLastError() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestBackoff(t *testing.T) {
	b := NewBackoff(time.Second, 5*time.Second)

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Errorf("Next() call %d = %v, want %v", i+1, got, w)
		}
	}

	b.Reset()
	if got := b.Current(); got != time.Second {
		t.Errorf("Current() after Reset = %v, want 1s", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		ms       int64
		expected string
	}{
		{0, "0s"},
		{45_000, "45s"},
		{154_000, "2m 34s"},
		{4_980_000, "1h 23m"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.ms); got != tt.expected {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.ms, got, tt.expected)
		}
	}
}

func TestFormatHumanTime(t *testing.T) {
	if got := FormatHumanTime(""); got != "unknown" {
		t.Errorf("FormatHumanTime(\"\") = %q, want unknown", got)
	}
	if got := FormatHumanTime("unknown"); got != "unknown" {
		t.Errorf("FormatHumanTime(unknown) = %q", got)
	}
	if got := FormatHumanTime("not a timestamp"); got != "not a timestamp" {
		t.Errorf("unparseable input = %q, want passthrough", got)
	}
	if got := FormatHumanTime("2026-03-01T12:00:00Z"); got == "unknown" || got == "" {
		t.Errorf("valid timestamp formatted as %q", got)
	}
}
