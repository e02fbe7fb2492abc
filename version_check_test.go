package main

import "testing"

func TestNormalizeVersion(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"v1.2.3", "1.2.3"},
		{"1.2.3", "1.2.3"},
		{" v2.0.0 ", "2.0.0"},
		{"dev", "dev"},
	}

	for _, tt := range tests {
		if got := normalizeVersion(tt.input); got != tt.expected {
			t.Errorf("normalizeVersion(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestIsNewerVersion(t *testing.T) {
	tests := []struct {
		name     string
		latest   string
		current  string
		expected bool
	}{
		{"patch update", "1.0.1", "1.0.0", true},
		{"minor update", "1.1.0", "1.0.9", true},
		{"major update", "2.0.0", "1.9.9", true},
		{"same version", "1.0.0", "1.0.0", false},
		{"older release", "1.0.0", "1.1.0", false},
		{"dev build never newer than release check", "1.0.0", "dev", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNewerVersion(tt.latest, tt.current); got != tt.expected {
				t.Errorf("isNewerVersion(%q, %q) = %v, want %v", tt.latest, tt.current, got, tt.expected)
			}
		})
	}
}
