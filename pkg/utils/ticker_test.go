package utils

import "testing"

func TestNormalizeTicker(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"aapl", "AAPL"},
		{"  msft  ", "MSFT"},
		{"$NVDA", "NVDA"},
		{"brk.b", "BRK-B"},
		{"BRK/A", "BRK-A"},
		{"BRK-B", "BRK-B"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := NormalizeTicker(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeTicker(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizeTickers(t *testing.T) {
	got := NormalizeTickers([]string{"aapl", " ", "brk.b"})
	if len(got) != 2 || got[0] != "AAPL" || got[1] != "BRK-B" {
		t.Errorf("NormalizeTickers = %q", got)
	}
}

func TestFormatAccession(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"000032019324000123", "0000320193-24-000123"},
		{"0000320193-24-000123", "0000320193-24-000123"},
		{"short", "short"},
	}
	for _, tt := range tests {
		if got := FormatAccession(tt.input); got != tt.expected {
			t.Errorf("FormatAccession(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
