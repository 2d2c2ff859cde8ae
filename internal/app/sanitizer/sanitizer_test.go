package sanitizer

import "testing"

func TestSanitizeMultiline(t *testing.T) {
	s := New(MultilineConfig())
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain", input: "3 rooms free", expected: "3 rooms free"},
		{name: "color codes", input: "\x1b[31mred\x1b[0m text", expected: "red text"},
		{name: "cursor movement", input: "\x1b[10;20Hposition", expected: "position"},
		{name: "osc title", input: "\x1b]0;pwned\x07title", expected: "title"},
		{name: "orphaned mouse", input: "hello[<65;113;33Mworld", expected: "helloworld"},
		{name: "keeps newlines", input: "a\r\nb\nc", expected: "a\nb\nc"},
		{name: "tabs become spaces", input: "a\tb", expected: "a b"},
		{name: "drops bell and nul", input: "a\x07b\x00c", expected: "abc"},
		{name: "unicode", input: "छात्र 42", expected: "छात्र 42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Sanitize(tt.input); got != tt.expected {
				t.Fatalf("Sanitize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSanitizeSingleLine(t *testing.T) {
	s := New(SingleLineConfig())
	if got := s.Sanitize("delete\nstudent\r\nramesh"); got != "delete student ramesh" {
		t.Fatalf("unexpected single line: %q", got)
	}
}

func TestSanitizeMaxRunes(t *testing.T) {
	s := New(Config{AllowNewlines: true, MaxRunes: 3})
	if got := s.Sanitize("ह्हिabc"); got != "ह्ह" {
		t.Fatalf("expected rune-safe truncation, got %q", got)
	}
}
