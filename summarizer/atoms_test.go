package summarizer

import (
	"reflect"
	"strings"
	"testing"
)

func TestNormalizeWhitespace(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"only spaces", "   ", ""},
		{"collapses runs", "a  b\t\tc", "a b c"},
		{"newlines", "line one\nline two\r\nline three", "line one line two line three"},
		{"trims edges", "  hello  ", "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeWhitespace(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeWhitespace(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "basic",
			input: "First sentence. Second sentence! Third sentence?",
			want:  []string{"First sentence.", "Second sentence!", "Third sentence?"},
		},
		{
			name:  "decimal not a boundary",
			input: "Pi is roughly 3.14 in value. The end.",
			want:  []string{"Pi is roughly 3.14 in value.", "The end."},
		},
		{
			name:  "no terminal punctuation",
			input: "a trailing fragment",
			want:  []string{"a trailing fragment"},
		},
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSentences(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitSentences(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTokenizeWords(t *testing.T) {
	got := TokenizeWords("The dragon's lair, ancient and DARK!")
	want := []string{"the", "dragon", "s", "lair", "ancient", "and", "dark"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TokenizeWords() = %v, want %v", got, want)
	}
}

func TestIsStopword(t *testing.T) {
	if !IsStopword("the") {
		t.Error("Expected 'the' to be a stopword")
	}
	if IsStopword("dragon") {
		t.Error("Expected 'dragon' not to be a stopword")
	}
}

func TestTruncateWords(t *testing.T) {
	input := "one two three four five"

	got := TruncateWords(input, 3)
	if got != "one two three"+Ellipsis {
		t.Errorf("TruncateWords() = %q, want %q", got, "one two three"+Ellipsis)
	}

	// Under the limit the text passes through untouched
	got = TruncateWords(input, 10)
	if got != input {
		t.Errorf("TruncateWords() = %q, want %q", got, input)
	}

	got = TruncateWords(input, 5)
	if strings.HasSuffix(got, Ellipsis) {
		t.Errorf("TruncateWords() at exact limit should not append ellipsis, got %q", got)
	}
}
