// Package summarizer provides a deterministic extractive summarizer: it
// selects whole sentences from the input, it never paraphrases. This is the
// last tier of the summary pipeline and has no dependencies or I/O.
package summarizer

import (
	"strings"
	"unicode"
)

// Ellipsis is appended when a single long sentence is truncated.
const Ellipsis = "..."

// stopwords are excluded from frequency scoring. Fixed small set of common
// English function words.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "her": {}, "was": {}, "one": {},
	"our": {}, "out": {}, "has": {}, "had": {}, "get": {}, "him": {},
	"his": {}, "how": {}, "man": {}, "new": {}, "now": {}, "old": {},
	"see": {}, "two": {}, "way": {}, "who": {}, "did": {}, "its": {},
	"let": {}, "she": {}, "too": {}, "use": {}, "that": {}, "with": {},
	"have": {}, "this": {}, "will": {}, "your": {}, "from": {},
	"they": {}, "been": {}, "were": {}, "said": {}, "each": {},
	"which": {}, "their": {}, "there": {}, "would": {}, "about": {},
	"could": {}, "other": {}, "these": {}, "those": {}, "then": {},
	"them": {}, "than": {}, "when": {}, "what": {}, "into": {},
	"some": {}, "very": {}, "just": {}, "over": {}, "also": {},
}

// NormalizeWhitespace collapses all runs of whitespace (including newlines)
// into single spaces and trims the result.
//
// Example:
//
//	NormalizeWhitespace("a\n b\t\tc ") // "a b c"
func NormalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// SplitSentences splits normalized text into sentences on '.', '!' or '?'
// followed by whitespace or end of input. Terminal punctuation stays attached
// to its sentence.
//
// Example:
//
//	SplitSentences("One. Two! Three?") // ["One.", "Two!", "Three?"]
func SplitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)

	start := 0
	for i := 0; i < len(runes); i++ {
		if runes[i] != '.' && runes[i] != '!' && runes[i] != '?' {
			continue
		}
		atEnd := i == len(runes)-1
		if !atEnd && !unicode.IsSpace(runes[i+1]) {
			// Mid-token punctuation (e.g. "3.14") does not end a sentence
			continue
		}

		sentence := strings.TrimSpace(string(runes[start : i+1]))
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = i + 1
	}

	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}

	return sentences
}

// TokenizeWords lowercases text and splits it into alphanumeric word tokens,
// dropping punctuation.
//
// Example:
//
//	TokenizeWords("The hero's fight!") // ["the", "hero", "s", "fight"]
func TokenizeWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// IsStopword reports whether a lowercased word is in the fixed stopword set.
func IsStopword(word string) bool {
	_, ok := stopwords[word]
	return ok
}

// TruncateWords returns the first maxWords whitespace-separated words of
// text, appending the ellipsis marker when truncation occurs.
//
// Example:
//
//	TruncateWords("one two three", 2) // "one two..."
func TruncateWords(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}
	return strings.Join(words[:maxWords], " ") + Ellipsis
}
