package summarizer

import (
	"sort"
	"strings"
)

// DefaultMaxSentences is used when the caller passes a non-positive count.
const DefaultMaxSentences = 3

// shortTextThreshold is the normalized length below which no scoring is done.
const shortTextThreshold = 250

// maxSingleSentenceWords caps a lone short sentence before truncation.
const maxSingleSentenceWords = 30

// Summarize produces an extractive summary of text with at most maxSentences
// sentences. Pure and deterministic: the output is always a subsequence of
// the input's sentences in their original order.
//
// Short inputs (under 250 normalized characters) skip scoring: a single
// sentence is returned verbatim (truncated to 30 words with an ellipsis when
// longer), multiple sentences return the leading maxSentences.
//
// Longer inputs are scored by word frequency. Stopwords and words shorter
// than 3 characters are excluded from the frequency table; each sentence
// scores the sum of its words' frequencies. The top maxSentences sentences
// win (ties resolved by original order) and are re-sorted into narrative
// order before joining.
//
// Empty input handling belongs to the caller; Summarize returns "" for "".
//
// Example:
//
//	summary := summarizer.Summarize(chapterText, 3)
func Summarize(text string, maxSentences int) string {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}

	normalized := NormalizeWhitespace(text)
	if normalized == "" {
		return ""
	}

	sentences := SplitSentences(normalized)
	if len(sentences) == 0 {
		return ""
	}

	if len(normalized) < shortTextThreshold {
		return summarizeShort(normalized, sentences, maxSentences)
	}

	return summarizeScored(sentences, maxSentences)
}

// summarizeShort handles inputs too short to be worth scoring.
func summarizeShort(normalized string, sentences []string, maxSentences int) string {
	if len(sentences) == 1 {
		return TruncateWords(normalized, maxSingleSentenceWords)
	}

	if maxSentences > len(sentences) {
		maxSentences = len(sentences)
	}
	return strings.Join(sentences[:maxSentences], " ")
}

// summarizeScored selects the highest-frequency-scoring sentences and
// restores their original order.
func summarizeScored(sentences []string, maxSentences int) string {
	if maxSentences > len(sentences) {
		maxSentences = len(sentences)
	}

	frequencies := make(map[string]int)
	for _, sentence := range sentences {
		for _, word := range TokenizeWords(sentence) {
			if len(word) < 3 || IsStopword(word) {
				continue
			}
			frequencies[word]++
		}
	}

	type scoredSentence struct {
		index int
		score int
	}

	scored := make([]scoredSentence, len(sentences))
	for i, sentence := range sentences {
		score := 0
		for _, word := range TokenizeWords(sentence) {
			score += frequencies[word]
		}
		scored[i] = scoredSentence{index: i, score: score}
	}

	// Stable sort keeps original order among equal scores
	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].score > scored[b].score
	})

	selected := scored[:maxSentences]
	sort.Slice(selected, func(a, b int) bool {
		return selected[a].index < selected[b].index
	})

	parts := make([]string, len(selected))
	for i, s := range selected {
		parts[i] = sentences[s.index]
	}
	return strings.Join(parts, " ")
}
