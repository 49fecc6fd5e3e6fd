package asr

import (
	"regexp"
	"strings"
)

// WayuuVocabulary is a small curated list of common wayuunaiki words
// used for nearest-neighbour correction and confidence scoring.
var WayuuVocabulary = []string{
	"wayuu", "anaa", "pia", "taya", "wane", "chi", "sulu", "eekai", "kasain",
	"maiki", "süka", "jia", "süpüla", "achukua", "anain", "eere", "jintü",
	"kasachon", "süchukua", "watta", "yaa", "antüshi", "süpüshi", "juyakai",
	"akumajaa", "ekirajaa", "joolu", "wanee", "achiki", "süpüleerua",
	"jintüin", "anasü", "süchon", "ekirajüin", "wattapia",
}

type PhoneticMapping struct {
	From string
	To   string
}

// WayuuPhoneticMappings rewrites Spanish digraphs and letters that ASR
// models substitute for wayuunaiki sounds. Multi-character mappings
// must run before the single-character ones they contain.
var WayuuPhoneticMappings = []PhoneticMapping{
	{"qu", "k"},
	{"gue", "we"},
	{"gui", "wi"},
	{"rr", "r"},
	{"ll", "y"},
	{"ñ", "n"},
	{"ü", "u"},
	{"j", "h"},
	{"c", "k"},
}

var (
	nonWordRe    = regexp.MustCompile(`[^\w\s\-']`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	wordCharsRe  = regexp.MustCompile(`[^\w]`)
)

// PostProcess applies the deterministic wayuunaiki correction pass:
// phonetic substitution, vocabulary nearest-neighbour correction, and
// cleanup. No external calls.
func PostProcess(text string, mappings []PhoneticMapping, vocab []string) string {
	processed := strings.ToLower(strings.TrimSpace(text))

	for _, m := range mappings {
		processed = strings.ReplaceAll(processed, m.From, m.To)
	}

	processed = correctWithVocabulary(processed, vocab)
	return cleanTranscription(processed)
}

// correctWithVocabulary replaces words that are close enough to a
// known vocabulary word (similarity above 0.7) with that word.
func correctWithVocabulary(text string, vocab []string) string {
	words := strings.Fields(text)
	for i, word := range words {
		key := wordCharsRe.ReplaceAllString(strings.ToLower(word), "")
		if key == "" {
			continue
		}
		if match, ok := bestVocabularyMatch(key, vocab); ok && Similarity(key, match) > 0.7 {
			words[i] = match
		}
	}
	return strings.Join(words, " ")
}

// bestVocabularyMatch returns the vocabulary word most similar to the
// input, requiring at least 0.6 similarity to be a candidate at all.
func bestVocabularyMatch(word string, vocab []string) (string, bool) {
	best := ""
	bestSimilarity := 0.0
	for _, candidate := range vocab {
		if similarity := Similarity(word, candidate); similarity > bestSimilarity && similarity > 0.6 {
			bestSimilarity = similarity
			best = candidate
		}
	}
	return best, best != ""
}

// Similarity is a normalized edit-distance score in [0,1].
func Similarity(a, b string) float64 {
	longer, shorter := a, b
	if len(shorter) > len(longer) {
		longer, shorter = shorter, longer
	}
	if len(longer) == 0 {
		return 1.0
	}
	return float64(len(longer)-levenshtein(longer, shorter)) / float64(len(longer))
}

func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	prev := make([]int, len(ra)+1)
	curr := make([]int, len(ra)+1)
	for i := range prev {
		prev[i] = i
	}

	for j := 1; j <= len(rb); j++ {
		curr[0] = j
		for i := 1; i <= len(ra); i++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[i] = min3(curr[i-1]+1, prev[i]+1, prev[i-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(ra)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

func cleanTranscription(text string) string {
	text = nonWordRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// EstimateConfidence scores a transcription in [0,1] from known-word
// presence, length heuristics, and how much post-processing altered
// the raw text (fewer alterations mean more trust in the recognition).
// This is intentionally a heuristic, not a model.
func EstimateConfidence(processed, raw string, vocab []string) float64 {
	confidence := 0.5

	lowered := strings.ToLower(processed)
	hits := 0
	for _, word := range vocab {
		if strings.Contains(lowered, strings.ToLower(word)) {
			hits++
		}
	}
	vocabBoost := float64(hits) * 0.1
	if vocabBoost > 0.3 {
		vocabBoost = 0.3
	}
	confidence += vocabBoost

	if len(processed) > 10 {
		confidence += 0.1
	}
	if len(strings.Fields(processed)) > 3 {
		confidence += 0.1
	}

	confidence += Similarity(raw, processed) * 0.2

	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}
