// Package model holds the similarity artifacts produced by offline training: a TF-IDF
// vectorizer and a logistic regression classifier. The scoring path only uses the
// vectorizer; the classifier is loaded and validated alongside it so that a broken
// artifact pair is detected as a whole.
package model

import (
	"math"
	"regexp"
	"strings"
)

// tokenPattern matches runs of two or more word characters.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Vector is a sparse feature vector keyed by vocabulary index.
type Vector map[int]float64

// Vectorizer turns text into L2-normalized TF-IDF vectors over a fixed vocabulary.
type Vectorizer struct {
	Version    int            `json:"version"`
	Lowercase  bool           `json:"lowercase"`
	StopWords  string         `json:"stopWords,omitempty"` // "english" or empty
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
}

// Tokenize splits text the same way during fitting and transforming.
func (v *Vectorizer) Tokenize(text string) []string {
	return tokenize(text, v.Lowercase, v.StopWords == StopWordsEnglish)
}

func tokenize(text string, lowercase, dropStopWords bool) []string {
	if lowercase {
		text = strings.ToLower(text)
	}
	raw := tokenPattern.FindAllString(text, -1)
	if !dropStopWords {
		return raw
	}
	tokens := raw[:0]
	for _, tok := range raw {
		if _, stop := englishStopWords[tok]; !stop {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// Transform returns the normalized TF-IDF vector of text. Terms outside the
// vocabulary are ignored; an empty result means no known term was seen.
func (v *Vectorizer) Transform(text string) Vector {
	counts := make(map[int]float64)
	for _, tok := range v.Tokenize(text) {
		if idx, ok := v.Vocabulary[tok]; ok {
			counts[idx]++
		}
	}

	var norm float64
	for idx, tf := range counts {
		w := tf * v.IDF[idx]
		counts[idx] = w
		norm += w * w
	}
	if norm == 0 {
		return Vector{}
	}

	norm = math.Sqrt(norm)
	for idx := range counts {
		counts[idx] /= norm
	}
	return counts
}

// Similarity is the cosine similarity of the TF-IDF vectors of a and b, in [0, 1].
func (v *Vectorizer) Similarity(a, b string) float64 {
	return Cosine(v.Transform(a), v.Transform(b))
}

// Cosine returns the cosine similarity of two vectors. An empty vector has no
// direction, so its similarity to anything is 0.
func Cosine(a, b Vector) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(b) < len(a) {
		a, b = b, a
	}

	var dot, na, nb float64
	for idx, x := range a {
		dot += x * b[idx]
		na += x * x
	}
	for _, y := range b {
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(sim) {
		return 0
	}
	return math.Max(0, math.Min(1, sim))
}
