// Package textnorm turns free text into the normalized token sequences used
// for indexing and scoring.
package textnorm

import (
	"bufio"
	_ "embed"
	"regexp"
	"strings"
)

//go:embed stopwords_en.txt
var englishStopwords string

// punctuation matches maximal runs of punctuation and symbol characters.
var punctuation = regexp.MustCompile(`[\p{P}\p{S}]+`)

// Normalizer lowercases text, strips punctuation and stop words, and splits
// the remainder into tokens. It is safe for concurrent use.
type Normalizer struct {
	stopwords map[string]struct{}
}

// New returns a Normalizer using the embedded English stop-word list.
func New() *Normalizer {
	return NewWithStopwords(ParseStopwords(englishStopwords))
}

// NewWithStopwords returns a Normalizer that removes the provided words.
// Entries are lowercased; blank entries are ignored.
func NewWithStopwords(words []string) *Normalizer {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return &Normalizer{stopwords: set}
}

// ParseStopwords reads one word per line, skipping blanks and # comments.
func ParseStopwords(list string) []string {
	var out []string
	scanner := bufio.NewScanner(strings.NewReader(list))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// Normalize lowercases text, replaces each punctuation run with a space,
// drops stop words and returns the remaining whitespace-separated tokens.
// Text without any content token yields nil.
func (n *Normalizer) Normalize(text string) []string {
	if text == "" {
		return nil
	}
	cleaned := punctuation.ReplaceAllString(strings.ToLower(text), " ")
	fields := strings.Fields(cleaned)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if n.IsStopword(f) {
			continue
		}
		tokens = append(tokens, f)
	}
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

// IsStopword reports whether the lowercased word is on the stop list.
func (n *Normalizer) IsStopword(word string) bool {
	_, ok := n.stopwords[word]
	return ok
}

// Len returns the number of stop words loaded.
func (n *Normalizer) Len() int {
	return len(n.stopwords)
}
