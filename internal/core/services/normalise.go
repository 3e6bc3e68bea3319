package services

import (
	"strings"
	"unicode"
)

// defaultStopWords are dropped from lexical queries. The list covers
// common English function words plus drafting words that appear in
// almost every statute. Negations ("not", "no") are kept because they
// change the legal meaning of a query.
var defaultStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "been", "by", "can", "do", "does",
	"for", "from", "has", "have", "how", "i", "if", "in", "is", "it", "its", "me",
	"my", "of", "on", "or", "that", "the", "their", "this", "to", "was", "were",
	"what", "when", "which", "who", "will", "with", "would",
	"aforesaid", "hereby", "herein", "hereinafter", "hereof", "hereto", "pursuant",
	"said", "shall", "such", "thereby", "therein", "thereof", "thereto", "whereas",
}

// TermNormaliser turns query text into lexical search terms.
// Normalisation is deterministic: identical input yields identical terms.
type TermNormaliser struct {
	stop map[string]struct{}
}

// NewTermNormaliser creates a normaliser with the default legal stop-words
// plus any extra words.
func NewTermNormaliser(extra []string) *TermNormaliser {
	stop := make(map[string]struct{}, len(defaultStopWords)+len(extra))
	for _, w := range defaultStopWords {
		stop[w] = struct{}{}
	}
	for _, w := range extra {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			stop[w] = struct{}{}
		}
	}
	return &TermNormaliser{stop: stop}
}

// Normalise lowercases text, splits it on anything that is not a letter
// or digit, removes stop-words and duplicates, and keeps first-occurrence order.
func (n *TermNormaliser) Normalise(text string) []string {
	return n.NormaliseTerms(strings.FieldsFunc(text, isTermSeparator))
}

// NormaliseTerms applies the same rules to caller-supplied terms.
func (n *TermNormaliser) NormaliseTerms(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	terms := make([]string, 0, len(raw))
	for _, r := range raw {
		for _, term := range strings.FieldsFunc(strings.ToLower(r), isTermSeparator) {
			if _, ok := n.stop[term]; ok {
				continue
			}
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			terms = append(terms, term)
		}
	}
	return terms
}

// isTermSeparator keeps the section sign so "§12" survives as one term.
func isTermSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '§'
}
