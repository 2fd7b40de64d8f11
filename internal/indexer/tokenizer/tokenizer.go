// Package tokenizer provides text tokenisation for the search index.
// It lower-cases input and splits on non-alphanumeric boundaries. Terms are
// kept whole (no stop-words, no stemming) so that every prefix of a term can
// be indexed for search-as-you-type matching.
package tokenizer

import (
	"strings"
	"unicode"
)

// MaxTermLength caps the number of runes kept from a single term. Longer
// runs (URLs, hashes) are truncated so prefix expansion stays bounded.
const MaxTermLength = 64

// Token represents a single normalised term and its position in the
// original text.
type Token struct {
	Term     string
	Position int
}

// Tokenize breaks text into a slice of lowercased Tokens.
func Tokenize(text string) []Token {
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]Token, 0, len(words))
	for pos, word := range words {
		tokens = append(tokens, Token{
			Term:     truncate(word),
			Position: pos,
		})
	}
	return tokens
}

// Terms returns the distinct terms of text in first-seen order.
func Terms(text string) []string {
	tokens := Tokenize(text)
	seen := make(map[string]struct{}, len(tokens))
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, dup := seen[tok.Term]; dup {
			continue
		}
		seen[tok.Term] = struct{}{}
		terms = append(terms, tok.Term)
	}
	return terms
}

// Prefixes returns every rune prefix of term, shortest first, including term
// itself.
func Prefixes(term string) []string {
	out := make([]string, 0, len(term))
	for i := range term {
		if i > 0 {
			out = append(out, term[:i])
		}
	}
	if term != "" {
		out = append(out, term)
	}
	return out
}

// IndexKeys returns the distinct set of keys (terms and all their prefixes)
// under which text must be posted.
func IndexKeys(text string) map[string]struct{} {
	keys := make(map[string]struct{})
	for _, term := range Terms(text) {
		for _, p := range Prefixes(term) {
			keys[p] = struct{}{}
		}
	}
	return keys
}

func truncate(word string) string {
	n := 0
	for i := range word {
		if n == MaxTermLength {
			return word[:i]
		}
		n++
	}
	return word
}
