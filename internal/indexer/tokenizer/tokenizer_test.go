package tokenizer

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tokens := Tokenize("Midterm EXAM: room-204, the café")
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Term
		assert.Equal(t, i, tok.Position)
	}
	assert.Equal(t, []string{"midterm", "exam", "room", "204", "the", "café"}, terms)
}

func TestTokenize_Empty(t *testing.T) {
	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize("  --- ,,, "))
}

func TestTerms_Distinct(t *testing.T) {
	assert.Equal(t, []string{"budget", "report"}, Terms("Budget budget REPORT budget"))
}

func TestPrefixes(t *testing.T) {
	assert.Equal(t, []string{"e", "ex", "exa", "exam"}, Prefixes("exam"))
	assert.Equal(t, []string{"c", "ca", "caf", "café"}, Prefixes("café"))
	assert.Empty(t, Prefixes(""))
}

func TestIndexKeys(t *testing.T) {
	keys := IndexKeys("Lab lab")
	assert.Len(t, keys, 3)
	assert.Contains(t, keys, "l")
	assert.Contains(t, keys, "la")
	assert.Contains(t, keys, "lab")
}

func TestTokenize_TruncatesLongTerms(t *testing.T) {
	long := strings.Repeat("ü", MaxTermLength+10)
	tokens := Tokenize(long)
	assert.Len(t, tokens, 1)
	assert.Equal(t, MaxTermLength, utf8.RuneCountInString(tokens[0].Term))
}

func BenchmarkIndexKeys(b *testing.B) {
	text := "Quarterly budget review for the physics department, lab 3 revised"
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		IndexKeys(text)
	}
}
