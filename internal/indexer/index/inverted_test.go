package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(matches []Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.ID
	}
	return out
}

func TestInverted_PrefixMatch(t *testing.T) {
	x := NewInverted()
	x.Add("mail:1", "Midterm Exam")

	for _, q := range []string{"e", "ex", "exa", "exam", "mid"} {
		assert.Equal(t, []string{"mail:1"}, ids(x.Query([]string{q}, MatchAll)), q)
	}
	assert.Empty(t, x.Query([]string{"exams"}, MatchAll))
	assert.Empty(t, x.Query([]string{"xam"}, MatchAll))
}

func TestInverted_MatchAllIntersects(t *testing.T) {
	x := NewInverted()
	x.Add("mail:1", "Budget Report")
	x.Add("course:1", "Budget Review")

	assert.Equal(t, []string{"course:1", "mail:1"}, ids(x.Query([]string{"budget"}, MatchAll)))
	assert.Equal(t, []string{"mail:1"}, ids(x.Query([]string{"budget", "rep"}, MatchAll)))
	assert.Empty(t, x.Query([]string{"budget", "missing"}, MatchAll))
}

func TestInverted_MatchAnyCountsTerms(t *testing.T) {
	x := NewInverted()
	x.Add("mail:1", "Budget Report")
	x.Add("course:1", "Budget Review")

	got := x.Query([]string{"budget", "report"}, MatchAny)
	require.Len(t, got, 2)
	assert.Equal(t, Match{ID: "course:1", Matched: 1}, got[0])
	assert.Equal(t, Match{ID: "mail:1", Matched: 2}, got[1])
}

func TestInverted_RemoveIsClean(t *testing.T) {
	x := NewInverted()
	x.Add("mail:1", "Midterm Exam")
	x.Add("mail:2", "Exam results")

	assert.True(t, x.Remove("mail:1"))
	assert.False(t, x.Remove("mail:1"))
	assert.False(t, x.Has("mail:1"))
	assert.Empty(t, x.Keys("mail:1"))

	for _, key := range []string{"m", "mi", "midterm"} {
		assert.Empty(t, x.Lookup(key), key)
	}
	assert.Equal(t, []string{"mail:2"}, x.Lookup("exam"))

	x.Remove("mail:2")
	assert.Zero(t, x.TermCount())
	assert.Zero(t, x.Len())
}

func TestInverted_UpdateDropsOldKeys(t *testing.T) {
	x := NewInverted()
	x.Add("cw:1", "Lab 3 Physics")
	x.Update("cw:1", "Lab 3 Revised Physics")

	assert.Equal(t, []string{"cw:1"}, ids(x.Query([]string{"revised"}, MatchAll)))
	assert.Equal(t, []string{"cw:1"}, ids(x.Query([]string{"lab"}, MatchAll)))

	x.Update("cw:1", "Quiz")
	assert.Empty(t, x.Query([]string{"lab"}, MatchAll))
	assert.Empty(t, x.Lookup("physics"))
	assert.Equal(t, 1, x.Len())
}

func TestInverted_AddTwiceIsIdempotent(t *testing.T) {
	once := NewInverted()
	once.Add("mail:1", "Budget Report")

	twice := NewInverted()
	twice.Add("mail:1", "Budget Report")
	twice.Add("mail:1", "Budget Report")

	assert.Equal(t, once.TermCount(), twice.TermCount())
	assert.Equal(t, once.Keys("mail:1"), twice.Keys("mail:1"))
	assert.Equal(t, once.Lookup("b"), twice.Lookup("b"))
}

func TestInverted_EmptyQuery(t *testing.T) {
	x := NewInverted()
	x.Add("mail:1", "anything")
	assert.Nil(t, x.Query(nil, MatchAll))
	assert.Nil(t, x.Query([]string{}, MatchAny))
}

func TestParseMode(t *testing.T) {
	m, ok := ParseMode("suggest")
	assert.True(t, ok)
	assert.Equal(t, MatchAny, m)

	m, ok = ParseMode("")
	assert.True(t, ok)
	assert.Equal(t, MatchAll, m)

	_, ok = ParseMode("fuzzy")
	assert.False(t, ok)
	assert.Equal(t, "suggest", MatchAny.String())
}
