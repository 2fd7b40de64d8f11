package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/document"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/metrics"
)

type fakeSearcher struct {
	mu      sync.Mutex
	queries []string
	results map[string][]document.Document
	block   map[string]chan struct{}
	started chan string
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{
		results: make(map[string][]document.Document),
		block:   make(map[string]chan struct{}),
		started: make(chan string, 16),
	}
}

func (f *fakeSearcher) Documents(_ context.Context, q string, _ int) ([]document.Document, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	gate := f.block[q]
	docs := f.results[q]
	f.mu.Unlock()
	f.started <- q
	if gate != nil {
		// Ignores cancellation so the response arrives late.
		<-gate
	}
	return docs, nil
}

func (f *fakeSearcher) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func mail(id, title string) document.Document {
	return document.Document{ID: document.NewID(document.TypeMail, id), Type: document.TypeMail, Title: title, Path: "/mail/" + id}
}

func TestSetQuery_DebounceCoalesces(t *testing.T) {
	s := newFakeSearcher()
	s.results["budget"] = []document.Document{mail("1", "Budget")}
	c := New(s, WithDebounce(100*time.Millisecond))
	defer c.Close()

	for _, q := range []string{"b", "bu", "bud", "budg", "budget"} {
		c.SetQuery(q)
		time.Sleep(10 * time.Millisecond)
	}
	assert.True(t, c.Loading())

	require.Eventually(t, func() bool { return !c.Loading() }, time.Second, 5*time.Millisecond)
	time.Sleep(150 * time.Millisecond)

	assert.Equal(t, []string{"budget"}, s.calls())
	require.Len(t, c.Results(), 1)
	assert.Equal(t, "Budget", c.Results()[0].Title)
}

func TestSetQuery_StaleResponseDiscarded(t *testing.T) {
	s := newFakeSearcher()
	release := make(chan struct{})
	s.block["bud"] = release
	s.results["bud"] = []document.Document{mail("old", "Buddy")}
	s.results["budget"] = []document.Document{mail("new", "Budget")}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	c := New(s, WithDebounce(5*time.Millisecond), WithMetrics(m))
	defer c.Close()

	c.SetQuery("bud")
	assert.Equal(t, "bud", <-s.started)

	c.SetQuery("budget")
	assert.Equal(t, "budget", <-s.started)
	require.Eventually(t, func() bool { return !c.Loading() }, time.Second, 5*time.Millisecond)

	close(release)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.StaleResponsesTotal) == 1
	}, time.Second, 5*time.Millisecond)

	results := c.Results()
	require.Len(t, results, 1)
	assert.Equal(t, "Budget", results[0].Title)
	assert.Equal(t, "budget", c.Query())
}

func TestSetQuery_BlankClearsWithoutSearching(t *testing.T) {
	s := newFakeSearcher()
	s.results["budget"] = []document.Document{mail("1", "Budget")}
	c := New(s, WithDebounce(5*time.Millisecond))
	defer c.Close()

	c.SetQuery("budget")
	require.Eventually(t, func() bool { return len(c.Results()) == 1 }, time.Second, 5*time.Millisecond)

	c.SetQuery("   ")
	assert.Empty(t, c.Results())
	assert.False(t, c.Loading())
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, []string{"budget"}, s.calls())
}

func TestGroups_FollowDisplayOrder(t *testing.T) {
	s := newFakeSearcher()
	s.results["review"] = []document.Document{
		{ID: "course:c1", Type: document.TypeCourse, Title: "Review Course"},
		mail("m1", "Review notes"),
		{ID: "coursework:w1", Type: document.TypeCourseWork, Title: "Peer review"},
		mail("m2", "Review again"),
	}
	c := New(s, WithDebounce(5*time.Millisecond))
	defer c.Close()

	c.SetQuery("review")
	require.Eventually(t, func() bool { return len(c.Results()) == 4 }, time.Second, 5*time.Millisecond)

	groups := c.Groups()
	require.Len(t, groups, 3)
	assert.Equal(t, document.TypeMail, groups[0].Type)
	assert.Equal(t, "Mail", groups[0].Heading)
	require.Len(t, groups[0].Docs, 2)
	assert.Equal(t, "mail:m1", groups[0].Docs[0].ID)
	assert.Equal(t, "mail:m2", groups[0].Docs[1].ID)
	assert.Equal(t, document.TypeCourseWork, groups[1].Type)
	assert.Equal(t, document.TypeCourse, groups[2].Type)
}

func TestGroupDocuments_UnknownTypesAppended(t *testing.T) {
	docs := []document.Document{
		{ID: "task:1", Type: "task"},
		mail("1", "hi"),
		{ID: "note:1", Type: "note"},
		{ID: "task:2", Type: "task"},
	}
	groups := GroupDocuments(docs)
	require.Len(t, groups, 3)
	assert.Equal(t, document.TypeMail, groups[0].Type)
	assert.Equal(t, document.Type("task"), groups[1].Type)
	assert.Len(t, groups[1].Docs, 2)
	assert.Equal(t, document.Type("note"), groups[2].Type)
	assert.Empty(t, GroupDocuments(nil))
}

func TestGoTo_ClosesAndNavigates(t *testing.T) {
	var visited []string
	c := New(newFakeSearcher(), WithNavigator(func(p string) { visited = append(visited, p) }))
	defer c.Close()

	c.SetOpen(true)
	c.SetQuery("x")
	c.GoTo(mail("1", "hello"))

	assert.False(t, c.Open())
	assert.Empty(t, c.Query())
	assert.Equal(t, []string{"/mail/1"}, visited)

	c.GoTo(document.Document{ID: "mail:2", Type: document.TypeMail})
	assert.Len(t, visited, 1)
}

func TestHandleKey(t *testing.T) {
	chord := KeyEvent{Key: "K", Ctrl: true, Shift: true}

	c := New(newFakeSearcher())
	defer c.Close()

	assert.True(t, c.HandleKey(chord, Focus{Tag: "body"}))
	assert.True(t, c.Open())
	assert.True(t, c.HandleKey(chord, Focus{Tag: "div"}))
	assert.False(t, c.Open())

	assert.False(t, c.HandleKey(chord, Focus{Tag: "input"}))
	assert.False(t, c.HandleKey(chord, Focus{Tag: "TEXTAREA"}))
	assert.False(t, c.HandleKey(chord, Focus{Tag: "div", ContentEditable: true}))
	assert.False(t, c.HandleKey(KeyEvent{Key: "k", Ctrl: true}, Focus{}))
	assert.False(t, c.HandleKey(KeyEvent{Key: "k", Meta: true, Shift: true}, Focus{}))
	assert.False(t, c.Open())

	mac := New(newFakeSearcher(), WithMac(true))
	defer mac.Close()
	assert.False(t, mac.HandleKey(chord, Focus{}))
	assert.True(t, mac.HandleKey(KeyEvent{Key: "k", Meta: true, Shift: true}, Focus{}))
	assert.True(t, mac.Open())
}

func TestOnChange(t *testing.T) {
	c := New(newFakeSearcher())
	defer c.Close()

	var n atomic.Int32
	stop := c.OnChange(func() { n.Add(1) })

	c.Toggle()
	c.Toggle()
	assert.Equal(t, int32(2), n.Load())

	stop()
	c.Toggle()
	assert.Equal(t, int32(2), n.Load())
}

func TestClose_DropsPendingSearch(t *testing.T) {
	s := newFakeSearcher()
	c := New(s, WithDebounce(20*time.Millisecond))

	c.SetQuery("budget")
	c.Close()
	time.Sleep(50 * time.Millisecond)

	assert.Empty(t, s.calls())
	c.SetQuery("more")
	assert.Equal(t, "budget", c.Query())
}

func TestController_ConcurrentTogglesAllApply(t *testing.T) {
	c := New(newFakeSearcher())
	defer c.Close()

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Toggle()
		}()
	}
	wg.Wait()
	assert.False(t, c.Open(), "an even number of toggles leaves the palette closed")

	c.Toggle()
	assert.True(t, c.Open())
}
