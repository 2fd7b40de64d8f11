package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/document"
	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/source"
	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/source/feed"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/config"
)

func newIngestFixture(t *testing.T) (*http.ServeMux, *feed.Memory) {
	t.Helper()
	mem := feed.NewMemory()
	tr, err := source.NewTranslator(document.TypeMail)
	require.NoError(t, err)

	svc := indexer.NewService()
	require.NoError(t, svc.Attach(context.Background(), source.NewFeedAdapter("gmail", tr, mem)))
	t.Cleanup(func() { svc.Close() })

	engine := searcher.NewEngine(svc, config.SearchConfig{MaxResults: 10, DefaultLimit: 5, Mode: "strict"})
	h := New(engine, svc, nil, nil, time.Second)
	in := NewIngest(h)
	in.Register("gmail", mem)

	mux := http.NewServeMux()
	h.Routes(mux)
	in.Routes(mux)
	return mux, mem
}

func post(mux *http.ServeMux, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, target, strings.NewReader(body)))
	return rec
}

func TestIngest_PushedChangesAreSearchable(t *testing.T) {
	mux, _ := newIngestFixture(t)

	rec := post(mux, "/api/v1/sources/gmail/changes", `[
		{"op":"added","key":"1","record":{"subject":"Midterm Exam"}},
		{"op":"added","key":"2","record":{"subject":"Budget Report"}}
	]`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	search := httptest.NewRecorder()
	mux.ServeHTTP(search, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=mid", nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(search.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["total_hits"])

	rec = post(mux, "/api/v1/sources/gmail/changes", `{"op":"removed","key":"1"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	search = httptest.NewRecorder()
	mux.ServeHTTP(search, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=mid", nil))
	require.NoError(t, json.Unmarshal(search.Body.Bytes(), &body))
	assert.Equal(t, float64(0), body["total_hits"])
}

func TestIngest_Rejections(t *testing.T) {
	mux, mem := newIngestFixture(t)

	assert.Equal(t, http.StatusNotFound, post(mux, "/api/v1/sources/classroom/changes", `{"op":"added","key":"1"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(mux, "/api/v1/sources/gmail/changes", `{"op":"renamed","key":"1"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(mux, "/api/v1/sources/gmail/changes", `not json`).Code)

	mem.Close()
	assert.Equal(t, http.StatusServiceUnavailable, post(mux, "/api/v1/sources/gmail/changes", `{"op":"added","key":"1"}`).Code)
}
