package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_WorstStatusWins(t *testing.T) {
	c := NewChecker()
	c.Register("index", func(ctx context.Context) ComponentHealth { return Up("ready") })
	c.Register("cache", func(ctx context.Context) ComponentHealth { return Degraded("redis down") })

	report := c.Run(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Len(t, report.Components, 2)

	c.Register("postgres", func(ctx context.Context) ComponentHealth { return Down("refused") })
	assert.Equal(t, StatusDown, c.Run(context.Background()).Status)

	c.Unregister("postgres")
	c.Unregister("cache")
	assert.Equal(t, StatusUp, c.Run(context.Background()).Status)
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()
	state := StatusDegraded
	c.Register("index", func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Status: state}
	})

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	state = StatusUp
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var report Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, StatusUp, report.Components["index"].Status)
}

func TestLiveHandler_IgnoresChecks(t *testing.T) {
	c := NewChecker()
	c.Register("index", func(ctx context.Context) ComponentHealth { return Down("idle") })

	rec := httptest.NewRecorder()
	c.LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}

func TestRun_RecordsLatency(t *testing.T) {
	c := NewChecker()
	c.Register("index", func(ctx context.Context) ComponentHealth { return Up("") })

	report := c.Run(context.Background())
	assert.NotEmpty(t, report.Components["index"].Latency)
	assert.False(t, report.CheckedAt.IsZero())
}
