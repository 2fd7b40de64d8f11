package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/resilience"
)

var changeColumns = []string{"seq", "op", "key", "record", "changed_at"}

func newPostgresFeed(t *testing.T, batch int) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgres(db, config.SourceConfig{
		Name:         "gmail",
		PollInterval: time.Hour,
		BatchSize:    batch,
	}), mock
}

func TestPostgres_DrainAdvancesWatermark(t *testing.T) {
	p, mock := newPostgresFeed(t, 2)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT seq, op, key, record, changed_at`).
		WithArgs("gmail", 0, 2).
		WillReturnRows(sqlmock.NewRows(changeColumns).
			AddRow(int64(4), "added", "m1", []byte(`{"subject":"Exam"}`), at).
			AddRow(int64(7), "modified", "m1", []byte(`{"subject":"Exam moved"}`), at))
	mock.ExpectQuery(`SELECT seq, op, key, record, changed_at`).
		WithArgs("gmail", 7, 2).
		WillReturnRows(sqlmock.NewRows(changeColumns).
			AddRow(int64(9), "removed", "m1", nil, at))

	var got []Change
	p.drain(context.Background(), func(c Change) { got = append(got, c) })

	require.NoError(t, mock.ExpectationsWereMet())
	require.Len(t, got, 3)
	assert.Equal(t, OpModified, got[1].Op)
	assert.Equal(t, OpRemoved, got[2].Op)
	assert.Equal(t, at, got[0].At)
	assert.Equal(t, int64(9), p.Watermark())
}

func TestPostgres_BreakerOpensAfterFailures(t *testing.T) {
	p, mock := newPostgresFeed(t, 10)
	for i := 0; i < 3; i++ {
		mock.ExpectQuery(`SELECT seq`).WillReturnError(errors.New("connection refused"))
	}

	for i := 0; i < 3; i++ {
		_, err := p.poll(context.Background(), func(Change) {})
		require.Error(t, err)
	}
	_, err := p.poll(context.Background(), func(Change) {})
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int64(0), p.Watermark())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_StreamStopsOnCancel(t *testing.T) {
	p, mock := newPostgresFeed(t, 10)
	mock.ExpectQuery(`SELECT seq`).WillReturnRows(sqlmock.NewRows(changeColumns))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Stream(ctx, func(Change) {}) }()

	require.Eventually(t, func() bool { return mock.ExpectationsWereMet() == nil }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
