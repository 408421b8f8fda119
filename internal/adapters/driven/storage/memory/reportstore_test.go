package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/linkcheck/internal/core/domain"
)

func TestReportStore_SaveAndGet(t *testing.T) {
	store := NewReportStore()
	ctx := context.Background()

	run := domain.ScanRun{ID: "run-1", Root: "/docs", Documents: 3, ExitCode: 1}
	links := []domain.LinkRecord{
		{RunID: "run-1", URL: "https://b.example", StatusCode: 404, Broken: true},
		{RunID: "run-1", URL: "https://a.example", StatusCode: 200},
	}
	require.NoError(t, store.SaveRun(ctx, run, links))

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run, *got)

	records, err := store.ListLinks(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "https://a.example", records[0].URL)
	assert.Equal(t, "https://b.example", records[1].URL)
	assert.True(t, records[1].Broken)
}

func TestReportStore_SaveRun_EmptyID(t *testing.T) {
	store := NewReportStore()
	err := store.SaveRun(context.Background(), domain.ScanRun{}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReportStore_NotFound(t *testing.T) {
	store := NewReportStore()
	ctx := context.Background()

	_, err := store.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.ListLinks(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReportStore_ListRuns(t *testing.T) {
	store := NewReportStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "middle", "new"} {
		run := domain.ScanRun{ID: id, StartedAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, store.SaveRun(ctx, run, nil))
	}

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, "middle", runs[1].ID)
	assert.Equal(t, "old", runs[2].ID)

	runs, err = store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].ID)
}

func TestReportStore_SaveRun_CopiesLinks(t *testing.T) {
	store := NewReportStore()
	ctx := context.Background()

	links := []domain.LinkRecord{{URL: "https://a.example"}}
	require.NoError(t, store.SaveRun(ctx, domain.ScanRun{ID: "r"}, links))
	links[0].URL = "mutated"

	records, err := store.ListLinks(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, "https://a.example", records[0].URL)
}
