package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/metrics"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func summary(window uint, ok int) metrics.Summary {
	return metrics.Summary{
		Window:    window,
		Started:   time.Now(),
		Elapsed:   3 * time.Second,
		Count:     ok,
		OK:        ok,
		Average:   12 * time.Millisecond,
		PerSecond: float64(ok) / 3,
	}
}

func TestRecordAndRecent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Record(ctx, "vlan-service", "localhost:8080", "restconf", summary(10, 1000)))
	require.NoError(t, db.Record(ctx, "vlan-service", "localhost:8080", "restconf", summary(20, 1800)))

	runs, err := db.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// newest first
	assert.Equal(t, uint(20), runs[0].Window)
	assert.Equal(t, uint(10), runs[1].Window)
	assert.Equal(t, "vlan-service", runs[0].Label)
	assert.Equal(t, "restconf", runs[0].Protocol)
	assert.Equal(t, 1800, runs[0].OK)
	assert.Equal(t, "3s", runs[0].Elapsed)
	assert.Equal(t, "12ms", runs[0].Average)
}

func TestRecentHonorsLimit(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, db.Record(ctx, "run", "host", "jsonrpc", summary(1, i)))
	}
	runs, err := db.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestPrune(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	old := summary(1, 10)
	old.Started = time.Now().Add(-48 * time.Hour)
	require.NoError(t, db.Record(ctx, "old", "host", "restconf", old))
	require.NoError(t, db.Record(ctx, "new", "host", "restconf", summary(1, 10)))

	deleted, err := db.Prune(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	runs, err := db.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "new", runs[0].Label)
}
