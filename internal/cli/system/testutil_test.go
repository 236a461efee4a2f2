package system

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/weekplan/internal/cli"
	"github.com/julianstephens/weekplan/internal/planner"
	"github.com/julianstephens/weekplan/internal/storage/sqlite"
)

var testNow = time.Date(2026, time.October, 20, 9, 0, 0, 0, time.UTC)

// setupTestDB returns a context over an uninitialized SQLite store in a
// temp dir, with output captured.
func setupTestDB(t *testing.T) (*cli.Context, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "weekplan.db")
	store := sqlite.New(dbPath)
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})

	now := func() time.Time { return testNow }
	out := &bytes.Buffer{}
	ctx := &cli.Context{
		Store:    store,
		StateDir: dir,
		Engine:   planner.New(store, planner.WithClock(now)),
		Location: time.UTC,
		Now:      now,
		Out:      out,
	}
	return ctx, out, dbPath
}

func setupInitializedDB(t *testing.T) (*cli.Context, *bytes.Buffer, string) {
	t.Helper()
	ctx, out, dbPath := setupTestDB(t)
	if err := ctx.Store.Init(); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	return ctx, out, dbPath
}
