package backups

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/weekplan/internal/backup"
	"github.com/julianstephens/weekplan/internal/cli"
	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/planner"
	"github.com/julianstephens/weekplan/internal/storage"
	"github.com/julianstephens/weekplan/internal/storage/sqlite"
)

func setupTestBackupDB(t *testing.T, input string) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "weekplan.db")
	store := sqlite.New(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	now := func() time.Time { return time.Date(2026, time.October, 20, 9, 0, 0, 0, time.UTC) }
	out := &bytes.Buffer{}
	return &cli.Context{
		Store:    store,
		Engine:   planner.New(store, planner.WithClock(now)),
		Location: time.UTC,
		Now:      now,
		Out:      out,
		In:       strings.NewReader(input),
	}, out
}

func addTemplate(t *testing.T, ctx *cli.Context, title string) {
	t.Helper()
	dur, day := 30, time.Monday
	if _, err := ctx.Engine.CreateTemplate(models.TemplatePatch{Title: &title, DurationMin: &dur, Day: &day}); err != nil {
		t.Fatalf("CreateTemplate() failed: %v", err)
	}
}

func TestBackupCreateAndList(t *testing.T) {
	ctx, out := setupTestBackupDB(t, "")

	if err := (&BackupListCmd{}).Run(ctx); err != nil {
		t.Fatalf("backup list failed: %v", err)
	}
	if !strings.Contains(out.String(), "No backups found.") {
		t.Errorf("unexpected output: %q", out.String())
	}

	out.Reset()
	if err := (&BackupCreateCmd{}).Run(ctx); err != nil {
		t.Fatalf("backup create failed: %v", err)
	}
	if !strings.Contains(out.String(), "✓ Backup created: weekplan-") {
		t.Errorf("unexpected output: %q", out.String())
	}

	out.Reset()
	if err := (&BackupListCmd{}).Run(ctx); err != nil {
		t.Fatalf("backup list failed: %v", err)
	}
	if !strings.Contains(out.String(), "Available backups (1 total") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestBackupRestoreCmd(t *testing.T) {
	ctx, out := setupTestBackupDB(t, "")
	addTemplate(t, ctx, "Before")

	mgr := backup.NewManager(ctx.Store.GetConfigPath())
	backupPath, err := mgr.Create()
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	addTemplate(t, ctx, "After")

	cmd := &BackupRestoreCmd{BackupFile: filepath.Base(backupPath), Yes: true}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("backup restore failed: %v", err)
	}
	if !strings.Contains(out.String(), "✓ Planner data restored successfully!") ||
		!strings.Contains(out.String(), "Previous data saved as: weekplan-") {
		t.Errorf("unexpected output: %q", out.String())
	}

	state, err := ctx.Store.Load()
	if err != nil {
		t.Fatalf("Load() after restore failed: %v", err)
	}
	if len(state.Templates) != 1 || state.Templates[0].Title != "Before" {
		t.Errorf("restored templates = %+v, want only Before", state.Templates)
	}
}

func TestBackupRestoreCmd_Declined(t *testing.T) {
	ctx, out := setupTestBackupDB(t, "n\n")
	addTemplate(t, ctx, "Keep")

	backupPath, err := backup.NewManager(ctx.Store.GetConfigPath()).Create()
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if err := (&BackupRestoreCmd{BackupFile: backupPath}).Run(ctx); err != nil {
		t.Fatalf("backup restore failed: %v", err)
	}
	if !strings.Contains(out.String(), "Restore cancelled.") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestBackupRestoreCmd_Missing(t *testing.T) {
	ctx, _ := setupTestBackupDB(t, "")

	err := (&BackupRestoreCmd{BackupFile: "weekplan-20260101-000000.db", Yes: true}).Run(ctx)
	if err == nil || !strings.Contains(err.Error(), "backup file not found") {
		t.Errorf("Run() = %v, want not found", err)
	}
}

func TestBackupUnsupportedStore(t *testing.T) {
	ctx, _ := setupTestBackupDB(t, "")
	ctx.Store = storage.NewMemoryStore()

	if err := (&BackupCreateCmd{}).Run(ctx); err != errUnsupported {
		t.Errorf("Run() = %v, want errUnsupported", err)
	}
}
