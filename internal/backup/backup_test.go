package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/storage/sqlite"
)

func seedState(titles ...string) models.State {
	s := models.NewState()
	for _, title := range titles {
		s.Templates = append(s.Templates, models.Template{ID: s.AllocateID(), Title: title, DurationMin: 30, Day: time.Monday})
	}
	return s
}

func setupSQLite(t *testing.T, titles ...string) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "weekplan.db")
	store := sqlite.New(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if err := store.Save(seedState(titles...)); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	return dbPath
}

func loadSQLite(t *testing.T, dbPath string) models.State {
	t.Helper()
	store := sqlite.New(dbPath)
	defer store.Close()
	state, err := store.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	return state
}

func saveSQLite(t *testing.T, dbPath string, state models.State) {
	t.Helper()
	store := sqlite.New(dbPath)
	defer store.Close()
	if err := store.Save(state); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
}

func TestCreate(t *testing.T) {
	dbPath := setupSQLite(t, "Gym", "Read")

	mgr := NewManager(dbPath)
	backupPath, err := mgr.Create()
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if filepath.Dir(backupPath) != filepath.Join(filepath.Dir(dbPath), constants.BackupDirName) {
		t.Errorf("backup written to %s, want the backups directory", backupPath)
	}
	if filepath.Ext(backupPath) != ".db" {
		t.Errorf("backup extension = %q, want .db", filepath.Ext(backupPath))
	}

	state := loadSQLite(t, backupPath)
	if len(state.Templates) != 2 {
		t.Errorf("backup holds %d templates, want 2", len(state.Templates))
	}
}

func TestCreateMissingStore(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "absent.db"))
	if _, err := mgr.Create(); err == nil {
		t.Error("Create() should fail when the store file does not exist")
	}
}

func TestRotation(t *testing.T) {
	dbPath := setupSQLite(t, "Gym")
	mgr := NewManager(dbPath)

	var last string
	for i := 0; i < constants.MaxBackups+5; i++ {
		p, err := mgr.Create()
		if err != nil {
			t.Fatalf("Create() #%d failed: %v", i, err)
		}
		last = p
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(backups) != constants.MaxBackups {
		t.Errorf("expected %d backups after rotation, got %d", constants.MaxBackups, len(backups))
	}
	if backups[0].Path != last {
		t.Errorf("newest backup = %s, want %s", backups[0].Path, last)
	}
	for i := 1; i < len(backups); i++ {
		if backups[i].Timestamp.After(backups[i-1].Timestamp) {
			t.Errorf("backups are not sorted: %d is newer than %d", i, i-1)
		}
	}
}

func TestList(t *testing.T) {
	dbPath := setupSQLite(t, "Gym")
	mgr := NewManager(dbPath)

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(backups) != 0 {
		t.Errorf("expected no backups initially, got %d", len(backups))
	}

	for i := 0; i < 3; i++ {
		if _, err := mgr.Create(); err != nil {
			t.Fatalf("Create() #%d failed: %v", i, err)
		}
	}
	// Files that do not look like snapshots are ignored.
	if err := os.WriteFile(filepath.Join(mgr.Dir(), "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(mgr.Dir(), constants.BackupFilePrefix+"garbage.db"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	backups, err = mgr.List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(backups) != 3 {
		t.Fatalf("expected 3 backups, got %d", len(backups))
	}
	for _, b := range backups {
		if b.Path == "" || b.Size == 0 || b.Timestamp.IsZero() {
			t.Errorf("incomplete backup info: %+v", b)
		}
	}
}

func TestUniqueFilenames(t *testing.T) {
	dbPath := setupSQLite(t, "Gym")
	mgr := NewManager(dbPath)

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		p, err := mgr.Create()
		if err != nil {
			t.Fatalf("Create() #%d failed: %v", i, err)
		}
		name := filepath.Base(p)
		if seen[name] {
			t.Errorf("duplicate backup filename: %s", name)
		}
		seen[name] = true
	}
}

func TestRestore(t *testing.T) {
	dbPath := setupSQLite(t, "Gym", "Read")
	mgr := NewManager(dbPath)

	backupPath, err := mgr.Create()
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	changed := loadSQLite(t, dbPath)
	changed.Templates = append(changed.Templates, models.Template{ID: changed.AllocateID(), Title: "Piano", DurationMin: 20, Day: time.Friday})
	saveSQLite(t, dbPath, changed)
	if got := len(loadSQLite(t, dbPath).Templates); got != 3 {
		t.Fatalf("expected 3 templates before restore, got %d", got)
	}

	preRestore, err := mgr.Restore(backupPath)
	if err != nil {
		t.Fatalf("Restore() failed: %v", err)
	}
	if preRestore == "" {
		t.Error("Restore() should report the pre-restore snapshot")
	}

	if got := len(loadSQLite(t, dbPath).Templates); got != 2 {
		t.Errorf("expected 2 templates after restore, got %d", got)
	}
	if got := len(loadSQLite(t, preRestore).Templates); got != 3 {
		t.Errorf("pre-restore snapshot holds %d templates, want 3", got)
	}
}

func TestRestoreCreatesPreRestoreBackup(t *testing.T) {
	dbPath := setupSQLite(t, "Gym")
	mgr := NewManager(dbPath)

	backupPath, err := mgr.Create()
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	before, err := mgr.List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}

	if _, err := mgr.Restore(backupPath); err != nil {
		t.Fatalf("Restore() failed: %v", err)
	}

	after, err := mgr.List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(after) != len(before)+1 {
		t.Errorf("expected %d backups after restore, got %d", len(before)+1, len(after))
	}
}

func TestRestoreRejectsInvalidBackup(t *testing.T) {
	dbPath := setupSQLite(t, "Gym")
	mgr := NewManager(dbPath)

	invalid := filepath.Join(t.TempDir(), "invalid.db")
	if err := os.WriteFile(invalid, []byte("not a database, just some text that is long enough"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Restore(invalid); err == nil {
		t.Fatal("Restore() should reject an invalid backup")
	}
	if got := len(loadSQLite(t, dbPath).Templates); got != 1 {
		t.Errorf("store changed after a rejected restore: %d templates", got)
	}
}

func TestVerify(t *testing.T) {
	dbPath := setupSQLite(t, "Gym")
	mgr := NewManager(dbPath)

	backupPath, err := mgr.Create()
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if err := mgr.Verify(backupPath); err != nil {
		t.Errorf("Verify() failed for a valid backup: %v", err)
	}

	empty := filepath.Join(t.TempDir(), "empty.db")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Verify(empty); err == nil {
		t.Error("Verify() should fail for a database without tables")
	}
}

func TestJSONStoreBackup(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "weekplan.json")
	if err := os.WriteFile(dataPath, []byte(`{"weeklyInstances":{},"templates":[],"nextId":4}`), 0o600); err != nil {
		t.Fatal(err)
	}

	mgr := NewManager(dataPath)
	backupPath, err := mgr.Create()
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if filepath.Ext(backupPath) != ".json" {
		t.Errorf("backup extension = %q, want .json", filepath.Ext(backupPath))
	}

	if err := os.WriteFile(dataPath, []byte(`{"weeklyInstances":{},"templates":[],"nextId":9}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Restore(backupPath); err != nil {
		t.Fatalf("Restore() failed: %v", err)
	}
	data, err := os.ReadFile(dataPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"weeklyInstances":{},"templates":[],"nextId":4}` {
		t.Errorf("restored document = %s", data)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Verify(bad); err == nil {
		t.Error("Verify() should reject malformed JSON")
	}
}

func TestParseName(t *testing.T) {
	tests := []struct {
		name    string
		wantOK  bool
		wantSeq int
	}{
		{constants.BackupFilePrefix + "20261019-071500.db", true, 0},
		{constants.BackupFilePrefix + "20261019-071500-12.db", true, 12},
		{constants.BackupFilePrefix + "20261019-071500x1.db", false, 0},
		{constants.BackupFilePrefix + "today.db", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, seq, ok := parseName(tt.name, ".db")
			if ok != tt.wantOK {
				t.Fatalf("parseName() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if seq != tt.wantSeq {
				t.Errorf("seq = %d, want %d", seq, tt.wantSeq)
			}
			if ts.Year() != 2026 || ts.Month() != time.October || ts.Day() != 19 || ts.Hour() != 7 || ts.Minute() != 15 {
				t.Errorf("timestamp = %v", ts)
			}
		})
	}
}
