package backup

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/logger"
	"github.com/julianstephens/weekplan/internal/models"
)

const timestampLayout = "20060102-150405"

// Manager snapshots a file-backed planner store (SQLite or JSON) into a
// sibling backups directory and keeps the newest constants.MaxBackups.
type Manager struct {
	dataPath string
	ext      string
}

// Info describes one snapshot on disk.
type Info struct {
	Path      string
	Timestamp time.Time
	Size      int64

	seq int // disambiguates snapshots taken within the same second
}

// NewManager returns a manager for the store file at dataPath.
func NewManager(dataPath string) *Manager {
	ext := ".db"
	if strings.EqualFold(filepath.Ext(dataPath), ".json") {
		ext = ".json"
	}
	return &Manager{dataPath: dataPath, ext: ext}
}

// Dir returns the directory snapshots are written to.
func (m *Manager) Dir() string {
	return filepath.Join(filepath.Dir(m.dataPath), constants.BackupDirName)
}

// Create writes a new snapshot and rotates old ones.
func (m *Manager) Create() (string, error) {
	return m.create(false)
}

func (m *Manager) create(skipRotation bool) (string, error) {
	if _, err := os.Stat(m.dataPath); err != nil {
		return "", fmt.Errorf("store file not found: %w", err)
	}
	if err := os.MkdirAll(m.Dir(), 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	target, err := m.nextPath(time.Now())
	if err != nil {
		return "", err
	}

	if m.ext == ".json" {
		err = copyFile(m.dataPath, target)
	} else {
		err = vacuumInto(m.dataPath, target)
	}
	if err != nil {
		return "", err
	}

	if !skipRotation {
		if err := m.rotate(); err != nil {
			logger.Warn("backup rotation failed", "error", err)
		}
	}
	return target, nil
}

// nextPath picks an unused filename for a snapshot taken at now.
func (m *Manager) nextPath(now time.Time) (string, error) {
	base := constants.BackupFilePrefix + now.Format(timestampLayout)
	for n := 0; n < 100; n++ {
		name := base + m.ext
		if n > 0 {
			name = fmt.Sprintf("%s-%d%s", base, n, m.ext)
		}
		p := filepath.Join(m.Dir(), name)
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return p, nil
		}
	}
	return "", fmt.Errorf("too many backups for %s", now.Format(timestampLayout))
}

// vacuumInto produces a consistent copy of a live SQLite database.
func vacuumInto(src, dst string) error {
	db, err := sql.Open("sqlite", src)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec("VACUUM INTO ?", dst); err != nil {
		logger.Debug("VACUUM INTO failed, copying file", "error", err)
		return copyFile(src, dst)
	}
	return nil
}

// List returns snapshots newest first.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.Dir())
	if err != nil {
		if os.IsNotExist(err) {
			return []Info{}, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var out []Info
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, constants.BackupFilePrefix) || filepath.Ext(name) != m.ext {
			continue
		}
		ts, seq, ok := parseName(name, m.ext)
		if !ok {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Info{Path: filepath.Join(m.Dir(), name), Timestamp: ts, Size: fi.Size(), seq: seq})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].seq > out[j].seq
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// parseName splits "weekplan-20261019-071500-2.db" into its timestamp and
// sequence number.
func parseName(name, ext string) (time.Time, int, bool) {
	stem := strings.TrimSuffix(strings.TrimPrefix(name, constants.BackupFilePrefix), ext)
	if len(stem) < len(timestampLayout) {
		return time.Time{}, 0, false
	}
	ts, err := time.ParseInLocation(timestampLayout, stem[:len(timestampLayout)], time.Local)
	if err != nil {
		return time.Time{}, 0, false
	}
	seq := 0
	if rest := stem[len(timestampLayout):]; rest != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(rest, "-"))
		if err != nil || !strings.HasPrefix(rest, "-") {
			return time.Time{}, 0, false
		}
		seq = n
	}
	return ts, seq, true
}

func (m *Manager) rotate() error {
	backups, err := m.List()
	if err != nil {
		return err
	}
	for _, b := range backups[min(len(backups), constants.MaxBackups):] {
		if err := os.Remove(b.Path); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", b.Path, err)
		}
		logger.Debug("removed old backup", "path", b.Path)
	}
	return nil
}

// Restore replaces the store file with the snapshot at backupPath. The
// current file is snapshotted first; its path is returned (empty when there
// was no current file). The store must be closed by the caller.
func (m *Manager) Restore(backupPath string) (string, error) {
	if _, err := os.Stat(backupPath); err != nil {
		return "", fmt.Errorf("backup file not found: %w", err)
	}
	if err := m.Verify(backupPath); err != nil {
		return "", fmt.Errorf("backup verification failed: %w", err)
	}

	var preRestore string
	if _, err := os.Stat(m.dataPath); err == nil {
		p, err := m.create(true)
		if err != nil {
			return "", fmt.Errorf("failed to back up current store: %w", err)
		}
		preRestore = p
	}

	if err := os.MkdirAll(filepath.Dir(m.dataPath), 0o755); err != nil {
		return preRestore, fmt.Errorf("failed to create store directory: %w", err)
	}
	tmp := m.dataPath + ".restore"
	if err := copyFile(backupPath, tmp); err != nil {
		os.Remove(tmp)
		return preRestore, fmt.Errorf("failed to stage backup: %w", err)
	}
	if err := os.Rename(tmp, m.dataPath); err != nil {
		os.Remove(tmp)
		return preRestore, fmt.Errorf("failed to replace store: %w", err)
	}
	// Stale WAL files would be replayed over the restored database.
	for _, suffix := range []string{"-wal", "-shm"} {
		os.Remove(m.dataPath + suffix)
	}

	logger.Info("store restored", "from", backupPath, "previous", preRestore)
	return preRestore, nil
}

// Verify checks that the snapshot at path is readable as a planner store.
func (m *Manager) Verify(path string) error {
	if m.ext == ".json" {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var s models.State
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("not a planner document: %w", err)
		}
		return nil
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table'").Scan(&n); err != nil {
		return fmt.Errorf("not a database: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("database has no tables")
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
