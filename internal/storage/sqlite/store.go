package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/logger"
	"github.com/julianstephens/weekplan/internal/migration"
	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/migrations"
)

// ErrNotInitialized is returned by Load when the database file is missing.
var ErrNotInitialized = models.ErrNotInitialized

const nextIDKey = "next_id"

// Store keeps the planner state in a single SQLite file.
type Store struct {
	path string
	db   *sql.DB
}

func New(path string) *Store {
	return &Store{
		path: path,
	}
}

// Init creates the database file if needed and brings the schema up to date.
// Existing data is kept.
func (s *Store) Init() error {
	if s.path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := s.open(); err != nil {
		return err
	}
	if err := s.runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	_, err := s.db.Exec(`INSERT OR IGNORE INTO meta (key, value) VALUES (?, ?)`, nextIDKey, constants.InitialNextID)
	if err != nil {
		return fmt.Errorf("failed to seed id counter: %w", err)
	}
	return nil
}

func (s *Store) open() error {
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)

	for _, p := range []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s.db = db
	return nil
}

func (s *Store) runner() (*migration.Runner, error) {
	subFS, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite migrations: %w", err)
	}
	return migration.NewRunner(s.db, subFS), nil
}

func (s *Store) runMigrations() error {
	runner, err := s.runner()
	if err != nil {
		return err
	}
	_, err = runner.ApplyMigrations(func(msg string) {
		logger.Debug(msg, "backend", "sqlite")
	})
	return err
}

func (s *Store) ensureLoaded() error {
	if s.db != nil {
		return nil
	}
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return ErrNotInitialized
	}
	if err := s.open(); err != nil {
		return err
	}

	runner, err := s.runner()
	if err != nil {
		return err
	}
	return runner.ValidateVersion()
}

// Load reads the full planner state.
func (s *Store) Load() (models.State, error) {
	if err := s.ensureLoaded(); err != nil {
		return models.State{}, err
	}

	state := models.NewState()

	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, nextIDKey).Scan(&state.NextID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return models.State{}, fmt.Errorf("failed to read id counter: %w", err)
	}

	templates, err := s.loadTemplates()
	if err != nil {
		return models.State{}, err
	}
	state.Templates = templates

	rows, err := s.db.Query(`SELECT week_id, created_at FROM weeks`)
	if err != nil {
		return models.State{}, fmt.Errorf("failed to query weeks: %w", err)
	}
	for rows.Next() {
		var week models.WeeklyInstance
		if err := rows.Scan(&week.WeekID, &week.CreatedAt); err != nil {
			rows.Close()
			return models.State{}, fmt.Errorf("failed to scan week: %w", err)
		}
		week.Tasks = []models.TaskInstance{}
		state.WeeklyInstances[week.WeekID] = week
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return models.State{}, err
	}

	if err := s.loadTasks(state.WeeklyInstances); err != nil {
		return models.State{}, err
	}

	state.Normalize()
	return state, nil
}

func (s *Store) loadTemplates() ([]models.Template, error) {
	rows, err := s.db.Query(`
		SELECT id, title, goal, hierarchy, duration_min, day, time, notes
		FROM templates ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()

	templates := []models.Template{}
	for rows.Next() {
		var t models.Template
		var hierarchy string
		var day int
		if err := rows.Scan(&t.ID, &t.Title, &t.Goal, &hierarchy, &t.DurationMin, &day, &t.Time, &t.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		t.Day = time.Weekday(day)
		if t.Hierarchy, err = decodeHierarchy(hierarchy); err != nil {
			return nil, fmt.Errorf("template %d: %w", t.ID, err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (s *Store) loadTasks(weeks map[string]models.WeeklyInstance) error {
	rows, err := s.db.Query(`
		SELECT id, week_id, template_id, title, goal, hierarchy, duration_min, day, time, notes, completed
		FROM task_instances ORDER BY week_id, position`)
	if err != nil {
		return fmt.Errorf("failed to query task instances: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ti         models.TaskInstance
			weekID     string
			templateID sql.NullInt64
			hierarchy  string
			day        int
		)
		if err := rows.Scan(&ti.ID, &weekID, &templateID, &ti.Title, &ti.Goal, &hierarchy,
			&ti.DurationMin, &day, &ti.Time, &ti.Notes, &ti.Completed); err != nil {
			return fmt.Errorf("failed to scan task instance: %w", err)
		}
		if templateID.Valid {
			id := templateID.Int64
			ti.TemplateID = &id
		}
		ti.Day = time.Weekday(day)
		if ti.Hierarchy, err = decodeHierarchy(hierarchy); err != nil {
			return fmt.Errorf("task %d: %w", ti.ID, err)
		}

		week := weeks[weekID]
		week.Tasks = append(week.Tasks, ti)
		weeks[weekID] = week
	}
	return rows.Err()
}

// Save replaces the stored state with state in one transaction.
func (s *Store) Save(state models.State) error {
	if err := s.ensureLoaded(); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := writeState(tx, state); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit state: %w", err)
	}
	return nil
}

func writeState(tx *sql.Tx, state models.State) error {
	for _, stmt := range []string{
		`DELETE FROM task_instances`,
		`DELETE FROM weeks`,
		`DELETE FROM templates`,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to clear tables: %w", err)
		}
	}

	for i, t := range state.Templates {
		hierarchy, err := encodeHierarchy(t.Hierarchy)
		if err != nil {
			return err
		}
		_, err = tx.Exec(`
			INSERT INTO templates (id, position, title, goal, hierarchy, duration_min, day, time, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, i, t.Title, t.Goal, hierarchy, t.DurationMin, int(t.Day), t.Time, t.Notes)
		if err != nil {
			return fmt.Errorf("failed to insert template %d: %w", t.ID, err)
		}
	}

	for weekID, week := range state.WeeklyInstances {
		if _, err := tx.Exec(`INSERT INTO weeks (week_id, created_at) VALUES (?, ?)`, weekID, week.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert week %s: %w", weekID, err)
		}
		for i, ti := range week.Tasks {
			hierarchy, err := encodeHierarchy(ti.Hierarchy)
			if err != nil {
				return err
			}
			var templateID sql.NullInt64
			if ti.TemplateID != nil {
				templateID = sql.NullInt64{Int64: *ti.TemplateID, Valid: true}
			}
			_, err = tx.Exec(`
				INSERT INTO task_instances (id, week_id, position, template_id, title, goal, hierarchy, duration_min, day, time, notes, completed)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				ti.ID, weekID, i, templateID, ti.Title, ti.Goal, hierarchy, ti.DurationMin, int(ti.Day), ti.Time, ti.Notes, ti.Completed)
			if err != nil {
				return fmt.Errorf("failed to insert task %d: %w", ti.ID, err)
			}
		}
	}

	_, err := tx.Exec(`INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, nextIDKey, state.NextID)
	if err != nil {
		return fmt.Errorf("failed to write id counter: %w", err)
	}
	return nil
}

func encodeHierarchy(h []string) (string, error) {
	if h == nil {
		h = []string{}
	}
	b, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("failed to encode hierarchy: %w", err)
	}
	return string(b), nil
}

func decodeHierarchy(s string) ([]string, error) {
	var h []string
	if err := json.Unmarshal([]byte(s), &h); err != nil {
		return nil, fmt.Errorf("failed to decode hierarchy: %w", err)
	}
	if len(h) == 0 {
		return nil, nil
	}
	return h, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

func (s *Store) GetConfigPath() string {
	return s.path
}

// GetDB returns the underlying connection, or nil before Init/Load.
func (s *Store) GetDB() *sql.DB {
	return s.db
}

// SchemaVersion reports the applied and the newest embedded migration.
func (s *Store) SchemaVersion() (current, latest int, err error) {
	if err := s.ensureLoaded(); err != nil {
		return 0, 0, err
	}
	runner, err := s.runner()
	if err != nil {
		return 0, 0, err
	}
	if current, err = runner.GetCurrentVersion(); err != nil {
		return 0, 0, fmt.Errorf("failed to get current schema version: %w", err)
	}
	if latest, err = runner.GetLatestVersion(); err != nil {
		return 0, 0, fmt.Errorf("failed to get latest schema version: %w", err)
	}
	return current, latest, nil
}
