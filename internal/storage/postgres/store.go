package postgres

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	pq "github.com/lib/pq"

	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/logger"
	"github.com/julianstephens/weekplan/internal/migration"
	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/migrations"
)

const nextIDKey = "next_id"

var (
	ErrInvalidConnectionString = errors.New("invalid PostgreSQL connection string")
	ErrEmbeddedCredentials     = errors.New("connection string must not contain a password")
)

// Store keeps the planner state in the weekplan schema of a Postgres database.
type Store struct {
	connStr string
	db      *sql.DB
}

func New(connStr string) *Store {
	return &Store{
		connStr: withSearchPath(connStr),
	}
}

// withSearchPath pins the session to the application schema unless the
// caller already chose one.
func withSearchPath(connStr string) string {
	if isURL(connStr) {
		u, err := url.Parse(connStr)
		if err != nil {
			logger.Warn("Failed to parse Postgres connection string", "error", err)
			return connStr
		}
		q := u.Query()
		if q.Get("search_path") == "" {
			q.Set("search_path", constants.AppName)
			u.RawQuery = q.Encode()
		}
		return u.String()
	}
	if _, ok := dsnParam(connStr, "search_path"); ok {
		return connStr
	}
	return strings.TrimSpace(connStr) + " search_path=" + constants.AppName
}

func isURL(connStr string) bool {
	return strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://")
}

// dsnParam looks up a key in a space-separated key=value DSN, ignoring case.
func dsnParam(connStr, key string) (string, bool) {
	for _, part := range strings.Fields(connStr) {
		k, v, ok := strings.Cut(part, "=")
		if ok && strings.EqualFold(strings.TrimSpace(k), key) {
			return v, true
		}
	}
	return "", false
}

func hasSSLMode(connStr string) bool {
	if u, err := url.Parse(connStr); err == nil && u.Scheme != "" {
		for key := range u.Query() {
			if strings.EqualFold(key, "sslmode") {
				return true
			}
		}
	}
	_, ok := dsnParam(connStr, "sslmode")
	return ok
}

// ValidateConnString checks that connStr parses as a Postgres URI or DSN and
// carries no password. Passwords belong in .pgpass, the environment or the
// OS keyring.
func ValidateConnString(connStr string) error {
	if strings.TrimSpace(connStr) == "" {
		return fmt.Errorf("%w: connection string cannot be empty", ErrInvalidConnectionString)
	}

	if isURL(connStr) {
		u, err := url.Parse(connStr)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConnectionString, err)
		}
		if _, set := u.User.Password(); set {
			return ErrEmbeddedCredentials
		}
		if u.Host == "" && u.User == nil && (u.Path == "" || u.Path == "/") {
			return fmt.Errorf("%w: connection URL is incomplete", ErrInvalidConnectionString)
		}
	} else if _, ok := dsnParam(connStr, "password"); ok {
		return ErrEmbeddedCredentials
	}

	if _, err := pq.NewConnector(connStr); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConnectionString, err)
	}
	return nil
}

func (s *Store) open() error {
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("postgres", s.connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		if strings.Contains(err.Error(), "SSL is not enabled on the server") && !hasSSLMode(s.connStr) {
			return fmt.Errorf("failed to connect to database: %w (hint: try adding ?sslmode=disable to your connection string)", err)
		}
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	s.db = db
	return nil
}

func (s *Store) runner() (*migration.Runner, error) {
	subFS, err := fs.Sub(migrations.FS, "postgres")
	if err != nil {
		return nil, fmt.Errorf("failed to access postgres migrations: %w", err)
	}
	return migration.NewRunner(s.db, subFS), nil
}

// Init creates the schema, applies migrations and seeds the id counter.
func (s *Store) Init() error {
	if err := s.open(); err != nil {
		return err
	}
	if _, err := s.db.Exec("CREATE SCHEMA IF NOT EXISTS " + pq.QuoteIdentifier(constants.AppName)); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	runner, err := s.runner()
	if err != nil {
		return err
	}
	if _, err := runner.ApplyMigrations(func(msg string) {
		logger.Debug(msg, "backend", "postgres")
	}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	_, err = s.db.Exec(`INSERT INTO meta (key, value) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING`,
		nextIDKey, constants.InitialNextID)
	if err != nil {
		return fmt.Errorf("failed to seed id counter: %w", err)
	}
	return nil
}

func (s *Store) ensureLoaded() error {
	if s.db != nil {
		return nil
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

	tx, err := s.db.Begin()
	if err != nil {
		return models.State{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	state := models.NewState()
	err = tx.QueryRow(`SELECT value FROM meta WHERE key = $1`, nextIDKey).Scan(&state.NextID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return models.State{}, fmt.Errorf("failed to read id counter: %w", err)
	}

	if state.Templates, err = loadTemplates(tx); err != nil {
		return models.State{}, err
	}

	rows, err := tx.Query(`SELECT week_id, created_at FROM weeks`)
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

	if err := loadTasks(tx, state.WeeklyInstances); err != nil {
		return models.State{}, err
	}

	state.Normalize()
	return state, nil
}

func loadTemplates(tx *sql.Tx) ([]models.Template, error) {
	rows, err := tx.Query(`
		SELECT id, title, goal, hierarchy, duration_min, day, time, notes
		FROM templates ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()

	templates := []models.Template{}
	for rows.Next() {
		var t models.Template
		var hierarchy []byte
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

func loadTasks(tx *sql.Tx, weeks map[string]models.WeeklyInstance) error {
	rows, err := tx.Query(`
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
			hierarchy  []byte
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
	if _, err := tx.Exec(`TRUNCATE task_instances, weeks, templates`); err != nil {
		return fmt.Errorf("failed to clear tables: %w", err)
	}

	for i, t := range state.Templates {
		hierarchy, err := encodeHierarchy(t.Hierarchy)
		if err != nil {
			return err
		}
		_, err = tx.Exec(`
			INSERT INTO templates (id, position, title, goal, hierarchy, duration_min, day, time, notes)
			VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8, $9)`,
			t.ID, i, t.Title, t.Goal, hierarchy, t.DurationMin, int(t.Day), t.Time, t.Notes)
		if err != nil {
			return fmt.Errorf("failed to insert template %d: %w", t.ID, err)
		}
	}

	for weekID, week := range state.WeeklyInstances {
		if _, err := tx.Exec(`INSERT INTO weeks (week_id, created_at) VALUES ($1, $2)`, weekID, week.CreatedAt); err != nil {
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
				VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10, $11, $12)`,
				ti.ID, weekID, i, templateID, ti.Title, ti.Goal, hierarchy, ti.DurationMin, int(ti.Day), ti.Time, ti.Notes, ti.Completed)
			if err != nil {
				return fmt.Errorf("failed to insert task %d: %w", ti.ID, err)
			}
		}
	}

	_, err := tx.Exec(`INSERT INTO meta (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, nextIDKey, state.NextID)
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

func decodeHierarchy(b []byte) ([]string, error) {
	var h []string
	if err := json.Unmarshal(b, &h); err != nil {
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

// GetConfigPath returns a non-sensitive identifier instead of the connection string.
func (s *Store) GetConfigPath() string {
	return "postgresql"
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
