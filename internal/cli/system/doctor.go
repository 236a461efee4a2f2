package system

import (
	"fmt"
	"time"

	"github.com/julianstephens/weekplan/internal/backup"
	"github.com/julianstephens/weekplan/internal/cli"
	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/session"
	"github.com/julianstephens/weekplan/internal/weekclock"
)

// schemaReporter is implemented by the SQL backends.
type schemaReporter interface {
	SchemaVersion() (current, latest int, err error)
}

type DoctorCmd struct{}

type check struct {
	name     string
	needsDB  bool
	warnOnly bool
	run      func(ctx *cli.Context) error
}

var checks = []check{
	{name: "Schema version", needsDB: true, run: checkSchemaVersion},
	{name: "Data validation", needsDB: true, run: checkValidation},
	{name: "Backups present", warnOnly: true, run: checkBackupsPresent},
	{name: "Session lock", warnOnly: true, run: checkSessionLock},
	{name: "Clock/timezone", run: checkClockTimezone},
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	ctx.Println("Running diagnostics...")
	ctx.Println()

	hasError := false
	dbReachable := true

	if err := checkDBReachable(ctx); err != nil {
		ctx.Printf("❌ Store reachable: FAIL\n")
		ctx.Printf("   Error: %v\n", err)
		hasError = true
		dbReachable = false
	} else {
		ctx.Printf("✓ Store reachable: OK\n")
	}

	for _, c := range checks {
		if c.needsDB && !dbReachable {
			ctx.Printf("⊘ %s: SKIPPED (store not reachable)\n", c.name)
			continue
		}
		err := c.run(ctx)
		switch {
		case err == nil:
			ctx.Printf("✓ %s: OK\n", c.name)
		case c.warnOnly:
			ctx.Printf("⚠ %s: WARNING\n", c.name)
			ctx.Printf("   %v\n", err)
		default:
			ctx.Printf("❌ %s: FAIL\n", c.name)
			ctx.Printf("   Error: %v\n", err)
			hasError = true
		}
	}

	ctx.Println()
	if hasError {
		ctx.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}
	ctx.Println("All diagnostics passed!")
	return nil
}

func checkDBReachable(ctx *cli.Context) error {
	if _, err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load store: %w", err)
	}
	return nil
}

func checkSchemaVersion(ctx *cli.Context) error {
	reporter, ok := ctx.Store.(schemaReporter)
	if !ok {
		return nil
	}
	current, latest, err := reporter.SchemaVersion()
	if err != nil {
		return err
	}
	if current > latest {
		return fmt.Errorf("store schema version (%d) is newer than supported version (%d)", current, latest)
	}
	if current < latest {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d", current, latest)
	}
	return nil
}

func checkValidation(ctx *cli.Context) error {
	state, err := ctx.Store.Load()
	if err != nil {
		return err
	}
	return validateState(state)
}

// validateState checks what a hand-edited or partially restored store can
// get wrong: bad week keys, invalid fields, reused ids, a lagging counter.
func validateState(state models.State) error {
	seen := make(map[int64]string)
	claim := func(id int64, owner string) error {
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("id %d used by both %s and %s", id, prev, owner)
		}
		seen[id] = owner
		return nil
	}

	for _, t := range state.Templates {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("template #%d: %w", t.ID, err)
		}
		if err := claim(t.ID, fmt.Sprintf("template #%d", t.ID)); err != nil {
			return err
		}
	}
	for _, weekID := range state.WeekIDs() {
		if _, err := weekclock.ParseWeekID(weekID); err != nil {
			return err
		}
		for _, task := range state.WeeklyInstances[weekID].Tasks {
			if err := task.Validate(); err != nil {
				return fmt.Errorf("task #%d in %s: %w", task.ID, weekID, err)
			}
			if err := claim(task.ID, fmt.Sprintf("task #%d in %s", task.ID, weekID)); err != nil {
				return err
			}
		}
	}
	if maxID := state.MaxID(); state.NextID <= maxID {
		return fmt.Errorf("id counter %d would reissue id %d", state.NextID, maxID)
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	if !cli.SupportsBackup(ctx.Store) {
		return nil
	}
	mgr := backup.NewManager(ctx.Store.GetConfigPath())
	backups, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found - consider creating one with 'weekplan backup create'")
	}
	return nil
}

func checkSessionLock(ctx *cli.Context) error {
	if ctx.StateDir == "" {
		return nil
	}
	holder, live, err := session.Inspect(ctx.StateDir)
	if err != nil {
		return fmt.Errorf("unreadable lockfile at %s: %w", session.Path(ctx.StateDir), err)
	}
	if live {
		return fmt.Errorf("held by %s (pid %d) since %s", holder.Executable, holder.PID, holder.Since.Local().Format(time.RFC822))
	}
	return nil
}

func checkClockTimezone(ctx *cli.Context) error {
	now := ctx.Today()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	return nil
}
