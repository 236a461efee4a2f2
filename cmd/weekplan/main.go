package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/weekplan/internal/cli"
	"github.com/julianstephens/weekplan/internal/cli/backups"
	"github.com/julianstephens/weekplan/internal/cli/system"
	"github.com/julianstephens/weekplan/internal/cli/tasks"
	"github.com/julianstephens/weekplan/internal/cli/templates"
	"github.com/julianstephens/weekplan/internal/cli/weeks"
	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/errors"
	"github.com/julianstephens/weekplan/internal/logger"
	"github.com/julianstephens/weekplan/internal/planner"
	"github.com/julianstephens/weekplan/internal/session"
	"github.com/julianstephens/weekplan/internal/storage"
	"github.com/julianstephens/weekplan/internal/utils"
)

var CLI struct {
	Version  kong.VersionFlag
	Config   string `help:"Store location: a SQLite or JSON file path, a postgres:// URL without a password, or a redis:// URL." env:"WEEKPLAN_CONFIG" default:"~/.config/weekplan/weekplan.db"`
	Debug    bool   `help:"Log debug output to stderr as well as the log file." env:"WEEKPLAN_DEBUG"`
	Timezone string `help:"Timezone used to decide which week is current." env:"WEEKPLAN_TZ" default:"Local"`
	Force    bool   `help:"Run even if another weekplan session holds the lock."`

	Init     system.InitCmd        `cmd:"" help:"Initialize weekplan storage."`
	Doctor   system.DoctorCmd      `cmd:"" help:"Run health checks and diagnostics."`
	Tui      system.TuiCmd         `cmd:"" help:"Launch the interactive week view." default:"1"`
	Week     weeks.WeekCmd         `cmd:"" help:"Show weeks and compute week identifiers."`
	Task     tasks.TaskCmd         `cmd:"" help:"Manage the tasks of a week."`
	Template templates.TemplateCmd `cmd:"" help:"Manage templates that seed new weeks."`
	Backup   backups.BackupCmd     `cmd:"" help:"Manage store backups."`
	Keyring  system.KeyringCmd     `cmd:"" help:"Manage the PostgreSQL connection string in the OS keyring."`
	Inspect  system.DebugCmd       `cmd:"" name:"debug" hidden:"" help:"Debug commands for troubleshooting."`
}

// readOnly lists the commands that never write planner data and so run
// without the session lock.
var readOnly = map[string]bool{
	"doctor":        true,
	"keyring":       true,
	"debug":         true,
	"week id":       true,
	"week next":     true,
	"week prev":     true,
	"template list": true,
	"backup list":   true,
}

// storeless commands never touch planner data.
var storeless = map[string]bool{
	"keyring":   true,
	"week id":   true,
	"week next": true,
	"week prev": true,
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Weekly planner: reusable templates, materialized weeks, one-off tasks."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Configuration(kong.JSON, constants.DefaultConfigFile),
		kong.Vars{"version": constants.Version},
	)

	if err := run(ctx); err != nil {
		errors.Fatal(err)
	}
}

func run(ctx *kong.Context) error {
	command := commandPath(ctx.Command())

	configPath, err := utils.ExpandHome(CLI.Config)
	if err != nil {
		return err
	}
	stateDir, err := stateDirFor(configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Debug:     CLI.Debug,
		ConfigDir: stateDir,
		Quiet:     command == "tui",
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Debug("Starting weekplan", "command", command, "store", storage.KindOf(configPath))

	loc, err := cli.ResolveLocation(CLI.Timezone)
	if err != nil {
		return err
	}
	now := func() time.Time { return time.Now().In(loc) }

	appCtx := &cli.Context{
		StateDir: stateDir,
		Location: loc,
		Now:      now,
	}

	if !storeless[topLevel(command)] && !storeless[command] {
		store, err := storage.Open(configPath)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Warn("Failed to close store", "error", err)
			}
		}()
		appCtx.Store = store
		appCtx.Engine = planner.New(store,
			planner.WithClock(now),
			planner.WithLogger(logger.Component("planner")),
		)

		if !readOnly[topLevel(command)] && !readOnly[command] {
			lock, err := session.Acquire(stateDir, CLI.Force)
			if err != nil {
				return err
			}
			defer func() {
				if err := lock.Release(); err != nil {
					logger.Warn("Failed to release session lock", "error", err)
				}
			}()
		}

		// init creates the store; doctor reports a missing one itself.
		if command != "init" && command != "doctor" {
			if _, err := store.Load(); err != nil {
				return err
			}
		}
	}

	return ctx.Run(appCtx)
}

// stateDirFor places the lock and logs beside a file store, or in the
// default config directory for server backends.
func stateDirFor(configPath string) (string, error) {
	switch storage.KindOf(configPath) {
	case storage.KindSQLite, storage.KindJSON:
		return filepath.Dir(configPath), nil
	default:
		return utils.ExpandHome(filepath.Dir(constants.DefaultConfigPath))
	}
}

// commandPath drops positional placeholders: "task edit <id>" becomes
// "task edit".
func commandPath(cmd string) string {
	var parts []string
	for _, f := range strings.Fields(cmd) {
		if strings.HasPrefix(f, "<") {
			continue
		}
		parts = append(parts, f)
	}
	return strings.Join(parts, " ")
}

func topLevel(cmd string) string {
	name, _, _ := strings.Cut(cmd, " ")
	return name
}
