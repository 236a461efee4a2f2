package system

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/julianstephens/weekplan/internal/cli"
	"github.com/julianstephens/weekplan/internal/storage"
)

type InitCmd struct {
	Reset  bool   `help:"Delete an existing SQLite or JSON store before initialization."`
	Source string `help:"Store to copy planner data from (path or connection string)."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	dest := ctx.Store.GetConfigPath()

	if c.Source != "" && samePath(c.Source, dest) {
		return fmt.Errorf("source and destination are the same: %s", dest)
	}

	if c.Reset {
		if !cli.SupportsBackup(ctx.Store) {
			return fmt.Errorf("--reset only applies to SQLite and JSON file stores")
		}
		if _, err := os.Stat(dest); err == nil {
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing store: %w", err)
			}
			if err := os.Remove(dest); err != nil {
				return fmt.Errorf("failed to delete existing store: %w", err)
			}
			ctx.Printf("Deleted existing store at: %s\n", dest)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing store: %w", err)
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	ctx.Printf("Initialized weekplan storage at: %s\n", dest)

	if c.Source != "" {
		ctx.Printf("Copying data from: %s\n", c.Source)
		if err := c.copyData(ctx); err != nil {
			return fmt.Errorf("copy failed: %w", err)
		}
	}
	return nil
}

// copyData replaces the destination's state with the source's.
func (c *InitCmd) copyData(ctx *cli.Context) error {
	src, err := storage.Open(c.Source)
	if err != nil {
		return err
	}
	defer src.Close()

	state, err := src.Load()
	if err != nil {
		return fmt.Errorf("failed to load source store: %w", err)
	}
	if err := ctx.Store.Save(state); err != nil {
		return fmt.Errorf("failed to save to destination: %w", err)
	}

	tasks := 0
	for _, w := range state.WeeklyInstances {
		tasks += len(w.Tasks)
	}
	ctx.Printf("  Copied %d templates, %d weeks, %d tasks (next id %d)\n",
		len(state.Templates), len(state.WeeklyInstances), tasks, state.NextID)
	return nil
}

func samePath(a, b string) bool {
	if a == b {
		return true
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
