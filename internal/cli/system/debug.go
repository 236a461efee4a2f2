package system

import (
	"encoding/json"
	"fmt"

	"github.com/julianstephens/weekplan/internal/cli"
	"github.com/julianstephens/weekplan/internal/storage"
)

type DebugCmd struct {
	DBPath    *DebugDBPathCmd    `cmd:"" help:"Show the store location and backend."`
	DumpWeek  *DebugDumpWeekCmd  `cmd:"" help:"Dump a week as JSON without creating it."`
	DumpTask  *DebugDumpTaskCmd  `cmd:"" help:"Dump a task as JSON."`
	DumpState *DebugDumpStateCmd `cmd:"" help:"Dump the whole persisted state as JSON."`
}

type DebugDBPathCmd struct{}

func (cmd *DebugDBPathCmd) Run(ctx *cli.Context) error {
	path := ctx.Store.GetConfigPath()
	return printJSON(ctx, map[string]string{
		"path":    path,
		"backend": string(storage.KindOf(path)),
	})
}

type DebugDumpWeekCmd struct {
	Week string `arg:"" optional:"" help:"Week identifier (YYYY-Www), or this/next/prev."`
}

func (cmd *DebugDumpWeekCmd) Run(ctx *cli.Context) error {
	id, err := ctx.ResolveWeek(cmd.Week)
	if err != nil {
		return err
	}
	week, ok, err := ctx.Engine.Week(id.String())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("week %s has not been materialized", id)
	}
	return printJSON(ctx, map[string]any{id.String(): week})
}

type DebugDumpTaskCmd struct {
	ID int64 `arg:"" help:"ID of the task to dump."`
}

func (cmd *DebugDumpTaskCmd) Run(ctx *cli.Context) error {
	weekID, task, err := ctx.Engine.FindTask(cmd.ID)
	if err != nil {
		return err
	}
	return printJSON(ctx, map[string]any{"week": weekID, "task": task})
}

type DebugDumpStateCmd struct{}

func (cmd *DebugDumpStateCmd) Run(ctx *cli.Context) error {
	state, err := ctx.Store.Load()
	if err != nil {
		return fmt.Errorf("failed to load store: %w", err)
	}
	return printJSON(ctx, state)
}

func printJSON(ctx *cli.Context, v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	ctx.Println(string(jsonBytes))
	return nil
}
