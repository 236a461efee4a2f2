package tasks

import (
	"errors"
	"fmt"

	"github.com/julianstephens/weekplan/internal/cli"
)

type TaskCmd struct {
	Add     TaskAddCmd     `cmd:"" help:"Add a one-off task to a week."`
	Edit    TaskEditCmd    `cmd:"" help:"Edit a task in place. Its template is not changed."`
	Done    TaskDoneCmd    `cmd:"" help:"Mark a task completed."`
	Undone  TaskUndoneCmd  `cmd:"" help:"Mark a task not completed."`
	Delete  TaskDeleteCmd  `cmd:"" help:"Delete a task."`
	Promote TaskPromoteCmd `cmd:"" help:"Turn a task into a template for future weeks."`
}

type TaskAddCmd struct {
	cli.NewFields `embed:""`
	Week          string `short:"w" help:"Week identifier (YYYY-Www), or this/next/prev. Defaults to the current week."`
}

func (c *TaskAddCmd) Run(ctx *cli.Context) error {
	id, err := ctx.ResolveWeek(c.Week)
	if err != nil {
		return err
	}
	fields, err := c.NewFields.TaskPatch()
	if err != nil {
		return err
	}

	task, err := ctx.Engine.AddTask(id.String(), fields)
	if err != nil {
		return fmt.Errorf("failed to add task: %w", err)
	}
	ctx.Printf("Added task #%d to %s on %s: %s\n", task.ID, id, task.Day, task.Title)
	return nil
}

type TaskEditCmd struct {
	ID             int64 `arg:"" help:"Task ID."`
	cli.FieldFlags `embed:""`
}

func (c *TaskEditCmd) Run(ctx *cli.Context) error {
	if c.FieldFlags.Empty() {
		return errors.New("nothing to change, pass at least one field flag")
	}
	patch, err := c.FieldFlags.TaskPatch()
	if err != nil {
		return err
	}

	task, err := ctx.Engine.UpdateTask(c.ID, patch)
	if err != nil {
		return fmt.Errorf("failed to edit task: %w", err)
	}
	ctx.Printf("Updated task #%d\n", task.ID)
	ctx.Println("  " + cli.FormatTaskLine(task))
	return nil
}

type TaskDoneCmd struct {
	ID int64 `arg:"" help:"Task ID."`
}

func (c *TaskDoneCmd) Run(ctx *cli.Context) error {
	return setCompleted(ctx, c.ID, true)
}

type TaskUndoneCmd struct {
	ID int64 `arg:"" help:"Task ID."`
}

func (c *TaskUndoneCmd) Run(ctx *cli.Context) error {
	return setCompleted(ctx, c.ID, false)
}

func setCompleted(ctx *cli.Context, id int64, done bool) error {
	task, err := ctx.Engine.SetCompleted(id, done)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if done {
		ctx.Printf("✓ Completed #%d %s\n", task.ID, task.Title)
	} else {
		ctx.Printf("Reopened #%d %s\n", task.ID, task.Title)
	}
	return nil
}

type TaskDeleteCmd struct {
	ID  int64 `arg:"" help:"Task ID."`
	Yes bool  `short:"y" help:"Do not ask for confirmation."`
}

func (c *TaskDeleteCmd) Run(ctx *cli.Context) error {
	weekID, task, err := ctx.Engine.FindTask(c.ID)
	if err != nil {
		return err
	}
	if !c.Yes {
		ok, err := ctx.Confirm(fmt.Sprintf("Delete #%d %q from %s?", task.ID, task.Title, weekID))
		if err != nil {
			return err
		}
		if !ok {
			ctx.Println("Cancelled.")
			return nil
		}
	}

	if err := ctx.Engine.DeleteTask(c.ID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	ctx.Printf("Deleted task #%d\n", c.ID)
	return nil
}

type TaskPromoteCmd struct {
	ID   int64 `arg:"" help:"Task ID."`
	Link bool  `help:"Point the task at the new template."`
}

func (c *TaskPromoteCmd) Run(ctx *cli.Context) error {
	tmpl, err := ctx.Engine.PromoteToTemplate(c.ID, c.Link)
	if err != nil {
		return fmt.Errorf("failed to promote task: %w", err)
	}
	ctx.Printf("Created template #%d %q from task #%d; it will appear in weeks you visit from now on.\n", tmpl.ID, tmpl.Title, c.ID)
	return nil
}
