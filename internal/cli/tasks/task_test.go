package tasks

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/weekplan/internal/cli"
	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/planner"
	"github.com/julianstephens/weekplan/internal/storage"
)

func setupTestContext(t *testing.T, input string) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	store := storage.NewMemoryStore()
	if err := store.Init(); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
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

func addTask(t *testing.T, ctx *cli.Context, title, day string) models.TaskInstance {
	t.Helper()
	cmd := &TaskAddCmd{NewFields: cli.NewFields{Title: title, Day: day, Duration: 30}}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("task add failed: %v", err)
	}
	state, err := ctx.Store.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	for _, w := range state.WeeklyInstances {
		for _, task := range w.Tasks {
			if task.Title == title {
				return task
			}
		}
	}
	t.Fatalf("task %q not stored", title)
	return models.TaskInstance{}
}

func TestTaskAddCmd(t *testing.T) {
	ctx, out := setupTestContext(t, "")

	cmd := &TaskAddCmd{
		NewFields: cli.NewFields{Title: "Dentist", Day: "thu", Duration: 45, Time: "15:30", Hierarchy: "Health"},
		Week:      "next",
	}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("task add failed: %v", err)
	}
	if !strings.Contains(out.String(), "Added task #1 to 2026-W43 on Thursday: Dentist") {
		t.Errorf("unexpected output: %q", out.String())
	}

	week, ok, err := ctx.Engine.Week("2026-W43")
	if err != nil || !ok {
		t.Fatalf("week not created: ok=%v err=%v", ok, err)
	}
	task := week.Tasks[0]
	if task.TemplateID != nil || task.Time != "15:30" || task.DurationMin != 45 || task.Hierarchy[0] != "Health" {
		t.Errorf("stored task = %+v", task)
	}
}

func TestTaskAddCmd_Invalid(t *testing.T) {
	ctx, _ := setupTestContext(t, "")

	tests := []struct {
		name   string
		fields cli.NewFields
		week   string
	}{
		{name: "bad day", fields: cli.NewFields{Title: "X", Day: "someday", Duration: 30}},
		{name: "bad time", fields: cli.NewFields{Title: "X", Day: "mon", Duration: 30, Time: "25:99"}},
		{name: "zero duration", fields: cli.NewFields{Title: "X", Day: "mon"}},
		{name: "empty title", fields: cli.NewFields{Title: "  ", Day: "mon", Duration: 30}},
		{name: "bad week", fields: cli.NewFields{Title: "X", Day: "mon", Duration: 30}, week: "2026-W99"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &TaskAddCmd{NewFields: tt.fields, Week: tt.week}
			if err := cmd.Run(ctx); err == nil {
				t.Error("expected an error")
			}
		})
	}

	state, _ := ctx.Store.Load()
	if state.NextID != 1 {
		t.Errorf("failed adds consumed ids: NextID = %d", state.NextID)
	}
}

func TestTaskEditCmd(t *testing.T) {
	ctx, out := setupTestContext(t, "")
	task := addTask(t, ctx, "Groceries", "sat")

	if err := (&TaskEditCmd{ID: task.ID}).Run(ctx); err == nil {
		t.Error("edit without flags should fail")
	}

	title, dur := "Groceries and pharmacy", 50
	cmd := &TaskEditCmd{ID: task.ID, FieldFlags: cli.FieldFlags{Title: &title, Duration: &dur}}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("task edit failed: %v", err)
	}
	if !strings.Contains(out.String(), "Updated task #1") {
		t.Errorf("unexpected output: %q", out.String())
	}

	_, got, err := ctx.Engine.FindTask(task.ID)
	if err != nil {
		t.Fatalf("FindTask() failed: %v", err)
	}
	if got.Title != title || got.DurationMin != 50 || got.Day != time.Saturday {
		t.Errorf("edited task = %+v", got)
	}
}

func TestTaskDoneAndUndone(t *testing.T) {
	ctx, out := setupTestContext(t, "")
	task := addTask(t, ctx, "Call mum", "sun")

	if err := (&TaskDoneCmd{ID: task.ID}).Run(ctx); err != nil {
		t.Fatalf("task done failed: %v", err)
	}
	if _, got, _ := ctx.Engine.FindTask(task.ID); !got.Completed {
		t.Error("task not completed")
	}
	if !strings.Contains(out.String(), "✓ Completed #1 Call mum") {
		t.Errorf("unexpected output: %q", out.String())
	}

	if err := (&TaskUndoneCmd{ID: task.ID}).Run(ctx); err != nil {
		t.Fatalf("task undone failed: %v", err)
	}
	if _, got, _ := ctx.Engine.FindTask(task.ID); got.Completed {
		t.Error("task still completed")
	}

	if err := (&TaskDoneCmd{ID: 99}).Run(ctx); err == nil {
		t.Error("completing a missing task should fail")
	}
}

func TestTaskDeleteCmd_Confirmation(t *testing.T) {
	ctx, out := setupTestContext(t, "n\n")
	task := addTask(t, ctx, "Car wash", "sat")

	if err := (&TaskDeleteCmd{ID: task.ID}).Run(ctx); err != nil {
		t.Fatalf("task delete failed: %v", err)
	}
	if !strings.Contains(out.String(), "Cancelled.") {
		t.Errorf("expected cancellation, got %q", out.String())
	}
	if _, _, err := ctx.Engine.FindTask(task.ID); err != nil {
		t.Error("declined delete removed the task")
	}

	ctx.In = strings.NewReader("y\n")
	if err := (&TaskDeleteCmd{ID: task.ID}).Run(ctx); err != nil {
		t.Fatalf("task delete failed: %v", err)
	}
	if _, _, err := ctx.Engine.FindTask(task.ID); err == nil {
		t.Error("task still present after delete")
	}
}

func TestTaskDeleteCmd_Yes(t *testing.T) {
	ctx, _ := setupTestContext(t, "")
	task := addTask(t, ctx, "Car wash", "sat")

	if err := (&TaskDeleteCmd{ID: task.ID, Yes: true}).Run(ctx); err != nil {
		t.Fatalf("task delete failed: %v", err)
	}
	if _, _, err := ctx.Engine.FindTask(task.ID); err == nil {
		t.Error("task still present after delete")
	}
}

func TestTaskPromoteCmd(t *testing.T) {
	ctx, out := setupTestContext(t, "")
	task := addTask(t, ctx, "Piano", "wed")

	if err := (&TaskPromoteCmd{ID: task.ID, Link: true}).Run(ctx); err != nil {
		t.Fatalf("task promote failed: %v", err)
	}
	if !strings.Contains(out.String(), "Created template #2 \"Piano\" from task #1") {
		t.Errorf("unexpected output: %q", out.String())
	}

	_, got, _ := ctx.Engine.FindTask(task.ID)
	if got.TemplateID == nil || *got.TemplateID != 2 {
		t.Errorf("linked task TemplateID = %v, want 2", got.TemplateID)
	}

	next, err := ctx.Engine.Materialize("2026-W43")
	if err != nil {
		t.Fatalf("Materialize() failed: %v", err)
	}
	if len(next.Tasks) != 1 || next.Tasks[0].Title != "Piano" || next.Tasks[0].Day != time.Wednesday {
		t.Errorf("next week = %+v, want the promoted Piano", next.Tasks)
	}
}
