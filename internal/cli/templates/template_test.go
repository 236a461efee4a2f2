package templates

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/weekplan/internal/cli"
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

func TestTemplateListCmd_Empty(t *testing.T) {
	ctx, out := setupTestContext(t, "")

	if err := (&TemplateListCmd{}).Run(ctx); err != nil {
		t.Fatalf("template list failed: %v", err)
	}
	if !strings.Contains(out.String(), "No templates.") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestTemplateAddAndList(t *testing.T) {
	ctx, out := setupTestContext(t, "")

	add := &TemplateAddCmd{NewFields: cli.NewFields{
		Title: "Weekly review", Day: "fri", Duration: 60, Time: "16:00",
		Goal: "Close open loops", Hierarchy: "Work / Admin",
	}}
	if err := add.Run(ctx); err != nil {
		t.Fatalf("template add failed: %v", err)
	}
	if !strings.Contains(out.String(), "Added template #1: Weekly review") {
		t.Errorf("unexpected output: %q", out.String())
	}

	out.Reset()
	if err := (&TemplateListCmd{}).Run(ctx); err != nil {
		t.Fatalf("template list failed: %v", err)
	}
	for _, part := range []string{"#1", "Fri", "16:00", "1h", "Weekly review", "(Work / Admin)", "goal: Close open loops"} {
		if !strings.Contains(out.String(), part) {
			t.Errorf("list output %q missing %q", out.String(), part)
		}
	}
}

func TestTemplateEditCmd_LeavesExistingWeeks(t *testing.T) {
	ctx, out := setupTestContext(t, "")

	add := &TemplateAddCmd{NewFields: cli.NewFields{Title: "Run", Day: "tue", Duration: 30}}
	if err := add.Run(ctx); err != nil {
		t.Fatalf("template add failed: %v", err)
	}
	if _, err := ctx.Engine.Materialize("2026-W42"); err != nil {
		t.Fatalf("Materialize() failed: %v", err)
	}

	if err := (&TemplateEditCmd{ID: 1}).Run(ctx); err == nil {
		t.Error("edit without flags should fail")
	}

	dur, day := 45, "thu"
	edit := &TemplateEditCmd{ID: 1, FieldFlags: cli.FieldFlags{Duration: &dur, Day: &day}}
	if err := edit.Run(ctx); err != nil {
		t.Fatalf("template edit failed: %v", err)
	}
	if !strings.Contains(out.String(), "Updated template #1") {
		t.Errorf("unexpected output: %q", out.String())
	}

	week, _, _ := ctx.Engine.Week("2026-W42")
	if week.Tasks[0].DurationMin != 30 || week.Tasks[0].Day != time.Tuesday {
		t.Errorf("existing instance changed: %+v", week.Tasks[0])
	}
	next, err := ctx.Engine.Materialize("2026-W43")
	if err != nil {
		t.Fatalf("Materialize() failed: %v", err)
	}
	if next.Tasks[0].DurationMin != 45 || next.Tasks[0].Day != time.Thursday {
		t.Errorf("new instance = %+v, want edited fields", next.Tasks[0])
	}
}

func TestTemplateDeleteCmd(t *testing.T) {
	ctx, out := setupTestContext(t, "n\n")

	add := &TemplateAddCmd{NewFields: cli.NewFields{Title: "Run", Day: "tue", Duration: 30}}
	if err := add.Run(ctx); err != nil {
		t.Fatalf("template add failed: %v", err)
	}
	if _, err := ctx.Engine.Materialize("2026-W42"); err != nil {
		t.Fatalf("Materialize() failed: %v", err)
	}

	if err := (&TemplateDeleteCmd{ID: 1}).Run(ctx); err != nil {
		t.Fatalf("template delete failed: %v", err)
	}
	if !strings.Contains(out.String(), "Cancelled.") {
		t.Errorf("expected cancellation, got %q", out.String())
	}

	if err := (&TemplateDeleteCmd{ID: 1, Yes: true}).Run(ctx); err != nil {
		t.Fatalf("template delete failed: %v", err)
	}
	list, _ := ctx.Engine.Templates()
	if len(list) != 0 {
		t.Errorf("templates after delete = %+v", list)
	}

	week, _, _ := ctx.Engine.Week("2026-W42")
	if len(week.Tasks) != 1 || week.Tasks[0].Title != "Run" {
		t.Errorf("deleting a template touched existing weeks: %+v", week.Tasks)
	}
	next, _ := ctx.Engine.Materialize("2026-W43")
	if len(next.Tasks) != 0 {
		t.Errorf("deleted template still seeds new weeks: %+v", next.Tasks)
	}

	if err := (&TemplateDeleteCmd{ID: 1, Yes: true}).Run(ctx); err == nil {
		t.Error("deleting a missing template should fail")
	}
}
