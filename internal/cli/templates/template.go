package templates

import (
	"errors"
	"fmt"

	"github.com/julianstephens/weekplan/internal/cli"
	"github.com/julianstephens/weekplan/internal/models"
)

type TemplateCmd struct {
	List   TemplateListCmd   `cmd:"" help:"List active templates." default:"1"`
	Add    TemplateAddCmd    `cmd:"" help:"Add a template. It seeds weeks visited from now on."`
	Edit   TemplateEditCmd   `cmd:"" help:"Edit a template. Existing weeks keep their copies."`
	Delete TemplateDeleteCmd `cmd:"" help:"Delete a template. Existing weeks keep their copies."`
}

type TemplateListCmd struct{}

func (c *TemplateListCmd) Run(ctx *cli.Context) error {
	list, err := ctx.Engine.Templates()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		ctx.Println("No templates. Add one with 'weekplan template add' or promote a task.")
		return nil
	}
	for _, t := range list {
		ctx.Println(formatTemplate(t))
	}
	return nil
}

func formatTemplate(t models.Template) string {
	line := fmt.Sprintf("#%-4d %s %-7s %-6s %s", t.ID, cli.Weekday(t.Day), cli.FormatTime(t.Time), cli.FormatDuration(t.DurationMin), t.Title)
	if len(t.Hierarchy) > 0 {
		line += "  (" + models.HierarchyPath(t.Hierarchy) + ")"
	}
	if t.Goal != "" {
		line += "  goal: " + t.Goal
	}
	return line
}

type TemplateAddCmd struct {
	cli.NewFields `embed:""`
}

func (c *TemplateAddCmd) Run(ctx *cli.Context) error {
	fields, err := c.NewFields.TemplatePatch()
	if err != nil {
		return err
	}
	tmpl, err := ctx.Engine.CreateTemplate(fields)
	if err != nil {
		return fmt.Errorf("failed to add template: %w", err)
	}
	ctx.Printf("Added template #%d: %s\n", tmpl.ID, tmpl.Title)
	return nil
}

type TemplateEditCmd struct {
	ID             int64 `arg:"" help:"Template ID."`
	cli.FieldFlags `embed:""`
}

func (c *TemplateEditCmd) Run(ctx *cli.Context) error {
	if c.FieldFlags.Empty() {
		return errors.New("nothing to change, pass at least one field flag")
	}
	patch, err := c.FieldFlags.TemplatePatch()
	if err != nil {
		return err
	}
	tmpl, err := ctx.Engine.EditTemplate(c.ID, patch)
	if err != nil {
		return fmt.Errorf("failed to edit template: %w", err)
	}
	ctx.Printf("Updated template #%d\n", tmpl.ID)
	ctx.Println(formatTemplate(tmpl))
	return nil
}

type TemplateDeleteCmd struct {
	ID  int64 `arg:"" help:"Template ID."`
	Yes bool  `short:"y" help:"Do not ask for confirmation."`
}

func (c *TemplateDeleteCmd) Run(ctx *cli.Context) error {
	tmpl, err := ctx.Engine.Template(c.ID)
	if err != nil {
		return err
	}
	if !c.Yes {
		ok, err := ctx.Confirm(fmt.Sprintf("Delete template #%d %q?", tmpl.ID, tmpl.Title))
		if err != nil {
			return err
		}
		if !ok {
			ctx.Println("Cancelled.")
			return nil
		}
	}
	if err := ctx.Engine.DeleteTemplate(c.ID); err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	ctx.Printf("Deleted template #%d\n", c.ID)
	return nil
}
