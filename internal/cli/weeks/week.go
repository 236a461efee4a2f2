package weeks

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/weekplan/internal/cli"
	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/utils"
	"github.com/julianstephens/weekplan/internal/weekclock"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	dayStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type WeekCmd struct {
	Show WeekShowCmd `cmd:"" help:"Show a week's tasks, creating the week from templates on first visit." default:"1"`
	ID   WeekIDCmd   `cmd:"" name:"id" help:"Print the week identifier for a date."`
	Next WeekNextCmd `cmd:"" help:"Print the identifier of the following week."`
	Prev WeekPrevCmd `cmd:"" help:"Print the identifier of the preceding week."`
}

type WeekShowCmd struct {
	Week string `arg:"" optional:"" help:"Week identifier (YYYY-Www), or this/next/prev. Defaults to the current week."`
	Peek bool   `help:"Do not create the week if it has not been visited yet."`
}

func (c *WeekShowCmd) Run(ctx *cli.Context) error {
	id, err := ctx.ResolveWeek(c.Week)
	if err != nil {
		return err
	}

	var week models.WeeklyInstance
	if c.Peek {
		w, ok, err := ctx.Engine.Week(id.String())
		if err != nil {
			return err
		}
		if !ok {
			ctx.Printf("%s has not been planned yet.\n", id)
			return nil
		}
		week = w
	} else {
		week, err = ctx.Engine.Materialize(id.String())
		if err != nil {
			return err
		}
	}

	sum, err := ctx.Engine.Summarize(id.String())
	if err != nil {
		return err
	}

	days := id.Days()
	ctx.Println(headerStyle.Render(fmt.Sprintf("%s  %s - %s", id, days[0].Format("Mon Jan 2"), days[6].Format("Mon Jan 2"))))
	ctx.Printf("%d/%d done, %s planned", sum.Completed, sum.Tasks, cli.FormatDuration(sum.PlannedMin))
	if !sum.Checklist.Empty() {
		ctx.Printf(", checklist %d/%d", sum.Checklist.Done, sum.Checklist.Total)
	}
	ctx.Println()

	for i, wd := range weekclock.Weekdays {
		tasks := week.TasksOn(wd)
		title := fmt.Sprintf("%s %s", wd, days[i].Format("Jan 2"))
		ctx.Println()
		if week.DayComplete(wd) {
			ctx.Println(dayStyle.Render(title) + "  " + doneStyle.Render("all done"))
		} else {
			ctx.Println(dayStyle.Render(title))
		}
		if len(tasks) == 0 {
			ctx.Println(mutedStyle.Render("  (nothing planned)"))
			continue
		}
		for _, t := range tasks {
			ctx.Println("  " + cli.FormatTaskLine(t))
		}
	}
	return nil
}

type WeekIDCmd struct {
	Date string `arg:"" optional:"" help:"Date (YYYY-MM-DD). Defaults to today."`
}

func (c *WeekIDCmd) Run(ctx *cli.Context) error {
	day := ctx.Today()
	if strings.TrimSpace(c.Date) != "" && c.Date != "today" {
		parsed, err := utils.ParseDateInLocation(c.Date, day.Location())
		if err != nil {
			return fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", c.Date, err)
		}
		day = parsed
	}
	ctx.Println(weekclock.IdentifierFor(day).String())
	return nil
}

type WeekNextCmd struct {
	Week  string `arg:"" help:"Week identifier (YYYY-Www)."`
	Count int    `short:"n" default:"1" help:"Number of weeks to move."`
}

func (c *WeekNextCmd) Run(ctx *cli.Context) error {
	return printOffset(ctx, c.Week, c.Count)
}

type WeekPrevCmd struct {
	Week  string `arg:"" help:"Week identifier (YYYY-Www)."`
	Count int    `short:"n" default:"1" help:"Number of weeks to move."`
}

func (c *WeekPrevCmd) Run(ctx *cli.Context) error {
	return printOffset(ctx, c.Week, -c.Count)
}

func printOffset(ctx *cli.Context, week string, n int) error {
	if n == 1 {
		next, err := weekclock.NextWeekID(week)
		if err != nil {
			return err
		}
		ctx.Println(next)
		return nil
	}
	if n == -1 {
		prev, err := weekclock.PreviousWeekID(week)
		if err != nil {
			return err
		}
		ctx.Println(prev)
		return nil
	}
	id, err := weekclock.ParseWeekID(week)
	if err != nil {
		return err
	}
	to, err := weekclock.Step(id, n)
	if err != nil {
		return err
	}
	ctx.Println(to.String())
	return nil
}
