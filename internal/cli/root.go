package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/weekplan/internal/backup"
	"github.com/julianstephens/weekplan/internal/logger"
	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/planner"
	"github.com/julianstephens/weekplan/internal/storage"
	"github.com/julianstephens/weekplan/internal/utils"
	"github.com/julianstephens/weekplan/internal/weekclock"
)

type Context struct {
	Store    storage.Provider
	StateDir string // holds the session lock and logs
	Engine   *planner.Engine
	Location *time.Location
	Now      func() time.Time
	Out      io.Writer
	In       io.Reader
}

// Printf writes to the command's output, stdout unless overridden.
func (c *Context) Printf(format string, args ...any) {
	fmt.Fprintf(c.out(), format, args...)
}

func (c *Context) Println(args ...any) {
	fmt.Fprintln(c.out(), args...)
}

func (c *Context) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

// Input returns the reader confirmations are read from.
func (c *Context) Input() io.Reader {
	if c.In == nil {
		return os.Stdin
	}
	return c.In
}

// ResolveLocation turns the --timezone value into a location.
func ResolveLocation(name string) (*time.Location, error) {
	if !utils.ValidateTimezone(name) {
		return nil, fmt.Errorf("unknown timezone %q (use an IANA name such as Europe/Berlin, or Local)", name)
	}
	return utils.LoadLocation(name)
}

// Today returns the current instant in the configured location.
func (c *Context) Today() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return now().In(loc)
}

// CurrentWeek identifies the week containing Today.
func (c *Context) CurrentWeek() weekclock.WeekID {
	return weekclock.IdentifierFor(c.Today())
}

// ResolveWeek turns a week argument into an identifier. Empty, "this" and
// "current" mean the current week; "next", "prev" and "last" are relative
// to it; anything else must be a "YYYY-Www" identifier.
func (c *Context) ResolveWeek(arg string) (weekclock.WeekID, error) {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "", "this", "current":
		return c.CurrentWeek(), nil
	case "next":
		return weekclock.Next(c.CurrentWeek()), nil
	case "prev", "previous", "last":
		return weekclock.Previous(c.CurrentWeek()), nil
	}
	return weekclock.ParseWeekID(strings.TrimSpace(arg))
}

// PerformAutomaticBackup snapshots file-backed stores and logs failures
// without interrupting the command.
func (c *Context) PerformAutomaticBackup() {
	if !SupportsBackup(c.Store) {
		return
	}
	mgr := backup.NewManager(c.Store.GetConfigPath())
	if _, err := mgr.Create(); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// SupportsBackup reports whether the store lives in a local file the
// backup manager can snapshot.
func SupportsBackup(store storage.Provider) bool {
	if store == nil {
		return false
	}
	switch storage.KindOf(store.GetConfigPath()) {
	case storage.KindSQLite, storage.KindJSON:
		return store.GetConfigPath() != ":memory:"
	default:
		return false
	}
}

var dayMap = map[string]time.Weekday{
	"sun":       time.Sunday,
	"sunday":    time.Sunday,
	"mon":       time.Monday,
	"monday":    time.Monday,
	"tue":       time.Tuesday,
	"tues":      time.Tuesday,
	"tuesday":   time.Tuesday,
	"wed":       time.Wednesday,
	"wednesday": time.Wednesday,
	"thu":       time.Thursday,
	"thur":      time.Thursday,
	"thurs":     time.Thursday,
	"thursday":  time.Thursday,
	"fri":       time.Friday,
	"friday":    time.Friday,
	"sat":       time.Saturday,
	"saturday":  time.Saturday,
}

// ParseWeekday accepts a day name or abbreviation, or a number where
// 1 is Monday and 7 is Sunday (0 is also Sunday).
func ParseWeekday(s string) (time.Weekday, error) {
	part := strings.TrimSpace(strings.ToLower(s))
	if wd, ok := dayMap[part]; ok {
		return wd, nil
	}
	num, err := strconv.Atoi(part)
	if err == nil && num >= 0 && num <= 7 {
		return time.Weekday(num % 7), nil
	}
	return 0, fmt.Errorf("invalid weekday: %s", s)
}

// ParseHierarchy splits "Work / Reports" or "Work/Reports" into its parts.
func ParseHierarchy(s string) []string {
	var out []string
	for _, part := range strings.Split(s, "/") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// FormatDuration renders minutes as "1h30m", "45m" or "2h".
func FormatDuration(minutes int) string {
	h, m := minutes/60, minutes%60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh%02dm", h, m)
	}
}

// FormatTime renders a task's time slot, "anytime" when unset.
func FormatTime(at string) string {
	if at == "" {
		return "anytime"
	}
	return at
}

// FormatTaskLine is the one-line listing shared by week and task commands.
func FormatTaskLine(t models.TaskInstance) string {
	mark := "[ ]"
	if t.Completed {
		mark = "[x]"
	}
	line := fmt.Sprintf("%s #%-4d %-7s %-6s %s", mark, t.ID, FormatTime(t.Time), FormatDuration(t.DurationMin), t.Title)
	if len(t.Hierarchy) > 0 {
		line += "  (" + models.HierarchyPath(t.Hierarchy) + ")"
	}
	if cl := models.ParseChecklist(t.Notes); !cl.Empty() {
		line += fmt.Sprintf("  [%d/%d]", cl.Done, cl.Total)
	}
	if t.TemplateID == nil {
		line += "  one-off"
	}
	return line
}

// Confirm asks a yes/no question on the context's input.
func (c *Context) Confirm(prompt string) (bool, error) {
	c.Printf("%s [y/N]: ", prompt)
	response, err := bufio.NewReader(c.Input()).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}
