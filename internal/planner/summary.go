package planner

import (
	"time"

	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/weekclock"
)

// DaySummary totals one day of a week.
type DaySummary struct {
	Day        time.Weekday
	Date       time.Time
	PlannedMin int
	Tasks      int
	Completed  int
	Checklist  models.Checklist
}

// Summary totals a week. Days runs Monday through Sunday.
type Summary struct {
	WeekID       string
	Materialized bool
	Days         [7]DaySummary
	PlannedMin   int
	Tasks        int
	Completed    int
	Checklist    models.Checklist
}

// Summarize reports planned minutes and progress for a week. It reads only;
// an unvisited week summarizes as empty.
func (e *Engine) Summarize(weekID string) (Summary, error) {
	id, err := weekclock.ParseWeekID(weekID)
	if err != nil {
		return Summary{}, err
	}

	week, ok := e.load().WeeklyInstances[id.String()]
	sum := Summary{WeekID: id.String(), Materialized: ok}

	index := make(map[time.Weekday]int, len(weekclock.Weekdays))
	for i, wd := range weekclock.Weekdays {
		sum.Days[i] = DaySummary{Day: wd, Date: id.Date(wd)}
		index[wd] = i
	}

	for _, t := range week.Tasks {
		d := &sum.Days[index[t.Day]]
		d.PlannedMin += t.DurationMin
		d.Tasks++
		if t.Completed {
			d.Completed++
		}
		cl := models.ParseChecklist(t.Notes)
		d.Checklist.Done += cl.Done
		d.Checklist.Total += cl.Total
	}

	for _, d := range sum.Days {
		sum.PlannedMin += d.PlannedMin
		sum.Tasks += d.Tasks
		sum.Completed += d.Completed
		sum.Checklist.Done += d.Checklist.Done
		sum.Checklist.Total += d.Checklist.Total
	}
	return sum, nil
}

// Progress is the completed fraction of tasks, 0 for an empty week.
func (s Summary) Progress() float64 {
	if s.Tasks == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Tasks)
}
