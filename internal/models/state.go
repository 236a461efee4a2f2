package models

import (
	"sort"

	"github.com/julianstephens/weekplan/internal/constants"
)

// State is the whole persisted planner: every materialized week, the
// active templates, and the id counter shared by templates and instances.
type State struct {
	WeeklyInstances map[string]WeeklyInstance `json:"weeklyInstances"`
	Templates       []Template                `json:"templates"`
	NextID          int64                     `json:"nextId"`
}

// NewState returns the empty structure a fresh store starts from.
func NewState() State {
	return State{
		WeeklyInstances: make(map[string]WeeklyInstance),
		Templates:       []Template{},
		NextID:          constants.InitialNextID,
	}
}

// Normalize repairs a decoded state: nil collections become empty, week
// keys are copied into each instance, and a counter that would reissue an
// existing id is advanced past the highest one seen.
func (s *State) Normalize() {
	if s.WeeklyInstances == nil {
		s.WeeklyInstances = make(map[string]WeeklyInstance)
	}
	if s.Templates == nil {
		s.Templates = []Template{}
	}
	if s.NextID < constants.InitialNextID {
		s.NextID = constants.InitialNextID
	}
	for key, week := range s.WeeklyInstances {
		week.WeekID = key
		if week.Tasks == nil {
			week.Tasks = []TaskInstance{}
		}
		s.WeeklyInstances[key] = week
	}
	if maxID := s.MaxID(); s.NextID <= maxID {
		s.NextID = maxID + 1
	}
}

// MaxID returns the highest template or instance id in the state.
func (s State) MaxID() int64 {
	var maxID int64
	for _, t := range s.Templates {
		maxID = max(maxID, t.ID)
	}
	for _, week := range s.WeeklyInstances {
		for _, task := range week.Tasks {
			maxID = max(maxID, task.ID)
		}
	}
	return maxID
}

// AllocateID issues the next id and advances the counter.
func (s *State) AllocateID() int64 {
	if s.NextID < constants.InitialNextID {
		s.NextID = constants.InitialNextID
	}
	id := s.NextID
	s.NextID++
	return id
}

// Clone deep-copies the state.
func (s State) Clone() State {
	c := State{
		WeeklyInstances: make(map[string]WeeklyInstance, len(s.WeeklyInstances)),
		Templates:       make([]Template, len(s.Templates)),
		NextID:          s.NextID,
	}
	for key, week := range s.WeeklyInstances {
		c.WeeklyInstances[key] = week.Clone()
	}
	for i, t := range s.Templates {
		c.Templates[i] = t.Clone()
	}
	return c
}

// TemplateIndex returns the position of the template with id, or -1.
func (s State) TemplateIndex(id int64) int {
	for i, t := range s.Templates {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// LocateTask finds the week and position of an instance.
func (s State) LocateTask(id int64) (weekID string, index int, ok bool) {
	for key, week := range s.WeeklyInstances {
		for i, task := range week.Tasks {
			if task.ID == id {
				return key, i, true
			}
		}
	}
	return "", -1, false
}

// WeekIDs returns the materialized week identifiers in ascending order.
func (s State) WeekIDs() []string {
	ids := make([]string, 0, len(s.WeeklyInstances))
	for key := range s.WeeklyInstances {
		ids = append(ids, key)
	}
	// "YYYY-Www" sorts lexically in chronological order.
	sort.Strings(ids)
	return ids
}
