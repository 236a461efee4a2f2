package planner

import (
	"fmt"
	"slices"

	"github.com/julianstephens/weekplan/internal/models"
)

// Templates returns the active templates in creation order.
func (e *Engine) Templates() ([]models.Template, error) {
	return e.load().Templates, nil
}

// Template returns one active template.
func (e *Engine) Template(id int64) (models.Template, error) {
	state := e.load()
	idx := state.TemplateIndex(id)
	if idx < 0 {
		return models.Template{}, fmt.Errorf("%w: %d", ErrTemplateNotFound, id)
	}
	return state.Templates[idx], nil
}

// CreateTemplate adds a template built from fields. It only affects weeks
// materialized afterwards.
func (e *Engine) CreateTemplate(fields models.TemplatePatch) (models.Template, error) {
	var created models.Template
	err := e.mutate(func(s *models.State) error {
		t := fields.Apply(models.Template{})
		if err := t.Validate(); err != nil {
			return err
		}
		t.ID = s.AllocateID()
		s.Templates = append(s.Templates, t)
		created = t.Clone()
		return nil
	})
	if err != nil {
		return models.Template{}, err
	}
	e.log.Debug("Created template", "id", created.ID, "title", created.Title)
	return created, nil
}

// PromoteToTemplate captures an instance's current fields as a new template
// so future weeks get a copy. With link set, the source instance is
// re-pointed at the new template; otherwise it is left as it was.
func (e *Engine) PromoteToTemplate(instanceID int64, link bool) (models.Template, error) {
	var created models.Template
	err := e.mutate(func(s *models.State) error {
		weekID, idx, ok := s.LocateTask(instanceID)
		if !ok {
			return fmt.Errorf("%w: %d", ErrTaskNotFound, instanceID)
		}
		week := s.WeeklyInstances[weekID]
		src := week.Tasks[idx]

		t := models.TemplateFrom(src, 0)
		if err := t.Validate(); err != nil {
			return err
		}
		t.ID = s.AllocateID()
		s.Templates = append(s.Templates, t)

		if link {
			templateID := t.ID
			week.Tasks[idx].TemplateID = &templateID
			s.WeeklyInstances[weekID] = week
		}
		created = t.Clone()
		return nil
	})
	if err != nil {
		return models.Template{}, err
	}
	e.log.Debug("Promoted task to template", "task", instanceID, "template", created.ID, "linked", link)
	return created, nil
}

// EditTemplate overwrites the given fields. Existing instances keep the
// values they were created with.
func (e *Engine) EditTemplate(id int64, patch models.TemplatePatch) (models.Template, error) {
	var updated models.Template
	err := e.mutate(func(s *models.State) error {
		idx := s.TemplateIndex(id)
		if idx < 0 {
			return fmt.Errorf("%w: %d", ErrTemplateNotFound, id)
		}
		t := patch.Apply(s.Templates[idx])
		t.ID = id
		if err := t.Validate(); err != nil {
			return err
		}
		s.Templates[idx] = t
		updated = t.Clone()
		return nil
	})
	if err != nil {
		return models.Template{}, err
	}
	return updated, nil
}

// DeleteTemplate removes a template from the active set. Instances created
// from it keep their TemplateID.
func (e *Engine) DeleteTemplate(id int64) error {
	err := e.mutate(func(s *models.State) error {
		idx := s.TemplateIndex(id)
		if idx < 0 {
			return fmt.Errorf("%w: %d", ErrTemplateNotFound, id)
		}
		s.Templates = slices.Delete(s.Templates, idx, idx+1)
		return nil
	})
	if err != nil {
		return err
	}
	e.log.Debug("Deleted template", "id", id)
	return nil
}
