package storage

import (
	"sync"

	"github.com/julianstephens/weekplan/internal/models"
)

// MemoryStore keeps the state in process memory. Load and Save copy the
// state so callers can never alias what is stored.
type MemoryStore struct {
	mu    sync.Mutex
	state *models.State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		st := models.NewState()
		s.state = &st
	}
	return nil
}

func (s *MemoryStore) Load() (models.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return models.State{}, ErrNotInitialized
	}
	return s.state.Clone(), nil
}

func (s *MemoryStore) Save(state models.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := state.Clone()
	s.state = &st
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) GetConfigPath() string {
	return ":memory:"
}
