// Package storage defines the persistence contract of the planner and the
// file-based backends. SQL and Redis backends live in subpackages.
package storage

import (
	"fmt"

	"github.com/julianstephens/weekplan/internal/models"
)

// ErrNotInitialized is returned by Load when nothing has been stored yet.
var ErrNotInitialized = models.ErrNotInitialized

// Provider is the synchronous load/save contract the engine relies on.
type Provider interface {
	// Init prepares the backend (directories, schema, empty state). It is
	// safe to call on storage that already holds data.
	Init() error
	// Load returns the full persisted state.
	Load() (models.State, error)
	// Save replaces the persisted state.
	Save(models.State) error
	Close() error

	// GetConfigPath identifies the storage location for display. It never
	// includes credentials.
	GetConfigPath() string
}

// AllocateID issues one id from the shared counter and persists the
// advanced counter before returning.
func AllocateID(p Provider) (int64, error) {
	state, err := p.Load()
	if err != nil {
		return 0, fmt.Errorf("failed to load state: %w", err)
	}
	id := state.AllocateID()
	if err := p.Save(state); err != nil {
		return 0, fmt.Errorf("failed to save id counter: %w", err)
	}
	return id, nil
}
