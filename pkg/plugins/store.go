package plugins

import (
	"slices"
	"sync"
)

// EnabledStore persists the set of enabled plugin names. The storage
// format belongs to the implementation; config.Config is the production one.
type EnabledStore interface {
	EnabledPlugins() []string
	SaveEnabledPlugins(names []string) error
}

// MemoryStore is an in-memory EnabledStore.
type MemoryStore struct {
	mu      sync.Mutex
	names   []string
	saves   int
	SaveErr error // returned by every save when set
}

// NewMemoryStore creates a store holding names.
func NewMemoryStore(names ...string) *MemoryStore {
	return &MemoryStore{names: slices.Clone(names)}
}

func (s *MemoryStore) EnabledPlugins() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.names)
}

func (s *MemoryStore) SaveEnabledPlugins(names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.names = slices.Clone(names)
	s.saves++
	return nil
}

// Saves returns how many successful saves the store received.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
