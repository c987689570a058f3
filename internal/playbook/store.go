package playbook

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store holds every playbook definition loaded from a directory of
// YAML files, keyed by name.
type Store struct {
	mu        sync.RWMutex
	playbooks map[string]*Definition
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{playbooks: make(map[string]*Definition)}
}

// LoadDir loads every *.yaml/*.yml file under dir into the store,
// validating each step's condition grammar at load time.
func (s *Store) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading playbooks dir %q: %w", dir, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading playbook %q: %w", path, err)
		}
		def, err := LoadFile(data)
		if err != nil {
			return fmt.Errorf("parsing playbook %q: %w", path, err)
		}
		for _, step := range def.Steps {
			if err := ValidateCondition(step.Condition); err != nil {
				return fmt.Errorf("playbook %q step %q: %w", def.Name, step.Name, err)
			}
		}
		if def.Name == "" {
			def.Name = strings.TrimSuffix(entry.Name(), ext)
		}
		s.playbooks[def.Name] = def
	}
	return nil
}

// Get returns the named playbook, or nil if it isn't loaded.
func (s *Store) Get(name string) *Definition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playbooks[name]
}
