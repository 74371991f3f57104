package param

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// SaveState writes a <name>.state file for every stateful parameter in
// the given directory.
func (s *Set) SaveState(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, p := range s.params {
		stateful, ok := p.(Stateful)
		if !ok {
			continue
		}
		data, err := stateful.State()
		if err != nil {
			return errors.Wrapf(err, "could not snapshot parameter %q", name)
		}
		if err := os.WriteFile(s.stateFile(dir, name), data, 0o644); err != nil {
			return errors.Wrapf(err, "could not save state for parameter %q", name)
		}
	}
	return nil
}

// LoadState restores stateful parameters from their state files. Loading
// is all or nothing: if only some files exist the run would mix restored
// and fresh positions, so a partial load is an error. No files at all is
// fine and means a fresh start.
func (s *Set) LoadState(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stateful, loaded := 0, 0
	for name, p := range s.params {
		sp, ok := p.(Stateful)
		if !ok {
			continue
		}
		stateful++
		data, err := os.ReadFile(s.stateFile(dir, name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "could not load state for parameter %q", name)
		}
		if err := sp.SetState(data); err != nil {
			return errors.Wrapf(err, "could not restore parameter %q", name)
		}
		loaded++
	}
	if loaded > 0 && loaded != stateful {
		return fmt.Errorf("inconsistent states: loaded %d of %d. Remove the state files to start fresh", loaded, stateful)
	}
	return nil
}

func (s *Set) stateFile(dir, name string) string {
	return filepath.Join(dir, name+".state")
}
