package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"klv-monitor/internal/domain"
	"klv-monitor/internal/logger"
)

// Store loads and saves the preferences file and notifies listeners after
// every successful save.
type Store struct {
	path string
	log  logger.Logger

	mu        sync.Mutex
	current   Preferences
	listeners []func(Preferences)
}

func NewStore(path string, log logger.Logger) *Store {
	return &Store{
		path:    path,
		log:     log,
		current: Defaults(),
	}
}

// Load reads the persisted preferences. A missing file yields defaults with
// no error. An unreadable or unparseable file yields defaults wrapped with
// domain.ErrCorruptConfig; the corrupt file is left untouched until the next
// explicit Save.
func (s *Store) Load() (Preferences, error) {
	p := Defaults()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.setCurrent(p)
			return p, nil
		}
		s.setCurrent(p)
		return p, fmt.Errorf("%w: read %s: %w", domain.ErrCorruptConfig, s.path, err)
	}

	if err := yaml.Unmarshal(data, &p); err != nil {
		p = Defaults()
		s.setCurrent(p)
		return p, fmt.Errorf("%w: parse %s: %w", domain.ErrCorruptConfig, s.path, err)
	}

	p.Clamp()
	s.setCurrent(p)
	return p, nil
}

// Save atomically replaces the preferences file (write temp, rename) and
// fires change listeners. A crash mid-save leaves either the old or the new
// file, never a partial one.
func (s *Store) Save(p Preferences) error {
	p.Clamp()

	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("prefs: marshal: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("prefs: create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".preferences-*.yaml")
	if err != nil {
		return fmt.Errorf("prefs: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpName)
		}
	}()

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("prefs: chmod temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("prefs: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("prefs: close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("prefs: rename temp: %w", err)
	}
	success = true

	s.mu.Lock()
	s.current = p
	listeners := make([]func(Preferences), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(p)
	}

	return nil
}

// Current returns the most recently loaded or saved preferences.
func (s *Store) Current() Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// OnChange registers a listener called after every successful Save.
func (s *Store) OnChange(fn func(Preferences)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Store) setCurrent(p Preferences) {
	s.mu.Lock()
	s.current = p
	s.mu.Unlock()
}
