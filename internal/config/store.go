package config

import (
	"sync/atomic"
	"time"

	"github.com/xtding233/arkgrid-toolkit/internal/logger"
)

// Store serves the current Tables and swaps them on reload. Readers never
// see a half-built set.
type Store struct {
	resolver Resolver
	profile  string
	variant  string
	over     Overrides
	cur      atomic.Pointer[Tables]

	// Log receives reload failures. Nil discards them.
	Log *logger.Logger
	// OnReload, when set, is told about every reload attempt. A failed
	// reload keeps the previous tables.
	OnReload func(t *Tables, changed []string, err error)
}

// NewStore resolves the tables once. A nil resolver serves the built-in
// tables.
func NewStore(r Resolver, profile, variant string, o Overrides) (*Store, error) {
	s := &Store{resolver: r, profile: profile, variant: variant, over: o}
	t, err := s.resolve()
	if err != nil {
		return nil, err
	}
	s.cur.Store(t)
	return s, nil
}

// Current returns the active tables.
func (s *Store) Current() *Tables { return s.cur.Load() }

// Reload re-resolves the tables, invalidating the loader cache first.
func (s *Store) Reload() error {
	return s.reload(nil)
}

func (s *Store) reload(changed []string) error {
	if l, ok := s.resolver.(*Loader); ok {
		l.Invalidate()
	}
	t, err := s.resolve()
	if err == nil {
		s.cur.Store(t)
	} else if s.Log != nil {
		s.Log.Error("tables reload failed, keeping previous", "changed", changed, "error", err)
	}
	if s.OnReload != nil {
		s.OnReload(t, changed, err)
	}
	return err
}

func (s *Store) resolve() (*Tables, error) {
	if s.resolver == nil {
		return Build(RawConfig{}, s.over)
	}
	_, t, err := s.resolver.Resolve(s.profile, s.variant, s.over)
	return t, err
}

// Watch starts a FileWatcher over the loader's files that reloads on
// change. It returns nil when the store is not backed by a Loader with a
// directory.
func (s *Store) Watch(interval time.Duration) *FileWatcher {
	l, ok := s.resolver.(*Loader)
	if !ok || l.Paths().BaseDir == "" {
		return nil
	}
	w := NewFileWatcher(l.Paths().Files(s.profile, s.variant), interval, func(changed []string) {
		_ = s.reload(changed)
	})
	w.Start()
	return w
}
