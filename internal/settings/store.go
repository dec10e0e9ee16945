package settings

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
)

// ///////////////////////////////////////////////
// Store
// ///////////////////////////////////////////////

// Store holds the current settings and notifies subscribers whenever they
// change. It is safe for concurrent use.
type Store struct {
	path string

	mu     sync.RWMutex
	cur    *Settings
	subs   map[int]func()
	nextID int
}

// NewStore returns a Store seeded with initial. path is the backing file used
// by [Store.Update] and [Store.Reload]; it may be empty for in-memory use.
func NewStore(initial *Settings, path string) *Store {
	if initial == nil {
		initial = Default()
	}
	return &Store{
		path: path,
		cur:  initial.Clone(),
		subs: make(map[int]func()),
	}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns a copy of the current settings.
func (s *Store) Get() *Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Clone()
}

// Subscribe registers fn to run after every change. Callbacks run on the
// goroutine that made the change and must not block. The returned function
// removes the subscription.
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Replace installs next and notifies subscribers if it differs from the
// current value. It reports whether anything changed.
func (s *Store) Replace(next *Settings) bool {
	next = next.Clone()

	s.mu.Lock()
	if reflect.DeepEqual(s.cur, next) {
		s.mu.Unlock()
		return false
	}
	s.cur = next
	subs := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
	return true
}

// Update applies fn to a copy of the current settings, validates the result,
// persists it when the store has a backing file, and installs it.
func (s *Store) Update(fn func(*Settings)) error {
	next := s.Get()
	fn(next)
	if err := next.Validate(); err != nil {
		return fmt.Errorf("validate settings: %w", err)
	}
	if s.path != "" {
		if err := next.Save(s.path); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
	}
	s.Replace(next)
	return nil
}

// Reload re-reads the backing file. On error the current settings are kept.
func (s *Store) Reload() (bool, error) {
	if s.path == "" {
		return false, nil
	}
	next, err := LoadFile(s.path)
	if err != nil {
		return false, err
	}
	return s.Replace(next), nil
}

// Follow reloads the backing file every time events fires until ctx is done
// or events is closed. Reload failures are logged and the previous settings
// stay in effect.
func (s *Store) Follow(ctx context.Context, events <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			changed, err := s.Reload()
			if err != nil {
				slog.Warn("settings reload failed, keeping previous settings", "path", s.path, "error", err)
				continue
			}
			if changed {
				slog.Info("settings reloaded", "path", s.path)
			}
		}
	}
}
