// Package scratch manages the process-wide scratch directory that holds
// intermediate pipeline files. Every intermediate produced by a chained
// transformation lives here until its last consumer releases it; ReleaseAll
// sweeps anything left behind at shutdown.
package scratch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Observer receives notifications about scratch file lifecycle events.
// Implementations must be safe for concurrent use.
type Observer interface {
	TempAllocated()
	TempReleased()
}

// Store allocates uniquely named temporary paths in a private scratch
// directory and tracks them until they are released.
type Store struct {
	dir      string
	observer Observer

	mu   sync.Mutex
	live map[string]struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithObserver registers an observer for allocation and release events.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		s.observer = o
	}
}

// New creates a Store backed by a fresh private directory. If baseDir is
// empty the system temporary directory is used. The private directory is
// created with a unique name so concurrent processes never collide.
func New(baseDir string, opts ...Option) (*Store, error) {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	dir, err := os.MkdirTemp(baseDir, "mnipipe-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory under %s: %w", baseDir, err)
	}

	s := &Store{
		dir:  dir,
		live: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the private scratch directory.
func (s *Store) Dir() string {
	return s.dir
}

// Allocate returns a new unique path ending in suffix. The file itself is
// not created; external programs write it. The path is tracked until
// Release or ReleaseAll removes it.
func (s *Store) Allocate(suffix string) (string, error) {
	path := filepath.Join(s.dir, uuid.NewString()+suffix)

	s.mu.Lock()
	if _, exists := s.live[path]; exists {
		s.mu.Unlock()
		return "", fmt.Errorf("scratch path collision: %s", path)
	}
	s.live[path] = struct{}{}
	s.mu.Unlock()

	if s.observer != nil {
		s.observer.TempAllocated()
	}
	log.Trace().Str("path", path).Msg("allocated scratch path")
	return path, nil
}

// Release removes the file at path if it is tracked by this store.
// Releasing an untracked path, or a tracked path whose file never
// materialized, is a no-op. Release is idempotent.
func (s *Store) Release(path string) {
	s.mu.Lock()
	_, tracked := s.live[path]
	if tracked {
		delete(s.live, path)
	}
	s.mu.Unlock()

	if !tracked {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		// Cleanup failure must not mask the caller's own error path.
		log.Warn().Err(err).Str("path", path).Msg("failed to remove scratch file")
	}
	if s.observer != nil {
		s.observer.TempReleased()
	}
	log.Trace().Str("path", path).Msg("released scratch path")
}

// Tracked reports whether path is currently tracked by the store.
func (s *Store) Tracked(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.live[path]
	return ok
}

// LiveCount returns the number of currently tracked paths.
func (s *Store) LiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// ReleaseAll removes every still-tracked path and the scratch directory
// itself. It is the shutdown safety net: callers defer it so no temporary
// file outlives the process even when a chain aborts mid-way.
func (s *Store) ReleaseAll() {
	s.mu.Lock()
	paths := make([]string, 0, len(s.live))
	for p := range s.live {
		paths = append(paths, p)
	}
	s.live = make(map[string]struct{})
	s.mu.Unlock()

	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", p).Msg("failed to remove scratch file")
		}
		if s.observer != nil {
			s.observer.TempReleased()
		}
	}
	if len(paths) > 0 {
		log.Debug().Int("count", len(paths)).Msg("swept leaked scratch files")
	}
	if err := os.RemoveAll(s.dir); err != nil {
		log.Warn().Err(err).Str("dir", s.dir).Msg("failed to remove scratch directory")
	}
}
