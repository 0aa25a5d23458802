// Package artifact manages synthesized audio files on disk. Only the most
// recent artifact is kept for replay; superseded ones are deleted after a
// retention delay.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lexiqai/alfred/internal/observability"
)

// Artifact is a handle to one synthesized audio file
type Artifact struct {
	ID        string
	Path      string
	MIME      string
	CreatedAt time.Time
}

// Exists reports whether the backing file is still on disk
func (a *Artifact) Exists() bool {
	if a == nil {
		return false
	}
	_, err := os.Stat(a.Path)
	return err == nil
}

// Remove deletes the backing file. A missing file is not an error.
func (a *Artifact) Remove() error {
	if err := os.Remove(a.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Store allocates artifact paths and tracks the replayable artifact
type Store struct {
	dir       string
	retention time.Duration
	logger    zerolog.Logger

	mu      sync.Mutex
	last    *Artifact
	pending map[string]*time.Timer // keyed by path
	closed  bool
}

// NewStore creates the artifact directory if needed
func NewStore(dir string, retention time.Duration) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact dir: %w", err)
	}
	return &Store{
		dir:       dir,
		retention: retention,
		logger:    observability.Component("artifact"),
		pending:   make(map[string]*time.Timer),
	}, nil
}

// NewPath returns a fresh artifact with a unique timestamped file name.
// Nothing is written to disk.
func (s *Store) NewPath(ext, mime string) *Artifact {
	now := time.Now()
	id := uuid.New().String()
	name := fmt.Sprintf("reply_%s_%s%s", now.Format("20060102_150405"), id[:8], ext)
	return &Artifact{
		ID:        id,
		Path:      filepath.Join(s.dir, name),
		MIME:      mime,
		CreatedAt: now,
	}
}

// Replace makes a the replayable artifact and schedules deletion of the one
// it supersedes. Cleanup is keyed to the old artifact's path, so it never
// touches a newer file.
func (s *Store) Replace(a *Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.last
	s.last = a
	if prev == nil || prev.Path == a.Path {
		return
	}
	if s.closed {
		s.remove(prev)
		return
	}
	s.schedule(prev)
}

// Last returns the replayable artifact, or nil
func (s *Store) Last() *Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Pending returns how many superseded artifacts await deletion
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Store) schedule(a *Artifact) {
	if _, ok := s.pending[a.Path]; ok {
		return
	}
	s.pending[a.Path] = time.AfterFunc(s.retention, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.pending, a.Path)
		if s.last != nil && s.last.Path == a.Path {
			return
		}
		s.remove(a)
	})
}

func (s *Store) remove(a *Artifact) {
	if err := a.Remove(); err != nil {
		s.logger.Warn().Err(err).Str("path", a.Path).Msg("Failed to delete artifact")
		return
	}
	s.logger.Debug().Str("path", a.Path).Msg("Artifact deleted")
}

// Close deletes every pending and current artifact
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for path, timer := range s.pending {
		timer.Stop()
		s.remove(&Artifact{Path: path})
		delete(s.pending, path)
	}
	if s.last != nil {
		s.remove(s.last)
		s.last = nil
	}
	return nil
}
