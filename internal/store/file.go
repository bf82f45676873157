package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// FileStore keeps all sessions of one game type in a single pretty-printed
// JSON file. The mutex only protects the document; per-chat ordering is the
// caller's job.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by the file at path. The parent
// directory is created if needed.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("store path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the whole document.
func (s *FileStore) Load(ctx context.Context) (Sessions, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save replaces the whole document.
func (s *FileStore) Save(ctx context.Context, sessions Sessions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(sessions)
}

// Update performs a read-modify-write cycle while holding the file lock.
func (s *FileStore) Update(ctx context.Context, fn func(Sessions) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(sessions); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.save(sessions)
}

func (s *FileStore) load() (Sessions, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make(Sessions), nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	sessions := make(Sessions)
	if len(data) == 0 {
		return sessions, nil
	}
	if err := json.Unmarshal(data, &sessions); err != nil {
		log.Error().Err(err).Str("path", s.path).Msg("Session file is not valid JSON")
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if sessions == nil {
		// a literal "null" document
		sessions = make(Sessions)
	}
	return sessions, nil
}

// save writes to a temp file in the same directory and renames it over the
// target, so the document is replaced atomically.
func (s *FileStore) save(sessions Sessions) error {
	if sessions == nil {
		sessions = make(Sessions)
	}
	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode sessions: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op once the rename succeeded
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close session file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}
