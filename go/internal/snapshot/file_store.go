package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const snapshotFileName = "session.yaml"

// FileStore keeps the snapshot in a YAML file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a file store writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultFilePath returns the snapshot location under the user config dir.
func DefaultFilePath(appName string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName, snapshotFileName), nil
}

// Path returns the file the store writes to.
func (s *FileStore) Path() string {
	return s.path
}

// Save writes the snapshot to a temp file and renames it into place.
func (s *FileStore) Save(_ context.Context, snap *PersistedSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot yaml: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace snapshot file: %w", err)
	}
	return nil
}

// Load reads the snapshot. A missing file yields nil, nil.
func (s *FileStore) Load(_ context.Context) (*PersistedSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}

	snap := &PersistedSnapshot{}
	if err := yaml.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("parse snapshot yaml: %w", err)
	}
	return snap, nil
}

// Clear removes the snapshot file.
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove snapshot file: %w", err)
	}
	return nil
}
