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
)

// DefaultFilePath is where the file backend keeps the set.
const DefaultFilePath = "notified-devices.json"

// FileStore keeps the set as a JSON array in a flat file. Writes go to a
// temp file in the same directory which is then renamed over the target.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a FileStore for path.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultFilePath
	}
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the set. A missing file is an empty set.
func (s *FileStore) Load(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read notified file: %w", err)
	}

	var serials []string
	if err := json.Unmarshal(data, &serials); err != nil {
		return nil, fmt.Errorf("decode notified file %s: %w", s.path, err)
	}
	if serials == nil {
		serials = []string{}
	}
	return serials, nil
}

// Save overwrites the file with serials.
func (s *FileStore) Save(ctx context.Context, serials []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if serials == nil {
		serials = []string{}
	}
	data, err := json.MarshalIndent(serials, "", "  ")
	if err != nil {
		return fmt.Errorf("encode notified set: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace notified file: %w", err)
	}
	return nil
}

// Ping checks that the directory holding the file exists.
func (s *FileStore) Ping(ctx context.Context) error {
	info, err := os.Stat(filepath.Dir(s.path))
	if err != nil {
		return fmt.Errorf("stat notified file directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", filepath.Dir(s.path))
	}
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}
