package learnstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/MrWong99/glidekey/pkg/types"
)

// FileStore keeps the tables in a single JSON document. Writes go to a
// temporary file in the same directory which then replaces the target, so a
// crash never leaves a half-written file behind.
type FileStore struct {
	path string
	mu   sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a store writing to path. The file and its directory
// are created on the first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file location.
func (s *FileStore) Path() string { return s.path }

// Load implements [Store]. A missing file yields empty tables.
func (s *FileStore) Load(ctx context.Context) (types.UserTables, error) {
	if err := ctx.Err(); err != nil {
		return types.UserTables{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return types.NewUserTables(), nil
	}
	if err != nil {
		return types.UserTables{}, fmt.Errorf("learnstore: read %s: %w", s.path, err)
	}
	var t types.UserTables
	if err := json.Unmarshal(data, &t); err != nil {
		return types.UserTables{}, fmt.Errorf("learnstore: decode %s: %w", s.path, err)
	}
	return normalize(t), nil
}

// Save implements [Store].
func (s *FileStore) Save(ctx context.Context, t types.UserTables) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(normalize(t))
	if err != nil {
		return fmt.Errorf("learnstore: encode: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("learnstore: create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".learned-*.json")
	if err != nil {
		return fmt.Errorf("learnstore: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("learnstore: write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("learnstore: close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("learnstore: replace %s: %w", s.path, err)
	}
	return nil
}

// Close implements [Store]. It is a no-op.
func (s *FileStore) Close() error { return nil }
