// Package persistence stores model state as opaque JSON blobs on disk:
// error groups, classifier snapshots, the embedding-to-cause table, and
// the cluster list. Blobs are loaded wholesale at startup and saved
// wholesale after mutation.
package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// ErrBlobNotFound is returned when loading a blob that was never saved.
var ErrBlobNotFound = errors.New("blob not found")

// maxBlobSize bounds reads so a corrupted or hostile file cannot
// exhaust memory.
const maxBlobSize = 256 * 1024 * 1024

// Store persists named JSON blobs under a single directory.
type Store struct {
	dir    string
	logger *zap.Logger
}

// NewStore creates the directory if needed.
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("persistence directory required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// SaveJSON marshals v and writes it atomically: the blob lands in a
// temp file first and is renamed into place, so a crash mid-write never
// corrupts the previous version.
func (s *Store) SaveJSON(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", name, err)
	}

	target := s.path(name)
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("setting permissions on %s: %w", name, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", name, err)
	}

	s.logger.Debug("saved blob", zap.String("name", name), zap.Int("bytes", len(data)))
	return nil
}

// LoadJSON reads and unmarshals a named blob into v.
func (s *Store) LoadJSON(name string, v any) error {
	f, err := os.Open(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrBlobNotFound, name)
		}
		return fmt.Errorf("opening %s: %w", name, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBlobSize))
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshaling %s: %w", name, err)
	}
	return nil
}

// Exists reports whether a named blob has been saved.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.path(name))
	return err == nil
}

// Delete removes a named blob. Deleting a missing blob is not an error.
func (s *Store) Delete(name string) error {
	err := os.Remove(s.path(name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting %s: %w", name, err)
	}
	return nil
}
