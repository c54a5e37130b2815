// Package file provides a flat-file implementation of the storage.Store
// interface: the latest snapshot lives in a single file, overwritten
// wholesale on every save.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"lunchbot/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// Store implements storage.Store on one backup file.
type Store struct {
	path string
}

// New creates a file store at path, creating parent directories as needed.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	return &Store{path: path}, nil
}

// Save overwrites the backup file with the new snapshot.
func (s *Store) Save(_ context.Context, payload []byte) error {
	if err := os.WriteFile(s.path, payload, 0644); err != nil {
		return fmt.Errorf("failed to write backup file: %w", err)
	}
	return nil
}

// Load reads the backup file wholesale.
func (s *Store) Load(_ context.Context) ([]byte, error) {
	payload, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, storage.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup file: %w", err)
	}
	return payload, nil
}

// Close is a no-op; the store holds no resources between calls.
func (s *Store) Close() error {
	return nil
}
