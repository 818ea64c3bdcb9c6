package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/leasecheck/backend/internal/models"
)

// LocalStore implements Store using the local filesystem. Metadata lives
// in memory; each document is written under its ID.
type LocalStore struct {
	uploadDir string
	index     *index
}

// NewLocalStore creates a new LocalStore.
func NewLocalStore(uploadDir string) (*LocalStore, error) {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}

	return &LocalStore{
		uploadDir: uploadDir,
		index:     newIndex(),
	}, nil
}

// Save writes r to disk and records it as uploaded.
func (s *LocalStore) Save(name, contentType string, r io.Reader) (*models.FileInfo, error) {
	info := newFileInfo(name, contentType, 0)
	path := filepath.Join(s.uploadDir, info.ID)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing file: %w", err)
	}
	info.Size = size

	s.index.put(info)
	copied := *info
	return &copied, nil
}

// Get retrieves file metadata by ID.
func (s *LocalStore) Get(id string) (*models.FileInfo, error) {
	info, ok := s.index.get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return info, nil
}

// List returns the most recent files. A limit of zero returns all of them.
func (s *LocalStore) List(limit int) ([]*models.FileInfo, error) {
	return s.index.list(limit), nil
}

// Open returns the stored bytes of a file.
func (s *LocalStore) Open(id string) (io.ReadCloser, error) {
	if _, ok := s.index.get(id); !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	f, err := os.Open(filepath.Join(s.uploadDir, id))
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	return f, nil
}

// SetStatus records the intake outcome for a file.
func (s *LocalStore) SetStatus(id, status string) (*models.FileInfo, error) {
	info, ok := s.index.setStatus(id, status)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return info, nil
}

// Delete removes a file from storage.
func (s *LocalStore) Delete(id string) error {
	if _, ok := s.index.get(id); !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	path := filepath.Join(s.uploadDir, id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting file: %w", err)
	}

	s.index.remove(id)
	return nil
}

var _ Store = (*LocalStore)(nil)
