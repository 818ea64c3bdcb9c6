package storage

import (
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leasecheck/backend/internal/models"
)

// ErrNotFound is wrapped by every lookup of an unknown file ID.
var ErrNotFound = errors.New("file not found")

// Store defines the interface for lease document storage.
type Store interface {
	Save(name, contentType string, r io.Reader) (*models.FileInfo, error)
	Get(id string) (*models.FileInfo, error)
	List(limit int) ([]*models.FileInfo, error)
	Open(id string) (io.ReadCloser, error)
	SetStatus(id, status string) (*models.FileInfo, error)
	Delete(id string) error
}

// index holds file metadata for a backend that keeps only the bytes.
type index struct {
	mu    sync.RWMutex
	files map[string]*models.FileInfo
}

func newIndex() *index {
	return &index{files: make(map[string]*models.FileInfo)}
}

func newFileInfo(name, contentType string, size int64) *models.FileInfo {
	return &models.FileInfo{
		ID:          uuid.New().String(),
		Name:        name,
		Size:        size,
		ContentType: contentType,
		UploadedAt:  time.Now(),
		Status:      models.FileStatusUploaded,
	}
}

func (x *index) put(info *models.FileInfo) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.files[info.ID] = info
}

func (x *index) get(id string) (*models.FileInfo, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	info, ok := x.files[id]
	if !ok {
		return nil, false
	}
	copied := *info
	return &copied, true
}

func (x *index) list(limit int) []*models.FileInfo {
	x.mu.RLock()
	defer x.mu.RUnlock()

	list := make([]*models.FileInfo, 0, len(x.files))
	for _, info := range x.files {
		copied := *info
		list = append(list, &copied)
	}

	// Newest first
	sort.Slice(list, func(i, j int) bool {
		return list[i].UploadedAt.After(list[j].UploadedAt)
	})

	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list
}

func (x *index) setStatus(id, status string) (*models.FileInfo, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	info, ok := x.files[id]
	if !ok {
		return nil, false
	}
	info.Status = status
	copied := *info
	return &copied, true
}

func (x *index) remove(id string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, ok := x.files[id]; !ok {
		return false
	}
	delete(x.files, id)
	return true
}
