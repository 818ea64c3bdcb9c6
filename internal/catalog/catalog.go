// Package catalog records the outcome of every intake job so the recent
// history survives job cleanup.
package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/leasecheck/backend/internal/models"
)

// Catalog stores intake records keyed by file ID. Recording a file again
// replaces its previous record.
type Catalog interface {
	Record(ctx context.Context, rec models.IntakeRecord) error
	Recent(ctx context.Context, limit int) ([]models.IntakeRecord, error)
	Close() error
}

// Memory is an in-process Catalog.
type Memory struct {
	mu      sync.RWMutex
	records map[string]models.IntakeRecord
}

// NewMemory creates an empty in-memory catalog.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]models.IntakeRecord)}
}

func (m *Memory) Record(_ context.Context, rec models.IntakeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.FileID] = rec
	return nil
}

func (m *Memory) Recent(_ context.Context, limit int) ([]models.IntakeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]models.IntakeRecord, 0, len(m.records))
	for _, rec := range m.records {
		list = append(list, rec)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CompletedAt.After(list[j].CompletedAt)
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (m *Memory) Close() error { return nil }
