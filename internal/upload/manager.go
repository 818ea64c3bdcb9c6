// Package upload runs the asynchronous intake of stored lease documents:
// each stored file is sniffed, classified as pdf, doc or docx, marked
// accepted or rejected in the store, and recorded in the catalog.
package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/leasecheck/backend/internal/catalog"
	"github.com/leasecheck/backend/internal/filepolicy"
	"github.com/leasecheck/backend/internal/metrics"
	"github.com/leasecheck/backend/internal/models"
)

// Status represents the intake processing status.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusInspecting Status = "inspecting"
	StatusCataloging Status = "cataloging"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// Job represents an async intake job for one stored file.
type Job struct {
	ID            string     `json:"id"`
	FileID        string     `json:"fileId"`
	FileName      string     `json:"fileName"`
	Status        Status     `json:"status"`
	Progress      float64    `json:"progress"`
	Stage         string     `json:"stage"`         // Current stage description
	StageProgress float64    `json:"stageProgress"` // Progress within current stage
	DocumentType  string     `json:"documentType,omitempty"`
	DetectedMIME  string     `json:"detectedMime,omitempty"`
	Error         string     `json:"error,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

// Finished reports whether the job has reached a terminal status.
func (j *Job) Finished() bool {
	return j.Status == StatusComplete || j.Status == StatusError
}

// Store defines the interface needed from storage layer.
type Store interface {
	Open(id string) (io.ReadCloser, error)
	SetStatus(id, status string) (*models.FileInfo, error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithMetrics records job outcomes.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// Manager handles async intake processing.
type Manager struct {
	jobs    map[string]*Job
	byFile  map[string]string
	mu      sync.RWMutex
	wg      sync.WaitGroup
	store   Store
	policy  filepolicy.Policy
	catalog catalog.Catalog
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewManager creates a new intake manager. A nil catalog disables
// recording.
func NewManager(store Store, policy filepolicy.Policy, cat catalog.Catalog, opts ...Option) *Manager {
	m := &Manager{
		jobs:    make(map[string]*Job),
		byFile:  make(map[string]string),
		store:   store,
		policy:  policy,
		catalog: cat,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.logger = m.logger.With("component", "intake")
	return m
}

// StartJob begins async intake of a stored file.
func (m *Manager) StartJob(info *models.FileInfo) *Job {
	job := &Job{
		ID:        uuid.New().String(),
		FileID:    info.ID,
		FileName:  info.Name,
		Status:    StatusProcessing,
		Stage:     "preparing",
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.byFile[info.ID] = job.ID
	snapshot := *job
	m.mu.Unlock()

	m.metrics.IntakeStarted()
	m.wg.Add(1)
	go m.processJob(job, info.Size)

	return &snapshot
}

// GetJob returns a copy of the job with id.
func (m *Manager) GetJob(id string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, false
	}
	copied := *job
	return &copied, true
}

// JobForFile returns a copy of the latest job for a stored file.
func (m *Manager) JobForFile(fileID string) (*Job, bool) {
	m.mu.RLock()
	id, ok := m.byFile[fileID]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return m.GetJob(id)
}

// Wait blocks until every started job has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// processJob handles the actual async processing.
func (m *Manager) processJob(job *Job, size int64) {
	defer m.wg.Done()
	log := m.logger.With("job", job.ID[:8], "file", job.FileID)
	log.Info("intake started", "name", job.FileName)

	// Stage 1: sniff the stored bytes
	m.updateJobStatus(job, StatusInspecting, "inspecting document", 0)

	detected, docType, err := m.inspect(job.FileID, size)
	m.mu.Lock()
	job.DetectedMIME = detected
	job.DocumentType = docType
	m.mu.Unlock()
	if err != nil {
		m.finish(job, size, detected, "", err, log)
		return
	}
	m.updateJobStatus(job, StatusInspecting, "inspecting document", 100)

	// Stage 2: record the outcome
	m.finish(job, size, detected, docType, nil, log)
}

// inspect returns the detected MIME type and the document type derived
// from it. Empty and unsupported documents are errors.
func (m *Manager) inspect(fileID string, size int64) (string, string, error) {
	if size == 0 {
		return "", "", fmt.Errorf("document is empty")
	}

	rc, err := m.store.Open(fileID)
	if err != nil {
		return "", "", fmt.Errorf("failed to open document: %w", err)
	}
	defer rc.Close()

	mtype, err := mimetype.DetectReader(rc)
	if err != nil {
		return "", "", fmt.Errorf("failed to read document: %w", err)
	}

	for _, t := range m.policy.Types {
		if mtype.Is(t.MIME) {
			return t.MIME, t.Extension, nil
		}
	}
	return mtype.String(), "", fmt.Errorf("unsupported document type: %s", mtype.String())
}

func (m *Manager) finish(job *Job, size int64, detected, docType string, jobErr error, log *slog.Logger) {
	m.updateJobStatus(job, StatusCataloging, "recording outcome", 0)

	fileStatus := models.FileStatusAccepted
	if jobErr != nil {
		fileStatus = models.FileStatusRejected
	}
	if _, err := m.store.SetStatus(job.FileID, fileStatus); err != nil {
		log.Warn("failed to update file status", "error", err)
	}

	now := time.Now()
	if m.catalog != nil {
		rec := models.IntakeRecord{
			FileID:       job.FileID,
			Name:         job.FileName,
			Size:         size,
			DetectedMIME: detected,
			DocumentType: docType,
			Status:       fileStatus,
			CompletedAt:  now,
		}
		if jobErr != nil {
			rec.Error = jobErr.Error()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := m.catalog.Record(ctx, rec); err != nil {
			log.Warn("failed to catalog intake", "error", err)
		}
		cancel()
	}

	if jobErr != nil {
		m.markJobError(job, jobErr.Error(), now)
		log.Warn("intake rejected", "error", jobErr)
	} else {
		m.markJobComplete(job, now)
		log.Info("intake complete", "type", docType)
	}
	m.metrics.IntakeFinished(fileStatus, docType, now.Sub(job.CreatedAt))
}

// updateJobStatus updates job progress (thread-safe).
func (m *Manager) updateJobStatus(job *Job, status Status, stage string, stageProgress float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job.Status = status
	job.Stage = stage
	job.StageProgress = stageProgress

	// Inspecting: 0-80%, Cataloging: 80-100%
	switch status {
	case StatusInspecting:
		job.Progress = stageProgress * 0.8
	case StatusCataloging:
		job.Progress = 80 + stageProgress*0.2
	case StatusComplete:
		job.Progress = 100
	}
}

// markJobComplete marks job as complete (thread-safe).
func (m *Manager) markJobComplete(job *Job, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job.Status = StatusComplete
	job.Stage = "complete"
	job.Progress = 100
	job.CompletedAt = &at
}

// markJobError marks job as failed (thread-safe).
func (m *Manager) markJobError(job *Job, errMsg string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job.Status = StatusError
	job.Error = errMsg
	job.CompletedAt = &at
}

// CleanupOldJobs removes finished jobs older than maxAge and returns how
// many were removed.
func (m *Manager) CleanupOldJobs(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for id, job := range m.jobs {
		if job.Finished() && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(m.jobs, id)
			if m.byFile[job.FileID] == id {
				delete(m.byFile, job.FileID)
			}
			removed++
		}
	}
	return removed
}
