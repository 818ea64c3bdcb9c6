package models

import "github.com/google/uuid"

// EntryStatus represents the lifecycle state of one upload row.
type EntryStatus string

const (
	EntryQueued    EntryStatus = "queued"
	EntryUploading EntryStatus = "uploading"
	EntrySucceeded EntryStatus = "succeeded"
	EntryFailed    EntryStatus = "failed"
)

// UploadEntry is one visible row in the widget's file list.
type UploadEntry struct {
	ID              string
	File            *FileCandidate
	Status          EntryStatus
	ProgressPercent int // only 0 or 100; there is no progress streaming
}

// NewUploadEntry creates a queued entry for an accepted candidate.
func NewUploadEntry(file *FileCandidate) *UploadEntry {
	return &UploadEntry{
		ID:     uuid.New().String(),
		File:   file,
		Status: EntryQueued,
	}
}

// Terminal reports whether the entry has finished its upload attempt.
func (e *UploadEntry) Terminal() bool {
	return e.Status == EntrySucceeded || e.Status == EntryFailed
}
