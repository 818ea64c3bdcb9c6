package models

import "time"

// File statuses tracked by the store.
const (
	FileStatusUploaded = "uploaded"
	FileStatusAccepted = "accepted"
	FileStatusRejected = "rejected"
)

// FileInfo represents metadata about a stored lease document.
type FileInfo struct {
	ID          string    `json:"id" msgpack:"id"`
	Name        string    `json:"name" msgpack:"name"`
	Size        int64     `json:"size" msgpack:"size"`
	ContentType string    `json:"contentType" msgpack:"contentType"`
	UploadedAt  time.Time `json:"uploadedAt" msgpack:"uploadedAt"`
	Status      string    `json:"status" msgpack:"status"` // "uploaded", "accepted", "rejected"
}
