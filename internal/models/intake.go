package models

import "time"

// IntakeRecord is the catalogued outcome of inspecting one stored document.
type IntakeRecord struct {
	FileID       string    `json:"fileId" msgpack:"fileId"`
	Name         string    `json:"name" msgpack:"name"`
	Size         int64     `json:"size" msgpack:"size"`
	DetectedMIME string    `json:"detectedMime" msgpack:"detectedMime"`
	DocumentType string    `json:"documentType,omitempty" msgpack:"documentType"` // "pdf", "doc", "docx"
	Status       string    `json:"status" msgpack:"status"`
	Error        string    `json:"error,omitempty" msgpack:"error"`
	CompletedAt  time.Time `json:"completedAt" msgpack:"completedAt"`
}
