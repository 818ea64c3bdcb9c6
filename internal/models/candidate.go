package models

import (
	"bytes"
	"io"
)

// FileCandidate is a file the user selected or dropped that has not been
// accepted into the upload list yet.
type FileCandidate struct {
	Name      string
	SizeBytes int64
	MIMEType  string

	// Open returns the file contents for submission. Each call must
	// return a fresh reader.
	Open func() (io.ReadCloser, error)
}

// NewBytesCandidate builds a candidate backed by an in-memory buffer.
func NewBytesCandidate(name, mimeType string, data []byte) *FileCandidate {
	return &FileCandidate{
		Name:      name,
		SizeBytes: int64(len(data)),
		MIMEType:  mimeType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}
