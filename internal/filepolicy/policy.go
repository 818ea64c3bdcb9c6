// Package filepolicy holds the size and type rules lease documents must
// satisfy. The same Policy is enforced by the upload widget before any
// network call and again by the upload endpoint.
package filepolicy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leasecheck/backend/internal/models"
)

// MaxFileSizeBytes is the default upload ceiling (10 MiB).
const MaxFileSizeBytes int64 = 10 * 1024 * 1024

// Accepted document MIME types.
const (
	MIMETypePDF  = "application/pdf"
	MIMETypeDOC  = "application/msword"
	MIMETypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// ErrNoFile is returned by Check when there is no candidate at all.
var ErrNoFile = errors.New("filepolicy: no file")

// Reason classifies a validation failure.
type Reason string

const (
	ReasonTooLarge    Reason = "too_large"
	ReasonInvalidType Reason = "invalid_type"
)

// ValidationError is a client-side rejection. Message is user facing.
type ValidationError struct {
	Reason  Reason
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return e.Message
}

// FileType pairs an accepted MIME type with its file extension.
type FileType struct {
	MIME      string
	Extension string
}

// Policy is immutable once handed to a widget or handler.
type Policy struct {
	MaxSizeBytes int64
	Types        []FileType
}

// Default returns the lease document policy: PDF, DOC or DOCX up to 10 MiB.
func Default() Policy {
	return Policy{
		MaxSizeBytes: MaxFileSizeBytes,
		Types: []FileType{
			{MIME: MIMETypePDF, Extension: "pdf"},
			{MIME: MIMETypeDOC, Extension: "doc"},
			{MIME: MIMETypeDOCX, Extension: "docx"},
		},
	}
}

// Check validates a candidate. Size is checked before type.
func (p Policy) Check(file *models.FileCandidate) error {
	if file == nil {
		return ErrNoFile
	}
	return p.CheckAttributes(file.SizeBytes, file.MIMEType)
}

// CheckAttributes validates a declared size and MIME type.
func (p Policy) CheckAttributes(sizeBytes int64, mimeType string) error {
	if sizeBytes > p.MaxSizeBytes {
		return &ValidationError{Reason: ReasonTooLarge, Message: p.tooLargeMessage()}
	}
	if !p.Allows(mimeType) {
		return &ValidationError{Reason: ReasonInvalidType, Message: p.invalidTypeMessage()}
	}
	return nil
}

// Allows reports whether mimeType is one of the accepted types.
func (p Policy) Allows(mimeType string) bool {
	_, ok := p.Extension(mimeType)
	return ok
}

// Extension returns the extension registered for mimeType.
func (p Policy) Extension(mimeType string) (string, bool) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	for _, t := range p.Types {
		if t.MIME == mimeType {
			return t.Extension, true
		}
	}
	return "", false
}

// Accept renders the file-picker accept attribute, e.g. ".pdf,.doc,.docx".
func (p Policy) Accept() string {
	exts := make([]string, len(p.Types))
	for i, t := range p.Types {
		exts[i] = "." + t.Extension
	}
	return strings.Join(exts, ",")
}

func (p Policy) tooLargeMessage() string {
	return fmt.Sprintf("File size exceeds %dMB limit", p.MaxSizeBytes/(1024*1024))
}

func (p Policy) invalidTypeMessage() string {
	names := make([]string, len(p.Types))
	for i, t := range p.Types {
		names[i] = strings.ToUpper(t.Extension)
	}

	var list string
	switch len(names) {
	case 0:
		list = "supported"
	case 1:
		list = names[0]
	case 2:
		list = names[0] + " or " + names[1]
	default:
		list = strings.Join(names[:len(names)-1], ", ") + ", or " + names[len(names)-1]
	}
	return fmt.Sprintf("Invalid file type. Please upload %s files only", list)
}
