package filepolicy

import (
	"errors"
	"testing"

	"github.com/leasecheck/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Check(t *testing.T) {
	tests := []struct {
		name       string
		file       *models.FileCandidate
		wantReason Reason
		wantMsg    string
		wantErr    bool
	}{
		{
			name: "pdf under limit",
			file: &models.FileCandidate{Name: "lease.pdf", SizeBytes: 1024, MIMEType: MIMETypePDF},
		},
		{
			name: "doc at exact limit",
			file: &models.FileCandidate{Name: "lease.doc", SizeBytes: MaxFileSizeBytes, MIMEType: MIMETypeDOC},
		},
		{
			name: "docx",
			file: &models.FileCandidate{Name: "lease.docx", SizeBytes: 10, MIMEType: MIMETypeDOCX},
		},
		{
			name:       "one byte over limit",
			file:       &models.FileCandidate{Name: "big.pdf", SizeBytes: MaxFileSizeBytes + 1, MIMEType: MIMETypePDF},
			wantErr:    true,
			wantReason: ReasonTooLarge,
			wantMsg:    "File size exceeds 10MB limit",
		},
		{
			name:       "oversized and wrong type reports size",
			file:       &models.FileCandidate{Name: "big.png", SizeBytes: 20 * 1024 * 1024, MIMEType: "image/png"},
			wantErr:    true,
			wantReason: ReasonTooLarge,
			wantMsg:    "File size exceeds 10MB limit",
		},
		{
			name:       "plain text",
			file:       &models.FileCandidate{Name: "notes.txt", SizeBytes: 10, MIMEType: "text/plain"},
			wantErr:    true,
			wantReason: ReasonInvalidType,
			wantMsg:    "Invalid file type. Please upload PDF, DOC, or DOCX files only",
		},
		{
			name:       "empty mime type",
			file:       &models.FileCandidate{Name: "lease", SizeBytes: 10},
			wantErr:    true,
			wantReason: ReasonInvalidType,
			wantMsg:    "Invalid file type. Please upload PDF, DOC, or DOCX files only",
		},
	}

	p := Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Check(tt.file)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "expected ValidationError, got %T", err)
			assert.Equal(t, tt.wantReason, ve.Reason)
			assert.Equal(t, tt.wantMsg, ve.Message)
		})
	}
}

func TestPolicy_CheckNil(t *testing.T) {
	assert.ErrorIs(t, Default().Check(nil), ErrNoFile)
}

func TestPolicy_Accept(t *testing.T) {
	assert.Equal(t, ".pdf,.doc,.docx", Default().Accept())
}

func TestPolicy_Extension(t *testing.T) {
	p := Default()

	ext, ok := p.Extension(" Application/PDF ")
	assert.True(t, ok)
	assert.Equal(t, "pdf", ext)

	_, ok = p.Extension("application/zip")
	assert.False(t, ok)
}

func TestPolicy_CustomMessages(t *testing.T) {
	p := Policy{
		MaxSizeBytes: 2 * 1024 * 1024,
		Types:        []FileType{{MIME: MIMETypePDF, Extension: "pdf"}, {MIME: MIMETypeDOCX, Extension: "docx"}},
	}

	err := p.CheckAttributes(3*1024*1024, MIMETypePDF)
	assert.EqualError(t, err, "File size exceeds 2MB limit")

	err = p.CheckAttributes(1, MIMETypeDOC)
	assert.EqualError(t, err, "Invalid file type. Please upload PDF or DOCX files only")
}
