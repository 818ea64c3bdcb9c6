package widget

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/leasecheck/backend/internal/models"
)

// CandidateFromPath builds a candidate for a local file. The MIME type is
// sniffed from the contents, standing in for the type a browser reports.
func CandidateFromPath(path string) (*models.FileCandidate, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("detecting type of %s: %w", path, err)
	}

	return &models.FileCandidate{
		Name:      filepath.Base(path),
		SizeBytes: stat.Size(),
		MIMEType:  mediaType(mtype),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// mediaType strips parameters such as "; charset=utf-8".
func mediaType(m *mimetype.MIME) string {
	t, _, _ := strings.Cut(m.String(), ";")
	return strings.TrimSpace(t)
}
