// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/labstack/echo/v4"
	"github.com/leasecheck/backend/internal/models"
	"github.com/leasecheck/backend/internal/upload"
)

// UploadHandler handles lease upload operations
type UploadHandler interface {
	HandleUploadLease(c echo.Context) error
	HandleListUploads(c echo.Context) error
	HandleGetUpload(c echo.Context) error
	HandleDeleteUpload(c echo.Context) error
	HandleIntakeHistory(c echo.Context) error
}

// PageHandler renders the server-side pages
type PageHandler interface {
	HandleUploadPage(c echo.Context) error
	HandleReviewPage(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// IntakeManager defines what the handlers need from the intake jobs.
// This allows mocking in tests
type IntakeManager interface {
	StartJob(info *models.FileInfo) *upload.Job
	JobForFile(fileID string) (*upload.Job, bool)
}

var _ IntakeManager = (*upload.Manager)(nil)
