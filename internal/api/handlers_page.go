// handlers_page.go - Server-rendered upload and review pages
package api

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/leasecheck/backend/internal/filepolicy"
	"github.com/leasecheck/backend/internal/models"
	"github.com/leasecheck/backend/internal/storage"
	"github.com/leasecheck/backend/internal/web"
	"github.com/leasecheck/backend/internal/widget"
)

// PageHandlerImpl implements the PageHandler interface
type PageHandlerImpl struct {
	store          storage.Store
	intake         IntakeManager
	policy         filepolicy.Policy
	uploadEndpoint string
	logger         *slog.Logger
}

// NewPageHandler creates a new page handler
func NewPageHandler(deps *Dependencies) PageHandler {
	return &PageHandlerImpl{
		store:          deps.Store,
		intake:         deps.Intake,
		policy:         deps.policy(),
		uploadEndpoint: UploadLeasePath,
		logger:         deps.logger().With("component", "page-handler"),
	}
}

// HandleUploadPage renders the lease upload page with an empty widget and
// the CSRF token in <meta name="csrf-token">
func (h *PageHandlerImpl) HandleUploadPage(c echo.Context) error {
	token, _ := c.Get(CSRFContextKey).(string)

	cfg := widget.DefaultConfig(h.uploadEndpoint, func() string { return token })
	cfg.Policy = h.policy
	w := widget.New(cfg, widget.WithLogger(h.logger))
	defer w.Close()

	var markup bytes.Buffer
	if err := w.Render(&markup); err != nil {
		return NewInternalError("failed to render upload widget", err)
	}

	var page bytes.Buffer
	err := web.RenderPage(&page, web.Page{
		Title:          "Upload your lease",
		CSRFToken:      token,
		UploadEndpoint: h.uploadEndpoint,
		MaxSizeMB:      h.policy.MaxSizeBytes / (1024 * 1024),
		Widget:         template.HTML(markup.String()),
	})
	if err != nil {
		return NewInternalError("failed to render page", err)
	}

	return c.HTMLBlob(http.StatusOK, page.Bytes())
}

// HandleReviewPage renders the page the widget navigates to after a
// successful upload
func (h *PageHandlerImpl) HandleReviewPage(c echo.Context) error {
	id := c.QueryParam("upload")
	if id == "" {
		return NewValidationError("upload")
	}

	info, err := h.store.Get(id)
	if err != nil {
		return NewNotFoundError("file", id)
	}

	review := web.Review{
		Title:    "Reviewing your lease",
		FileID:   info.ID,
		FileName: info.Name,
		Size:     widget.FormatFileSize(info.Size),
		Status:   info.Status,
		Message:  reviewMessage(info.Status),
	}
	if h.intake != nil {
		if job, ok := h.intake.JobForFile(id); ok && job.Error != "" {
			review.Message = "We could not read this document: " + job.Error
		}
	}

	var page bytes.Buffer
	if err := web.RenderReview(&page, review); err != nil {
		return NewInternalError("failed to render page", err)
	}
	return c.HTMLBlob(http.StatusOK, page.Bytes())
}

func reviewMessage(status string) string {
	switch status {
	case models.FileStatusAccepted:
		return "Your lease was received and is ready for review."
	case models.FileStatusRejected:
		return "We could not read this document."
	default:
		return "Your lease was received. We are checking the document."
	}
}
