// handlers_upload.go - Lease upload operation handlers
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/leasecheck/backend/internal/catalog"
	"github.com/leasecheck/backend/internal/filepolicy"
	"github.com/leasecheck/backend/internal/metrics"
	"github.com/leasecheck/backend/internal/models"
	"github.com/leasecheck/backend/internal/storage"
	"github.com/leasecheck/backend/internal/transport"
	"github.com/leasecheck/backend/internal/upload"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	// MIMEApplicationMsgpack selects the binary listing format.
	MIMEApplicationMsgpack = "application/msgpack"

	defaultListLimit = 20
	maxListLimit     = 200
)

// UploadHandlerImpl implements the UploadHandler interface
type UploadHandlerImpl struct {
	store         storage.Store
	intake        IntakeManager
	catalog       catalog.Catalog
	metrics       *metrics.Metrics
	policy        filepolicy.Policy
	redirectPath  string
	allowDeletion bool
	logger        *slog.Logger
}

// NewUploadHandler creates a new upload handler instance
func NewUploadHandler(deps *Dependencies) UploadHandler {
	return &UploadHandlerImpl{
		store:         deps.Store,
		intake:        deps.Intake,
		catalog:       deps.Catalog,
		metrics:       deps.Metrics,
		policy:        deps.policy(),
		redirectPath:  deps.RedirectPath,
		allowDeletion: deps.AllowDeletion,
		logger:        deps.logger().With("component", "upload-handler"),
	}
}

// HandleUploadLease accepts one multipart lease document in field "file",
// stores it, starts its intake job, and answers with the next page.
func (h *UploadHandlerImpl) HandleUploadLease(c echo.Context) error {
	file, err := c.FormFile(transport.FileField)
	if err != nil {
		h.metrics.UploadRejected()
		return NewBadRequestError("No file provided", err)
	}

	contentType := file.Header.Get(echo.HeaderContentType)
	if err := h.policy.CheckAttributes(file.Size, contentType); err != nil {
		h.metrics.UploadRejected()
		var ve *filepolicy.ValidationError
		if errors.As(err, &ve) {
			return NewFileRejectedError(ve)
		}
		return NewBadRequestError("invalid file", err)
	}

	src, err := file.Open()
	if err != nil {
		h.metrics.UploadFailed()
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	info, err := h.store.Save(file.Filename, contentType, src)
	if err != nil {
		h.metrics.UploadFailed()
		return NewInternalError("failed to save file", err)
	}
	h.metrics.UploadAccepted(info.Size)

	resp := uploadLeaseResponse{ID: info.ID, File: info}
	if h.intake != nil {
		job := h.intake.StartJob(info)
		resp.JobID = job.ID
	}
	if h.redirectPath != "" {
		resp.RedirectURL = h.redirectPath + "?upload=" + url.QueryEscape(info.ID)
	}

	h.logger.Info("lease uploaded", "id", info.ID, "name", info.Name, "size", info.Size)
	return c.JSON(http.StatusCreated, resp)
}

// HandleListUploads returns the most recent uploads, as msgpack when the
// client asks for it
func (h *UploadHandlerImpl) HandleListUploads(c echo.Context) error {
	limit, err := parseLimit(c)
	if err != nil {
		return err
	}

	files, err := h.store.List(limit)
	if err != nil {
		return NewInternalError("failed to list files", err)
	}

	return respond(c, http.StatusOK, files)
}

// HandleGetUpload returns metadata and intake status for one upload
func (h *UploadHandlerImpl) HandleGetUpload(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	info, err := h.store.Get(id)
	if err != nil {
		return NewNotFoundError("file", id)
	}

	resp := uploadStatusResponse{File: info}
	if h.intake != nil {
		if job, ok := h.intake.JobForFile(id); ok {
			resp.Job = job
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleDeleteUpload deletes an upload when deletion is enabled
func (h *UploadHandlerImpl) HandleDeleteUpload(c echo.Context) error {
	if !h.allowDeletion {
		return NewForbiddenError("file deletion is disabled")
	}

	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if err := h.store.Delete(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return NewNotFoundError("file", id)
		}
		return NewInternalError("failed to delete file", err)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleIntakeHistory returns recently catalogued intake outcomes
func (h *UploadHandlerImpl) HandleIntakeHistory(c echo.Context) error {
	if h.catalog == nil {
		return NewServiceUnavailableError("intake catalog is not configured")
	}

	limit, err := parseLimit(c)
	if err != nil {
		return err
	}

	records, err := h.catalog.Recent(c.Request().Context(), limit)
	if err != nil {
		return NewInternalError("failed to read intake history", err)
	}
	if records == nil {
		records = []models.IntakeRecord{}
	}

	return respond(c, http.StatusOK, records)
}

// Request/Response types

type uploadLeaseResponse struct {
	ID          string           `json:"id"`
	JobID       string           `json:"jobId,omitempty"`
	RedirectURL string           `json:"redirect_url,omitempty"`
	File        *models.FileInfo `json:"file"`
}

type uploadStatusResponse struct {
	File *models.FileInfo `json:"file"`
	Job  *upload.Job      `json:"job,omitempty"`
}

// Helper functions

func parseLimit(c echo.Context) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return defaultListLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, NewBadRequestError("limit must be a positive integer", err)
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit, nil
}

// respond encodes v as msgpack when the Accept header asks for it and as
// JSON otherwise.
func respond(c echo.Context, status int, v interface{}) error {
	if strings.Contains(c.Request().Header.Get(echo.HeaderAccept), MIMEApplicationMsgpack) {
		data, err := msgpack.Marshal(v)
		if err != nil {
			return NewInternalError("failed to encode msgpack", err)
		}
		return c.Blob(status, MIMEApplicationMsgpack, data)
	}
	return c.JSON(status, v)
}
