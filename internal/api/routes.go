// routes.go - Route registration helpers
package api

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/leasecheck/backend/internal/catalog"
	"github.com/leasecheck/backend/internal/filepolicy"
	"github.com/leasecheck/backend/internal/metrics"
	"github.com/leasecheck/backend/internal/storage"
	"github.com/leasecheck/backend/internal/transport"
)

const (
	// UploadLeasePath serves the upload page (GET) and accepts documents (POST).
	UploadLeasePath = "/upload-lease"

	// ReviewPath is where a successful upload redirects.
	ReviewPath = "/reviewing-lease"

	// CSRFContextKey is the echo context key holding the page token.
	CSRFContextKey = "csrf"
)

// CSRFSettings configures the double-submit cookie
type CSRFSettings struct {
	CookieName   string
	CookieSecure bool
}

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store         storage.Store
	Intake        IntakeManager
	Catalog       catalog.Catalog
	Metrics       *metrics.Metrics
	Policy        *filepolicy.Policy
	RedirectPath  string
	AllowDeletion bool
	CSRF          CSRFSettings
	Version       string
	Logger        *slog.Logger
}

func (d *Dependencies) policy() filepolicy.Policy {
	if d.Policy == nil {
		return filepolicy.Default()
	}
	return *d.Policy
}

func (d *Dependencies) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// Handlers holds all handler instances
type Handlers struct {
	Health HealthHandler
	Upload UploadHandler
	Page   PageHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health: NewHealthHandler(deps.Version),
		Upload: NewUploadHandler(deps),
		Page:   NewPageHandler(deps),
	}
}

// CSRFMiddleware issues the token on safe requests and checks the
// X-CSRFToken header against the cookie on unsafe ones
func CSRFMiddleware(settings CSRFSettings) echo.MiddlewareFunc {
	name := settings.CookieName
	if name == "" {
		name = "_csrf"
	}
	return middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup:    "header:" + transport.CSRFHeader,
		ContextKey:     CSRFContextKey,
		CookieName:     name,
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   settings.CookieSecure,
		CookieSameSite: http.SameSiteStrictMode,
		ErrorHandler: func(err error, c echo.Context) error {
			return NewForbiddenError("The CSRF token is missing or invalid")
		},
	})
}

// RegisterRoutes registers all routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers, deps *Dependencies) {
	csrf := CSRFMiddleware(deps.CSRF)

	// Health check
	e.GET("/health", handlers.Health.HandleHealth)
	e.GET("/api/health", handlers.Health.HandleHealth)

	// Pages
	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusFound, UploadLeasePath)
	})
	e.GET(UploadLeasePath, handlers.Page.HandleUploadPage, csrf)
	e.POST(UploadLeasePath, handlers.Upload.HandleUploadLease, csrf)
	e.GET(ReviewPath, handlers.Page.HandleReviewPage)

	// Upload API
	uploadGroup := e.Group("/api/uploads")
	uploadGroup.GET("", handlers.Upload.HandleListUploads)
	uploadGroup.GET("/:id", handlers.Upload.HandleGetUpload)
	uploadGroup.DELETE("/:id", handlers.Upload.HandleDeleteUpload, csrf)

	e.GET("/api/intake", handlers.Upload.HandleIntakeHistory)

	if deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(deps.Metrics.Handler()))
	}
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, logger *slog.Logger, showDetails bool) {
	e.HTTPErrorHandler = ErrorHandler(logger, showDetails)
}
