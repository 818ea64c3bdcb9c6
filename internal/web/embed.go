// Package web provides the embedded lease upload page and its stylesheet.
package web

import (
	"embed"
	"html/template"
	"io"
	"io/fs"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static/*
var staticFiles embed.FS

var templates = template.Must(template.ParseFS(templateFiles, "templates/*.html"))

// Page is the data rendered into the upload page layout.
type Page struct {
	Title          string
	CSRFToken      string
	UploadEndpoint string
	MaxSizeMB      int64
	Widget         template.HTML // pre-rendered widget markup
}

// RenderPage writes the full upload page.
func RenderPage(w io.Writer, p Page) error {
	return templates.ExecuteTemplate(w, "page.html", p)
}

// Review is the data rendered into the page shown after an upload.
type Review struct {
	Title    string
	FileID   string
	FileName string
	Size     string
	Status   string
	Message  string
}

// RenderReview writes the post-upload review page.
func RenderReview(w io.Writer, r Review) error {
	return templates.ExecuteTemplate(w, "reviewing.html", r)
}

// GetFileSystem returns the embedded static files with static/ as root.
func GetFileSystem() (fs.FS, error) {
	return fs.Sub(staticFiles, "static")
}

// RegisterStaticRoutes serves the stylesheet under /static.
func RegisterStaticRoutes(e *echo.Echo) error {
	staticFS, err := GetFileSystem()
	if err != nil {
		return err
	}
	e.StaticFS("/static", staticFS)
	return nil
}
