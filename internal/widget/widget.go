// Package widget implements the lease upload widget: drag-and-drop and
// file-picker input, client-side validation, one progress row per accepted
// file, and an independent upload per file with transient error and
// success banners.
//
// The widget owns its state tree instead of a page DOM. Hosts feed it
// events (DragOver, Drop, PickFiles, RemoveEntry), read it back with
// Snapshot, or render it with Render.
package widget

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/leasecheck/backend/internal/filepolicy"
	"github.com/leasecheck/backend/internal/models"
	"github.com/leasecheck/backend/internal/transport"
)

const (
	// DefaultBannerDuration is how long a banner stays visible.
	DefaultBannerDuration = 5 * time.Second

	// MsgUploadSucceeded is shown after any successful upload.
	MsgUploadSucceeded = "File uploaded successfully!"
)

// Navigator performs the full-page navigation requested by the endpoint.
type Navigator interface {
	Navigate(url string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(url string)

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(url string) { f(url) }

// Uploader submits one file. *transport.Client is the production
// implementation.
type Uploader interface {
	Submit(ctx context.Context, file *models.FileCandidate) (*transport.Result, error)
}

// Config is fixed for the lifetime of a widget.
type Config struct {
	Policy         filepolicy.Policy
	UploadEndpoint string
	CSRFToken      func() string
	BannerDuration time.Duration
}

// DefaultConfig returns the lease upload configuration for endpoint.
func DefaultConfig(endpoint string, csrfToken func() string) Config {
	return Config{
		Policy:         filepolicy.Default(),
		UploadEndpoint: endpoint,
		CSRFToken:      csrfToken,
		BannerDuration: DefaultBannerDuration,
	}
}

// Option configures a Widget.
type Option func(*Widget)

// WithUploader replaces the transport client built from Config.
func WithUploader(u Uploader) Option {
	return func(w *Widget) { w.uploader = u }
}

// WithNavigator sets the navigation target for redirect_url answers.
func WithNavigator(n Navigator) Option {
	return func(w *Widget) { w.navigator = n }
}

// WithClock sets the clock driving banner timers.
func WithClock(c clock.Clock) Option {
	return func(w *Widget) { w.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Widget) { w.logger = l }
}

// WithBannerListener is called every time a banner is shown.
func WithBannerListener(fn func(kind BannerKind, message string)) Option {
	return func(w *Widget) { w.bannerListener = fn }
}

// WithContext sets the parent context of every upload request.
func WithContext(ctx context.Context) Option {
	return func(w *Widget) { w.parent = ctx }
}

// Widget is one upload widget instance. It shares no state with other
// instances.
type Widget struct {
	cfg            Config
	uploader       Uploader
	navigator      Navigator
	clock          clock.Clock
	logger         *slog.Logger
	bannerListener func(BannerKind, string)
	parent         context.Context

	banners *Banners
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu        sync.Mutex
	entries   []*models.UploadEntry
	dragOver  bool
	navigated bool
	closed    bool
}

// New builds a widget from cfg. Zero policy and banner duration fall back
// to the lease defaults.
func New(cfg Config, opts ...Option) *Widget {
	if cfg.Policy.MaxSizeBytes <= 0 && len(cfg.Policy.Types) == 0 {
		cfg.Policy = filepolicy.Default()
	}
	if cfg.BannerDuration <= 0 {
		cfg.BannerDuration = DefaultBannerDuration
	}

	w := &Widget{cfg: cfg}
	for _, opt := range opts {
		opt(w)
	}

	if w.parent == nil {
		w.parent = context.Background()
	}
	if w.clock == nil {
		w.clock = clock.New()
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	w.logger = w.logger.With("component", "widget")
	if w.uploader == nil {
		w.uploader = transport.New(cfg.UploadEndpoint, cfg.CSRFToken)
	}
	if w.navigator == nil {
		w.navigator = NavigatorFunc(func(url string) {
			w.logger.Info("navigation requested without a navigator", "url", url)
		})
	}

	w.ctx, w.cancel = context.WithCancel(w.parent)
	w.banners = NewBanners(w.clock, cfg.BannerDuration)
	w.banners.notify = w.bannerListener
	return w
}

// Config returns the widget configuration.
func (w *Widget) Config() Config {
	return w.cfg
}

// Banners exposes the two message regions.
func (w *Widget) Banners() *Banners {
	return w.banners
}

// ShowError displays a transient error message.
func (w *Widget) ShowError(message string) {
	w.banners.ShowError(message)
}

// ShowSuccess displays a transient success message.
func (w *Widget) ShowSuccess(message string) {
	w.banners.ShowSuccess(message)
}

// DragOver highlights the drop box.
func (w *Widget) DragOver() {
	w.mu.Lock()
	w.dragOver = true
	w.mu.Unlock()
}

// DragLeave clears the drop box highlight.
func (w *Widget) DragLeave() {
	w.mu.Lock()
	w.dragOver = false
	w.mu.Unlock()
}

// Drop handles files dropped on the box.
func (w *Widget) Drop(files []*models.FileCandidate) {
	w.DragLeave()
	w.HandleFiles(files)
}

// PickFiles handles a file-picker selection. The picker keeps no
// selection afterwards, so picking the same file again starts a new upload.
func (w *Widget) PickFiles(files []*models.FileCandidate) {
	w.HandleFiles(files)
}

// HandleFiles validates each candidate in order and starts an upload for
// every one that passes. A rejected file never stops the rest of the batch.
func (w *Widget) HandleFiles(files []*models.FileCandidate) {
	for _, file := range files {
		if !w.ValidateFile(file) {
			continue
		}
		w.UploadFile(file)
	}
}

// ValidateFile reports whether file may be uploaded. A rejection with a
// reason is shown in the error banner; a nil file is rejected silently.
func (w *Widget) ValidateFile(file *models.FileCandidate) bool {
	err := w.cfg.Policy.Check(file)
	if err == nil {
		return true
	}

	var ve *filepolicy.ValidationError
	if errors.As(err, &ve) {
		w.logger.Debug("file rejected", "file", file.Name, "reason", ve.Reason)
		w.ShowError(ve.Message)
	}
	return false
}

// UploadFile adds a row for file and submits it in the background. It
// returns the new entry's ID. Callers are expected to have validated file;
// HandleFiles does.
func (w *Widget) UploadFile(file *models.FileCandidate) string {
	entry := models.NewUploadEntry(file)

	w.mu.Lock()
	w.entries = append(w.entries, entry)
	w.mu.Unlock()

	w.wg.Add(1)
	go w.upload(entry)
	return entry.ID
}

// RemoveEntry removes a row from the list. An upload already in flight for
// that row still runs to completion and still reports through the banners.
func (w *Widget) RemoveEntry(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.removeLocked(id)
}

// Wait blocks until every started upload has settled.
func (w *Widget) Wait() {
	w.wg.Wait()
}

// Close aborts in-flight uploads, as leaving the page would.
func (w *Widget) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.cancel()
}

// Navigated reports whether an upload has redirected the page.
func (w *Widget) Navigated() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.navigated
}

func (w *Widget) upload(entry *models.UploadEntry) {
	defer w.wg.Done()

	w.mu.Lock()
	entry.Status = models.EntryUploading
	w.mu.Unlock()

	w.logger.Info("upload started", "entry", entry.ID, "file", entry.File.Name, "size", entry.File.SizeBytes)
	res, err := w.uploader.Submit(w.ctx, entry.File)
	if err != nil {
		w.fail(entry, err)
		return
	}
	w.succeed(entry, res)
}

func (w *Widget) succeed(entry *models.UploadEntry, res *transport.Result) {
	w.mu.Lock()
	if w.navigated || w.closed {
		w.mu.Unlock()
		return
	}
	entry.Status = models.EntrySucceeded
	entry.ProgressPercent = 100
	redirect := ""
	if res != nil {
		redirect = res.RedirectURL
	}
	if redirect != "" {
		w.navigated = true
	}
	w.mu.Unlock()

	w.logger.Info("upload succeeded", "entry", entry.ID, "file", entry.File.Name, "redirect", redirect)
	w.ShowSuccess(MsgUploadSucceeded)

	if redirect != "" {
		// Leaving the page abandons every other upload.
		w.cancel()
		w.navigator.Navigate(redirect)
	}
}

func (w *Widget) fail(entry *models.UploadEntry, err error) {
	w.mu.Lock()
	if w.navigated || w.closed {
		w.mu.Unlock()
		return
	}
	entry.Status = models.EntryFailed
	w.removeLocked(entry.ID)
	w.mu.Unlock()

	w.logger.Warn("upload failed", "entry", entry.ID, "file", entry.File.Name, "error", err)
	w.ShowError(transport.UserMessage(err))
}

// removeLocked must be called with w.mu held.
func (w *Widget) removeLocked(id string) bool {
	for i, e := range w.entries {
		if e.ID == id {
			w.entries = append(w.entries[:i], w.entries[i+1:]...)
			return true
		}
	}
	return false
}
