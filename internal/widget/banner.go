package widget

import (
	"sync"
	"time"

	"github.com/facebookgo/clock"
)

// BannerKind identifies one of the two message regions.
type BannerKind string

const (
	BannerError   BannerKind = "error"
	BannerSuccess BannerKind = "success"
)

// BannerView is the rendered state of one message region.
type BannerView struct {
	Text    string
	Visible bool
}

// Banners owns the error and success regions.
//
// Showing one kind hides the other at once. Each call schedules its own
// hide timer and never cancels an earlier one, so a message shown shortly
// after another can be hidden by the earlier timer.
type Banners struct {
	clock    clock.Clock
	duration time.Duration
	notify   func(BannerKind, string)

	mu      sync.Mutex
	error   BannerView
	success BannerView
}

// NewBanners creates both regions, hidden.
func NewBanners(clk clock.Clock, duration time.Duration) *Banners {
	if clk == nil {
		clk = clock.New()
	}
	if duration <= 0 {
		duration = DefaultBannerDuration
	}
	return &Banners{clock: clk, duration: duration}
}

// ShowError displays message in the error region.
func (b *Banners) ShowError(message string) {
	b.show(BannerError, message)
}

// ShowSuccess displays message in the success region.
func (b *Banners) ShowSuccess(message string) {
	b.show(BannerSuccess, message)
}

// Error returns the error region state.
func (b *Banners) Error() BannerView {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.error
}

// Success returns the success region state.
func (b *Banners) Success() BannerView {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.success
}

func (b *Banners) show(kind BannerKind, message string) {
	b.mu.Lock()
	target, other := b.regions(kind)
	target.Text = message
	target.Visible = true
	other.Visible = false
	notify := b.notify
	b.mu.Unlock()

	if notify != nil {
		notify(kind, message)
	}

	b.clock.AfterFunc(b.duration, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		target, _ := b.regions(kind)
		target.Visible = false
	})
}

// regions must be called with b.mu held.
func (b *Banners) regions(kind BannerKind) (target, other *BannerView) {
	if kind == BannerError {
		return &b.error, &b.success
	}
	return &b.success, &b.error
}
