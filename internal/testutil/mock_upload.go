// mock_upload.go - Controllable uploader and navigation recorder for widget tests
package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/leasecheck/backend/internal/models"
	"github.com/leasecheck/backend/internal/transport"
)

type uploadReply struct {
	res *transport.Result
	err error
}

// PendingUpload is one Submit call waiting for the test to answer it
type PendingUpload struct {
	File  *models.FileCandidate
	reply chan uploadReply
}

// Succeed answers with a 2xx, optionally carrying a redirect
func (p *PendingUpload) Succeed(redirectURL string) {
	p.reply <- uploadReply{res: &transport.Result{StatusCode: 201, RedirectURL: redirectURL}}
}

// Reject answers with a non-2xx and the given server reason
func (p *PendingUpload) Reject(status int, reason string) {
	p.reply <- uploadReply{err: &transport.ServerRejection{StatusCode: status, Reason: reason}}
}

// FailNetwork answers as if the request never completed
func (p *PendingUpload) FailNetwork() {
	p.reply <- uploadReply{err: &transport.TransportFailure{Err: errors.New("connection refused")}}
}

// ControlledUploader blocks every Submit until the test resolves it
type ControlledUploader struct {
	calls chan *PendingUpload

	mu        sync.Mutex
	cancelled int
}

// NewControlledUploader creates an uploader with room for 64 pending calls
func NewControlledUploader() *ControlledUploader {
	return &ControlledUploader{calls: make(chan *PendingUpload, 64)}
}

func (u *ControlledUploader) Submit(ctx context.Context, file *models.FileCandidate) (*transport.Result, error) {
	p := &PendingUpload{File: file, reply: make(chan uploadReply, 1)}
	u.calls <- p

	select {
	case r := <-p.reply:
		return r.res, r.err
	case <-ctx.Done():
		u.mu.Lock()
		u.cancelled++
		u.mu.Unlock()
		return nil, &transport.TransportFailure{Err: ctx.Err()}
	}
}

// Next returns the next Submit call, failing the test after two seconds
func (u *ControlledUploader) Next(t testing.TB) *PendingUpload {
	t.Helper()
	select {
	case p := <-u.calls:
		return p
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for an upload request")
		return nil
	}
}

// Cancelled returns how many calls ended because their context was cancelled
func (u *ControlledUploader) Cancelled() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.cancelled
}

// NavigationRecorder records every navigation request
type NavigationRecorder struct {
	mu   sync.Mutex
	urls []string
}

func (n *NavigationRecorder) Navigate(url string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urls = append(n.urls, url)
}

// URLs returns the recorded navigation targets in order
func (n *NavigationRecorder) URLs() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.urls...)
}
