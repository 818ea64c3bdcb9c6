package upload

import (
	"context"
	"testing"
	"time"

	"github.com/leasecheck/backend/internal/catalog"
	"github.com/leasecheck/backend/internal/filepolicy"
	"github.com/leasecheck/backend/internal/metrics"
	"github.com/leasecheck/backend/internal/models"
	"github.com/leasecheck/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")

func newTestManager(t *testing.T) (*Manager, *testutil.MockStorage, *catalog.Memory) {
	t.Helper()
	store := testutil.NewMockStorage()
	cat := catalog.NewMemory()
	m := NewManager(store, filepolicy.Default(), cat, WithMetrics(metrics.New()))
	return m, store, cat
}

func TestManager_AcceptsPDF(t *testing.T) {
	m, store, cat := newTestManager(t)
	info := store.AddFile("file-1", "lease.pdf", filepolicy.MIMETypePDF, pdfBytes)

	started := m.StartJob(info)
	assert.Equal(t, "file-1", started.FileID)
	m.Wait()

	job, ok := m.GetJob(started.ID)
	require.True(t, ok)
	assert.Equal(t, StatusComplete, job.Status)
	assert.Equal(t, 100.0, job.Progress)
	assert.Equal(t, "pdf", job.DocumentType)
	assert.Equal(t, filepolicy.MIMETypePDF, job.DetectedMIME)
	assert.Empty(t, job.Error)
	require.NotNil(t, job.CompletedAt)

	stored, err := store.Get("file-1")
	require.NoError(t, err)
	assert.Equal(t, models.FileStatusAccepted, stored.Status)

	recent, err := cat.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "pdf", recent[0].DocumentType)
	assert.Equal(t, int64(len(pdfBytes)), recent[0].Size)
}

func TestManager_RejectsContent(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		wantError string
	}{
		{"empty document", nil, "document is empty"},
		{"plain text", []byte("just some text pretending to be a lease"), "unsupported document type: text/plain"},
		{"png image", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), "unsupported document type: image/png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, store, cat := newTestManager(t)
			info := store.AddFile("file-1", "lease.pdf", filepolicy.MIMETypePDF, tt.data)

			started := m.StartJob(info)
			m.Wait()

			job, ok := m.GetJob(started.ID)
			require.True(t, ok)
			assert.Equal(t, StatusError, job.Status)
			assert.Contains(t, job.Error, tt.wantError)
			assert.Empty(t, job.DocumentType)

			stored, _ := store.Get("file-1")
			assert.Equal(t, models.FileStatusRejected, stored.Status)

			recent, _ := cat.Recent(context.Background(), 1)
			require.Len(t, recent, 1)
			assert.Equal(t, models.FileStatusRejected, recent[0].Status)
			assert.Contains(t, recent[0].Error, tt.wantError)
		})
	}
}

func TestManager_MissingFile(t *testing.T) {
	m, _, _ := newTestManager(t)

	started := m.StartJob(&models.FileInfo{ID: "gone", Name: "gone.pdf", Size: 10})
	m.Wait()

	job, _ := m.GetJob(started.ID)
	assert.Equal(t, StatusError, job.Status)
	assert.Contains(t, job.Error, "failed to open document")
}

func TestManager_JobForFile(t *testing.T) {
	m, store, _ := newTestManager(t)
	info := store.AddFile("file-1", "lease.pdf", filepolicy.MIMETypePDF, pdfBytes)

	started := m.StartJob(info)
	m.Wait()

	job, ok := m.JobForFile("file-1")
	require.True(t, ok)
	assert.Equal(t, started.ID, job.ID)

	_, ok = m.JobForFile("other")
	assert.False(t, ok)
}

func TestManager_GetJobReturnsCopy(t *testing.T) {
	m, store, _ := newTestManager(t)
	started := m.StartJob(store.AddFile("file-1", "lease.pdf", filepolicy.MIMETypePDF, pdfBytes))
	m.Wait()

	job, _ := m.GetJob(started.ID)
	job.Status = StatusProcessing

	again, _ := m.GetJob(started.ID)
	assert.Equal(t, StatusComplete, again.Status)
}

func TestManager_WithoutCatalog(t *testing.T) {
	store := testutil.NewMockStorage()
	m := NewManager(store, filepolicy.Default(), nil)

	started := m.StartJob(store.AddFile("file-1", "lease.pdf", filepolicy.MIMETypePDF, pdfBytes))
	m.Wait()

	job, _ := m.GetJob(started.ID)
	assert.Equal(t, StatusComplete, job.Status)
}

func TestManager_CleanupOldJobs(t *testing.T) {
	m, store, _ := newTestManager(t)
	started := m.StartJob(store.AddFile("file-1", "lease.pdf", filepolicy.MIMETypePDF, pdfBytes))
	m.Wait()

	assert.Equal(t, 0, m.CleanupOldJobs(time.Hour))
	_, ok := m.GetJob(started.ID)
	assert.True(t, ok)

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 1, m.CleanupOldJobs(time.Millisecond))
	_, ok = m.GetJob(started.ID)
	assert.False(t, ok)
	_, ok = m.JobForFile("file-1")
	assert.False(t, ok)
}
