package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leasecheck/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SubmitSuccess(t *testing.T) {
	var gotToken, gotName, gotType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get(CSRFHeader)
		file, header, err := r.FormFile(FileField)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotName = header.Filename
		gotType = header.Header.Get("Content-Type")
		gotBody = string(data)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"f-1","redirect_url":"/done"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, func() string { return "tok-123" })
	res, err := c.Submit(context.Background(),
		models.NewBytesCandidate(`my "lease".pdf`, "application/pdf", []byte("%PDF-1.4 body")))

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, "/done", res.RedirectURL)
	assert.Equal(t, "f-1", res.ID)
	assert.Equal(t, "tok-123", gotToken)
	assert.Equal(t, `my "lease".pdf`, gotName)
	assert.Equal(t, "application/pdf", gotType)
	assert.Equal(t, "%PDF-1.4 body", gotBody)
}

func TestClient_SubmitResponses(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    bool
		wantFail   bool
		wantStatus int
		wantMsg    string
		wantURL    string
	}{
		{
			name:    "2xx without redirect",
			status:  http.StatusOK,
			body:    `{}`,
			wantURL: "",
		},
		{
			name:    "2xx with empty body",
			status:  http.StatusOK,
			body:    "",
			wantURL: "",
		},
		{
			name:     "2xx with non-json body",
			status:   http.StatusOK,
			body:     "<html>not json</html>",
			wantErr:  true,
			wantFail: true,
			wantMsg:  MsgNetworkError,
		},
		{
			name:       "4xx with error field",
			status:     http.StatusBadRequest,
			body:       `{"error":"quota exceeded"}`,
			wantErr:    true,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "quota exceeded",
		},
		{
			name:       "5xx without json",
			status:     http.StatusBadGateway,
			body:       "<html>bad gateway</html>",
			wantErr:    true,
			wantStatus: http.StatusBadGateway,
			wantMsg:    MsgUploadFailed,
		},
		{
			name:       "4xx with empty error",
			status:     http.StatusForbidden,
			body:       `{"error":""}`,
			wantErr:    true,
			wantStatus: http.StatusForbidden,
			wantMsg:    MsgUploadFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := New(srv.URL, nil)
			res, err := c.Submit(context.Background(), models.NewBytesCandidate("a.pdf", "application/pdf", []byte("x")))

			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, tt.wantURL, res.RedirectURL)
				return
			}

			if tt.wantFail {
				var failure *TransportFailure
				require.True(t, errors.As(err, &failure), "expected TransportFailure, got %T", err)
				assert.Contains(t, err.Error(), "failed to decode response")
				assert.Equal(t, tt.wantMsg, UserMessage(err))
				return
			}

			var rejection *ServerRejection
			require.True(t, errors.As(err, &rejection), "expected ServerRejection, got %T", err)
			assert.Equal(t, tt.wantStatus, rejection.StatusCode)
			assert.Equal(t, tt.wantMsg, rejection.Message())
			assert.Equal(t, tt.wantMsg, UserMessage(err))
		})
	}
}

func TestClient_SubmitAlwaysSendsCSRFHeader(t *testing.T) {
	var present bool
	var value string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present = r.Header[http.CanonicalHeaderKey(CSRFHeader)]
		value = r.Header.Get(CSRFHeader)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil).Submit(context.Background(), models.NewBytesCandidate("a.pdf", "application/pdf", []byte("x")))

	require.NoError(t, err)
	assert.True(t, present)
	assert.Empty(t, value)
}

func TestClient_SubmitNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(url, nil)
	_, err := c.Submit(context.Background(), models.NewBytesCandidate("a.pdf", "application/pdf", []byte("x")))

	var failure *TransportFailure
	require.True(t, errors.As(err, &failure), "expected TransportFailure, got %T", err)
	assert.Equal(t, MsgNetworkError, UserMessage(err))
}

func TestClient_SubmitCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(srv.URL, nil).Submit(ctx, models.NewBytesCandidate("a.pdf", "application/pdf", []byte("x")))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_SubmitOpenError(t *testing.T) {
	file := &models.FileCandidate{
		Name:     "gone.pdf",
		MIMEType: "application/pdf",
		Open: func() (io.ReadCloser, error) {
			return nil, errors.New("permission denied")
		},
	}

	_, err := New("http://127.0.0.1:1", nil).Submit(context.Background(), file)

	var failure *TransportFailure
	require.True(t, errors.As(err, &failure))
	assert.Contains(t, err.Error(), "permission denied")
}
