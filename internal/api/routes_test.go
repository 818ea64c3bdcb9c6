package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/facebookgo/clock"
	"github.com/labstack/echo/v4"
	"github.com/leasecheck/backend/internal/filepolicy"
	"github.com/leasecheck/backend/internal/models"
	"github.com/leasecheck/backend/internal/testutil"
	"github.com/leasecheck/backend/internal/transport"
	"github.com/leasecheck/backend/internal/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var csrfMeta = regexp.MustCompile(`<meta name="csrf-token" content="([^"]+)">`)

func newTestServer(t *testing.T, env *testEnv) *httptest.Server {
	t.Helper()
	e := echo.New()
	SetupMiddleware(e, nil, true)
	RegisterRoutes(e, NewHandlers(env.deps), env.deps)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func newCookieClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

// fetchToken loads the upload page and returns the token from its meta tag.
func fetchToken(t *testing.T, client *http.Client, baseURL string) string {
	t.Helper()
	resp, err := client.Get(baseURL + UploadLeasePath)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	m := csrfMeta.FindSubmatch(body)
	require.NotNil(t, m, "page carries a csrf meta tag")
	return string(m[1])
}

func TestRoutes_UploadPage(t *testing.T) {
	env := newTestEnv(t)
	srv := newTestServer(t, env)

	resp, err := http.Get(srv.URL + UploadLeasePath)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	html := string(body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, html, `class="upload-widget"`)
	assert.Contains(t, html, `accept=".pdf,.doc,.docx"`)
	assert.Regexp(t, csrfMeta, html)

	var csrfCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "_csrf" {
			csrfCookie = c
		}
	}
	require.NotNil(t, csrfCookie)
	assert.Equal(t, csrfMeta.FindStringSubmatch(html)[1], csrfCookie.Value)
}

func TestRoutes_UploadRequiresCSRFToken(t *testing.T) {
	env := newTestEnv(t)
	srv := newTestServer(t, env)
	client := newCookieClient(t)
	fetchToken(t, client, srv.URL)

	tests := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"wrong token", "not-the-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, contentType := multipartBody(t, "file", "lease.pdf", filepolicy.MIMETypePDF, samplePDF)
			req, err := http.NewRequest(http.MethodPost, srv.URL+UploadLeasePath, body)
			require.NoError(t, err)
			req.Header.Set(echo.HeaderContentType, contentType)
			if tt.token != "" {
				req.Header.Set(transport.CSRFHeader, tt.token)
			}

			resp, err := client.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
			var apiErr APIError
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&apiErr))
			assert.Equal(t, "The CSRF token is missing or invalid", apiErr.Message)
			assert.Equal(t, 0, env.store.GetFileCount())
		})
	}
}

func TestRoutes_WidgetUploadsThroughServer(t *testing.T) {
	env := newTestEnv(t)
	srv := newTestServer(t, env)
	client := newCookieClient(t)
	token := fetchToken(t, client, srv.URL)

	nav := &testutil.NavigationRecorder{}
	uploader := transport.New(srv.URL+UploadLeasePath, func() string { return token },
		transport.WithHTTPClient(client))
	w := widget.New(widget.DefaultConfig(srv.URL+UploadLeasePath, func() string { return token }),
		widget.WithUploader(uploader),
		widget.WithNavigator(nav),
		widget.WithClock(clock.NewMock()),
	)

	w.HandleFiles([]*models.FileCandidate{
		models.NewBytesCandidate("lease.pdf", filepolicy.MIMETypePDF, samplePDF),
	})
	w.Wait()
	env.intake.Wait()

	urls := nav.URLs()
	require.Len(t, urls, 1)
	assert.True(t, strings.HasPrefix(urls[0], ReviewPath+"?upload="))
	assert.Equal(t, widget.MsgUploadSucceeded, w.Snapshot().Success.Text)

	// The redirect target renders the review page for the stored file.
	resp, err := client.Get(srv.URL + urls[0])
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "lease.pdf")
	assert.Contains(t, string(body), `data-status="accepted"`)
}

func TestRoutes_WidgetShowsServerRejection(t *testing.T) {
	env := newTestEnv(t)
	srv := newTestServer(t, env)
	client := newCookieClient(t)
	token := fetchToken(t, client, srv.URL)

	// A widget with a looser policy than the server lets the server decide.
	loose := filepolicy.Default()
	loose.MaxSizeBytes = 64 * 1024 * 1024
	cfg := widget.DefaultConfig(srv.URL+UploadLeasePath, func() string { return token })
	cfg.Policy = loose

	w := widget.New(cfg,
		widget.WithUploader(transport.New(cfg.UploadEndpoint, cfg.CSRFToken, transport.WithHTTPClient(client))),
		widget.WithClock(clock.NewMock()),
	)
	w.HandleFiles([]*models.FileCandidate{
		models.NewBytesCandidate("big.pdf", filepolicy.MIMETypePDF, make([]byte, filepolicy.MaxFileSizeBytes+1)),
	})
	w.Wait()

	view := w.Snapshot()
	assert.Empty(t, view.Entries)
	assert.Equal(t, "File size exceeds 10MB limit", view.Error.Text)
}

func TestRoutes_HealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	srv := newTestServer(t, env)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	var health healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "test", health.Version)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "leasecheck_intake_jobs_active")
}

func TestRoutes_RootRedirects(t *testing.T) {
	env := newTestEnv(t)
	srv := newTestServer(t, env)

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, UploadLeasePath, resp.Header.Get("Location"))
}
