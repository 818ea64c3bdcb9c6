// Package transport submits lease documents to the upload endpoint as a
// single multipart POST per file.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/leasecheck/backend/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// CSRFHeader carries the page-level CSRF token.
	CSRFHeader = "X-CSRFToken"

	// FileField is the multipart field holding the document.
	FileField = "file"

	// TracerName is the OpenTelemetry instrumentation name.
	TracerName = "github.com/leasecheck/backend/internal/transport"

	maxResponseBytes = 1 << 20
)

// Result is the decoded body of a successful upload.
type Result struct {
	StatusCode  int    `json:"-"`
	RedirectURL string `json:"redirect_url,omitempty"`
	ID          string `json:"id,omitempty"`
}

// Client posts files to one upload endpoint.
type Client struct {
	endpoint   string
	csrfToken  func() string
	httpClient *http.Client
	tracer     trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTracer overrides the tracer resolved from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = t
	}
}

// New creates a client for endpoint. csrfToken is read on every request
// so a rotated page token is picked up; it may be nil.
func New(endpoint string, csrfToken func() string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		csrfToken:  csrfToken,
		httpClient: http.DefaultClient,
		tracer:     otel.Tracer(TracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the upload URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Submit uploads file and decodes the endpoint's answer.
//
// A non-2xx answer yields *ServerRejection; anything that prevents the
// request from completing, or leaves a 2xx body that is not JSON, yields
// *TransportFailure.
func (c *Client) Submit(ctx context.Context, file *models.FileCandidate) (*Result, error) {
	ctx, span := c.tracer.Start(ctx, "transport.Submit",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("upload.file_name", file.Name),
			attribute.Int64("upload.file_size", file.SizeBytes),
			attribute.String("upload.mime_type", file.MIMEType),
		),
	)
	defer span.End()

	res, err := c.submit(ctx, file)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode))
	return res, nil
}

func (c *Client) submit(ctx context.Context, file *models.FileCandidate) (*Result, error) {
	body, contentType, err := encodeFile(file)
	if err != nil {
		return nil, &TransportFailure{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, &TransportFailure{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	token := ""
	if c.csrfToken != nil {
		token = c.csrfToken()
	}
	req.Header.Set(CSRFHeader, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportFailure{Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportFailure{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ServerRejection{StatusCode: resp.StatusCode, Reason: decodeReason(raw)}
	}

	// An empty 2xx body means the file was taken with nowhere to go next.
	res := &Result{StatusCode: resp.StatusCode}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, res); err != nil {
			return nil, &TransportFailure{Err: fmt.Errorf("failed to decode response: %w", err)}
		}
	}
	return res, nil
}

// encodeFile builds the multipart body. The part keeps the file's own
// MIME type, as a browser FormData submission does.
func encodeFile(file *models.FileCandidate) (io.Reader, string, error) {
	if file.Open == nil {
		return nil, "", fmt.Errorf("file %q has no content", file.Name)
	}
	src, err := file.Open()
	if err != nil {
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}
	defer src.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`, FileField, quoteEscaper.Replace(file.Name)))
	mimeType := file.MIMEType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	h.Set("Content-Type", mimeType)

	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return nil, "", fmt.Errorf("failed to copy file data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish form: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func decodeReason(raw []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return body.Error
}
