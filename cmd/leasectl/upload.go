package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/leasecheck/backend/internal/models"
	"github.com/leasecheck/backend/internal/transport"
	"github.com/leasecheck/backend/internal/widget"
	"github.com/spf13/cobra"
)

const uploadPath = "/upload-lease"

var csrfMetaPattern = regexp.MustCompile(`<meta name="csrf-token" content="([^"]*)">`)

func uploadCmd() *cobra.Command {
	var (
		server  string
		timeout time.Duration
		render  bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "upload FILE...",
		Short: "Upload lease documents to a server",
		Long: `Upload each file through the upload widget: files are validated
first, every accepted file is sent as its own request, and the
server's answer is printed as the page would show it.

Examples:
  leasectl upload lease.pdf
  leasectl upload --server https://leases.example.com lease.pdf addendum.docx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logLevel := slog.LevelWarn
			if verbose {
				logLevel = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: logLevel}))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return runUpload(ctx, cmd.OutOrStdout(), logger, uploadOptions{
				server:  server,
				timeout: timeout,
				render:  render,
			}, args)
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://localhost:8089", "Base URL of the lease upload server")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "HTTP client timeout")
	cmd.Flags().BoolVar(&render, "render", false, "Print the widget markup after the uploads settle")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log widget activity")

	return cmd
}

type uploadOptions struct {
	server  string
	timeout time.Duration
	render  bool
}

func runUpload(ctx context.Context, out io.Writer, logger *slog.Logger, opts uploadOptions, paths []string) error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	client := &http.Client{Jar: jar, Timeout: opts.timeout}
	endpoint := strings.TrimRight(opts.server, "/") + uploadPath

	token, err := fetchCSRFToken(ctx, client, endpoint)
	if err != nil {
		return err
	}

	var (
		mu        sync.Mutex
		redirects []string
		failures  int
	)
	csrf := func() string { return token }

	w := widget.New(widget.DefaultConfig(endpoint, csrf),
		widget.WithContext(ctx),
		widget.WithLogger(logger),
		widget.WithUploader(transport.New(endpoint, csrf, transport.WithHTTPClient(client))),
		widget.WithNavigator(widget.NavigatorFunc(func(url string) {
			mu.Lock()
			redirects = append(redirects, url)
			mu.Unlock()
		})),
		widget.WithBannerListener(func(kind widget.BannerKind, message string) {
			mu.Lock()
			defer mu.Unlock()
			if kind == widget.BannerError {
				failures++
				errorMsg(out, "%s", message)
				return
			}
			success(out, "%s", message)
		}),
	)
	defer w.Close()

	var files []*models.FileCandidate
	for _, path := range paths {
		file, err := widget.CandidateFromPath(path)
		if err != nil {
			errorMsg(out, "%v", err)
			failures++
			continue
		}
		files = append(files, file)
	}

	w.PickFiles(files)
	w.Wait()

	view := w.Snapshot()
	for _, e := range view.Entries {
		info(out, "%s  %s  %s", e.Name, e.Size, e.Status)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, url := range redirects {
		info(out, "next: %s", resolveURL(opts.server, url))
	}

	if opts.render {
		if err := w.Render(out); err != nil {
			return err
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d upload(s) failed", failures)
	}
	return nil
}

// fetchCSRFToken loads the upload page, which also stores the CSRF cookie
// in the client's jar.
func fetchCSRFToken(ctx context.Context, client *http.Client, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("loading upload page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("loading upload page: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading upload page: %w", err)
	}
	return extractCSRFToken(body)
}

func extractCSRFToken(page []byte) (string, error) {
	m := csrfMetaPattern.FindSubmatch(page)
	if m == nil {
		return "", fmt.Errorf("upload page has no csrf-token meta tag")
	}
	return string(m[1]), nil
}

func resolveURL(server, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimRight(server, "/") + target
	}
	return target
}
