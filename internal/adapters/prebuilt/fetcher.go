// Package prebuilt seeds an empty cache root from a published tarball so a
// machine can skip building the whole chain.
package prebuilt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/felixgeelhaar/qgsmg/internal/adapters/logging"
	"github.com/felixgeelhaar/qgsmg/internal/domain/compiler"
	"github.com/felixgeelhaar/qgsmg/internal/ports"
)

// Fetch errors.
var (
	ErrDownloadFailed    = errors.New("download failed")
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
)

// Fetcher downloads and unpacks prebuilt caches.
type Fetcher struct {
	httpClient *http.Client
	objects    ObjectGetter
	region     string
	logger     ports.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.httpClient = c }
}

// WithObjectGetter sets the client used for s3:// urls. Without it the
// default AWS credential chain is loaded on first use.
func WithObjectGetter(g ObjectGetter) Option {
	return func(f *Fetcher) { f.objects = g }
}

// WithRegion sets the region for the default S3 client.
func WithRegion(region string) Option {
	return func(f *Fetcher) { f.region = region }
}

// WithLogger sets the logger.
func WithLogger(l ports.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		httpClient: &http.Client{Timeout: 30 * time.Minute},
		logger:     logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads rawURL and extracts it into root. root must not exist;
// a partially extracted root is removed again on failure.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, root string) error {
	if _, err := os.Lstat(root); err == nil {
		return compiler.NewAlreadyExistsError(root).
			WithSuggestion("Run distclean first or point --cache at a new directory.")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parsing %q: %w", rawURL, err)
	}

	parent := filepath.Dir(filepath.Clean(root))
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", parent, err)
	}
	tmp, err := os.CreateTemp(parent, ".qgsmg-prebuilt-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	f.logger.Info(ctx, "downloading prebuilt cache", ports.F("url", rawURL))
	n, err := f.download(ctx, u, tmp)
	if err != nil {
		return err
	}
	f.logger.Debug(ctx, "download finished", ports.F("bytes", n), ports.F("tmp", tmp.Name()))

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding %s: %w", tmp.Name(), err)
	}
	if err := Extract(tmp, root); err != nil {
		_ = os.RemoveAll(root)
		return fmt.Errorf("extracting %s: %w", rawURL, err)
	}

	f.logger.Info(ctx, "prebuilt cache ready", ports.F("path", root))
	return nil
}

func (f *Fetcher) download(ctx context.Context, u *url.URL, w io.Writer) (int64, error) {
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return f.downloadHTTP(ctx, u.String(), w)
	case "s3":
		return f.downloadS3(ctx, u.Host, strings.TrimPrefix(u.Path, "/"), w)
	case "file", "":
		return copyFile(u.Path, w)
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
}

func (f *Fetcher) downloadHTTP(ctx context.Context, rawURL string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: request creation failed: %w", ErrDownloadFailed, err)
	}
	req.Header.Set("User-Agent", "qgsmg")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: %s: status %d", ErrDownloadFailed, rawURL, resp.StatusCode)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("%w: reading body: %w", ErrDownloadFailed, err)
	}
	return n, nil
}

func copyFile(path string, w io.Writer) (int64, error) {
	src, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	defer func() { _ = src.Close() }()
	return io.Copy(w, src)
}
