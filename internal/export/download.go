package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/doyensec/safeurl"
	"github.com/dustin/go-humanize"

	"clipdeck/internal/api"
	"clipdeck/internal/config"
	"clipdeck/internal/logging"
	"clipdeck/internal/services"
	"clipdeck/internal/textutil"
)

const (
	defaultDownloadTimeout = 10 * time.Minute
	defaultMaxBytes        = 512 << 20
)

// ErrTooLarge reports a video that exceeds the configured download limit.
var ErrTooLarge = errors.New("video exceeds download limit")

// Result describes a finished download.
type Result struct {
	Path  string
	Bytes int64
}

// Downloader fetches rendered videos to disk.
type Downloader struct {
	client   *http.Client
	maxBytes int64
	logger   *slog.Logger
}

// Option customizes a Downloader.
type Option func(*Downloader)

// WithHTTPClient replaces the download client.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Downloader) {
		if client != nil {
			d.client = client
		}
	}
}

// WithMaxBytes caps the size of a single download.
func WithMaxBytes(limit int64) Option {
	return func(d *Downloader) {
		if limit > 0 {
			d.maxBytes = limit
		}
	}
}

// NewDownloader builds a downloader from configuration. The client refuses
// private, loopback, and link-local targets unless export.allow_private_hosts
// is enabled.
func NewDownloader(cfg *config.Config, logger *slog.Logger, opts ...Option) *Downloader {
	d := &Downloader{
		maxBytes: defaultMaxBytes,
		logger:   logging.NewComponentLogger(logger, "export"),
	}
	allowPrivate := false
	if cfg != nil {
		allowPrivate = cfg.Export.AllowPrivateHosts
		if cfg.Export.MaxDownloadMB > 0 {
			d.maxBytes = int64(cfg.Export.MaxDownloadMB) << 20
		}
	}
	if allowPrivate {
		d.client = &http.Client{Timeout: defaultDownloadTimeout}
	} else {
		d.client = newSafeClient(defaultDownloadTimeout)
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func newSafeClient(timeout time.Duration) *http.Client {
	cfg := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()
	return safeurl.Client(cfg).Client
}

// Download streams the project's video into dir. The file is named after the
// project and written atomically; a partial download never replaces an
// existing file.
func (d *Downloader) Download(ctx context.Context, project api.Project, dir string) (*Result, error) {
	if _, ok := DownloadLabel(project); !ok {
		return nil, services.Wrap(services.ErrValidation, "export", "download",
			fmt.Sprintf("project %q has no rendered video (status %s)", project.Name, project.Status), nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create download directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, project.VideoURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "export", "download", "invalid video url", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "export", "download", "fetch video", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, services.Wrap(services.ErrTransient, "export", "download",
			fmt.Sprintf("video request returned %s", resp.Status), nil)
	}
	if resp.ContentLength > d.maxBytes {
		return nil, fmt.Errorf("%w: %s > %s", ErrTooLarge,
			humanize.IBytes(uint64(resp.ContentLength)), humanize.IBytes(uint64(d.maxBytes)))
	}

	target := filepath.Join(dir, textutil.VideoFileName(project.Name, project.Key()))
	tmp, err := os.CreateTemp(dir, ".clipdeck-*.part")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	written, err := io.Copy(tmp, io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil {
		cleanup()
		return nil, services.Wrap(services.ErrTransient, "export", "download", "read video", err)
	}
	if written > d.maxBytes {
		cleanup()
		return nil, fmt.Errorf("%w: more than %s", ErrTooLarge, humanize.IBytes(uint64(d.maxBytes)))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("move download into place: %w", err)
	}

	d.logger.Info("video downloaded",
		logging.String(logging.FieldProjectID, project.Key()),
		logging.String("path", target),
		logging.String("size", humanize.IBytes(uint64(written))),
		logging.Any("bytes", written),
	)
	return &Result{Path: target, Bytes: written}, nil
}
