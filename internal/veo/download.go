package veo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
)

// ErrDownloadFailed is returned when a rendered clip cannot be fetched.
var ErrDownloadFailed = errors.New("veo: download failed")

// Downloader fetches rendered clips over HTTP with a bounded retry, for
// archiving a finished reel into local or S3 storage.
type Downloader struct {
	httpClient *http.Client
	attempts   uint
	delay      time.Duration
}

// NewDownloader creates a Downloader. Defaults: 3 attempts, 1s delay.
func NewDownloader() *Downloader {
	return &Downloader{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		attempts:   3,
		delay:      time.Second,
	}
}

// WithClient sets a custom HTTP client.
func (d *Downloader) WithClient(c *http.Client) *Downloader {
	d.httpClient = c
	return d
}

// Fetch downloads the clip at url and writes it to w.
// Transient failures are retried with a fixed delay up to the attempt cap;
// w is only written after a complete successful download.
func (d *Downloader) Fetch(ctx context.Context, url string, w io.Writer) error {
	var body []byte
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := d.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer func() { _ = resp.Body.Close() }()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("%w: status %d", ErrDownloadFailed, resp.StatusCode)
			}
			body, err = io.ReadAll(resp.Body)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(d.attempts),
		retry.Delay(d.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("veo: fetch clip: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("veo: write clip: %w", err)
	}
	return nil
}
