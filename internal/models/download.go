package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// ProgressFunc is called during download with bytes downloaded and total
type ProgressFunc func(downloaded, total int64)

// Downloader fetches catalog models into a Store, retrying transient
// failures with exponential backoff.
type Downloader struct {
	Store   Store
	Client  *http.Client
	Retries int
	Backoff time.Duration
	// BaseURL replaces the catalog host when set.
	BaseURL string
}

func NewDownloader(store Store) *Downloader {
	return &Downloader{
		Store:   store,
		Client:  http.DefaultClient,
		Retries: 3,
		Backoff: 2 * time.Second,
	}
}

// statusError is a non-200 response. 5xx and 429 are worth retrying.
type statusError struct {
	status string
	code   int
}

func (e *statusError) Error() string { return "download failed with status: " + e.status }

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	return true
}

// Download fetches model id. Progress callback is optional (can be nil).
func (d *Downloader) Download(ctx context.Context, id string, onProgress ProgressFunc) error {
	info, ok := Get(id)
	if !ok {
		return fmt.Errorf("unknown model: %s", id)
	}
	url := info.URL
	if d.BaseURL != "" {
		url = d.BaseURL + "/" + info.Filename
	}

	if err := os.MkdirAll(d.Store.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	backoff := d.Backoff
	var err error
	for attempt := 0; attempt <= d.Retries; attempt++ {
		if attempt > 0 {
			log.Printf("Models: retrying %s in %v (attempt %d/%d): %v", id, backoff, attempt+1, d.Retries+1, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		err = d.fetch(ctx, url, info, onProgress)
		if err == nil || !retryable(err) {
			return err
		}
	}
	return fmt.Errorf("download %s failed after %d attempts: %w", id, d.Retries+1, err)
}

func (d *Downloader) fetch(ctx context.Context, url string, info ModelInfo, onProgress ProgressFunc) error {
	destPath, err := d.Store.Path(info.ID)
	if err != nil {
		return err
	}
	tempPath := destPath + ".downloading"

	out, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		out.Close()
		os.Remove(tempPath) // clean up temp file on error
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &statusError{status: resp.Status, code: resp.StatusCode}
	}

	total := resp.ContentLength
	if total < 0 {
		total = info.SizeBytes // fall back to expected size
	}

	pw := &progressWriter{w: out, total: total, onProgress: onProgress}
	if _, err := io.Copy(pw, resp.Body); err != nil {
		return fmt.Errorf("failed to read: %w", err)
	}
	if pw.written == 0 {
		return errors.New("download returned an empty file")
	}

	// close file before rename
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tempPath, destPath); err != nil {
		return fmt.Errorf("failed to finalize download: %w", err)
	}

	log.Printf("Models: downloaded %s (%d bytes) to %s", info.ID, pw.written, destPath)
	return nil
}

type progressWriter struct {
	w          io.Writer
	written    int64
	total      int64
	onProgress ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	if p.onProgress != nil {
		p.onProgress(p.written, p.total)
	}
	return n, err
}
