package injection

import (
	"context"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
)

type clipboardBackend struct {
	unsupported func() bool
	write       func(string) error
}

func NewClipboardBackend() Backend {
	return &clipboardBackend{
		unsupported: func() bool { return clipboard.Unsupported },
		write:       clipboard.WriteAll,
	}
}

func (c *clipboardBackend) Name() string {
	return "clipboard"
}

func (c *clipboardBackend) Available() error {
	if c.unsupported() {
		return fmt.Errorf("no clipboard utility found (install wl-clipboard, xclip or xsel)")
	}
	return nil
}

// Inject writes text to the clipboard. The write itself cannot be cancelled,
// so a timeout only stops waiting for it.
func (c *clipboardBackend) Inject(ctx context.Context, text string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.write(text) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("clipboard write failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("clipboard write: %w", ctx.Err())
	}
}
