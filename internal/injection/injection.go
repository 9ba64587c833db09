package injection

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/leonardotrapani/hyprdictate/internal/procexec"
)

// Injector hands finished text to the desktop
type Injector interface {
	Inject(ctx context.Context, text string) error
}

// Backend is one way of delivering text
type Backend interface {
	Name() string
	Available() error
	Inject(ctx context.Context, text string, timeout time.Duration) error
}

type Config struct {
	Backends []string      // tried in order, first success wins
	Timeout  time.Duration // per backend
}

func DefaultConfig() Config {
	return Config{
		Backends: []string{"clipboard"},
		Timeout:  5 * time.Second,
	}
}

type injector struct {
	config   Config
	backends []Backend
}

// NewInjector builds the backend chain. Unknown names are an error; runner
// is used by the typing backends and defaults to procexec.New().
func NewInjector(config Config, runner procexec.Runner) (Injector, error) {
	if runner == nil {
		runner = procexec.New()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}

	var backends []Backend
	for _, name := range config.Backends {
		switch name {
		case "clipboard":
			backends = append(backends, NewClipboardBackend())
		case "wtype":
			backends = append(backends, NewWtypeBackend(runner))
		case "ydotool":
			backends = append(backends, NewYdotoolBackend(runner))
		default:
			return nil, fmt.Errorf("unsupported injection backend: %s", name)
		}
	}
	if len(backends) == 0 {
		return nil, fmt.Errorf("no injection backends configured")
	}
	return &injector{config: config, backends: backends}, nil
}

func newInjectorWithBackends(config Config, backends ...Backend) *injector {
	return &injector{config: config, backends: backends}
}

// Inject tries each backend in order and stops at the first that succeeds.
func (i *injector) Inject(ctx context.Context, text string) error {
	if text == "" {
		return fmt.Errorf("cannot inject empty text")
	}

	var errs []error
	for _, b := range i.backends {
		if err := b.Available(); err != nil {
			log.Printf("Injection: %s unavailable: %v", b.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
			continue
		}
		if err := b.Inject(ctx, text, i.config.Timeout); err != nil {
			log.Printf("Injection: %s failed: %v", b.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		log.Printf("Injection: delivered %d chars via %s", len(text), b.Name())
		return nil
	}
	return fmt.Errorf("all injection backends failed: %w", errors.Join(errs...))
}
