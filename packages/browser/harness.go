package browser

import (
	"context"
	"errors"
	"time"

	"github.com/abdul-hamid-achik/pagespec/packages/core/parser"
)

var (
	ErrNotOpen   = errors.New("browser session is not open")
	ErrClipboard = errors.New("clipboard read failed")
)

// Session describes how a browsing context is opened.
type Session struct {
	Viewport *parser.Viewport
}

// Harness is the browser capability the runner drives. Locators are
// resolved against the current page every time Query or WaitFor is called.
type Harness interface {
	Open(ctx context.Context, s Session) error
	Navigate(ctx context.Context, url string) error
	SetViewport(ctx context.Context, width, height int) error
	URL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	// Query resolves the locator once.
	Query(ctx context.Context, loc *parser.Locator) ([]Element, error)
	// WaitFor polls until the locator matches at least one element or the
	// harness timeout elapses. An empty result is not an error.
	WaitFor(ctx context.Context, loc *parser.Locator) ([]Element, error)
	ReadClipboard(ctx context.Context) (string, error)
	// PageErrors drains the uncaught script errors seen since the last call.
	PageErrors() []PageError
	// Reset replaces the browsing context with a fresh one.
	Reset(ctx context.Context) error
	Close() error
}

type Element interface {
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (value string, ok bool, err error)
	InViewport(ctx context.Context) (bool, error)
	ScrollIntoView(ctx context.Context) error
	Click(ctx context.Context) error
	Type(ctx context.Context, text string) error
	RemoveAttribute(ctx context.Context, name string) error
	SetAttribute(ctx context.Context, name, value string) error
}

type PageError struct {
	Message string
	URL     string
	Line    int
}

func (e PageError) String() string {
	if e.URL == "" {
		return e.Message
	}
	return e.Message + " (" + e.URL + ")"
}

type Config struct {
	Headless bool
	// Timeout bounds navigation and WaitFor polling.
	Timeout time.Duration
	// Settle is how long the DOM must stay unchanged after an interaction.
	Settle time.Duration
	// PollInterval is the delay between WaitFor attempts.
	PollInterval time.Duration
	// ControlURL connects to an already running browser instead of
	// launching one.
	ControlURL string
	// Bin overrides the browser executable.
	Bin string
}

func DefaultConfig() Config {
	return Config{
		Headless:     true,
		Timeout:      10 * time.Second,
		Settle:       300 * time.Millisecond,
		PollInterval: 100 * time.Millisecond,
	}
}

// Poll calls query until it returns elements, an error, or timeout elapses.
func Poll(ctx context.Context, timeout, interval time.Duration, query func(context.Context) ([]Element, error)) ([]Element, error) {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		els, err := query(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil
			}
			return nil, err
		}
		if len(els) > 0 {
			return els, nil
		}

		select {
		case <-ctx.Done():
			return nil, nil
		case <-ticker.C:
		}
	}
}
