package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/abdul-hamid-achik/pagespec/packages/core/parser"
)

// Rod drives Chrome over the DevTools protocol. Every session runs in an
// incognito context so Reset can throw the whole context away.
type Rod struct {
	cfg      Config
	launcher *launcher.Launcher
	browser  *rod.Browser
	incog    *rod.Browser
	page     *rod.Page
	session  Session

	// stopEvents ends the exception listener of the current page.
	stopEvents context.CancelFunc

	mu   sync.Mutex
	errs []PageError
}

func NewRod(cfg Config) *Rod {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	return &Rod{cfg: cfg}
}

func (r *Rod) Open(ctx context.Context, s Session) error {
	r.session = s

	if r.browser == nil {
		controlURL := r.cfg.ControlURL
		if controlURL == "" {
			l := launcher.New().
				Headless(r.cfg.Headless).
				Set("no-sandbox").
				Set("disable-gpu")
			if r.cfg.Bin != "" {
				l = l.Bin(r.cfg.Bin)
			}

			u, err := l.Launch()
			if err != nil {
				return fmt.Errorf("failed to launch Chrome: %w", err)
			}
			r.launcher = l
			controlURL = u
		}

		b := rod.New().ControlURL(controlURL)
		if err := b.Connect(); err != nil {
			return fmt.Errorf("failed to connect to Chrome: %w", err)
		}
		r.browser = b
	}

	return r.newContext(ctx)
}

func (r *Rod) newContext(ctx context.Context) error {
	incognito, err := r.browser.Incognito()
	if err != nil {
		return fmt.Errorf("failed to create browsing context: %w", err)
	}

	err = proto.BrowserGrantPermissions{
		Permissions: []proto.BrowserPermissionType{
			proto.BrowserPermissionTypeClipboardReadWrite,
			proto.BrowserPermissionTypeClipboardSanitizedWrite,
		},
		BrowserContextID: incognito.BrowserContextID,
	}.Call(incognito)
	if err != nil {
		return fmt.Errorf("failed to grant clipboard permissions: %w", err)
	}

	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}

	// clipboard reads require a focused document
	if err := (proto.EmulationSetFocusEmulationEnabled{Enabled: true}).Call(page); err != nil {
		return fmt.Errorf("failed to enable focus emulation: %w", err)
	}

	events, stop := context.WithCancel(context.Background())
	wait := page.Context(events).EachEvent(func(e *proto.RuntimeExceptionThrown) {
		r.recordException(e)
	})
	go wait()
	r.stopEvents = stop

	r.incog = incognito
	r.page = page

	if vp := r.session.Viewport; vp != nil {
		return r.SetViewport(ctx, vp.Width, vp.Height)
	}
	return nil
}

func (r *Rod) recordException(e *proto.RuntimeExceptionThrown) {
	d := e.ExceptionDetails
	if d == nil {
		return
	}
	msg := d.Text
	if d.Exception != nil && d.Exception.Description != "" {
		msg = d.Exception.Description
	}

	r.mu.Lock()
	r.errs = append(r.errs, PageError{Message: msg, URL: d.URL, Line: d.LineNumber})
	r.mu.Unlock()
}

func (r *Rod) PageErrors() []PageError {
	r.mu.Lock()
	defer r.mu.Unlock()
	errs := r.errs
	r.errs = nil
	return errs
}

func (r *Rod) Navigate(ctx context.Context, url string) error {
	if r.page == nil {
		return ErrNotOpen
	}
	p := r.page.Context(ctx).Timeout(r.cfg.Timeout)
	defer p.CancelTimeout()

	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("page %s did not load: %w", url, err)
	}
	return nil
}

func (r *Rod) SetViewport(ctx context.Context, width, height int) error {
	if r.page == nil {
		return ErrNotOpen
	}
	return r.page.Context(ctx).SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	})
}

func (r *Rod) URL(ctx context.Context) (string, error) {
	if r.page == nil {
		return "", ErrNotOpen
	}
	res, err := r.page.Context(ctx).Eval(`() => location.href`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (r *Rod) Title(ctx context.Context) (string, error) {
	if r.page == nil {
		return "", ErrNotOpen
	}
	res, err := r.page.Context(ctx).Eval(`() => document.title`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (r *Rod) Query(ctx context.Context, loc *parser.Locator) ([]Element, error) {
	if r.page == nil {
		return nil, ErrNotOpen
	}
	els, err := r.page.Context(ctx).ElementsByJS(rod.Eval(resolveJS, locatorOps(loc)))
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", loc, err)
	}

	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = &rodElement{el: el, harness: r}
	}
	return out, nil
}

func (r *Rod) WaitFor(ctx context.Context, loc *parser.Locator) ([]Element, error) {
	return Poll(ctx, r.cfg.Timeout, r.cfg.PollInterval, func(ctx context.Context) ([]Element, error) {
		return r.Query(ctx, loc)
	})
}

func (r *Rod) ReadClipboard(ctx context.Context) (string, error) {
	if r.page == nil {
		return "", ErrNotOpen
	}
	p := r.page.Context(ctx).Timeout(r.cfg.Timeout)
	defer p.CancelTimeout()

	res, err := p.Eval(`() => navigator.clipboard.readText()`)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrClipboard, err)
	}
	return res.Value.Str(), nil
}

func (r *Rod) Reset(ctx context.Context) error {
	if r.browser == nil {
		return ErrNotOpen
	}
	r.closeContext()
	r.PageErrors()
	return r.newContext(ctx)
}

func (r *Rod) closeContext() {
	if r.stopEvents != nil {
		r.stopEvents()
		r.stopEvents = nil
	}
	if r.page != nil {
		_ = r.page.Close()
		r.page = nil
	}
	if r.incog != nil {
		_ = r.incog.Close()
		r.incog = nil
	}
}

// Close cleans up browser resources.
func (r *Rod) Close() error {
	r.closeContext()

	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	if r.launcher != nil {
		r.launcher.Kill()
		r.launcher = nil
	}
	return err
}

// settle waits for the page to stop changing after an interaction. A page
// that keeps animating past the timeout is not an error.
func (r *Rod) settle(ctx context.Context) error {
	if r.cfg.Settle <= 0 {
		return nil
	}
	p := r.page.Context(ctx).Timeout(r.cfg.Timeout)
	defer p.CancelTimeout()

	err := p.WaitStable(r.cfg.Settle)
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

type rodElement struct {
	el      *rod.Element
	harness *Rod
}

func (e *rodElement) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}

func (e *rodElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *rodElement) InViewport(ctx context.Context) (bool, error) {
	res, err := e.el.Context(ctx).Eval(`function () {
  const r = this.getBoundingClientRect();
  return r.bottom > 0 && r.right > 0 && r.top < window.innerHeight && r.left < window.innerWidth;
}`)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

func (e *rodElement) ScrollIntoView(ctx context.Context) error {
	if err := e.el.Context(ctx).ScrollIntoView(); err != nil {
		return err
	}
	return e.harness.settle(ctx)
}

func (e *rodElement) Click(ctx context.Context) error {
	if err := e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return err
	}
	return e.harness.settle(ctx)
}

func (e *rodElement) Type(ctx context.Context, text string) error {
	if err := e.el.Context(ctx).Input(text); err != nil {
		return err
	}
	return e.harness.settle(ctx)
}

func (e *rodElement) RemoveAttribute(ctx context.Context, name string) error {
	_, err := e.el.Context(ctx).Eval(`function (name) { this.removeAttribute(name) }`, name)
	return err
}

func (e *rodElement) SetAttribute(ctx context.Context, name, value string) error {
	_, err := e.el.Context(ctx).Eval(`function (name, value) { this.setAttribute(name, value) }`, name, value)
	return err
}
