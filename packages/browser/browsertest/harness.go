package browsertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/abdul-hamid-achik/pagespec/packages/browser"
	"github.com/abdul-hamid-achik/pagespec/packages/core/parser"
)

var (
	ErrDetached = errors.New("element is detached from the page")
	ErrNoPage   = errors.New("no page registered")
)

// Page is one document served by the harness. Errors are reported as
// uncaught script errors when the page loads.
type Page struct {
	Title  string
	Root   *Node
	Errors []string
}

// Harness is an in-memory browser.Harness. Pages are registered per URL
// and rebuilt on every navigation.
type Harness struct {
	mu sync.Mutex

	pages     map[string]func() *Page
	url       string
	page      *Page
	width     int
	height    int
	scrollY   int
	clipboard string
	clipErr   error
	open      bool
	errs      []browser.PageError

	// Visits records every URL loaded, including loads caused by clicks.
	Visits []string
	// NewTabs records links that a click opened in a new tab.
	NewTabs []string
	Resets  int
}

var _ browser.Harness = (*Harness)(nil)

func New() *Harness {
	return &Harness{
		pages:  map[string]func() *Page{},
		width:  1280,
		height: 720,
	}
}

// Route registers the page served at url.
func (h *Harness) Route(url string, build func() *Page) *Harness {
	h.pages[url] = build
	return h
}

// SetClipboard writes the clipboard as a page script would.
func (h *Harness) SetClipboard(text string) {
	h.clipboard = text
}

// FailClipboard makes the next clipboard reads fail with err.
func (h *Harness) FailClipboard(err error) {
	h.clipErr = err
}

// ThrowPageError records an uncaught script error on the current page.
func (h *Harness) ThrowPageError(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs = append(h.errs, browser.PageError{Message: msg, URL: h.url})
}

func (h *Harness) ScrollY() int {
	return h.scrollY
}

func (h *Harness) Viewport() (int, int) {
	return h.width, h.height
}

func (h *Harness) Open(ctx context.Context, s browser.Session) error {
	h.open = true
	h.url = "about:blank"
	h.page = &Page{Root: El("html", nil, "")}
	h.scrollY = 0
	if s.Viewport != nil {
		h.width, h.height = s.Viewport.Width, s.Viewport.Height
	}
	return nil
}

func (h *Harness) Navigate(ctx context.Context, url string) error {
	if !h.open {
		return browser.ErrNotOpen
	}
	return h.load(url)
}

func (h *Harness) load(url string) error {
	build, ok := h.pages[url]
	if !ok {
		return fmt.Errorf("%w for %s", ErrNoPage, url)
	}
	h.url = url
	h.page = build()
	h.scrollY = 0
	h.Visits = append(h.Visits, url)
	for _, msg := range h.page.Errors {
		h.ThrowPageError(msg)
	}
	return nil
}

// Follow loads url as if a link had been clicked.
func (h *Harness) Follow(url string) error {
	return h.load(url)
}

func (h *Harness) SetViewport(ctx context.Context, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid viewport %dx%d", width, height)
	}
	h.width, h.height = width, height
	return nil
}

func (h *Harness) URL(ctx context.Context) (string, error) {
	if !h.open {
		return "", browser.ErrNotOpen
	}
	return h.url, nil
}

func (h *Harness) Title(ctx context.Context) (string, error) {
	if !h.open {
		return "", browser.ErrNotOpen
	}
	return h.page.Title, nil
}

func (h *Harness) Query(ctx context.Context, loc *parser.Locator) ([]browser.Element, error) {
	if !h.open {
		return nil, browser.ErrNotOpen
	}
	nodes, err := resolve(h.page.Root, loc)
	if err != nil {
		return nil, err
	}
	out := make([]browser.Element, len(nodes))
	for i, n := range nodes {
		out[i] = &element{node: n, page: h.page, h: h}
	}
	return out, nil
}

// WaitFor does not wait: the in-memory DOM only changes between steps.
func (h *Harness) WaitFor(ctx context.Context, loc *parser.Locator) ([]browser.Element, error) {
	return h.Query(ctx, loc)
}

func (h *Harness) ReadClipboard(ctx context.Context) (string, error) {
	if h.clipErr != nil {
		return "", fmt.Errorf("%w: %v", browser.ErrClipboard, h.clipErr)
	}
	return h.clipboard, nil
}

func (h *Harness) PageErrors() []browser.PageError {
	h.mu.Lock()
	defer h.mu.Unlock()
	errs := h.errs
	h.errs = nil
	return errs
}

func (h *Harness) Reset(ctx context.Context) error {
	if !h.open {
		return browser.ErrNotOpen
	}
	h.Resets++
	h.url = "about:blank"
	h.page = &Page{Root: El("html", nil, "")}
	h.scrollY = 0
	h.PageErrors()
	return nil
}

func (h *Harness) Close() error {
	h.open = false
	return nil
}

// resolve evaluates a locator chain against root.
func resolve(root *Node, loc *parser.Locator) ([]*Node, error) {
	var set []*Node
	for _, op := range loc.Ops {
		switch op.Kind {
		case parser.LocGet:
			sel, err := compileSelector(op.Arg)
			if err != nil {
				return nil, err
			}
			set = nil
			root.walk(func(n *Node) {
				if sel.matches(n) {
					set = append(set, n)
				}
			})

		case parser.LocContains:
			want := normalizeSpace(op.Arg)
			var hit *Node
			for _, n := range set {
				if containsText(n, want) {
					hit = n
					break
				}
			}
			set = nil
			if hit != nil {
				set = []*Node{hit}
			}

		case parser.LocFind:
			sel, err := compileSelector(op.Arg)
			if err != nil {
				return nil, err
			}
			found := map[*Node]bool{}
			for _, n := range set {
				for _, c := range n.Children {
					c.walk(func(d *Node) {
						if sel.matches(d) {
							found[d] = true
						}
					})
				}
			}
			set = inDocumentOrder(root, found)

		case parser.LocParents:
			var sel *selector
			if op.Arg != "" {
				s, err := compileSelector(op.Arg)
				if err != nil {
					return nil, err
				}
				sel = s
			}
			seen := map[*Node]bool{}
			var out []*Node
			for _, n := range set {
				for p := n.parent; p != nil; p = p.parent {
					if (sel == nil || sel.matches(p)) && !seen[p] {
						seen[p] = true
						out = append(out, p)
					}
				}
			}
			set = out

		case parser.LocClosest:
			sel, err := compileSelector(op.Arg)
			if err != nil {
				return nil, err
			}
			seen := map[*Node]bool{}
			var out []*Node
			for _, n := range set {
				for p := n; p != nil; p = p.parent {
					if sel.matches(p) {
						if !seen[p] {
							seen[p] = true
							out = append(out, p)
						}
						break
					}
				}
			}
			set = out

		case parser.LocFirst:
			if len(set) > 1 {
				set = set[:1]
			}

		case parser.LocLast:
			if len(set) > 1 {
				set = set[len(set)-1:]
			}

		case parser.LocEq:
			i := op.Index
			if i < 0 {
				i += len(set)
			}
			if i >= 0 && i < len(set) {
				set = []*Node{set[i]}
			} else {
				set = nil
			}
		}
	}
	return set, nil
}

func containsText(n *Node, want string) bool {
	return strings.Contains(normalizeSpace(n.TextContent()), want)
}
