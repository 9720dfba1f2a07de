package browsertest

import (
	"context"
)

type element struct {
	node *Node
	page *Page
	h    *Harness
}

func (e *element) attached() error {
	if e.h.page != e.page || !e.page.Root.contains(e.node) {
		return ErrDetached
	}
	return nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := e.attached(); err != nil {
		return "", err
	}
	return normalizeSpace(e.node.TextContent()), nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := e.attached(); err != nil {
		return "", false, err
	}
	v, ok := e.node.Attrs[name]
	return v, ok, nil
}

// InViewport reports whether the node's box intersects the viewport at the
// current scroll position.
func (e *element) InViewport(ctx context.Context) (bool, error) {
	if err := e.attached(); err != nil {
		return false, err
	}
	n := e.node
	top := n.Top - e.h.scrollY
	bottom := top + n.Height
	if bottom <= 0 || top >= e.h.height {
		return false, nil
	}
	if n.Width > 0 && (n.Left >= e.h.width || n.Left+n.Width <= 0) {
		return false, nil
	}
	return true, nil
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	if err := e.attached(); err != nil {
		return err
	}
	e.h.scrollY = max(0, e.node.Top)
	return nil
}

// Click runs the node's OnClick hook, or follows a link. Links with
// target=_blank are recorded in NewTabs and leave the page unchanged.
func (e *element) Click(ctx context.Context) error {
	if err := e.attached(); err != nil {
		return err
	}
	n := e.node
	if n.OnClick != nil {
		return n.OnClick(e.h)
	}

	for a := n; a != nil; a = a.parent {
		if a.Tag != "a" {
			continue
		}
		href, ok := a.Attrs["href"]
		if !ok {
			return nil
		}
		if a.Attrs["target"] == "_blank" {
			e.h.NewTabs = append(e.h.NewTabs, href)
			return nil
		}
		return e.h.load(href)
	}
	return nil
}

func (e *element) Type(ctx context.Context, text string) error {
	if err := e.attached(); err != nil {
		return err
	}
	e.node.Attrs["value"] += text
	return nil
}

func (e *element) RemoveAttribute(ctx context.Context, name string) error {
	if err := e.attached(); err != nil {
		return err
	}
	delete(e.node.Attrs, name)
	return nil
}

func (e *element) SetAttribute(ctx context.Context, name, value string) error {
	if err := e.attached(); err != nil {
		return err
	}
	e.node.Attrs[name] = value
	return nil
}
