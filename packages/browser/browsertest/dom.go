package browsertest

import "strings"

// Node is an element of the in-memory DOM. Top and Height place the
// element vertically in document coordinates; Left and Width are only
// checked when Width is set.
type Node struct {
	Tag      string
	Attrs    map[string]string
	Text     string
	Children []*Node
	Top      int
	Height   int
	Left     int
	Width    int
	// OnClick replaces the default click behaviour.
	OnClick func(h *Harness) error

	parent *Node
}

// El builds a node. attrs is a flat list of name, value pairs.
func El(tag string, attrs []string, text string, children ...*Node) *Node {
	n := &Node{Tag: tag, Attrs: map[string]string{}, Text: text}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attrs[attrs[i]] = attrs[i+1]
	}
	for _, c := range children {
		n.Append(c)
	}
	return n
}

func (n *Node) Append(c *Node) *Node {
	c.parent = n
	n.Children = append(n.Children, c)
	return n
}

// At sets the vertical box of the node.
func (n *Node) At(top, height int) *Node {
	n.Top = top
	n.Height = height
	return n
}

func (n *Node) Clicks(fn func(h *Harness) error) *Node {
	n.OnClick = fn
	return n
}

func (n *Node) Parent() *Node {
	return n.parent
}

// TextContent joins the node's text with the text of its descendants.
func (n *Node) TextContent() string {
	parts := []string{}
	if n.Text != "" {
		parts = append(parts, n.Text)
	}
	for _, c := range n.Children {
		if t := c.TextContent(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func (n *Node) classes() []string {
	return strings.Fields(n.Attrs["class"])
}

// walk visits n and its descendants in document order.
func (n *Node) walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.walk(fn)
	}
}

func (n *Node) contains(other *Node) bool {
	for p := other; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

// Find returns the first node matching selector, or nil.
func (n *Node) Find(selector string) *Node {
	sel, err := compileSelector(selector)
	if err != nil {
		return nil
	}
	var found *Node
	n.walk(func(c *Node) {
		if found == nil && sel.matches(c) {
			found = c
		}
	})
	return found
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func inDocumentOrder(root *Node, set map[*Node]bool) []*Node {
	var out []*Node
	root.walk(func(c *Node) {
		if set[c] {
			out = append(out, c)
		}
	})
	return out
}
