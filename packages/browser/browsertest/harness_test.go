package browsertest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/pagespec/packages/browser"
	"github.com/abdul-hamid-achik/pagespec/packages/core/parser"
)

func docsPage() *Page {
	return &Page{
		Title: "Docs",
		Root: El("html", nil, "",
			El("body", nil, "",
				El("nav", []string{"id", "menu"}, "",
					El("a", []string{"href", "https://example.com/a", "class", "item first"}, "Alpha").At(10, 20),
					El("a", []string{"href", "https://example.com/b", "class", "item", "target", "_blank"}, "Beta").At(40, 20),
				),
				El("div", []string{"class", "form-group"}, "",
					El("div", []string{"class", "left"}, "",
						El("label", nil, "org_id"),
					),
					El("input", []string{"name", "org_id"}, "").At(900, 30),
				),
				El("header", nil, "", El("strong", nil, "Query   Params").At(1500, 20)),
			),
		),
	}
}

func newHarness(t *testing.T) *Harness {
	t.Helper()
	h := New().
		Route("https://example.com/docs", docsPage).
		Route("https://example.com/a", func() *Page { return &Page{Title: "A", Root: El("html", nil, "A page")} })
	require.NoError(t, h.Open(context.Background(), browser.Session{Viewport: &parser.Viewport{Width: 1500, Height: 1000}}))
	require.NoError(t, h.Navigate(context.Background(), "https://example.com/docs"))
	return h
}

func query(t *testing.T, h *Harness, loc string) []browser.Element {
	t.Helper()
	l, err := parser.ParseLocator(loc)
	require.NoError(t, err)
	els, err := h.Query(context.Background(), l)
	require.NoError(t, err)
	return els
}

func TestResolve(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		loc   string
		count int
		text  string
	}{
		{"a", 2, "Alpha"},
		{"nav > a.item", 2, "Alpha"},
		{"a.first", 1, "Alpha"},
		{`a[target="_blank"]`, 1, "Beta"},
		{"#menu a", 2, "Alpha"},
		{"body > a", 0, ""},
		{`get("a").contains("Beta")`, 1, "Beta"},
		{`get("a").contains("Gamma")`, 0, ""},
		{`get("a").last()`, 1, "Beta"},
		{`get("a").eq(-1)`, 1, "Beta"},
		{`get("a").eq(5)`, 0, ""},
		{`get("#menu").find("a").first()`, 1, "Alpha"},
		{`get("header>strong").contains("Query Params")`, 1, "Query Params"},
		{`get("label").contains("org_id").parents("div.form-group").find("input")`, 1, ""},
		{`get("label").closest("div")`, 1, "org_id"},
		{`get("label").parents()`, 4, ""},
	}

	for _, tt := range tests {
		t.Run(tt.loc, func(t *testing.T) {
			els := query(t, h, tt.loc)
			require.Len(t, els, tt.count)
			if tt.count > 0 && tt.text != "" {
				text, err := els[0].Text(ctx)
				require.NoError(t, err)
				assert.Equal(t, tt.text, text)
			}
		})
	}
}

func TestInViewport_FollowsScroll(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	strong := query(t, h, "header strong")[0]
	in, err := strong.InViewport(ctx)
	require.NoError(t, err)
	assert.False(t, in)

	require.NoError(t, strong.ScrollIntoView(ctx))
	assert.Equal(t, 1500, h.ScrollY())

	in, err = strong.InViewport(ctx)
	require.NoError(t, err)
	assert.True(t, in)

	again, err := strong.InViewport(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, again)

	alpha := query(t, h, "a.first")[0]
	in, err = alpha.InViewport(ctx)
	require.NoError(t, err)
	assert.False(t, in)
}

func TestInViewport_DependsOnViewportHeight(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	input := query(t, h, "input")[0]

	in, err := input.InViewport(ctx)
	require.NoError(t, err)
	assert.True(t, in)

	require.NoError(t, h.SetViewport(ctx, 375, 667))
	in, err = input.InViewport(ctx)
	require.NoError(t, err)
	assert.False(t, in)
}

func TestClick_FollowsLinks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	beta := query(t, h, `get("a").contains("Beta")`)[0]
	require.NoError(t, beta.Click(ctx))
	assert.Equal(t, []string{"https://example.com/b"}, h.NewTabs)
	url, _ := h.URL(ctx)
	assert.Equal(t, "https://example.com/docs", url)

	alpha := query(t, h, `get("a").contains("Alpha")`)[0]
	require.NoError(t, alpha.Click(ctx))
	url, _ = h.URL(ctx)
	assert.Equal(t, "https://example.com/a", url)

	_, err := alpha.Text(ctx)
	assert.ErrorIs(t, err, ErrDetached)
}

func TestAttributes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	beta := query(t, h, `get("a").contains("Beta")`)[0]

	v, ok, err := beta.Attribute(ctx, "target")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "_blank", v)

	require.NoError(t, beta.RemoveAttribute(ctx, "target"))
	_, ok, err = beta.Attribute(ctx, "target")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, beta.SetAttribute(ctx, "data-x", "1"))
	v, _, _ = beta.Attribute(ctx, "data-x")
	assert.Equal(t, "1", v)

	input := query(t, h, "input")[0]
	require.NoError(t, input.Type(ctx, "228"))
	v, _, _ = input.Attribute(ctx, "value")
	assert.Equal(t, "228", v)
}

func TestClipboardAndPageErrors(t *testing.T) {
	h := New().Route("https://example.com/broken", func() *Page {
		return &Page{Root: El("html", nil, ""), Errors: []string{"ReferenceError: x is not defined"}}
	})
	ctx := context.Background()
	require.NoError(t, h.Open(ctx, browser.Session{}))

	err := h.Navigate(ctx, "https://example.com/missing")
	assert.ErrorIs(t, err, ErrNoPage)

	require.NoError(t, h.Navigate(ctx, "https://example.com/broken"))
	errs := h.PageErrors()
	require.Len(t, errs, 1)
	assert.Equal(t, "ReferenceError: x is not defined", errs[0].Message)
	assert.Empty(t, h.PageErrors())

	h.SetClipboard(`{"ok":true}`)
	text, err := h.ReadClipboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, text)

	h.FailClipboard(errors.New("permission denied"))
	_, err = h.ReadClipboard(ctx)
	assert.ErrorIs(t, err, browser.ErrClipboard)
}

func TestReset(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.Reset(ctx))
	url, _ := h.URL(ctx)
	assert.Equal(t, "about:blank", url)
	assert.Equal(t, 1, h.Resets)
	assert.Empty(t, query(t, h, "a"))
}

func TestSelectorErrors(t *testing.T) {
	for _, s := range []string{"> a", "a >", "a[href", "a:hover"} {
		_, err := compileSelector(s)
		assert.Error(t, err, s)
	}
}
