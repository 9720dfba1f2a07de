package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/pagespec/packages/core/parser"
)

type stubElement struct{ Element }

func TestPoll_ReturnsOnceElementsAppear(t *testing.T) {
	calls := 0
	els, err := Poll(context.Background(), time.Second, time.Millisecond, func(ctx context.Context) ([]Element, error) {
		calls++
		if calls < 3 {
			return nil, nil
		}
		return []Element{stubElement{}}, nil
	})
	require.NoError(t, err)
	assert.Len(t, els, 1)
	assert.Equal(t, 3, calls)
}

func TestPoll_TimeoutIsEmptyNotError(t *testing.T) {
	els, err := Poll(context.Background(), 20*time.Millisecond, 5*time.Millisecond, func(ctx context.Context) ([]Element, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.Empty(t, els)
}

func TestPoll_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := Poll(context.Background(), time.Second, time.Millisecond, func(ctx context.Context) ([]Element, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestLocatorOps(t *testing.T) {
	loc, err := parser.ParseLocator(`get("a").contains("KNOWLEDGE HUB").eq(1)`)
	require.NoError(t, err)
	assert.Equal(t, []jsOp{
		{Kind: "get", Arg: "a"},
		{Kind: "contains", Arg: "KNOWLEDGE HUB"},
		{Kind: "eq", Index: 1},
	}, locatorOps(loc))
}

func TestPageError_String(t *testing.T) {
	assert.Equal(t, "boom", PageError{Message: "boom"}.String())
	assert.Equal(t, "boom (https://x)", PageError{Message: "boom", URL: "https://x"}.String())
}

func TestRod_CloseContextStopsExceptionListener(t *testing.T) {
	events, stop := context.WithCancel(context.Background())
	r := NewRod(DefaultConfig())
	r.stopEvents = stop

	r.closeContext()
	assert.ErrorIs(t, events.Err(), context.Canceled)
	assert.Nil(t, r.stopEvents)

	require.NoError(t, r.Close())
	assert.ErrorIs(t, r.Reset(context.Background()), ErrNotOpen)
}

