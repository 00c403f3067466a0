package decorate_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/italics/internal/decorate"
	"github.com/dshills/italics/internal/format"
)

func TestAttachReturnsOneEnginePerView(t *testing.T) {
	f := newFixture("comment")

	first := decorate.Attach(f.view, f.table, f.store)
	defer first.Close()
	second := decorate.Attach(f.view, &recordingTable{Map: format.NewMap()}, f.store)

	assert.Same(t, first, second)
	assert.Equal(t, int64(1), first.Stats().Passes)

	found, ok := decorate.Lookup(f.view)
	require.True(t, ok)
	assert.Same(t, first, found)
}

func TestAttachStartsEngine(t *testing.T) {
	f := newFixture("comment")

	e := decorate.Attach(f.view, f.table, f.store)
	defer e.Close()

	assert.True(t, f.table.italic("comment"))

	f.save("keyword")
	assert.True(t, e.Stale())
	f.view.Focus()
	assert.True(t, f.table.italic("keyword"))
}

func TestDetach(t *testing.T) {
	f := newFixture("comment")

	assert.False(t, decorate.Detach(f.view))

	e := decorate.Attach(f.view, f.table, f.store)
	require.True(t, decorate.Detach(f.view))

	_, ok := decorate.Lookup(f.view)
	assert.False(t, ok)

	f.save("keyword")
	assert.False(t, e.Stale(), "detached engine no longer listens")

	again := decorate.Attach(f.view, f.table, f.store)
	defer again.Close()
	assert.NotSame(t, e, again)
}

func TestConcurrentAttachSharesStartedEngine(t *testing.T) {
	f := newFixture("comment")

	const callers = 8
	engines := make([]*decorate.Engine, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			engines[i] = decorate.Attach(f.view, f.table, f.store)
		}(i)
	}
	wg.Wait()

	first := engines[0]
	defer first.Close()
	for _, e := range engines[1:] {
		assert.Same(t, first, e)
	}
	assert.Equal(t, int64(1), first.Stats().Passes)

	f.save("keyword")
	assert.True(t, first.Stale(), "every caller gets a subscribed engine")
}
