package decorate_test

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dshills/italics/internal/decorate"
	"github.com/dshills/italics/internal/format"
	"github.com/dshills/italics/internal/logging"
	"github.com/dshills/italics/internal/metrics"
	"github.com/dshills/italics/internal/settings"
	"github.com/dshills/italics/internal/settings/kv"
	"github.com/dshills/italics/internal/view"
)

var errTable = errors.New("table unavailable")

// recordingTable wraps a format.Map and records every call the engine makes.
type recordingTable struct {
	*format.Map

	leadingNil bool
	failOn     string
	panicOn    string
	onSet      func(c *format.Classification)

	sets   []string
	begins int
	ends   int
}

func (t *recordingTable) PriorityOrder() []*format.Classification {
	order := t.Map.PriorityOrder()
	if t.leadingNil {
		order = append([]*format.Classification{nil}, order...)
	}
	return order
}

func (t *recordingTable) SetStyle(c *format.Classification, s format.Style) error {
	switch c.Name() {
	case t.failOn:
		return errTable
	case t.panicOn:
		panic("corrupt entry")
	}
	t.sets = append(t.sets, c.Name())
	if err := t.Map.SetStyle(c, s); err != nil {
		return err
	}
	if t.onSet != nil {
		t.onSet(c)
	}
	return nil
}

func (t *recordingTable) BeginBatchUpdate() {
	t.begins++
	t.Map.BeginBatchUpdate()
}

func (t *recordingTable) EndBatchUpdate() {
	t.ends++
	t.Map.EndBatchUpdate()
}

func (t *recordingTable) italic(name string) bool {
	c, ok := t.Lookup(name)
	if !ok {
		return false
	}
	s, err := t.Style(c)
	if err != nil {
		return false
	}
	return s.IsItalic()
}

func (t *recordingTable) reset() {
	t.sets = nil
}

type fixture struct {
	store *settings.Store
	table *recordingTable
	view  *view.View
}

func newFixture(names ...string) *fixture {
	m := format.NewMap()
	m.Register("comment", format.NewStyle(format.ColorFromRGB(0, 128, 0)))
	m.Register("keyword", format.DefaultStyle().Bold())
	m.Register("string", format.NewStyle(format.ColorFromIndex(2)).Underline())
	m.Register("type", format.DefaultStyle())

	store := settings.New(kv.NewMemory())
	store.Update(names)

	return &fixture{
		store: store,
		table: &recordingTable{Map: m},
		view:  view.New("main.go"),
	}
}

// save replaces the set and persists it, as the configuration UI would.
func (f *fixture) save(names ...string) {
	f.store.Update(names)
	f.store.Save()
}

func TestNewSynchronizesOnce(t *testing.T) {
	f := newFixture("comment")

	e := decorate.New(f.view, f.table, f.store)
	defer e.Close()

	assert.True(t, f.table.italic("comment"))
	assert.False(t, f.table.italic("keyword"))
	assert.Equal(t, []string{"comment"}, f.table.sets)
	assert.Equal(t, 1, f.table.begins)
	assert.Equal(t, 1, f.table.ends)
	assert.Equal(t, decorate.Stats{Passes: 1, Writes: 1}, e.Stats())
	assert.False(t, e.Stale())
	assert.NotEmpty(t, e.ID())
	assert.Same(t, f.view, e.View())
}

func TestSynchronizeIsIdempotent(t *testing.T) {
	f := newFixture("comment", "keyword")
	e := decorate.New(f.view, f.table, f.store)
	defer e.Close()

	f.table.reset()
	e.Synchronize()

	assert.Empty(t, f.table.sets)
	assert.Equal(t, int64(2), e.Stats().Passes)
	assert.Equal(t, int64(2), e.Stats().Writes)
}

func TestSynchronizeMatchesMembership(t *testing.T) {
	tests := []struct {
		name    string
		initial []string
		set     []string
	}{
		{"empty set", []string{"comment", "type"}, nil},
		{"all", nil, []string{"comment", "keyword", "string", "type"}},
		{"swap", []string{"comment", "keyword"}, []string{"string", "type"}},
		{"unknown names ignored", []string{"type"}, []string{"type", "punctuation"}},
		{"case sensitive", nil, []string{"Comment"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.set...)
			for _, name := range tt.initial {
				c, _ := f.table.Lookup(name)
				s, _ := f.table.Style(c)
				require.NoError(t, f.table.Map.SetStyle(c, s.Italic()))
			}

			e := decorate.New(f.view, f.table, f.store)
			defer e.Close()

			set := f.store.Current()
			for _, c := range f.table.PriorityOrder() {
				assert.Equal(t, set.Contains(c.Name()), f.table.italic(c.Name()), c.Name())
			}
		})
	}
}

func TestSynchronizePreservesOtherAttributes(t *testing.T) {
	f := newFixture("keyword", "string")
	before := map[string]format.Style{}
	for _, c := range f.table.PriorityOrder() {
		s, _ := f.table.Style(c)
		before[c.Name()] = s
	}

	e := decorate.New(f.view, f.table, f.store)
	defer e.Close()

	for _, c := range f.table.PriorityOrder() {
		s, err := f.table.Style(c)
		require.NoError(t, err)
		assert.True(t, s.WithItalic(false).Equals(before[c.Name()]), c.Name())
	}
	keyword, _ := f.table.Lookup("keyword")
	s, _ := f.table.Style(keyword)
	assert.True(t, s.Attributes.Has(format.AttrBold))
}

func TestNoRedundantWrites(t *testing.T) {
	f := newFixture("comment", "keyword")

	// comment already italic and wanted; type italic and unwanted.
	for _, name := range []string{"comment", "type"} {
		c, _ := f.table.Lookup(name)
		s, _ := f.table.Style(c)
		require.NoError(t, f.table.Map.SetStyle(c, s.Italic()))
	}

	e := decorate.New(f.view, f.table, f.store)
	defer e.Close()

	assert.ElementsMatch(t, []string{"keyword", "type"}, f.table.sets)
}

func TestPassDeliversOneCoalescedChange(t *testing.T) {
	f := newFixture("comment", "keyword", "string")

	var changes []format.Change
	f.table.OnChange(func(change format.Change) {
		changes = append(changes, change)
	})

	e := decorate.New(f.view, f.table, f.store)
	defer e.Close()

	require.Len(t, changes, 1)
	assert.Len(t, changes[0].Classifications, 3)
}

func TestSaveMarksStaleWithoutSynchronizing(t *testing.T) {
	f := newFixture("comment")
	e := decorate.New(f.view, f.table, f.store)
	defer e.Close()
	f.table.reset()

	f.save("keyword")

	assert.True(t, e.Stale())
	assert.Empty(t, f.table.sets)
	assert.True(t, f.table.italic("comment"))
	assert.Equal(t, int64(1), e.Stats().Passes)
}

func TestFocusCoalescesSaves(t *testing.T) {
	f := newFixture("comment")
	e := decorate.New(f.view, f.table, f.store)
	defer e.Close()

	f.save("keyword")
	f.save("type", "string")
	f.view.Focus()

	assert.Equal(t, int64(2), e.Stats().Passes)
	assert.False(t, e.Stale())
	assert.False(t, f.table.italic("comment"))
	assert.False(t, f.table.italic("keyword"))
	assert.True(t, f.table.italic("type"))
	assert.True(t, f.table.italic("string"))
}

func TestFocusWhenCleanDoesNothing(t *testing.T) {
	f := newFixture("comment")
	e := decorate.New(f.view, f.table, f.store)
	defer e.Close()
	f.table.reset()

	f.view.Focus()
	f.view.Blur()
	f.view.Focus()

	assert.Empty(t, f.table.sets)
	assert.Equal(t, int64(1), e.Stats().Passes)
	assert.Equal(t, int64(2), e.Stats().Skipped)
	assert.Equal(t, 1, f.table.begins)
}

func TestUnsavedUpdateIsNotApplied(t *testing.T) {
	f := newFixture("comment")
	e := decorate.New(f.view, f.table, f.store)
	defer e.Close()

	f.store.Update([]string{"keyword"})
	f.view.Focus()

	assert.False(t, e.Stale())
	assert.True(t, f.table.italic("comment"))
	assert.False(t, f.table.italic("keyword"))
}

func TestReentrantSynchronizeIsNoop(t *testing.T) {
	f := newFixture()
	e := decorate.New(f.view, f.table, f.store)
	defer e.Close()

	nested := 0
	f.table.onSet = func(*format.Classification) {
		nested++
		e.Synchronize()
	}

	f.save("comment", "keyword", "type")
	f.view.Focus()

	assert.Equal(t, 3, nested)
	assert.Equal(t, int64(2), e.Stats().Passes)
	assert.Equal(t, int64(3), e.Stats().Skipped)
	assert.True(t, f.table.italic("comment"))
	assert.True(t, f.table.italic("keyword"))
	assert.True(t, f.table.italic("type"))
	assert.False(t, e.Stale())
	assert.Equal(t, f.table.begins, f.table.ends)
}

func TestFocusDuringPassIsIgnored(t *testing.T) {
	f := newFixture()
	e := decorate.New(f.view, f.table, f.store)
	defer e.Close()

	f.table.onSet = func(*format.Classification) {
		f.view.Blur()
		f.view.Focus()
	}

	f.save("comment")
	f.view.Focus()

	assert.True(t, f.table.italic("comment"))
	assert.False(t, e.Stale())
	assert.Equal(t, int64(2), e.Stats().Passes)
}

func TestSaveDuringFocusPassKeepsEngineStale(t *testing.T) {
	f := newFixture("comment")
	e := decorate.New(f.view, f.table, f.store)
	defer e.Close()

	f.save("keyword")
	require.True(t, e.Stale())

	saved := make(chan struct{})
	started := false
	f.table.onSet = func(*format.Classification) {
		if started {
			return
		}
		started = true
		go func() {
			defer close(saved)
			f.save("type")
		}()
		// The save's notification has to wait for the pass to finish.
		require.Eventually(t, func() bool {
			return f.store.Current().Contains("type")
		}, time.Second, time.Millisecond)
		time.Sleep(10 * time.Millisecond)
	}

	f.view.Focus()
	<-saved
	f.table.onSet = nil

	assert.True(t, f.table.italic("keyword"), "pass applied the set it started with")
	assert.False(t, f.table.italic("type"))
	assert.True(t, e.Stale(), "save landing mid-pass must not be lost")

	f.view.Blur()
	f.view.Focus()

	assert.True(t, f.table.italic("type"))
	assert.False(t, f.table.italic("keyword"))
	assert.False(t, e.Stale())
}

func TestChangeDuringInitialPassMarksStale(t *testing.T) {
	f := newFixture("comment")

	saved := false
	f.table.onSet = func(*format.Classification) {
		if saved {
			return
		}
		saved = true
		f.save("type")
	}

	e := decorate.New(f.view, f.table, f.store)
	defer e.Close()
	f.table.onSet = nil

	assert.True(t, e.Stale())
	f.view.Focus()
	assert.True(t, f.table.italic("type"))
	assert.False(t, f.table.italic("comment"))
}

func TestFailureReleasesGuardAndBatch(t *testing.T) {
	logger, logs := logging.NewObserved()
	f := newFixture()
	e := decorate.New(f.view, f.table, f.store, decorate.WithLogger(logger))
	defer e.Close()

	f.table.failOn = "keyword"
	f.store.Update([]string{"comment", "keyword", "type"})
	e.Synchronize()

	assert.Equal(t, f.table.begins, f.table.ends)
	assert.True(t, f.table.italic("comment"), "entries before the failure keep their write")
	assert.False(t, f.table.italic("type"), "the rest of the pass is aborted")
	assert.Equal(t, int64(1), e.Stats().Failures)

	entries := logs.FilterMessage("synchronizing italics failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.DPanicLevel, entries[0].Level)

	f.table.failOn = ""
	e.Synchronize()

	assert.True(t, f.table.italic("keyword"))
	assert.True(t, f.table.italic("type"))
	assert.Equal(t, f.table.begins, f.table.ends)
}

func TestPanicIsRecovered(t *testing.T) {
	f := newFixture()
	e := decorate.New(f.view, f.table, f.store)
	defer e.Close()

	f.table.panicOn = "comment"
	f.store.Update([]string{"comment"})

	require.NotPanics(t, e.Synchronize)
	assert.Equal(t, int64(1), e.Stats().Failures)
	assert.Equal(t, f.table.begins, f.table.ends)

	f.table.panicOn = ""
	e.Synchronize()
	assert.True(t, f.table.italic("comment"))
}

func TestFailedPassKeepsStale(t *testing.T) {
	f := newFixture()
	e := decorate.New(f.view, f.table, f.store)
	defer e.Close()

	f.table.failOn = "type"
	f.save("type")
	f.view.Focus()
	assert.True(t, e.Stale())

	f.table.failOn = ""
	f.view.Blur()
	f.view.Focus()
	assert.False(t, e.Stale())
	assert.True(t, f.table.italic("type"))
}

func TestDevelopmentModePanicsButReleases(t *testing.T) {
	logger, _ := logging.NewObservedDevelopment()
	f := newFixture()
	e := decorate.New(f.view, f.table, f.store, decorate.WithLogger(logger))
	defer e.Close()

	f.table.failOn = "string"
	f.store.Update([]string{"string"})
	assert.Panics(t, e.Synchronize)
	assert.Equal(t, f.table.begins, f.table.ends)

	f.table.failOn = ""
	assert.NotPanics(t, e.Synchronize)
	assert.True(t, f.table.italic("string"))
}

func TestNilEntriesAreSkipped(t *testing.T) {
	f := newFixture("comment")
	f.table.leadingNil = true

	e := decorate.New(f.view, f.table, f.store)
	defer e.Close()

	assert.Equal(t, int64(0), e.Stats().Failures)
	assert.True(t, f.table.italic("comment"))
}

func TestCloseStopsReacting(t *testing.T) {
	f := newFixture("comment")
	e := decorate.New(f.view, f.table, f.store)
	e.Close()
	e.Close()

	f.save("keyword")
	f.view.Focus()

	assert.False(t, e.Stale())
	assert.Equal(t, int64(1), e.Stats().Passes)
	assert.False(t, f.table.italic("keyword"))
}

func TestEnginesAreIndependent(t *testing.T) {
	f := newFixture("comment")
	other := &recordingTable{Map: format.NewMap()}
	other.Register("comment", format.DefaultStyle())
	otherView := view.New("other.go")

	a := decorate.New(f.view, f.table, f.store)
	defer a.Close()
	b := decorate.New(otherView, other, f.store)
	defer b.Close()

	f.save("comment", "keyword")
	assert.True(t, a.Stale())
	assert.True(t, b.Stale())

	f.view.Focus()
	assert.False(t, a.Stale())
	assert.True(t, b.Stale())
	assert.True(t, f.table.italic("keyword"))
}

func TestMetricsRecorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	f := newFixture("comment", "keyword")

	e := decorate.New(f.view, f.table, f.store, decorate.WithMetrics(m), decorate.WithLogger(zap.NewNop()))
	defer e.Close()

	f.save("keyword")
	f.view.Focus()
	f.view.Blur()
	f.view.Focus()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SyncPasses))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AttributeWrites.WithLabelValues("set")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttributeWrites.WithLabelValues("clear")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaleMarks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SyncSkipped.WithLabelValues("clean")))
}
