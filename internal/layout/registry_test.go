package layout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/quotewright/internal/events"
	"github.com/Veraticus/quotewright/internal/prefs"
)

type recordingQueue struct {
	requests []prefs.Payload
	seeded   []prefs.Payload
	flushed  []prefs.Context
}

func (q *recordingQueue) Request(_ prefs.Context, p prefs.Payload) error {
	q.requests = append(q.requests, p)
	return nil
}

func (q *recordingQueue) Seed(_ prefs.Context, p prefs.Payload) {
	q.seeded = append(q.seeded, p)
}

func (q *recordingQueue) FlushContext(_ context.Context, c prefs.Context) {
	q.flushed = append(q.flushed, c)
}

type staticBackend struct {
	err     error
	payload prefs.Payload
	found   bool
}

func (b staticBackend) Save(context.Context, prefs.Context, prefs.Payload) error { return nil }

func (b staticBackend) Load(context.Context, prefs.Context) (prefs.Payload, bool, error) {
	return b.payload, b.found, b.err
}

var linesCtx = prefs.Context{Screen: "quote-editor", Table: "line-items", Variant: "standard"}

func manageLines(t *testing.T, r *Registry) *Table {
	t.Helper()
	tbl, err := r.Manage("lines", lineTableConfig(), headersFor(lineKeys...), []Row{fullRow("r1", lineKeys...)}, linesCtx)
	require.NoError(t, err)
	tbl.SetContainer(Container{ClientWidth: 1000})
	return tbl
}

func TestRegistry_SettleQueuesSafePayload(t *testing.T) {
	q := &recordingQueue{}
	r := NewRegistry(DefaultConfig(), nil, q, nil)
	tbl := manageLines(t, r)
	tbl.Normalize()

	require.NoError(t, tbl.ResizeBy("qty", 40))

	require.Len(t, q.requests, 1)
	assert.Equal(t, 100, q.requests[0].Widths["qty"])
	assert.Equal(t, lineKeys, q.requests[0].Order)
}

func TestRegistry_RejectsBadMarkup(t *testing.T) {
	r := NewRegistry(DefaultConfig(), nil, nil, nil)

	_, err := r.Manage("bad", TableConfig{}, headersFor("a", "a"), nil, linesCtx)
	assert.ErrorIs(t, err, ErrDuplicateKey)
	_, ok := r.Table("bad")
	assert.False(t, ok)
}

func TestRegistry_EventsRescanEveryTable(t *testing.T) {
	d := events.NewDispatcher()
	r := NewRegistry(DefaultConfig(), d, nil, nil)
	defer r.Close()

	lines := manageLines(t, r)
	other, err := r.Manage("other", TableConfig{Filler: "a", Columns: map[string]ColumnConfig{"a": {Resizable: true}}},
		headersFor("a"), nil, prefs.Context{Screen: "catalog", Table: "items"})
	require.NoError(t, err)
	other.SetContainer(Container{ClientWidth: 500})

	assert.Equal(t, 0, lines.FrameWidth())
	d.LayoutChanged.Publish(events.LayoutChanged{Reason: "panel expanded"})

	assert.Equal(t, 840, lines.FrameWidth())
	assert.Equal(t, 300, other.FrameWidth())

	r.Close()
	lines.SetContainer(Container{ClientWidth: 2000})
	d.RowAdded.Publish(events.RowAdded{TableID: "lines"})
	assert.Equal(t, 840, lines.FrameWidth(), "closed registry ignores events")
}

func TestRegistry_RestoreSeedsQueueAndApplies(t *testing.T) {
	q := &recordingQueue{}
	r := NewRegistry(DefaultConfig(), nil, q, nil)
	tbl := manageLines(t, r)

	saved := prefs.Payload{Order: []string{"num", "rate", "qty", "title", "actions"}}
	require.NoError(t, r.Restore(context.Background(), "lines", staticBackend{payload: saved, found: true}))

	assert.Equal(t, saved.Order, tbl.Order())
	require.Len(t, q.seeded, 1)

	require.NoError(t, r.Restore(context.Background(), "lines", staticBackend{}))
	assert.Len(t, q.seeded, 1)

	boom := errors.New("boom")
	assert.ErrorIs(t, r.Restore(context.Background(), "lines", staticBackend{err: boom}), boom)
	assert.ErrorIs(t, r.Restore(context.Background(), "missing", staticBackend{}), ErrUnknownTable)
}

func TestRegistry_ReleaseFlushes(t *testing.T) {
	q := &recordingQueue{}
	r := NewRegistry(DefaultConfig(), nil, q, nil)
	manageLines(t, r)

	r.Release(context.Background(), "lines")

	assert.Equal(t, []prefs.Context{linesCtx}, q.flushed)
	_, ok := r.Table("lines")
	assert.False(t, ok)

	r.Release(context.Background(), "lines")
	assert.Len(t, q.flushed, 1)
}
