package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/quotewright/internal/events"
	"github.com/Veraticus/quotewright/internal/layout"
	"github.com/Veraticus/quotewright/internal/model"
	"github.com/Veraticus/quotewright/internal/prefs"
	"github.com/Veraticus/quotewright/internal/quote"
	"github.com/Veraticus/quotewright/internal/testutil"
)

type recordingQueue struct {
	contexts []prefs.Context
	requests []prefs.Payload
	seeded   []prefs.Payload
	flushed  []prefs.Context
}

func (q *recordingQueue) Request(c prefs.Context, p prefs.Payload) error {
	q.contexts = append(q.contexts, c)
	q.requests = append(q.requests, p)
	return nil
}

func (q *recordingQueue) Seed(_ prefs.Context, p prefs.Payload) {
	q.seeded = append(q.seeded, p)
}

func (q *recordingQueue) FlushContext(_ context.Context, c prefs.Context) {
	q.flushed = append(q.flushed, c)
}

func (q *recordingQueue) last(t *testing.T) prefs.Payload {
	t.Helper()
	require.NotEmpty(t, q.requests, "no preference save was queued")
	return q.requests[len(q.requests)-1]
}

type savedPrefs struct {
	payload prefs.Payload
}

func (b savedPrefs) Save(context.Context, prefs.Context, prefs.Payload) error { return nil }

func (b savedPrefs) Load(context.Context, prefs.Context) (prefs.Payload, bool, error) {
	return b.payload, true, nil
}

type editorFixture struct {
	quotes  *quote.Service
	queue   *recordingQueue
	events  *events.Dispatcher
	quoteID int64
}

func newFixture(t *testing.T) *editorFixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	items := db.MustSeedCatalog(testutil.StandardCatalog()...)
	q := db.MustCreateQuote(model.FormatStandard)
	svc := quote.New(db.Storage, nil)
	drywall := items[testutil.Drywall.SKU].ID

	_, err := svc.SaveGroups(context.Background(), q.ID, []quote.GroupInput{
		{
			ID:           "walls",
			Name:         "Walls",
			ShowSubtotal: true,
			Items: []quote.LineInput{
				{ID: "sheets", PricingItemID: &drywall, LineSKU: "DRY-01", Title: "Drywall sheet", Quantity: "2*3", Formula: "$+5"},
				{ID: "trip", Title: "Trip charge", Formula: "12"},
			},
		},
		{
			ID:            "options",
			Name:          "Options",
			SelectionMode: model.SelectSingle,
			Items: []quote.LineInput{
				{ID: "gold", Title: "Gold trim", Formula: "100", IsSelected: true},
				{ID: "silver", Title: "Silver trim", Formula: "50", IsSelected: true},
			},
		},
	})
	require.NoError(t, err)

	return &editorFixture{quotes: svc, queue: &recordingQueue{}, events: events.NewDispatcher(), quoteID: q.ID}
}

func (f *editorFixture) model(t *testing.T, opts ...Option) Model {
	t.Helper()
	cfg := defaultConfig()
	registry := layout.NewRegistry(layout.DefaultConfig().Cells(layout.CellPx), f.events, f.queue, nil)
	t.Cleanup(registry.Close)

	base := []Option{
		WithQuotes(f.quotes),
		WithRegistry(registry),
		WithEvents(f.events),
		WithFrameInterval(time.Millisecond),
	}
	for _, opt := range append(base, opts...) {
		opt(&cfg)
	}
	m, err := newModel(context.Background(), cfg, f.quoteID)
	require.NoError(t, err)
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// resize delivers a window size and runs the stabilization poll it starts.
func resize(t *testing.T, m Model, width, height int) Model {
	t.Helper()
	m, cmd := update(t, m, tea.WindowSizeMsg{Width: width, Height: height})
	require.NotNil(t, cmd, "a new size starts the stabilization poll")
	msg := cmd()
	settled, ok := msg.(settledMsg)
	require.True(t, ok)
	require.True(t, settled.settled)
	m, _ = update(t, m, msg)
	return m
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		case "shift+right":
			msg = tea.KeyMsg{Type: tea.KeyShiftRight}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m, _ = update(t, m, msg)
	}
	return m
}

func mouse(action tea.MouseAction, button tea.MouseButton, x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: action, Button: button}
}

func width(t *testing.T, m Model, colKey string) int {
	t.Helper()
	c, ok := m.table.Column(colKey)
	require.True(t, ok, colKey)
	return c.Width
}

// At 80 columns the content width is 78: num 5, sku 9, title 20 (filler),
// quantity 7, unit 6, rate 11, amount 11, margin 9.
func TestLayoutFollowsTerminalWidth(t *testing.T) {
	m := newFixture(t).model(t)
	assert.Contains(t, m.View(), "Measuring terminal")
	assert.Zero(t, m.canvas.renders, "nothing is laid out before the terminal is measured")

	m = resize(t, m, 80, 24)
	assert.Equal(t, 78, m.table.FrameWidth())
	assert.Equal(t, 5, width(t, m, numKey))
	assert.Equal(t, 9, width(t, m, "sku"))
	assert.Equal(t, 20, width(t, m, "title"))
	assert.Equal(t, 9, width(t, m, "margin"))

	m = resize(t, m, 100, 24)
	assert.Equal(t, 98, m.table.FrameWidth())
	assert.Equal(t, 40, width(t, m, "title"))
}

func TestView(t *testing.T) {
	m := resize(t, newFixture(t).model(t), 80, 24)
	view := m.View()

	for _, want := range []string{"Test quote", "total 262.00", "SKU", "Amount", "Walls", "Drywall sheet", "150.00", "Walls subtotal", "162.00", "Grand total", "262.00"} {
		assert.Contains(t, view, want)
	}
}

func TestKeyboardResizeQueuesPreference(t *testing.T) {
	f := newFixture(t)
	m := resize(t, f.model(t), 80, 24)
	require.Equal(t, "sku", m.focus)

	m = press(t, m, "+")
	assert.Equal(t, 10, width(t, m, "sku"))
	assert.Equal(t, 20, width(t, m, "title"), "siblings keep their widths")
	assert.Equal(t, 79, m.table.FrameWidth())
	assert.Equal(t, "SKU width 10", m.status)

	p := f.queue.last(t)
	assert.Equal(t, 10, p.Widths["sku"])
	assert.NotContains(t, p.Widths, numKey, "locked columns are not saved")
	assert.Equal(t, "quote-editor:line-items:standard", f.queue.contexts[0].Key())

	m = press(t, m, "-", "-")
	assert.Equal(t, 8, width(t, m, "sku"))
	for range 10 {
		m = press(t, m, "-")
	}
	assert.Equal(t, 6, width(t, m, "sku"))
	assert.Equal(t, "SKU is at its minimum width", m.status)
}

func TestKeyboardResizeWithoutEdge(t *testing.T) {
	m := resize(t, newFixture(t).model(t), 80, 24)
	m = press(t, m, "right", "right", "right", "right", "right", "right")
	require.Equal(t, "margin", m.focus)

	m = press(t, m, "+")
	assert.Equal(t, "Margin cannot be resized", m.status)
	assert.Equal(t, 9, width(t, m, "margin"))
}

func TestKeyboardReorder(t *testing.T) {
	f := newFixture(t)
	m := resize(t, f.model(t), 80, 24)

	m = press(t, m, "shift+right")
	assert.Equal(t, []string{numKey, "title", "sku", "quantity", "unit", "rate", "amount", "margin"}, m.table.Order())
	assert.Equal(t, "sku", m.focus, "focus follows the moved column")
	assert.Equal(t, m.table.Order(), f.queue.last(t).Order)

	line := m.table.Rows()[1]
	require.Equal(t, "line-sheets", line.ID)
	assert.Equal(t, "title", line.Cells[1].Key, "row cells move with the header")
	assert.Equal(t, "Drywall sheet", line.Cells[1].Text)

	m = press(t, m, "H")
	assert.Equal(t, "sku", m.table.Order()[1])

	saves := len(f.queue.requests)
	m = press(t, m, "H")
	assert.Equal(t, "SKU cannot move there", m.status, "locked columns keep their slot")
	assert.Equal(t, "sku", m.table.Order()[1])
	assert.Len(t, f.queue.requests, saves)
}

func TestMouseResize(t *testing.T) {
	f := newFixture(t)
	m := resize(t, f.model(t), 80, 24)

	// The sku resize handle is its last cell: table x 13, screen x 14.
	m, _ = update(t, m, mouse(tea.MouseActionPress, tea.MouseButtonLeft, 14, headerLine))
	assert.Equal(t, layout.StateResizeArmed, m.table.State())

	m, _ = update(t, m, mouse(tea.MouseActionMotion, tea.MouseButtonLeft, 17, headerLine))
	assert.Equal(t, layout.StateResizing, m.table.State())
	assert.Equal(t, 12, width(t, m, "sku"))
	assert.Contains(t, m.View(), "Resizing SKU: 12")

	m, _ = update(t, m, mouse(tea.MouseActionMotion, tea.MouseButtonLeft, 500, headerLine))
	assert.Equal(t, 46, width(t, m, "sku"), "clamped to 60% of the content width")
	assert.Contains(t, m.View(), "Resizing SKU: 46 (max)")
	assert.Empty(t, f.queue.requests, "nothing is saved mid gesture")

	m, _ = update(t, m, mouse(tea.MouseActionRelease, tea.MouseButtonLeft, 500, headerLine))
	assert.Equal(t, layout.StateIdle, m.table.State())
	assert.Equal(t, 46, f.queue.last(t).Widths["sku"])
}

func TestMouseReorder(t *testing.T) {
	f := newFixture(t)
	m := resize(t, f.model(t), 80, 24)

	// title spans table x 14..33.
	m, _ = update(t, m, mouse(tea.MouseActionPress, tea.MouseButtonLeft, 21, headerLine))
	assert.Equal(t, layout.StateReorderArmed, m.table.State())
	assert.Equal(t, "title", m.focus)

	m, _ = update(t, m, mouse(tea.MouseActionMotion, tea.MouseButtonLeft, 7, headerLine))
	assert.Equal(t, layout.StateReordering, m.table.State())
	assert.Contains(t, m.View(), "Moving Item to position 2")

	m, _ = update(t, m, mouse(tea.MouseActionRelease, tea.MouseButtonLeft, 7, headerLine))
	assert.Equal(t, layout.StateIdle, m.table.State())
	assert.Equal(t, []string{numKey, "title", "sku", "quantity", "unit", "rate", "amount", "margin"}, m.table.Order())
	assert.Equal(t, m.table.Order(), f.queue.last(t).Order)
}

func TestMousePressesThatDoNotArm(t *testing.T) {
	f := newFixture(t)
	m := resize(t, f.model(t), 80, 24)

	tests := []struct {
		name   string
		button tea.MouseButton
		x, y   int
	}{
		{"secondary button", tea.MouseButtonRight, 21, headerLine},
		{"locked column", tea.MouseButtonLeft, 2, headerLine},
		{"body row", tea.MouseButtonLeft, 21, headerLine + 3},
		{"past the last column", tea.MouseButtonLeft, 79, headerLine},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ = update(t, m, mouse(tea.MouseActionPress, tt.button, tt.x, tt.y))
			assert.Equal(t, layout.StateIdle, m.table.State())
			m, _ = update(t, m, mouse(tea.MouseActionRelease, tt.button, tt.x, tt.y))
		})
	}
	assert.Empty(t, f.queue.requests)
}

func TestGesturesExcludeEachOther(t *testing.T) {
	m := resize(t, newFixture(t).model(t), 80, 24)

	m, _ = update(t, m, mouse(tea.MouseActionPress, tea.MouseButtonLeft, 14, headerLine))
	require.Equal(t, layout.StateResizeArmed, m.table.State())

	m = press(t, m, "shift+right")
	assert.ErrorIs(t, m.lastError, layout.ErrInteractionBusy)
	assert.Equal(t, "sku", m.table.Order()[1])

	m, _ = update(t, m, mouse(tea.MouseActionRelease, tea.MouseButtonLeft, 14, headerLine))
	assert.Equal(t, layout.StateIdle, m.table.State())
}

func TestHideAndShowColumns(t *testing.T) {
	m := resize(t, newFixture(t).model(t), 80, 24)

	m = press(t, m, "x")
	sku, _ := m.table.Column("sku")
	assert.False(t, sku.Visible())
	assert.Equal(t, "title", m.focus)
	assert.Equal(t, 29, width(t, m, "title"), "the filler takes the freed space")
	assert.Equal(t, "Hid SKU", m.status)
	assert.NotContains(t, strings.Split(m.View(), "\n")[headerLine], "SKU")

	m = press(t, m, "X")
	sku, _ = m.table.Column("sku")
	assert.True(t, sku.Visible())
	assert.Contains(t, strings.Split(m.View(), "\n")[headerLine], "SKU")
}

func TestRestoreSavedPreferences(t *testing.T) {
	f := newFixture(t)
	saved := prefs.Payload{
		Order:  []string{numKey, "amount", "sku", "title", "quantity", "unit", "rate", "margin"},
		Widths: map[string]int{"title": 30},
	}
	m := f.model(t, WithPrefs(savedPrefs{payload: saved}))

	assert.Equal(t, saved.Order, m.table.Order(), "order applies at once")
	require.Len(t, f.queue.seeded, 1)
	assert.Zero(t, width(t, m, "title"), "widths wait for a measurable terminal")

	m = resize(t, m, 80, 24)
	assert.Equal(t, 30, width(t, m, "title"))
}

func TestReload(t *testing.T) {
	f := newFixture(t)
	m := resize(t, f.model(t), 80, 24)
	ctx := context.Background()

	groups, err := f.quotes.Groups(ctx, f.quoteID)
	require.NoError(t, err)
	inputs := quote.InputsFromGroups(groups)
	inputs[0].Items = append(inputs[0].Items, quote.LineInput{ID: "tape", Title: "Joint tape", Formula: "4"})
	_, err = f.quotes.SaveGroups(ctx, f.quoteID, inputs)
	require.NoError(t, err)

	msg := m.reload()()
	m, _ = update(t, m, msg)
	assert.Equal(t, "Reloaded 5 lines", m.status)
	assert.Contains(t, m.View(), "Joint tape")
	assert.Equal(t, 78, m.table.FrameWidth())
}

func TestQuitReleasesTable(t *testing.T) {
	f := newFixture(t)
	m := resize(t, f.model(t), 80, 24)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Empty(t, m.View())

	m.release(context.Background())
	require.Len(t, f.queue.flushed, 1)
	assert.Equal(t, PrefsContext(model.FormatStandard), f.queue.flushed[0])
	_, managed := m.config.Registry.Table(m.tableID)
	assert.False(t, managed)
}

func TestNewModelRequiresDependencies(t *testing.T) {
	_, err := newModel(context.Background(), defaultConfig(), 1)
	assert.Error(t, err)
}
