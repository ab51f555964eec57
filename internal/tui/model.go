package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/quotewright/internal/common"
	"github.com/Veraticus/quotewright/internal/events"
	"github.com/Veraticus/quotewright/internal/export"
	"github.com/Veraticus/quotewright/internal/layout"
	"github.com/Veraticus/quotewright/internal/model"
	"github.com/Veraticus/quotewright/internal/tui/themes"
)

// sizeBox is the latest terminal measurement, shared with the
// stabilization poll.
type sizeBox struct {
	c  layout.Container
	mu sync.Mutex
}

func (b *sizeBox) set(c layout.Container) {
	b.mu.Lock()
	b.c = c
	b.mu.Unlock()
}

func (b *sizeBox) get() layout.Container {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.c
}

func containerFor(width int) layout.Container {
	return layout.Container{
		ClientWidth:  width,
		PaddingLeft:  margin,
		PaddingRight: margin,
		Hidden:       width <= 0,
	}
}

// Model holds the editor state.
type Model struct {
	ctx         context.Context
	theme       themes.Theme
	lastError   error
	logger      *slog.Logger
	table       *layout.Table
	canvas      *canvas
	size        *sizeBox
	doc         export.Document
	lines       lines
	help        help.Model
	config      Config
	keymap      KeyMap
	tableID     string
	focus       string
	status      string
	quoteID     int64
	offset      int
	width       int
	height      int
	stabilizing bool
	quitting    bool
}

func tableID(quoteID int64) string {
	return fmt.Sprintf("quote-%d-lines", quoteID)
}

// newModel loads a quote and starts managing its line item table.
func newModel(ctx context.Context, cfg Config, quoteID int64) (Model, error) {
	if cfg.Quotes == nil {
		return Model{}, fmt.Errorf("%w: quote source", common.ErrMissingConfig)
	}
	if cfg.Registry == nil {
		return Model{}, fmt.Errorf("%w: layout registry", common.ErrMissingConfig)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	doc, err := export.LoadDocument(ctx, cfg.Quotes, quoteID)
	if err != nil {
		return Model{}, fmt.Errorf("failed to load quote %d: %w", quoteID, err)
	}

	m := Model{
		ctx:     ctx,
		theme:   cfg.Theme,
		logger:  logger,
		canvas:  &canvas{},
		size:    &sizeBox{},
		doc:     doc,
		lines:   buildLines(doc),
		help:    help.New(),
		config:  cfg,
		keymap:  DefaultKeyMap(),
		tableID: tableID(quoteID),
		quoteID: quoteID,
		width:   cfg.Width,
		height:  cfg.Height,
	}

	m.table, err = cfg.Registry.Manage(m.tableID, cfg.Table, m.lines.headers, m.lines.rows,
		PrefsContext(doc.Quote.Format), layout.WithRenderer(m.canvas))
	if err != nil {
		return Model{}, err
	}
	if cfg.Prefs != nil {
		if err := cfg.Registry.Restore(ctx, m.tableID, cfg.Prefs); err != nil {
			logger.Warn("Failed to restore table preferences", "table", m.tableID, "error", err)
			m.status = "Saved column layout unavailable"
		}
	}
	if cfg.Events != nil {
		cfg.Events.TableAdded.Publish(events.TableAdded{TableID: m.tableID})
	}

	m.focus = m.focusable()[0]
	return m, nil
}

// release stops managing the table, flushing its pending preference save.
func (m Model) release(ctx context.Context) {
	m.config.Registry.Release(ctx, m.tableID)
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.SetWindowTitle("quotewright: " + m.doc.Quote.Title)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg), nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.size.set(containerFor(msg.Width))
		if !m.stabilizing {
			m.stabilizing = true
			return m, m.stabilize()
		}

	case settledMsg:
		m.stabilizing = false
		if msg.err != nil {
			return m, nil
		}
		m.table.SetContainer(msg.container)
		m.table.Normalize()
		m.clampOffset()
		if m.size.get() != msg.container {
			m.stabilizing = true
			return m, m.stabilize()
		}

	case reloadedMsg:
		m.applyReload(msg)
	}

	return m, nil
}

// stabilize waits for the terminal size to stop changing before the table
// is laid out again.
func (m Model) stabilize() tea.Cmd {
	ctx, box, interval := m.ctx, m.size, m.config.FrameInterval
	return func() tea.Msg {
		frames := layout.NewTickerFrames(interval)
		defer frames.Stop()
		c, settled, err := layout.Stabilize(ctx, frames, layout.DefaultFrameBudget, box.get)
		return settledMsg{container: c, settled: settled, err: err}
	}
}

func (m Model) reload() tea.Cmd {
	ctx, src, id := m.ctx, m.config.Quotes, m.quoteID
	return func() tea.Msg {
		doc, err := export.LoadDocument(ctx, src, id)
		return reloadedMsg{doc: doc, err: err}
	}
}

func (m *Model) applyReload(msg reloadedMsg) {
	if msg.err != nil {
		m.fail(fmt.Errorf("reload failed: %w", msg.err))
		return
	}
	if msg.doc.Quote.Format != m.doc.Quote.Format {
		m.fail(fmt.Errorf("%w: quote format changed to %s, reopen the editor", common.ErrInvalidInput, msg.doc.Quote.Format))
		return
	}

	m.doc = msg.doc
	m.lines = buildLines(msg.doc)
	m.table.SetRows(m.lines.rows)
	if m.config.Events != nil {
		m.config.Events.LayoutChanged.Publish(events.LayoutChanged{Reason: "quote reloaded"})
	} else {
		m.table.Normalize()
	}
	m.clampOffset()
	m.info("Reloaded %d lines", model.ItemCount(msg.doc.Groups))
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keymap.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keymap.Left):
		m.moveFocus(-1)
	case key.Matches(msg, m.keymap.Right):
		m.moveFocus(1)
	case key.Matches(msg, m.keymap.Grow):
		m.resizeFocused(1)
	case key.Matches(msg, m.keymap.Shrink):
		m.resizeFocused(-1)
	case key.Matches(msg, m.keymap.MoveLeft):
		m.moveFocused(-1)
	case key.Matches(msg, m.keymap.MoveRight):
		m.moveFocused(1)
	case key.Matches(msg, m.keymap.Hide):
		m.hideFocused()
	case key.Matches(msg, m.keymap.ShowAll):
		m.showAll()
	case key.Matches(msg, m.keymap.Up):
		m.scroll(-1)
	case key.Matches(msg, m.keymap.Down):
		m.scroll(1)
	case key.Matches(msg, m.keymap.PageUp):
		m.scroll(-m.bodyHeight())
	case key.Matches(msg, m.keymap.PageDown):
		m.scroll(m.bodyHeight())
	case key.Matches(msg, m.keymap.Home):
		m.offset = 0
	case key.Matches(msg, m.keymap.End):
		m.offset = len(m.lines.rows)
		m.clampOffset()
	case key.Matches(msg, m.keymap.Refresh):
		return m, m.reload()
	}
	return m, nil
}

// handleMouse feeds header presses and the following motion and release
// into the table's gesture state machine. x is made table relative.
func (m Model) handleMouse(msg tea.MouseMsg) Model {
	x := msg.X - margin

	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.scroll(-1)
			return m
		case tea.MouseButtonWheelDown:
			m.scroll(1)
			return m
		}
		if msg.Y != headerLine {
			return m
		}
		colKey, target, ok := hit(m.canvas.view, x)
		if !ok {
			return m
		}
		if slices.Contains(m.focusable(), colKey) {
			m.focus = colKey
		}

		var err error
		if target == layout.TargetResizeHandle && msg.Button == tea.MouseButtonLeft {
			err = m.table.StartResize(colKey, x)
		} else {
			err = m.table.BeginReorder(colKey, target, pointerButton(msg.Button), x)
		}
		if errors.Is(err, layout.ErrInteractionBusy) {
			m.fail(err)
		}

	case tea.MouseActionMotion:
		m.table.PointerMove(x)

	case tea.MouseActionRelease:
		m.table.PointerUp(x)
	}
	return m
}

func pointerButton(b tea.MouseButton) layout.Button {
	switch b {
	case tea.MouseButtonLeft:
		return layout.ButtonPrimary
	case tea.MouseButtonMiddle:
		return layout.ButtonMiddle
	default:
		return layout.ButtonSecondary
	}
}

// focusable returns the visible unlocked columns in display order.
func (m Model) focusable() []string {
	var keys []string
	for _, c := range m.table.Columns() {
		if c.Visible() && !c.Locked {
			keys = append(keys, c.Key)
		}
	}
	if len(keys) == 0 {
		keys = append(keys, m.table.Order()[0])
	}
	return keys
}

func (m *Model) moveFocus(delta int) {
	keys := m.focusable()
	i := slices.Index(keys, m.focus)
	if i < 0 {
		m.focus = keys[0]
		return
	}
	m.focus = keys[max(0, min(len(keys)-1, i+delta))]
}

func (m *Model) label(colKey string) string {
	if c, ok := m.table.Column(colKey); ok {
		return c.Label
	}
	return colKey
}

func (m *Model) resizeFocused(delta int) {
	c, ok := m.table.Column(m.focus)
	if !ok {
		return
	}
	before := c.Width
	if err := m.table.ResizeBy(m.focus, delta); err != nil {
		if errors.Is(err, layout.ErrNotResizable) {
			m.info("%s cannot be resized", m.label(m.focus))
			return
		}
		m.fail(err)
		return
	}

	c, _ = m.table.Column(m.focus)
	switch {
	case c.Width == before && delta < 0:
		m.info("%s is at its minimum width", c.Label)
	case c.Width == before:
		m.info("%s is at its maximum width", c.Label)
	default:
		m.info("%s width %d", c.Label, c.Width)
	}
}

// moveFocused moves the focused column past its next visible neighbour.
func (m *Model) moveFocused(delta int) {
	order := m.table.Order()
	from := slices.Index(order, m.focus)
	if from < 0 {
		return
	}
	to := from + delta
	for to >= 0 && to < len(order) {
		if c, _ := m.table.Column(order[to]); c.Visible() {
			break
		}
		to += delta
	}
	if to < 0 || to >= len(order) {
		return
	}

	if err := m.table.MoveColumn(m.focus, to); err != nil {
		if errors.Is(err, layout.ErrNotOrderable) || errors.Is(err, layout.ErrReorderDisabled) {
			m.info("%s cannot move there", m.label(m.focus))
			return
		}
		m.fail(err)
		return
	}
	m.info("Moved %s", m.label(m.focus))
}

func (m *Model) hideFocused() {
	if len(m.focusable()) < 2 {
		m.info("The last column cannot be hidden")
		return
	}
	hidden := m.focus
	m.moveFocus(1)
	if m.focus == hidden {
		m.moveFocus(-1)
	}
	if err := m.table.SetVisible(hidden, false); err != nil {
		m.fail(err)
		return
	}
	m.table.Normalize()
	m.info("Hid %s", m.label(hidden))
}

func (m *Model) showAll() {
	for _, c := range m.table.Columns() {
		if !c.Visible() {
			_ = m.table.SetVisible(c.Key, true)
		}
	}
	m.table.Normalize()
}

func (m *Model) bodyHeight() int {
	chrome := 4 + lipgloss.Height(m.help.View(m.keymap))
	return max(1, m.height-chrome)
}

func (m *Model) scroll(delta int) {
	m.offset += delta
	m.clampOffset()
}

func (m *Model) clampOffset() {
	m.offset = max(0, min(m.offset, len(m.lines.rows)-m.bodyHeight()))
}

func (m *Model) info(format string, args ...any) {
	m.status = fmt.Sprintf(format, args...)
	m.lastError = nil
}

func (m *Model) fail(err error) {
	m.logger.Debug("Editor action failed", "table", m.tableID, "error", err)
	m.status = err.Error()
	m.lastError = err
}

// View renders the editor.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.canvas.drawn {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			m.theme.Muted.Render("Measuring terminal..."))
	}

	p := painter{theme: m.theme, right: m.lines.right, styles: m.lines.styles}
	v := m.canvas.view
	dragging, _, _ := m.table.DragTarget()

	out := []string{
		p.title(m.doc.Quote.Title, m.detail()),
		p.header(v, m.focus, dragging),
		p.rule(v),
	}

	rows := v.Rows
	end := min(len(rows), m.offset+m.bodyHeight())
	for _, r := range rows[min(m.offset, end):end] {
		out = append(out, p.row(v, r))
	}
	for len(out) < 3+m.bodyHeight() {
		out = append(out, "")
	}

	out = append(out, m.statusLine(v), m.help.View(m.keymap))
	return strings.Join(out, "\n")
}

func (m Model) detail() string {
	t := m.doc.Totals
	return fmt.Sprintf("%s · %d lines · total %s",
		m.doc.Quote.Format, model.ItemCount(m.doc.Groups), t.GrandTotal.StringFixed(2))
}

func (m Model) statusLine(v layout.View) string {
	switch v.State {
	case layout.StateResizeArmed, layout.StateResizing:
		for _, c := range v.Columns {
			if c.Key == m.focus {
				text := fmt.Sprintf("Resizing %s: %d", c.Label, c.Width)
				if c.Bound != layout.BoundNone {
					text += " (" + c.Bound.String() + ")"
				}
				return strings.Repeat(" ", margin) + m.theme.StatusWarning.Render(text)
			}
		}
	case layout.StateReordering:
		if colKey, index, ok := m.table.DragTarget(); ok {
			text := fmt.Sprintf("Moving %s to position %d", m.label(colKey), index+1)
			return strings.Repeat(" ", margin) + m.theme.StatusWarning.Render(text)
		}
	}

	if m.lastError != nil {
		return strings.Repeat(" ", margin) + m.theme.StatusError.Render(m.status)
	}
	return strings.Repeat(" ", margin) + m.theme.StatusInfo.Render(m.status)
}
