package layout

import (
	"fmt"
	"log/slog"
	"slices"
)

// Header is one header cell as found in markup.
type Header struct {
	Key   string
	Label string
}

// Cell is one keyed body cell.
type Cell struct {
	Key  string
	Text string
}

// Row is one body row. Rows with a colspan cell are never reordered.
type Row struct {
	ID      string
	Cells   []Cell
	Colspan bool
	// Disabled rows failed the markup contract and are skipped by reorder.
	Disabled bool
}

// Column is the runtime descriptor of one column.
type Column struct {
	Key   string
	Label string
	ColumnConfig
	// Width is the runtime-assigned width; 0 means unassigned.
	Width int
	Bound BoundHit
}

// Visible reports whether the column takes part in layout.
func (c *Column) Visible() bool {
	return !c.Hidden
}

// View is what a Renderer receives after every change.
type View struct {
	Columns    []Column
	Rows       []Row
	Dividers   DividerState
	FrameWidth int
	State      InteractionState
	Sortable   bool
}

// Renderer draws a table. The table model is the source of truth; renderers
// never feed state back.
type Renderer interface {
	Render(v View)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(View)

// Render calls f(v).
func (f RendererFunc) Render(v View) { f(v) }

// Option configures a Table.
type Option func(*Table)

// WithRenderer sets the rendering target.
func WithRenderer(r Renderer) Option {
	return func(t *Table) { t.renderer = r }
}

// WithSettleHandler registers the callback run when a resize or reorder
// gesture settles, typically a preference save.
func WithSettleHandler(fn func(*Table)) Option {
	return func(t *Table) { t.onSettle = fn }
}

// WithLogger sets the table logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Table) { t.logger = logger }
}

// Table is the in-memory model of one managed table.
type Table struct {
	logger     *slog.Logger
	renderer   Renderer
	onSettle   func(*Table)
	resize     *resizeSession
	drag       *dragSession
	saved      map[string]int
	id         string
	tcfg       TableConfig
	columns    []*Column
	rows       []*Row
	cfg        Config
	container  Container
	frameWidth int
	state      InteractionState
	reorder    bool
}

// NewTable builds a table model from header and row markup. Header contract
// violations return an error and the table must not be managed; row
// violations disable the affected rows (and reorder when reorder is on).
func NewTable(id string, cfg Config, tcfg TableConfig, headers []Header, rows []Row, opts ...Option) (*Table, error) {
	if err := validateHeaders(headers); err != nil {
		return nil, fmt.Errorf("table %s: %w", id, err)
	}

	t := &Table{
		id:      id,
		cfg:     cfg,
		tcfg:    tcfg,
		reorder: tcfg.Reorder,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}

	for _, h := range headers {
		t.columns = append(t.columns, &Column{
			Key:          h.Key,
			Label:        h.Label,
			ColumnConfig: tcfg.Columns[h.Key],
		})
	}

	for i := range rows {
		r := rows[i]
		r.Cells = slices.Clone(r.Cells)
		t.rows = append(t.rows, &r)
	}
	t.checkRows()

	return t, nil
}

// ID returns the table identifier.
func (t *Table) ID() string { return t.id }

// Key returns the table config key used for preference contexts.
func (t *Table) Key() string { return t.tcfg.Key }

// State returns the current interaction state.
func (t *Table) State() InteractionState { return t.state }

// FrameWidth returns the last computed total width.
func (t *Table) FrameWidth() int { return t.frameWidth }

// ReorderEnabled reports whether drag reorder is available for the table.
func (t *Table) ReorderEnabled() bool { return t.reorder }

// Sortable reports whether a reorder gesture may start right now.
func (t *Table) Sortable() bool {
	return t.reorder && !t.state.resizing()
}

// SetContainer records a new container measurement.
func (t *Table) SetContainer(c Container) { t.container = c }

// Container returns the last container measurement.
func (t *Table) Container() Container { return t.container }

// Order returns the column keys in display order.
func (t *Table) Order() []string {
	keys := make([]string, len(t.columns))
	for i, c := range t.columns {
		keys[i] = c.Key
	}
	return keys
}

// Column returns the column with the given key.
func (t *Table) Column(key string) (*Column, bool) {
	for _, c := range t.columns {
		if c.Key == key {
			return c, true
		}
	}
	return nil, false
}

// Headers returns the header cells in display order.
func (t *Table) Headers() []Header {
	out := make([]Header, len(t.columns))
	for i, c := range t.columns {
		out[i] = Header{Key: c.Key, Label: c.Label}
	}
	return out
}

// Columns returns copies of the column descriptors in display order.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.columns))
	for i, c := range t.columns {
		out[i] = *c
	}
	return out
}

// Rows returns copies of the body rows.
func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	for i, r := range t.rows {
		out[i] = *r
		out[i].Cells = slices.Clone(r.Cells)
	}
	return out
}

// SetVisible shows or hides a column.
func (t *Table) SetVisible(key string, visible bool) error {
	c, ok := t.Column(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownColumn, key)
	}
	c.Hidden = !visible
	t.render()
	return nil
}

// AddRow appends a body row, validating it against the header keys.
func (t *Table) AddRow(r Row) error {
	r.Cells = slices.Clone(r.Cells)
	if t.reorder && !r.Colspan {
		if err := validateRow(t.Order(), r); err != nil {
			r.Disabled = true
			t.rows = append(t.rows, &r)
			t.render()
			return err
		}
	}
	t.reorderRow(&r, t.Order())
	t.rows = append(t.rows, &r)
	t.render()
	return nil
}

// SetRows replaces every body row and re-validates them.
func (t *Table) SetRows(rows []Row) {
	t.rows = t.rows[:0]
	for i := range rows {
		r := rows[i]
		r.Cells = slices.Clone(r.Cells)
		t.rows = append(t.rows, &r)
	}
	t.checkRows()
	order := t.Order()
	for _, r := range t.rows {
		t.reorderRow(r, order)
	}
	t.render()
}

// checkRows disables rows that break the contract.
func (t *Table) checkRows() {
	if !t.reorder {
		return
	}
	order := t.Order()
	for _, r := range t.rows {
		if r.Colspan {
			continue
		}
		r.Disabled = validateRow(order, *r) != nil
	}
}

// View snapshots the table for rendering.
func (t *Table) View() View {
	return View{
		Columns:    t.Columns(),
		Rows:       t.Rows(),
		Dividers:   SyncDividers(t.columnStates()),
		FrameWidth: t.frameWidth,
		State:      t.state,
		Sortable:   t.Sortable(),
	}
}

func (t *Table) render() {
	if t.renderer != nil {
		t.renderer.Render(t.View())
	}
}

func (t *Table) settle() {
	t.render()
	if t.onSettle != nil {
		t.onSettle(t)
	}
}

func (t *Table) columnStates() []ColumnState {
	states := make([]ColumnState, len(t.columns))
	for i, c := range t.columns {
		states[i] = ColumnState{
			Key:       c.Key,
			Locked:    c.Locked,
			Visible:   c.Visible(),
			Resizable: c.Resizable,
		}
	}
	return states
}

func (t *Table) visibleColumns() []*Column {
	out := make([]*Column, 0, len(t.columns))
	for _, c := range t.columns {
		if c.Visible() {
			out = append(out, c)
		}
	}
	return out
}
