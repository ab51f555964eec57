package layout

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Veraticus/quotewright/internal/events"
	"github.com/Veraticus/quotewright/internal/prefs"
)

// PrefsQueue is the part of prefs.Queue the registry needs.
type PrefsQueue interface {
	Request(c prefs.Context, p prefs.Payload) error
	Seed(c prefs.Context, p prefs.Payload)
	FlushContext(ctx context.Context, c prefs.Context)
}

type managedTable struct {
	table *Table
	ctx   prefs.Context
}

// Registry tracks every managed table, saves their preferences when a
// gesture settles and re-scans them all on dispatcher events.
type Registry struct {
	logger    *slog.Logger
	validator *Validator
	queue     PrefsQueue
	tables    map[string]*managedTable
	unsub     []func()
	order     []string
	cfg       Config
	mu        sync.Mutex
}

// NewRegistry creates a registry subscribed to d. A nil queue disables
// preference saving.
func NewRegistry(cfg Config, d *events.Dispatcher, queue PrefsQueue, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		logger:    logger,
		validator: NewValidator(logger),
		queue:     queue,
		tables:    make(map[string]*managedTable),
		cfg:       cfg,
	}
	if d != nil {
		r.unsub = append(r.unsub,
			d.TableAdded.Subscribe(func(events.TableAdded) { r.Rescan() }),
			d.RowAdded.Subscribe(func(events.RowAdded) { r.Rescan() }),
			d.LayoutChanged.Subscribe(func(events.LayoutChanged) { r.Rescan() }),
		)
	}
	return r
}

// Manage validates the markup and starts managing a table. A header
// violation leaves the table unmanaged.
func (r *Registry) Manage(id string, tcfg TableConfig, headers []Header, rows []Row, pctx prefs.Context, opts ...Option) (*Table, error) {
	report := r.validator.Validate(id, headers, rows, tcfg.Reorder)
	if report.HeaderErr != nil {
		return nil, fmt.Errorf("table %s not managed: %w", id, report.HeaderErr)
	}

	opts = append([]Option{WithLogger(r.logger)}, opts...)
	opts = append(opts, WithSettleHandler(func(t *Table) { r.save(pctx, t) }))

	t, err := NewTable(id, r.cfg, tcfg, headers, rows, opts...)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if _, exists := r.tables[id]; !exists {
		r.order = append(r.order, id)
	}
	r.tables[id] = &managedTable{table: t, ctx: pctx}
	r.mu.Unlock()

	return t, nil
}

// Restore loads the saved preference for a managed table and applies it.
func (r *Registry) Restore(ctx context.Context, id string, backend prefs.Backend) error {
	m, ok := r.lookup(id)
	if !ok {
		return fmt.Errorf("%w: table %s", ErrUnknownTable, id)
	}
	p, found, err := backend.Load(ctx, m.ctx)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	if r.queue != nil {
		r.queue.Seed(m.ctx, p)
	}
	m.table.ApplyPreference(p)
	return nil
}

// Table returns a managed table by id.
func (r *Registry) Table(id string) (*Table, bool) {
	m, ok := r.lookup(id)
	if !ok {
		return nil, false
	}
	return m.table, true
}

// Rescan re-validates every managed table and re-normalizes its widths.
func (r *Registry) Rescan() {
	r.mu.Lock()
	tables := make([]*managedTable, 0, len(r.order))
	for _, id := range r.order {
		tables = append(tables, r.tables[id])
	}
	r.mu.Unlock()

	for _, m := range tables {
		t := m.table
		r.validator.Validate(t.id, t.Headers(), t.Rows(), t.reorder)
		t.checkRows()
		t.Normalize()
	}
}

// Release stops managing a table and flushes its pending save at once.
func (r *Registry) Release(ctx context.Context, id string) {
	m, ok := r.lookup(id)
	if !ok {
		return
	}

	r.mu.Lock()
	delete(r.tables, id)
	for i, k := range r.order {
		if k == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	r.validator.Forget(id)
	if r.queue != nil {
		r.queue.FlushContext(ctx, m.ctx)
	}
}

// Close unsubscribes the registry from its dispatcher.
func (r *Registry) Close() {
	for _, fn := range r.unsub {
		fn()
	}
	r.unsub = nil
}

func (r *Registry) lookup(id string) (*managedTable, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.tables[id]
	return m, ok
}

func (r *Registry) save(pctx prefs.Context, t *Table) {
	if r.queue == nil {
		return
	}
	if err := r.queue.Request(pctx, t.SafePayload()); err != nil {
		r.logger.Warn("Failed to queue table preferences", "table", t.id, "error", err)
	}
}
