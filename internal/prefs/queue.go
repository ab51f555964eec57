package prefs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultDebounce is the debounce window used when none is configured.
const DefaultDebounce = 400 * time.Millisecond

// ErrQueueClosed is returned by Request after Close.
var ErrQueueClosed = errors.New("preference queue closed")

// Saver writes one payload for one context.
type Saver interface {
	Save(ctx context.Context, c Context, p Payload) error
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, c Context, p Payload) error

// Save calls f.
func (f SaverFunc) Save(ctx context.Context, c Context, p Payload) error {
	return f(ctx, c, p)
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithDebounce sets the debounce window.
func WithDebounce(d time.Duration) QueueOption {
	return func(q *Queue) { q.window = d }
}

// WithClock replaces the timer source.
func WithClock(c Clock) QueueOption {
	return func(q *Queue) { q.clock = c }
}

// WithSaveTimeout bounds each dispatched save.
func WithSaveTimeout(d time.Duration) QueueOption {
	return func(q *Queue) { q.timeout = d }
}

// WithOnSuccess registers the callback run after every successful save,
// including saves skipped because the payload was already saved.
func WithOnSuccess(fn func(Context, Payload)) QueueOption {
	return func(q *Queue) { q.onSuccess = fn }
}

// WithOnError registers the callback run after a failed save.
func WithOnError(fn func(Context, Payload, error)) QueueOption {
	return func(q *Queue) { q.onError = fn }
}

// WithQueueLogger sets the queue logger.
func WithQueueLogger(logger *slog.Logger) QueueOption {
	return func(q *Queue) { q.logger = logger }
}

type contextState struct {
	ctx       Context
	timer     Timer
	pending   *Payload
	lastSaved *Payload
	gen       uint64
	inFlight  bool
	retry     bool
}

// Queue coalesces preference saves per context. Within one context at most
// one save is in flight and at most one follow-up is queued.
type Queue struct {
	saver     Saver
	clock     Clock
	logger    *slog.Logger
	onSuccess func(Context, Payload)
	onError   func(Context, Payload, error)
	states    map[string]*contextState
	wg        sync.WaitGroup
	mu        sync.Mutex
	window    time.Duration
	timeout   time.Duration
	closed    bool
}

// NewQueue creates a queue that writes through saver.
func NewQueue(saver Saver, opts ...QueueOption) *Queue {
	q := &Queue{
		saver:   saver,
		clock:   RealClock(),
		logger:  slog.Default(),
		states:  make(map[string]*contextState),
		window:  DefaultDebounce,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Queue) state(c Context) *contextState {
	key := c.Key()
	st, ok := q.states[key]
	if !ok {
		st = &contextState{ctx: c.Normalized()}
		q.states[key] = st
	}
	return st
}

// Seed records p as already saved for c, typically after loading it.
func (q *Queue) Seed(c Context, p Payload) {
	q.mu.Lock()
	defer q.mu.Unlock()
	saved := p.Clone()
	q.state(c).lastSaved = &saved
}

// LastSaved returns the last payload saved for c.
func (q *Queue) LastSaved(c Context) (Payload, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	st, ok := q.states[c.Key()]
	if !ok || st.lastSaved == nil {
		return Payload{}, false
	}
	return st.lastSaved.Clone(), true
}

// Pending reports whether c has a payload waiting for dispatch.
func (q *Queue) Pending(c Context) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	st, ok := q.states[c.Key()]
	return ok && st.pending != nil
}

// Request schedules p to be saved for c after the debounce window. A payload
// equal to the last saved one is reported as saved without dispatching.
func (q *Queue) Request(c Context, p Payload) error {
	p = p.Clone()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	st := q.state(c)

	if st.inFlight {
		st.pending = &p
		st.retry = true
		if st.timer != nil {
			st.timer.Stop()
			st.timer = nil
		}
		q.mu.Unlock()
		return nil
	}

	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}

	if st.lastSaved != nil && st.lastSaved.Equal(p) {
		st.pending = nil
		q.mu.Unlock()
		q.succeeded(st.ctx, p)
		return nil
	}

	st.pending = &p
	st.gen++
	key, gen := c.Key(), st.gen
	st.timer = q.clock.AfterFunc(q.window, func() { q.fire(key, gen) })
	q.mu.Unlock()
	return nil
}

// fire dispatches the pending payload of a context once its window elapses.
func (q *Queue) fire(key string, gen uint64) {
	q.mu.Lock()
	st, ok := q.states[key]
	if !ok || st.gen != gen || st.pending == nil || st.inFlight {
		q.mu.Unlock()
		return
	}
	st.timer = nil
	p := *st.pending
	st.pending = nil
	st.inFlight = true
	q.wg.Add(1)
	q.mu.Unlock()

	go q.dispatch(context.Background(), st, p)
}

// dispatch runs one save and then at most one follow-up requested while it
// was in flight.
func (q *Queue) dispatch(ctx context.Context, st *contextState, p Payload) {
	defer q.wg.Done()

	for {
		err := q.save(ctx, st.ctx, p)

		q.mu.Lock()
		if err == nil {
			saved := p.Clone()
			st.lastSaved = &saved
		}
		var next *Payload
		if st.retry && st.pending != nil {
			next = st.pending
			st.pending = nil
		}
		st.retry = false
		skip := next != nil && st.lastSaved != nil && st.lastSaved.Equal(*next)
		st.inFlight = next != nil && !skip
		q.mu.Unlock()

		if err != nil {
			q.failed(st.ctx, p, err)
		} else {
			q.succeeded(st.ctx, p)
		}

		if next == nil {
			return
		}
		if skip {
			q.succeeded(st.ctx, *next)
			return
		}
		p = *next
	}
}

func (q *Queue) save(ctx context.Context, c Context, p Payload) error {
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}
	return q.saver.Save(ctx, c, p)
}

func (q *Queue) succeeded(c Context, p Payload) {
	q.logger.Debug("Saved table preferences", "context", c.Key())
	if q.onSuccess != nil {
		q.onSuccess(c, p)
	}
}

func (q *Queue) failed(c Context, p Payload, err error) {
	q.logger.Warn("Failed to save table preferences", "context", c.Key(), "error", err)
	if q.onError != nil {
		q.onError(c, p, err)
	}
}

// Flush cancels every pending debounce timer, dispatches the pending
// payloads immediately and waits for all in-flight saves to settle.
func (q *Queue) Flush(ctx context.Context) {
	type job struct {
		st *contextState
		p  Payload
	}
	var jobs []job

	q.mu.Lock()
	for _, st := range q.states {
		if st.timer != nil {
			st.timer.Stop()
			st.timer = nil
		}
		if st.pending == nil || st.inFlight {
			continue
		}
		jobs = append(jobs, job{st: st, p: *st.pending})
		st.pending = nil
		st.inFlight = true
		q.wg.Add(1)
	}
	q.mu.Unlock()

	for _, j := range jobs {
		q.dispatch(ctx, j.st, j.p)
	}
	q.wg.Wait()
}

// FlushContext flushes a single context, as on table teardown.
func (q *Queue) FlushContext(ctx context.Context, c Context) {
	q.mu.Lock()
	st, ok := q.states[c.Key()]
	if !ok {
		q.mu.Unlock()
		return
	}
	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}
	if st.pending == nil || st.inFlight {
		q.mu.Unlock()
		return
	}
	p := *st.pending
	st.pending = nil
	st.inFlight = true
	q.wg.Add(1)
	q.mu.Unlock()

	q.dispatch(ctx, st, p)
}

// Close flushes the queue and rejects later requests.
func (q *Queue) Close(ctx context.Context) {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.Flush(ctx)
}
