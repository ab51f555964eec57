package layout

import (
	"context"
	"time"
)

// DefaultFrameBudget is the number of frames Stabilize waits at most.
const DefaultFrameBudget = 12

// FrameSource blocks until the next frame.
type FrameSource interface {
	Frame(ctx context.Context) error
}

// TickerFrames emits frames at a fixed interval.
type TickerFrames struct {
	ticker *time.Ticker
}

// NewTickerFrames starts a frame ticker. Call Stop when done.
func NewTickerFrames(interval time.Duration) *TickerFrames {
	return &TickerFrames{ticker: time.NewTicker(interval)}
}

// Frame waits for the next tick.
func (f *TickerFrames) Frame(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.ticker.C:
		return nil
	}
}

// Stop releases the ticker.
func (f *TickerFrames) Stop() {
	f.ticker.Stop()
}

// Stabilize re-measures once per frame until two consecutive measurements
// agree or budget frames have passed. It returns the last measurement and
// whether it settled.
func Stabilize(ctx context.Context, frames FrameSource, budget int, measure func() Container) (Container, bool, error) {
	if budget <= 0 {
		budget = DefaultFrameBudget
	}

	last := measure()
	for i := 0; i < budget; i++ {
		if err := frames.Frame(ctx); err != nil {
			return last, false, err
		}
		next := measure()
		if next == last {
			return next, true, nil
		}
		last = next
	}
	return last, false, nil
}

// Restabilize waits for the container to settle, then normalizes against
// the final measurement.
func (t *Table) Restabilize(ctx context.Context, frames FrameSource, budget int, measure func() Container) (int, error) {
	c, settled, err := Stabilize(ctx, frames, budget, measure)
	if err != nil {
		return 0, err
	}
	if !settled {
		t.logger.Debug("Container width did not settle", "table", t.id, "width", c.ContentWidth())
	}
	t.SetContainer(c)
	return t.Normalize(), nil
}
