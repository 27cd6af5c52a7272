package fetch

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Refresher runs fetch cycles for one collection: fetch, then either replace
// the snapshot and hand the result to the sink, or log and keep the old one.
type Refresher[T any] struct {
	name     string
	source   Source[T]
	snapshot *Snapshot[T]
	sink     func([]T)
	logger   *slog.Logger
	now      func() time.Time

	// commit pairs snapshot replacement with the sink call so overlapping
	// cycles cannot leave the sink behind the snapshot.
	commit sync.Mutex
}

// NewRefresher wires a source to a snapshot and an optional sink.
func NewRefresher[T any](name string, source Source[T], sink func([]T), logger *slog.Logger) *Refresher[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher[T]{
		name:     name,
		source:   source,
		snapshot: &Snapshot[T]{},
		sink:     sink,
		logger:   logger.With("feed", name),
		now:      time.Now,
	}
}

// Name returns the feed name.
func (r *Refresher[T]) Name() string {
	return r.name
}

// Snapshot returns the snapshot the refresher writes to.
func (r *Refresher[T]) Snapshot() *Snapshot[T] {
	return r.snapshot
}

// Refresh performs one cycle. Errors are logged and returned; the snapshot
// is left untouched on any error. Results arriving after ctx is done are
// discarded.
func (r *Refresher[T]) Refresh(ctx context.Context) error {
	start := r.now()
	items, err := r.source.Fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			r.logger.Debug("fetch abandoned", "err", err)
			return ctx.Err()
		}
		r.logger.Error("fetch failed, keeping last snapshot", "err", err)
		return err
	}
	if err := ctx.Err(); err != nil {
		r.logger.Debug("discarding result after cancellation", "count", len(items))
		return err
	}

	r.commit.Lock()
	defer r.commit.Unlock()

	r.snapshot.Replace(items, r.now())
	if r.sink != nil {
		r.sink(items)
	}
	r.logger.Info("snapshot updated", "count", len(items), "took", r.now().Sub(start))
	return nil
}

// Poll adapts the refresher to a scheduler job body.
func (r *Refresher[T]) Poll(ctx context.Context) {
	_ = r.Refresh(ctx)
}
