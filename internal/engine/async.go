package engine

import (
	"context"
	"log/slog"
	"sync/atomic"

	"signalstore/internal/archive"
	"signalstore/internal/models"
	"signalstore/internal/subscription"
)

// AsyncEngine wraps a SyncEngine behind a single dedicated goroutine that
// drains a command channel, guaranteeing every mutation and query is
// applied in strict submission order. Grounded on the teacher's
// channel-based job queue in internal/workers/telemetry_analytics_worker.go
// (buffered chan of job structs, a dedicated goroutine loop, an
// atomic running flag, and a quit channel for shutdown), generalized from
// the teacher's multi-worker pool down to the single worker the engine's
// single-threaded-mutation invariant requires.
type AsyncEngine struct {
	commands chan command
	quit     chan struct{}
	running  atomic.Bool
	logger   *slog.Logger
}

type command struct {
	run func(*SyncEngine)
}

// NewAsyncEngine starts the dispatcher goroutine over sync. bufferSize
// bounds how many in-flight commands can queue before Submit blocks.
func NewAsyncEngine(sync *SyncEngine, bufferSize int) *AsyncEngine {
	a := &AsyncEngine{
		commands: make(chan command, bufferSize),
		quit:     make(chan struct{}),
		logger:   sync.logger,
	}
	a.running.Store(true)
	go a.loop(sync)
	return a
}

func (a *AsyncEngine) loop(sync *SyncEngine) {
	for {
		select {
		case cmd := <-a.commands:
			cmd.run(sync)
		case <-a.quit:
			// Drain whatever is already queued before exiting so a
			// Stop racing with in-flight Submits doesn't silently drop
			// replies the caller is blocked waiting on.
			for {
				select {
				case cmd := <-a.commands:
					cmd.run(sync)
				default:
					return
				}
			}
		}
	}
}

// Stop signals the worker to drain its remaining queue and exit. The
// command channel is never closed, so a Submit that reaches it after the
// worker has exited never gets a reply and blocks forever — callers must
// not submit concurrently with shutdown.
func (a *AsyncEngine) Stop() {
	if a.running.CompareAndSwap(true, false) {
		close(a.quit)
	}
}

func submit[T any](a *AsyncEngine, f func(*SyncEngine) T) T {
	reply := make(chan T, 1)
	a.commands <- command{run: func(e *SyncEngine) {
		reply <- f(e)
	}}
	return <-reply
}

type insertSpanResult struct {
	span *models.Span
	err  error
}

func (a *AsyncEngine) InsertResource(ctx context.Context, r *models.Resource) (*models.Resource, error) {
	type result struct {
		r   *models.Resource
		err error
	}
	res := submit(a, func(e *SyncEngine) result {
		r, err := e.InsertResource(ctx, r)
		return result{r, err}
	})
	return res.r, res.err
}

func (a *AsyncEngine) InsertSpan(ctx context.Context, s *models.Span) (*models.Span, error) {
	res := submit(a, func(e *SyncEngine) insertSpanResult {
		s, err := e.InsertSpan(ctx, s)
		return insertSpanResult{s, err}
	})
	return res.span, res.err
}

func (a *AsyncEngine) InsertSpanEvent(ctx context.Context, se *models.SpanEvent) (*models.SpanEvent, error) {
	type result struct {
		se  *models.SpanEvent
		err error
	}
	res := submit(a, func(e *SyncEngine) result {
		se, err := e.InsertSpanEvent(ctx, se)
		return result{se, err}
	})
	return res.se, res.err
}

func (a *AsyncEngine) InsertEvent(ctx context.Context, ev *models.Event) (*models.Event, error) {
	type result struct {
		ev  *models.Event
		err error
	}
	res := submit(a, func(e *SyncEngine) result {
		ev, err := e.InsertEvent(ctx, ev)
		return result{ev, err}
	})
	return res.ev, res.err
}

func (a *AsyncEngine) UpdateSpanClosed(ctx context.Context, at models.SpanKey, closedAt models.Timestamp, busyNanos *uint64) error {
	return submit(a, func(e *SyncEngine) error {
		return e.UpdateSpanClosed(ctx, at, closedAt, busyNanos)
	})
}

func (a *AsyncEngine) UpdateSpanAttributes(ctx context.Context, at models.SpanKey, attrs map[string]models.Value) error {
	return submit(a, func(e *SyncEngine) error {
		return e.UpdateSpanAttributes(ctx, at, attrs)
	})
}

func (a *AsyncEngine) UpdateSpanLink(ctx context.Context, at models.SpanKey, link models.SpanLink) error {
	return submit(a, func(e *SyncEngine) error {
		return e.UpdateSpanLink(ctx, at, link)
	})
}

func (a *AsyncEngine) UpdateSpanParents(ctx context.Context, parent models.SpanKey, children []models.SpanKey) error {
	return submit(a, func(e *SyncEngine) error {
		return e.UpdateSpanParents(ctx, parent, children)
	})
}

func (a *AsyncEngine) UpdateEventParents(ctx context.Context, parent models.SpanKey, events []models.EventKey) error {
	return submit(a, func(e *SyncEngine) error {
		return e.UpdateEventParents(ctx, parent, events)
	})
}

func (a *AsyncEngine) QuerySpan(ctx context.Context, q Query) ([]*models.SpanView, error) {
	type result struct {
		views []*models.SpanView
		err   error
	}
	res := submit(a, func(e *SyncEngine) result {
		views, err := e.QuerySpan(ctx, q)
		return result{views, err}
	})
	return res.views, res.err
}

func (a *AsyncEngine) QuerySpanCount(ctx context.Context, q Query) (int, error) {
	type result struct {
		n   int
		err error
	}
	res := submit(a, func(e *SyncEngine) result {
		n, err := e.QuerySpanCount(ctx, q)
		return result{n, err}
	})
	return res.n, res.err
}

func (a *AsyncEngine) QueryEvent(ctx context.Context, q Query) ([]*models.EventView, error) {
	type result struct {
		views []*models.EventView
		err   error
	}
	res := submit(a, func(e *SyncEngine) result {
		views, err := e.QueryEvent(ctx, q)
		return result{views, err}
	})
	return res.views, res.err
}

func (a *AsyncEngine) QueryEventCount(ctx context.Context, q Query) (int, error) {
	type result struct {
		n   int
		err error
	}
	res := submit(a, func(e *SyncEngine) result {
		n, err := e.QueryEventCount(ctx, q)
		return result{n, err}
	})
	return res.n, res.err
}

func (a *AsyncEngine) SubscribeSpans(ctx context.Context, expr string, bufferSize int) (subscription.ID, <-chan subscription.Response[*models.SpanView], error) {
	type result struct {
		id  subscription.ID
		ch  <-chan subscription.Response[*models.SpanView]
		err error
	}
	res := submit(a, func(e *SyncEngine) result {
		id, ch, err := e.SubscribeSpans(ctx, expr, bufferSize)
		return result{id, ch, err}
	})
	return res.id, res.ch, res.err
}

func (a *AsyncEngine) SubscribeEvents(ctx context.Context, expr string, bufferSize int) (subscription.ID, <-chan subscription.Response[*models.EventView], error) {
	type result struct {
		id  subscription.ID
		ch  <-chan subscription.Response[*models.EventView]
		err error
	}
	res := submit(a, func(e *SyncEngine) result {
		id, ch, err := e.SubscribeEvents(ctx, expr, bufferSize)
		return result{id, ch, err}
	})
	return res.id, res.ch, res.err
}

func (a *AsyncEngine) Unsubscribe(id subscription.ID) {
	submit(a, func(e *SyncEngine) struct{} {
		e.Unsubscribe(id)
		return struct{}{}
	})
}

func (a *AsyncEngine) DropSpans(ctx context.Context, keys []models.SpanKey) error {
	return submit(a, func(e *SyncEngine) error {
		return e.DropSpans(ctx, keys)
	})
}

func (a *AsyncEngine) DropEvents(ctx context.Context, keys []models.EventKey) error {
	return submit(a, func(e *SyncEngine) error {
		return e.DropEvents(ctx, keys)
	})
}

func (a *AsyncEngine) DropResources(ctx context.Context, keys []models.ResourceKey) error {
	return submit(a, func(e *SyncEngine) error {
		return e.DropResources(ctx, keys)
	})
}

func (a *AsyncEngine) AttachArchiver(x *archive.Exporter) {
	submit(a, func(e *SyncEngine) struct{} {
		e.AttachArchiver(x)
		return struct{}{}
	})
}
