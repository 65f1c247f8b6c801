package engine

import (
	stdcontext "context"
	"strings"

	entctx "signalstore/internal/context"
	"signalstore/internal/filter"
	"signalstore/internal/models"
	"signalstore/internal/storage"
)

// spanResolver answers filter.Resolver lookups against spans, memoizing
// the entctx.SpanContext per timestamp so AND'd residual leaves touching
// the same span don't re-walk its parent chain.
type spanResolver struct {
	ctx   stdcontext.Context
	store storage.Storage
	cache map[models.Timestamp]*entctx.SpanContext
}

func newSpanResolver(ctx stdcontext.Context, store storage.Storage) *spanResolver {
	return &spanResolver{ctx: ctx, store: store, cache: make(map[models.Timestamp]*entctx.SpanContext)}
}

func (r *spanResolver) spanContext(ts models.Timestamp) (*entctx.SpanContext, error) {
	if sc, ok := r.cache[ts]; ok {
		return sc, nil
	}
	span, err := r.store.GetSpan(r.ctx, ts)
	if err != nil {
		return nil, err
	}
	sc := entctx.NewSpanContext(r.store, span)
	r.cache[ts] = sc
	return sc, nil
}

func (r *spanResolver) Attribute(ts models.Timestamp, name string) (models.Value, bool) {
	sc, err := r.spanContext(ts)
	if err != nil {
		return models.Value{}, false
	}
	attrs, err := sc.EffectiveAttributes(r.ctx)
	if err != nil {
		return models.Value{}, false
	}
	v, ok := attrs[name]
	return v, ok
}

func (r *spanResolver) Builtin(ts models.Timestamp, name string) (models.Value, bool) {
	sc, err := r.spanContext(ts)
	if err != nil {
		return models.Value{}, false
	}
	span := sc.Span()
	switch name {
	case filter.BuiltinLevel:
		return models.Str(strings.ToLower(span.Level.String())), true
	case filter.BuiltinCreated:
		return models.I64(int64(span.CreatedAt)), true
	case filter.BuiltinClosed:
		if span.ClosedAt == nil {
			return models.Value{}, false
		}
		return models.I64(int64(*span.ClosedAt)), true
	case filter.BuiltinDuration:
		d, ok := span.Duration()
		if !ok {
			return models.Value{}, false
		}
		return models.I64(d), true
	case filter.BuiltinParent:
		if span.ParentKey == nil {
			return models.Value{}, false
		}
		return models.I64(int64(*span.ParentKey)), true
	default:
		return models.Value{}, false
	}
}

// eventResolver mirrors spanResolver for log events.
type eventResolver struct {
	ctx   stdcontext.Context
	store storage.Storage
	cache map[models.Timestamp]*entctx.EventContext
}

func newEventResolver(ctx stdcontext.Context, store storage.Storage) *eventResolver {
	return &eventResolver{ctx: ctx, store: store, cache: make(map[models.Timestamp]*entctx.EventContext)}
}

func (r *eventResolver) eventContext(ts models.Timestamp) (*entctx.EventContext, error) {
	if ec, ok := r.cache[ts]; ok {
		return ec, nil
	}
	event, err := r.store.GetEvent(r.ctx, ts)
	if err != nil {
		return nil, err
	}
	ec := entctx.NewEventContext(r.store, event)
	r.cache[ts] = ec
	return ec, nil
}

func (r *eventResolver) Attribute(ts models.Timestamp, name string) (models.Value, bool) {
	ec, err := r.eventContext(ts)
	if err != nil {
		return models.Value{}, false
	}
	attrs, err := ec.EffectiveAttributes(r.ctx)
	if err != nil {
		return models.Value{}, false
	}
	v, ok := attrs[name]
	return v, ok
}

func (r *eventResolver) Builtin(ts models.Timestamp, name string) (models.Value, bool) {
	ec, err := r.eventContext(ts)
	if err != nil {
		return models.Value{}, false
	}
	event := ec.Event()
	switch name {
	case filter.BuiltinLevel:
		return models.Str(strings.ToLower(event.Level.String())), true
	case filter.BuiltinCreated:
		return models.I64(int64(event.Timestamp)), true
	case filter.BuiltinContent:
		return models.Str(event.Content), true
	case filter.BuiltinTarget:
		if event.Target == "" {
			return models.Value{}, false
		}
		return models.Str(event.Target), true
	case filter.BuiltinFile:
		if event.File == "" {
			return models.Value{}, false
		}
		return models.Str(event.File), true
	case filter.BuiltinParent:
		if event.ParentKey == nil {
			return models.Value{}, false
		}
		return models.I64(int64(*event.ParentKey)), true
	default:
		return models.Value{}, false
	}
}
