package engine

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"signalstore/internal/archive"
	entctx "signalstore/internal/context"
	"signalstore/internal/filter"
	"signalstore/internal/index"
	"signalstore/internal/iterx"
	"signalstore/internal/models"
	"signalstore/internal/storage"
	"signalstore/internal/subscription"
)

// SyncEngine owns one storage backend and every secondary index rebuilt
// from it, and applies every mutation and query synchronously. It is not
// safe for concurrent use by multiple goroutines — AsyncEngine is the
// concurrency-safe façade built on top of it.
type SyncEngine struct {
	store  storage.Storage
	logger *slog.Logger

	resourceTime *index.TimeIndex

	spanTime     *index.TimeIndex
	spanLevel    *index.LevelIndex
	spanValue    *index.ValueIndex
	spanDuration *index.SpanDurationIndex
	spanParent   *index.ParentIndex
	spanEvents   *index.SpanEventIndex

	eventTime  *index.TimeIndex
	eventLevel *index.LevelIndex
	eventValue *index.ValueIndex

	wireSpanIDs map[models.FullSpanId]models.SpanKey

	subs *subscription.Manager

	// archiver is nil when the store runs transient-only (no cold-storage
	// export configured); every Drop* call tolerates that case.
	archiver *archive.Exporter
}

// AttachArchiver wires a background exporter so dropped entities are
// snapshotted to columnar archive files before their storage row and
// index entries disappear. Passing nil detaches it.
func (e *SyncEngine) AttachArchiver(x *archive.Exporter) {
	e.archiver = x
}

// NewSyncEngine rebuilds every index from store's current contents, the
// same "indexes are rebuilt from storage on open" contract every index
// type documents.
func NewSyncEngine(ctx context.Context, store storage.Storage, logger *slog.Logger) (*SyncEngine, error) {
	e := &SyncEngine{
		store:        store,
		logger:       logger,
		resourceTime: index.NewTimeIndex(),
		spanTime:     index.NewTimeIndex(),
		spanLevel:    index.NewLevelIndex(),
		spanValue:    index.NewValueIndex(),
		spanDuration: index.NewSpanDurationIndex(),
		spanParent:   index.NewParentIndex(),
		spanEvents:   index.NewSpanEventIndex(),
		eventTime:    index.NewTimeIndex(),
		eventLevel:   index.NewLevelIndex(),
		eventValue:   index.NewValueIndex(),
		wireSpanIDs:  make(map[models.FullSpanId]models.SpanKey),
		subs:         subscription.NewManager(),
	}

	resources, err := store.GetAllResources(ctx)
	if err != nil {
		return nil, WrapEngineError("storage_error", "rebuild resource index", err)
	}
	for _, r := range resources {
		e.resourceTime.Add(r.CreatedAt)
	}

	spans, err := store.GetAllSpans(ctx)
	if err != nil {
		return nil, WrapEngineError("storage_error", "rebuild span index", err)
	}
	for _, s := range spans {
		e.indexSpan(s)
	}
	// Parent links are bound in a second pass so forward references within
	// the rebuilt set resolve regardless of storage iteration order.
	for _, s := range spans {
		if s.ParentKey != nil {
			e.spanParent.BindSpanParent(s.CreatedAt, *s.ParentKey)
		}
	}

	spanEvents, err := store.GetAllSpanEvents(ctx)
	if err != nil {
		return nil, WrapEngineError("storage_error", "rebuild span-event index", err)
	}
	for _, se := range spanEvents {
		e.spanEvents.Add(se)
	}

	events, err := store.GetAllEvents(ctx)
	if err != nil {
		return nil, WrapEngineError("storage_error", "rebuild event index", err)
	}
	for _, ev := range events {
		e.indexEvent(ev)
		if ev.ParentKey != nil {
			e.spanParent.AddEventParent(ev.Timestamp, *ev.ParentKey)
		}
	}

	return e, nil
}

func (e *SyncEngine) indexSpan(s *models.Span) {
	e.spanTime.Add(s.CreatedAt)
	e.spanLevel.Add(s.Level, s.CreatedAt)
	for name, v := range s.Attributes {
		e.spanValue.Add(name, v, s.CreatedAt)
	}
	if d, ok := s.Duration(); ok {
		e.spanDuration.AddClosed(s.CreatedAt, d)
	} else {
		e.spanDuration.AddOpen(s.CreatedAt)
	}
	if !s.ID.IsZero() {
		e.wireSpanIDs[s.ID] = s.CreatedAt
	}
}

func (e *SyncEngine) indexEvent(ev *models.Event) {
	e.eventTime.Add(ev.Timestamp)
	e.eventLevel.Add(ev.Level, ev.Timestamp)
	for name, v := range ev.Attributes {
		e.eventValue.Add(name, v, ev.Timestamp)
	}
}

// uniqueTimestamp advances ts by one microsecond at a time until exists
// reports no collision, the tie-breaking rule §3 of the data model
// mandates for colliding insert timestamps.
func uniqueTimestamp(ctx context.Context, ts models.Timestamp, exists func(context.Context, models.Timestamp) (bool, error)) (models.Timestamp, error) {
	for {
		found, err := exists(ctx, ts)
		if err != nil {
			return 0, err
		}
		if !found {
			return ts, nil
		}
		ts++
	}
}

func spanFound(store storage.Storage) func(context.Context, models.Timestamp) (bool, error) {
	return func(ctx context.Context, ts models.Timestamp) (bool, error) {
		s, err := probe(store.GetSpan(ctx, ts))
		return s, err
	}
}

// probe adapts a (value, error) Get call into a (found, error) pair,
// treating *storage.ErrNotFound as "not found" and any other error as a
// genuine failure to propagate.
func probe[T any](v *T, err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if _, ok := err.(*storage.ErrNotFound); ok {
		return false, nil
	}
	return false, err
}

// InsertResource stores r, tie-breaking its timestamp on collision.
func (e *SyncEngine) InsertResource(ctx context.Context, r *models.Resource) (*models.Resource, error) {
	ts, err := uniqueTimestamp(ctx, r.CreatedAt, func(ctx context.Context, ts models.Timestamp) (bool, error) {
		return probe(e.store.GetResource(ctx, ts))
	})
	if err != nil {
		return nil, WrapEngineError("storage_error", "check resource collision", err)
	}
	r.CreatedAt = ts
	if err := e.store.InsertResource(ctx, r); err != nil {
		return nil, WrapEngineError("storage_error", "insert resource", err)
	}
	e.resourceTime.Add(ts)
	return r, nil
}

// InsertSpan stores s, rejecting a malformed or duplicate wire span id and
// tie-breaking its timestamp on collision.
func (e *SyncEngine) InsertSpan(ctx context.Context, s *models.Span) (*models.Span, error) {
	if s.ID.IsZero() {
		return nil, &InsertError{Kind: InvalidSpanIDKind}
	}
	if _, exists := e.wireSpanIDs[s.ID]; exists {
		return nil, &InsertError{Kind: DuplicateSpanID}
	}

	ts, err := uniqueTimestamp(ctx, s.CreatedAt, spanFound(e.store))
	if err != nil {
		return nil, WrapEngineError("storage_error", "check span collision", err)
	}
	s.CreatedAt = ts

	if err := e.store.InsertSpan(ctx, s); err != nil {
		return nil, WrapEngineError("storage_error", "insert span", err)
	}
	e.indexSpan(s)
	if s.ParentKey != nil {
		e.spanParent.AddSpanParent(s.CreatedAt, *s.ParentKey)
	}
	e.subs.NotifySpan(s.CreatedAt)
	return s, nil
}

// InsertSpanEvent stores a span-lifecycle marker.
func (e *SyncEngine) InsertSpanEvent(ctx context.Context, se *models.SpanEvent) (*models.SpanEvent, error) {
	ts, err := uniqueTimestamp(ctx, se.Timestamp, func(ctx context.Context, ts models.Timestamp) (bool, error) {
		return probe(e.store.GetSpanEvent(ctx, ts))
	})
	if err != nil {
		return nil, WrapEngineError("storage_error", "check span-event collision", err)
	}
	se.Timestamp = ts
	if err := e.store.InsertSpanEvent(ctx, se); err != nil {
		return nil, WrapEngineError("storage_error", "insert span event", err)
	}
	e.spanEvents.Add(se)
	return se, nil
}

// InsertEvent stores a log event, tie-breaking its timestamp on collision.
func (e *SyncEngine) InsertEvent(ctx context.Context, ev *models.Event) (*models.Event, error) {
	ts, err := uniqueTimestamp(ctx, ev.Timestamp, func(ctx context.Context, ts models.Timestamp) (bool, error) {
		return probe(e.store.GetEvent(ctx, ts))
	})
	if err != nil {
		return nil, WrapEngineError("storage_error", "check event collision", err)
	}
	ev.Timestamp = ts

	if err := e.store.InsertEvent(ctx, ev); err != nil {
		return nil, WrapEngineError("storage_error", "insert event", err)
	}
	e.indexEvent(ev)
	if ev.ParentKey != nil {
		e.spanParent.AddEventParent(ev.Timestamp, *ev.ParentKey)
	}
	e.subs.NotifyEvent(ev.Timestamp)
	return ev, nil
}

// UpdateSpanClosed records a span's close time and busy duration, moving it
// from the open to the closed bucket of the duration index.
func (e *SyncEngine) UpdateSpanClosed(ctx context.Context, at models.SpanKey, closedAt models.Timestamp, busyNanos *uint64) error {
	s, err := e.store.GetSpan(ctx, at)
	if err != nil {
		return e.unknownOrStorage(err)
	}
	if err := e.store.UpdateSpanClosed(ctx, at, closedAt, busyNanos); err != nil {
		return WrapEngineError("storage_error", "update span closed", err)
	}
	s.ClosedAt = &closedAt
	e.spanDuration.Close(at, int64(closedAt)-int64(s.CreatedAt))
	e.notifySpanAndDescendants(at)
	return nil
}

// UpdateSpanAttributes merges attrs into the span's stored attributes
// (last-writer-wins per key) and keeps the value index in step by
// removing the stale entry before adding the new one.
func (e *SyncEngine) UpdateSpanAttributes(ctx context.Context, at models.SpanKey, attrs map[string]models.Value) error {
	s, err := e.store.GetSpan(ctx, at)
	if err != nil {
		return e.unknownOrStorage(err)
	}
	// Snapshot the prior values before delegating to storage: Transient
	// hands back the same pointer it stores, so calling
	// store.UpdateSpanAttributes first would mutate s.Attributes in place
	// and destroy the "old" values the index needs to unwind.
	old := make(map[string]models.Value, len(attrs))
	for name := range attrs {
		if v, ok := s.Attributes[name]; ok {
			old[name] = v
		}
	}
	if err := e.store.UpdateSpanAttributes(ctx, at, attrs); err != nil {
		return WrapEngineError("storage_error", "update span attributes", err)
	}
	for name, v := range attrs {
		if prev, ok := old[name]; ok {
			e.spanValue.Remove(name, prev, at)
		}
		e.spanValue.Add(name, v, at)
	}
	// Every descendant's effective attribute view may have changed because
	// an ancestor's attributes did (§3 invariant 4).
	e.notifySpanAndDescendants(at)
	return nil
}

// UpdateSpanLink appends link to the span's recorded links.
func (e *SyncEngine) UpdateSpanLink(ctx context.Context, at models.SpanKey, link models.SpanLink) error {
	if _, err := e.store.GetSpan(ctx, at); err != nil {
		return e.unknownOrStorage(err)
	}
	if err := e.store.UpdateSpanLink(ctx, at, link); err != nil {
		return WrapEngineError("storage_error", "update span link", err)
	}
	return nil
}

// UpdateSpanParents binds parent as the parent of each child in children,
// rejecting (and logging) any assignment that would introduce a cycle
// rather than failing the whole batch.
func (e *SyncEngine) UpdateSpanParents(ctx context.Context, parent models.SpanKey, children []models.SpanKey) error {
	for _, child := range children {
		if !e.spanParent.BindSpanParent(child, parent) {
			e.logger.Warn("rejected span parent assignment: would introduce a cycle",
				"child", child, "parent", parent)
			continue
		}
		if err := e.store.UpdateSpanParent(ctx, child, parent, nil); err != nil {
			return WrapEngineError("storage_error", "update span parent", err)
		}
		e.notifySpanAndDescendants(child)
	}
	return nil
}

// UpdateEventParents retargets each event in events to be nested under
// parent.
func (e *SyncEngine) UpdateEventParents(ctx context.Context, parent models.SpanKey, events []models.EventKey) error {
	for _, ev := range events {
		if err := e.store.UpdateEventParent(ctx, ev, parent); err != nil {
			return WrapEngineError("storage_error", "update event parent", err)
		}
		e.spanParent.AddEventParent(ev, parent)
		e.subs.NotifyEvent(ev)
	}
	return nil
}

func (e *SyncEngine) notifySpanAndDescendants(at models.SpanKey) {
	e.subs.NotifySpan(at)
	for _, child := range e.spanParent.DescendantSpans(at) {
		e.subs.NotifySpan(child)
	}
	for _, ev := range e.spanParent.DescendantEvents(at) {
		e.subs.NotifyEvent(ev)
	}
}

func (e *SyncEngine) unknownOrStorage(err error) error {
	if _, ok := err.(*storage.ErrNotFound); ok {
		return &InsertError{Kind: UnknownSpanID}
	}
	return WrapEngineError("storage_error", "lookup span", err)
}

// QuerySpan plans and renders q's filter against the span index set.
func (e *SyncEngine) QuerySpan(ctx context.Context, q Query) ([]*models.SpanView, error) {
	it, err := e.planSpans(ctx, q)
	if err != nil {
		return nil, err
	}
	applyCursor(it, q)

	var out []*models.SpanView
	for q.Limit == 0 || uint32(len(out)) < q.Limit {
		ts, ok := it.Next()
		if !ok {
			break
		}
		view, err := e.renderSpan(ctx, ts)
		if err != nil {
			return nil, WrapEngineError("storage_error", "render span", err)
		}
		out = append(out, view)
	}
	return out, nil
}

// QuerySpanCount reports the total number of spans matching q's filter
// and window, ignoring q.Limit.
func (e *SyncEngine) QuerySpanCount(ctx context.Context, q Query) (int, error) {
	it, err := e.planSpans(ctx, q)
	if err != nil {
		return 0, err
	}
	applyCursor(it, q)
	n := 0
	for {
		if _, ok := it.Next(); !ok {
			break
		}
		n++
	}
	return n, nil
}

// QueryEvent plans and renders q's filter against the event index set.
func (e *SyncEngine) QueryEvent(ctx context.Context, q Query) ([]*models.EventView, error) {
	it, err := e.planEvents(ctx, q)
	if err != nil {
		return nil, err
	}
	applyCursor(it, q)

	var out []*models.EventView
	for q.Limit == 0 || uint32(len(out)) < q.Limit {
		ts, ok := it.Next()
		if !ok {
			break
		}
		view, err := e.renderEvent(ctx, ts)
		if err != nil {
			return nil, WrapEngineError("storage_error", "render event", err)
		}
		out = append(out, view)
	}
	return out, nil
}

// QueryEventCount reports the total number of events matching q's filter
// and window, ignoring q.Limit.
func (e *SyncEngine) QueryEventCount(ctx context.Context, q Query) (int, error) {
	it, err := e.planEvents(ctx, q)
	if err != nil {
		return 0, err
	}
	applyCursor(it, q)
	n := 0
	for {
		if _, ok := it.Next(); !ok {
			break
		}
		n++
	}
	return n, nil
}

func (e *SyncEngine) planSpans(ctx context.Context, q Query) (iterx.AdvanceUntil[models.Timestamp], error) {
	node, err := parseOrUniverse(q.Filter)
	if err != nil {
		return nil, WrapEngineError("parse_error", "parse span filter", err)
	}
	idx := filter.Indexes{Time: e.spanTime, Level: e.spanLevel, Duration: e.spanDuration, Value: e.spanValue}
	resolver := newSpanResolver(ctx, e.store)
	return filter.Plan(node, idx, resolver, filter.Window{Start: q.Start, End: q.End}, q.Order)
}

func (e *SyncEngine) planEvents(ctx context.Context, q Query) (iterx.AdvanceUntil[models.Timestamp], error) {
	node, err := parseOrUniverse(q.Filter)
	if err != nil {
		return nil, WrapEngineError("parse_error", "parse event filter", err)
	}
	idx := filter.Indexes{Time: e.eventTime, Level: e.eventLevel, Value: e.eventValue}
	resolver := newEventResolver(ctx, e.store)
	return filter.Plan(node, idx, resolver, filter.Window{Start: q.Start, End: q.End}, q.Order)
}

// parseOrUniverse treats an empty filter string as "match everything",
// the S1/S4 scenario's filter="" convention, rather than a parse error.
func parseOrUniverse(expr string) (filter.FilterNode, error) {
	if expr == "" {
		return &filter.ConditionNode{FieldKind: filter.FieldBuiltin, Field: filter.BuiltinCreated, Op: filter.OpRange,
			RangeLo: models.I64(0), RangeHi: models.I64(1<<63 - 1)}, nil
	}
	return filter.Parse(expr)
}

// applyCursor positions it just past q.Previous, the keyset-pagination
// cursor: strictly after for Order==Asc, strictly before for Order==Desc.
// WithOrder already folds that direction into AdvanceFrontUntilEquals, so
// the same two lines apply regardless of q.Order.
func applyCursor(it iterx.AdvanceUntil[models.Timestamp], q Query) {
	if q.Previous == nil {
		return
	}
	if it.AdvanceFrontUntilEquals(*q.Previous) {
		it.Next()
	}
}

func (e *SyncEngine) renderSpan(ctx context.Context, ts models.Timestamp) (*models.SpanView, error) {
	s, err := e.store.GetSpan(ctx, ts)
	if err != nil {
		return nil, err
	}
	sc := entctx.NewSpanContext(e.store, s)
	attrs, err := sc.EffectiveAttributes(ctx)
	if err != nil {
		return nil, err
	}
	return &models.SpanView{
		CreatedAt:  s.CreatedAt,
		ClosedAt:   s.ClosedAt,
		BusyNanos:  s.BusyNanos,
		ID:         s.ID,
		ParentKey:  s.ParentKey,
		Name:       s.Name,
		Level:      s.Level,
		Attributes: attrs,
		Links:      s.Links,
	}, nil
}

func (e *SyncEngine) renderEvent(ctx context.Context, ts models.Timestamp) (*models.EventView, error) {
	ev, err := e.store.GetEvent(ctx, ts)
	if err != nil {
		return nil, err
	}
	ec := entctx.NewEventContext(e.store, ev)
	attrs, err := ec.EffectiveAttributes(ctx)
	if err != nil {
		return nil, err
	}
	return &models.EventView{
		Timestamp:  ev.Timestamp,
		ParentKey:  ev.ParentKey,
		Level:      ev.Level,
		Content:    ev.Content,
		Target:     ev.Target,
		File:       ev.File,
		Attributes: attrs,
	}, nil
}

// SubscribeSpans registers a live span query, rendering matches through
// the same path QuerySpan uses.
func (e *SyncEngine) SubscribeSpans(ctx context.Context, expr string, bufferSize int) (subscription.ID, <-chan subscription.Response[*models.SpanView], error) {
	node, err := parseOrUniverse(expr)
	if err != nil {
		return subscription.ID{}, nil, WrapEngineError("parse_error", "parse span subscription filter", err)
	}
	resolver := newSpanResolver(ctx, e.store)
	render := func(ts models.Timestamp) (*models.SpanView, bool) {
		v, err := e.renderSpan(ctx, ts)
		return v, err == nil
	}
	sub := subscription.NewSpanSubscription(node, resolver, render, bufferSize)
	id := e.subs.AddSpanSubscription(sub)
	return id, sub.Channel(), nil
}

// SubscribeEvents registers a live event query.
func (e *SyncEngine) SubscribeEvents(ctx context.Context, expr string, bufferSize int) (subscription.ID, <-chan subscription.Response[*models.EventView], error) {
	node, err := parseOrUniverse(expr)
	if err != nil {
		return subscription.ID{}, nil, WrapEngineError("parse_error", "parse event subscription filter", err)
	}
	resolver := newEventResolver(ctx, e.store)
	render := func(ts models.Timestamp) (*models.EventView, bool) {
		v, err := e.renderEvent(ctx, ts)
		return v, err == nil
	}
	sub := subscription.NewEventSubscription(node, resolver, render, bufferSize)
	id := e.subs.AddEventSubscription(sub)
	return id, sub.Channel(), nil
}

// Unsubscribe tears down a live subscription, whichever kind it is.
func (e *SyncEngine) Unsubscribe(id subscription.ID) {
	e.subs.Unsubscribe(id)
}

// DropSpans removes spans (and their index presence) from the engine
// entirely, best-effort per §4.1's drop_K contract: unknown keys are
// ignored silently. Attribute values are read before the storage delete
// so the value index can be unwound precisely (§3 invariant 5: no index
// may retain a key for a dropped entity).
func (e *SyncEngine) DropSpans(ctx context.Context, keys []models.SpanKey) error {
	keys = sortedCopy(keys)
	now := time.Now()
	for _, k := range keys {
		s, err := e.store.GetSpan(ctx, k)
		if err != nil {
			continue // unknown key: ignored silently per drop_K contract
		}
		if e.archiver != nil {
			if rec, err := archive.SpanRecord(s, now); err == nil {
				e.archiver.Add(rec)
			} else {
				e.logger.Warn("failed to archive dropped span", "key", k, "error", err)
			}
		}
		for name, v := range s.Attributes {
			e.spanValue.Remove(name, v, k)
		}
		for id, key := range e.wireSpanIDs {
			if key == k {
				delete(e.wireSpanIDs, id)
			}
		}
	}

	if err := e.store.DropSpans(ctx, keys); err != nil {
		return WrapEngineError("storage_error", "drop spans", err)
	}
	e.spanTime.Remove(keys)
	e.spanLevel.Remove(keys)
	e.spanDuration.Remove(keys)
	e.spanParent.RemoveSpans(keys)
	e.spanEvents.RemoveSpans(keys)
	return nil
}

// DropEvents removes events from the engine entirely.
func (e *SyncEngine) DropEvents(ctx context.Context, keys []models.EventKey) error {
	keys = sortedCopy(keys)
	now := time.Now()
	for _, k := range keys {
		ev, err := e.store.GetEvent(ctx, k)
		if err != nil {
			continue
		}
		if e.archiver != nil {
			if rec, err := archive.EventRecord(ev, now); err == nil {
				e.archiver.Add(rec)
			} else {
				e.logger.Warn("failed to archive dropped event", "key", k, "error", err)
			}
		}
		for name, v := range ev.Attributes {
			e.eventValue.Remove(name, v, k)
		}
	}

	if err := e.store.DropEvents(ctx, keys); err != nil {
		return WrapEngineError("storage_error", "drop events", err)
	}
	e.eventTime.Remove(keys)
	e.eventLevel.Remove(keys)
	return nil
}

// DropResources removes resources from the engine entirely.
func (e *SyncEngine) DropResources(ctx context.Context, keys []models.ResourceKey) error {
	keys = sortedCopy(keys)
	if e.archiver != nil {
		now := time.Now()
		for _, k := range keys {
			r, err := e.store.GetResource(ctx, k)
			if err != nil {
				continue
			}
			if rec, err := archive.ResourceRecord(r, now); err == nil {
				e.archiver.Add(rec)
			} else {
				e.logger.Warn("failed to archive dropped resource", "key", k, "error", err)
			}
		}
	}
	if err := e.store.DropResources(ctx, keys); err != nil {
		return WrapEngineError("storage_error", "drop resources", err)
	}
	e.resourceTime.Remove(keys)
	return nil
}

// sortedCopy returns an ascending-sorted copy of keys; RemoveListSorted
// (and every index built on it) requires its removal list pre-sorted.
func sortedCopy(keys []models.Timestamp) []models.Timestamp {
	out := append([]models.Timestamp(nil), keys...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Close releases the underlying storage backend.
func (e *SyncEngine) Close() error {
	return e.store.Close()
}
