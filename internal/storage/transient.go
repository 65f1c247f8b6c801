package storage

import (
	"context"
	"sort"

	"signalstore/internal/models"
)

// Transient holds every entity in an ordered map in memory, grounded on
// Venator's storage/transient.rs: a BTreeMap<Timestamp, T> per entity kind.
// Go has no ordered-map stdlib type, so this uses a plain map per kind and
// each GetAll* call sorts a fresh slice by key (the index layer, not this
// store, owns the hot-path sorted views).
type Transient struct {
	resources  map[models.ResourceKey]*models.Resource
	spans      map[models.SpanKey]*models.Span
	spanEvents map[models.SpanEventKey]*models.SpanEvent
	events     map[models.EventKey]*models.Event
}

func NewTransient() *Transient {
	return &Transient{
		resources:  make(map[models.ResourceKey]*models.Resource),
		spans:      make(map[models.SpanKey]*models.Span),
		spanEvents: make(map[models.SpanEventKey]*models.SpanEvent),
		events:     make(map[models.EventKey]*models.Event),
	}
}

func (t *Transient) GetResource(_ context.Context, at models.ResourceKey) (*models.Resource, error) {
	if r, ok := t.resources[at]; ok {
		return r, nil
	}
	return nil, &ErrNotFound{Kind: "resource"}
}

func (t *Transient) GetSpan(_ context.Context, at models.SpanKey) (*models.Span, error) {
	if s, ok := t.spans[at]; ok {
		return s, nil
	}
	return nil, &ErrNotFound{Kind: "span"}
}

func (t *Transient) GetSpanEvent(_ context.Context, at models.SpanEventKey) (*models.SpanEvent, error) {
	if e, ok := t.spanEvents[at]; ok {
		return e, nil
	}
	return nil, &ErrNotFound{Kind: "span_event"}
}

func (t *Transient) GetEvent(_ context.Context, at models.EventKey) (*models.Event, error) {
	if e, ok := t.events[at]; ok {
		return e, nil
	}
	return nil, &ErrNotFound{Kind: "event"}
}

func (t *Transient) GetAllResources(_ context.Context) ([]*models.Resource, error) {
	out := make([]*models.Resource, 0, len(t.resources))
	for _, r := range t.resources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

func (t *Transient) GetAllSpans(_ context.Context) ([]*models.Span, error) {
	out := make([]*models.Span, 0, len(t.spans))
	for _, s := range t.spans {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

func (t *Transient) GetAllSpanEvents(_ context.Context) ([]*models.SpanEvent, error) {
	out := make([]*models.SpanEvent, 0, len(t.spanEvents))
	for _, e := range t.spanEvents {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

func (t *Transient) GetAllEvents(_ context.Context) ([]*models.Event, error) {
	out := make([]*models.Event, 0, len(t.events))
	for _, e := range t.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

func (t *Transient) InsertResource(_ context.Context, r *models.Resource) error {
	t.resources[r.Key()] = r
	return nil
}

func (t *Transient) InsertSpan(_ context.Context, s *models.Span) error {
	t.spans[s.Key()] = s
	return nil
}

func (t *Transient) InsertSpanEvent(_ context.Context, e *models.SpanEvent) error {
	t.spanEvents[e.Key()] = e
	return nil
}

func (t *Transient) InsertEvent(_ context.Context, e *models.Event) error {
	t.events[e.Key()] = e
	return nil
}

func (t *Transient) UpdateSpanClosed(_ context.Context, at models.SpanKey, closedAt models.Timestamp, busyNanos *uint64) error {
	if s, ok := t.spans[at]; ok {
		s.ClosedAt = &closedAt
		s.BusyNanos = busyNanos
	}
	return nil
}

func (t *Transient) UpdateSpanAttributes(_ context.Context, at models.SpanKey, attrs map[string]models.Value) error {
	s, ok := t.spans[at]
	if !ok {
		return nil
	}
	if s.Attributes == nil {
		s.Attributes = make(map[string]models.Value, len(attrs))
	}
	for k, v := range attrs {
		s.Attributes[k] = v
	}
	return nil
}

func (t *Transient) UpdateSpanLink(_ context.Context, at models.SpanKey, link models.SpanLink) error {
	if s, ok := t.spans[at]; ok {
		s.Links = append(s.Links, link)
	}
	return nil
}

func (t *Transient) UpdateSpanParent(_ context.Context, at models.SpanKey, parent models.SpanKey, parentID *models.FullSpanId) error {
	if s, ok := t.spans[at]; ok {
		s.ParentKey = &parent
		s.ParentID = parentID
	}
	return nil
}

func (t *Transient) UpdateEventParent(_ context.Context, at models.EventKey, parent models.SpanKey) error {
	if e, ok := t.events[at]; ok {
		e.ParentKey = &parent
	}
	return nil
}

func (t *Transient) DropResources(_ context.Context, keys []models.ResourceKey) error {
	for _, k := range keys {
		delete(t.resources, k)
	}
	return nil
}

func (t *Transient) DropSpans(_ context.Context, keys []models.SpanKey) error {
	for _, k := range keys {
		delete(t.spans, k)
	}
	return nil
}

func (t *Transient) DropSpanEvents(_ context.Context, keys []models.SpanEventKey) error {
	for _, k := range keys {
		delete(t.spanEvents, k)
	}
	return nil
}

func (t *Transient) DropEvents(_ context.Context, keys []models.EventKey) error {
	for _, k := range keys {
		delete(t.events, k)
	}
	return nil
}

func (t *Transient) Close() error { return nil }
