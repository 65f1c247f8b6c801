package storage

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"signalstore/internal/models"
)

// Cached wraps another Storage with an in-memory LRU read cache, grounded on
// Venator's storage/cached.rs CachedStorage: resources, spans, and events
// each get their own bounded cache, but span events do not — span events are
// almost always accessed as part of a span's descendant window rather than
// by single key, so a per-key cache buys little and Venator leaves them
// uncached too. Every mutating call invalidates the relevant entry before
// delegating, rather than trying to patch the cached value in place.
type Cached struct {
	inner Storage

	resources lruCache[models.ResourceKey, *models.Resource]
	spans     lruCache[models.SpanKey, *models.Span]
	events    lruCache[models.EventKey, *models.Event]
}

type lruCache[K comparable, V any] struct {
	c *lru.Cache[K, V]
}

func newLRUCache[K comparable, V any](size int) lruCache[K, V] {
	c, err := lru.New[K, V](size)
	if err != nil {
		// Only returned by golang-lru when size <= 0, which the
		// constructors below never pass.
		panic(err)
	}
	return lruCache[K, V]{c: c}
}

// NewCached builds a Cached store over inner with size entries per cache.
func NewCached(inner Storage, size int) *Cached {
	return &Cached{
		inner:     inner,
		resources: newLRUCache[models.ResourceKey, *models.Resource](size),
		spans:     newLRUCache[models.SpanKey, *models.Span](size),
		events:    newLRUCache[models.EventKey, *models.Event](size),
	}
}

func (c *Cached) GetResource(ctx context.Context, at models.ResourceKey) (*models.Resource, error) {
	if r, ok := c.resources.c.Get(at); ok {
		return r, nil
	}
	r, err := c.inner.GetResource(ctx, at)
	if err != nil {
		return nil, err
	}
	c.resources.c.Add(at, r)
	return r, nil
}

func (c *Cached) GetSpan(ctx context.Context, at models.SpanKey) (*models.Span, error) {
	if s, ok := c.spans.c.Get(at); ok {
		return s, nil
	}
	s, err := c.inner.GetSpan(ctx, at)
	if err != nil {
		return nil, err
	}
	c.spans.c.Add(at, s)
	return s, nil
}

func (c *Cached) GetSpanEvent(ctx context.Context, at models.SpanEventKey) (*models.SpanEvent, error) {
	return c.inner.GetSpanEvent(ctx, at)
}

func (c *Cached) GetEvent(ctx context.Context, at models.EventKey) (*models.Event, error) {
	if e, ok := c.events.c.Get(at); ok {
		return e, nil
	}
	e, err := c.inner.GetEvent(ctx, at)
	if err != nil {
		return nil, err
	}
	c.events.c.Add(at, e)
	return e, nil
}

func (c *Cached) GetAllResources(ctx context.Context) ([]*models.Resource, error) {
	return c.inner.GetAllResources(ctx)
}

func (c *Cached) GetAllSpans(ctx context.Context) ([]*models.Span, error) {
	return c.inner.GetAllSpans(ctx)
}

func (c *Cached) GetAllSpanEvents(ctx context.Context) ([]*models.SpanEvent, error) {
	return c.inner.GetAllSpanEvents(ctx)
}

func (c *Cached) GetAllEvents(ctx context.Context) ([]*models.Event, error) {
	return c.inner.GetAllEvents(ctx)
}

func (c *Cached) InsertResource(ctx context.Context, r *models.Resource) error {
	c.resources.c.Remove(r.Key())
	return c.inner.InsertResource(ctx, r)
}

func (c *Cached) InsertSpan(ctx context.Context, s *models.Span) error {
	c.spans.c.Remove(s.Key())
	return c.inner.InsertSpan(ctx, s)
}

func (c *Cached) InsertSpanEvent(ctx context.Context, e *models.SpanEvent) error {
	return c.inner.InsertSpanEvent(ctx, e)
}

func (c *Cached) InsertEvent(ctx context.Context, e *models.Event) error {
	c.events.c.Remove(e.Key())
	return c.inner.InsertEvent(ctx, e)
}

func (c *Cached) UpdateSpanClosed(ctx context.Context, at models.SpanKey, closedAt models.Timestamp, busyNanos *uint64) error {
	c.spans.c.Remove(at)
	return c.inner.UpdateSpanClosed(ctx, at, closedAt, busyNanos)
}

func (c *Cached) UpdateSpanAttributes(ctx context.Context, at models.SpanKey, attrs map[string]models.Value) error {
	c.spans.c.Remove(at)
	return c.inner.UpdateSpanAttributes(ctx, at, attrs)
}

func (c *Cached) UpdateSpanLink(ctx context.Context, at models.SpanKey, link models.SpanLink) error {
	c.spans.c.Remove(at)
	return c.inner.UpdateSpanLink(ctx, at, link)
}

func (c *Cached) UpdateSpanParent(ctx context.Context, at models.SpanKey, parent models.SpanKey, parentID *models.FullSpanId) error {
	c.spans.c.Remove(at)
	return c.inner.UpdateSpanParent(ctx, at, parent, parentID)
}

func (c *Cached) UpdateEventParent(ctx context.Context, at models.EventKey, parent models.SpanKey) error {
	c.events.c.Remove(at)
	return c.inner.UpdateEventParent(ctx, at, parent)
}

func (c *Cached) DropResources(ctx context.Context, keys []models.ResourceKey) error {
	for _, k := range keys {
		c.resources.c.Remove(k)
	}
	return c.inner.DropResources(ctx, keys)
}

func (c *Cached) DropSpans(ctx context.Context, keys []models.SpanKey) error {
	for _, k := range keys {
		c.spans.c.Remove(k)
	}
	return c.inner.DropSpans(ctx, keys)
}

func (c *Cached) DropSpanEvents(ctx context.Context, keys []models.SpanEventKey) error {
	return c.inner.DropSpanEvents(ctx, keys)
}

func (c *Cached) DropEvents(ctx context.Context, keys []models.EventKey) error {
	for _, k := range keys {
		c.events.c.Remove(k)
	}
	return c.inner.DropEvents(ctx, keys)
}

func (c *Cached) Close() error { return c.inner.Close() }
