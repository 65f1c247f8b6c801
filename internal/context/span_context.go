// Package context resolves the lazily-materialized view an entity needs at
// query render time: its parent chain, root resource, and effective
// (merged) attribute set. It generalizes the teacher's two-tier
// ResourceAttributes/SpanAttributes merge (internal/core/domain/
// observability/entity.go) into a full parent-chain walk, and is grounded on
// Venator's context/mod.rs RefOrDeferredArc split between an entity
// already in hand and one that must be fetched on demand.
package context

import (
	"context"
	"sync"

	"signalstore/internal/models"
	"signalstore/internal/storage"
)

// SpanContext lazily resolves a span's parent chain, root resource, and
// effective attribute set. It must not outlive the storage snapshot it was
// built against.
type SpanContext struct {
	store storage.Storage
	span  *models.Span

	chainOnce sync.Once
	chain     []*models.Span
	chainErr  error

	resourceOnce sync.Once
	resource     *models.Resource
	resourceErr  error

	attrsOnce sync.Once
	attrs     map[string]models.Value
	attrsErr  error
}

// NewSpanContext builds a context around an already-loaded span.
func NewSpanContext(store storage.Storage, span *models.Span) *SpanContext {
	return &SpanContext{store: store, span: span}
}

// Span returns the span this context was built around.
func (c *SpanContext) Span() *models.Span { return c.span }

// ParentChain returns the span's ancestors ordered nearest-parent-first,
// resolved once and cached for the lifetime of this context.
func (c *SpanContext) ParentChain(ctx context.Context) ([]*models.Span, error) {
	c.chainOnce.Do(func() {
		cur := c.span
		for cur.ParentKey != nil {
			parent, err := c.store.GetSpan(ctx, *cur.ParentKey)
			if err != nil {
				c.chainErr = err
				return
			}
			c.chain = append(c.chain, parent)
			cur = parent
		}
	})
	return c.chain, c.chainErr
}

// RootResource returns the resource that produced this span.
func (c *SpanContext) RootResource(ctx context.Context) (*models.Resource, error) {
	c.resourceOnce.Do(func() {
		c.resource, c.resourceErr = c.store.GetResource(ctx, c.span.ResourceKey)
	})
	return c.resource, c.resourceErr
}

// EffectiveAttributes returns the shallow-merged attribute map: resource
// attributes, overridden by each ancestor from root to nearest parent,
// overridden last by the span's own attributes (child wins at every tier).
func (c *SpanContext) EffectiveAttributes(ctx context.Context) (map[string]models.Value, error) {
	c.attrsOnce.Do(func() {
		merged := make(map[string]models.Value)

		resource, err := c.RootResource(ctx)
		if err != nil {
			c.attrsErr = err
			return
		}
		for k, v := range resource.Attributes {
			merged[k] = v
		}

		chain, err := c.ParentChain(ctx)
		if err != nil {
			c.attrsErr = err
			return
		}
		for i := len(chain) - 1; i >= 0; i-- {
			for k, v := range chain[i].Attributes {
				merged[k] = v
			}
		}

		for k, v := range c.span.Attributes {
			merged[k] = v
		}
		c.attrs = merged
	})
	return c.attrs, c.attrsErr
}
