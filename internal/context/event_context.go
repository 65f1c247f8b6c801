package context

import (
	"context"
	"sync"

	"signalstore/internal/models"
	"signalstore/internal/storage"
)

// EventContext lazily resolves a log event's parent span (if nested), the
// parent's own ancestor chain, the root resource, and the effective
// attribute set. Mirrors SpanContext but defers to a SpanContext for
// everything above the immediate parent.
type EventContext struct {
	store storage.Storage
	event *models.Event

	parentOnce sync.Once
	parent     *SpanContext
	parentErr  error

	resourceOnce sync.Once
	resource     *models.Resource
	resourceErr  error

	attrsOnce sync.Once
	attrs     map[string]models.Value
	attrsErr  error
}

// NewEventContext builds a context around an already-loaded event.
func NewEventContext(store storage.Storage, event *models.Event) *EventContext {
	return &EventContext{store: store, event: event}
}

// Event returns the event this context was built around.
func (c *EventContext) Event() *models.Event { return c.event }

// ParentSpan resolves the span this event is nested under, if any.
func (c *EventContext) ParentSpan(ctx context.Context) (*SpanContext, error) {
	c.parentOnce.Do(func() {
		if c.event.ParentKey == nil {
			return
		}
		span, err := c.store.GetSpan(ctx, *c.event.ParentKey)
		if err != nil {
			c.parentErr = err
			return
		}
		c.parent = NewSpanContext(c.store, span)
	})
	return c.parent, c.parentErr
}

// RootResource returns the resource that produced this event.
func (c *EventContext) RootResource(ctx context.Context) (*models.Resource, error) {
	c.resourceOnce.Do(func() {
		c.resource, c.resourceErr = c.store.GetResource(ctx, c.event.ResourceKey)
	})
	return c.resource, c.resourceErr
}

// EffectiveAttributes merges resource attributes, the parent span's full
// ancestor chain (if any), and the event's own attributes, child wins.
func (c *EventContext) EffectiveAttributes(ctx context.Context) (map[string]models.Value, error) {
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

		parent, err := c.ParentSpan(ctx)
		if err != nil {
			c.attrsErr = err
			return
		}
		if parent != nil {
			parentAttrs, err := parent.EffectiveAttributes(ctx)
			if err != nil {
				c.attrsErr = err
				return
			}
			for k, v := range parentAttrs {
				merged[k] = v
			}
		}

		for k, v := range c.event.Attributes {
			merged[k] = v
		}
		c.attrs = merged
	})
	return c.attrs, c.attrsErr
}
