// Package storage provides the pluggable record store the engine sits on:
// an in-memory Transient implementation, a Badger-backed Persistent
// implementation, and a Cached decorator layering an LRU read cache over
// either. None of them keep secondary indexes; those are rebuilt by the
// index package from GetAll* on open.
package storage

import (
	"context"

	"signalstore/internal/models"
)

// Storage is the narrow, timestamp-addressed contract every backing store
// implements. Every entity kind is addressed by its own key type, and
// update_* calls are idempotent: applying the same update twice leaves the
// same stored state (attribute merge is last-writer-wins per key).
type Storage interface {
	GetResource(ctx context.Context, at models.ResourceKey) (*models.Resource, error)
	GetSpan(ctx context.Context, at models.SpanKey) (*models.Span, error)
	GetSpanEvent(ctx context.Context, at models.SpanEventKey) (*models.SpanEvent, error)
	GetEvent(ctx context.Context, at models.EventKey) (*models.Event, error)

	GetAllResources(ctx context.Context) ([]*models.Resource, error)
	GetAllSpans(ctx context.Context) ([]*models.Span, error)
	GetAllSpanEvents(ctx context.Context) ([]*models.SpanEvent, error)
	GetAllEvents(ctx context.Context) ([]*models.Event, error)

	InsertResource(ctx context.Context, r *models.Resource) error
	InsertSpan(ctx context.Context, s *models.Span) error
	InsertSpanEvent(ctx context.Context, e *models.SpanEvent) error
	InsertEvent(ctx context.Context, e *models.Event) error

	UpdateSpanClosed(ctx context.Context, at models.SpanKey, closedAt models.Timestamp, busyNanos *uint64) error
	UpdateSpanAttributes(ctx context.Context, at models.SpanKey, attrs map[string]models.Value) error
	UpdateSpanLink(ctx context.Context, at models.SpanKey, link models.SpanLink) error
	UpdateSpanParent(ctx context.Context, at models.SpanKey, parent models.SpanKey, parentID *models.FullSpanId) error
	UpdateEventParent(ctx context.Context, at models.EventKey, parent models.SpanKey) error

	DropResources(ctx context.Context, keys []models.ResourceKey) error
	DropSpans(ctx context.Context, keys []models.SpanKey) error
	DropSpanEvents(ctx context.Context, keys []models.SpanEventKey) error
	DropEvents(ctx context.Context, keys []models.EventKey) error

	Close() error
}

// ErrNotFound is returned by Get* lookups that find nothing, distinct from
// a storage I/O error.
type ErrNotFound struct{ Kind string }

func (e *ErrNotFound) Error() string { return "storage: " + e.Kind + " not found" }
