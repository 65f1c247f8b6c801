// Package models defines the entity types stored and queried by the engine:
// resources, spans, span events, log events, and the attribute value union.
package models

import "fmt"

// Timestamp is microseconds since the Unix epoch. It doubles as the primary
// key for every entity kind the engine stores.
type Timestamp int64

// SpanKey is the creation timestamp of a span; it identifies the span
// uniquely within a single store.
type SpanKey = Timestamp

// EventKey is the creation timestamp of a log event.
type EventKey = Timestamp

// ResourceKey is the creation timestamp of a resource.
type ResourceKey = Timestamp

// SpanEventKey is the timestamp of a span-lifecycle marker.
type SpanEventKey = Timestamp

// FullSpanId is the wire identifier of a span as carried by tracing
// instrumentation: a 128-bit trace id paired with a 64-bit span id. It is
// distinct from SpanKey, which is local to one store.
type FullSpanId struct {
	TraceIDHigh uint64
	TraceIDLow  uint64
	SpanID      uint64
}

func (id FullSpanId) String() string {
	return fmt.Sprintf("%016x%016x:%016x", id.TraceIDHigh, id.TraceIDLow, id.SpanID)
}

func (id FullSpanId) IsZero() bool {
	return id.TraceIDHigh == 0 && id.TraceIDLow == 0 && id.SpanID == 0
}
