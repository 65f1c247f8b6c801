package models

// Resource describes the process/service that produced a set of spans and
// events: a name, an instance identifier, and free-form attributes
// (hostname, version, environment, ...). Resources are immutable once
// inserted.
type Resource struct {
	CreatedAt  Timestamp        `json:"created_at"`
	Attributes map[string]Value `json:"attributes"`
}

func (r *Resource) Key() ResourceKey { return r.CreatedAt }

// SpanEventKind distinguishes the lifecycle markers recorded against a span.
type SpanEventKind uint8

const (
	SpanEventCreate SpanEventKind = iota
	SpanEventEnter
	SpanEventExit
	SpanEventClose
	SpanEventUpdate
)

func (k SpanEventKind) String() string {
	switch k {
	case SpanEventCreate:
		return "create"
	case SpanEventEnter:
		return "enter"
	case SpanEventExit:
		return "exit"
	case SpanEventClose:
		return "close"
	case SpanEventUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// SpanLink records an association from a span to another span identified by
// its wire id, carrying link-specific attributes.
type SpanLink struct {
	Target     FullSpanId       `json:"target"`
	Attributes map[string]Value `json:"attributes"`
}

// Span is a timed unit of work. ParentKey may reference a span not yet
// inserted (forward reference); the index layer backfills the parent/child
// relationship once the parent arrives.
type Span struct {
	CreatedAt   Timestamp  `json:"created_at"`
	ClosedAt    *Timestamp `json:"closed_at,omitempty"`
	BusyNanos   *uint64    `json:"busy_ns,omitempty"`
	ID          FullSpanId `json:"id"`
	ParentKey   *SpanKey   `json:"parent_key,omitempty"`
	ParentID    *FullSpanId `json:"parent_id,omitempty"`
	ResourceKey ResourceKey `json:"resource_key"`
	Name        string      `json:"name"`
	Level       Level       `json:"level"`
	Attributes  map[string]Value `json:"attributes"`
	Links       []SpanLink       `json:"links,omitempty"`
}

func (s *Span) Key() SpanKey { return s.CreatedAt }

// Duration reports the span's closed-minus-created span in microseconds. It
// returns false if the span has not closed yet.
func (s *Span) Duration() (int64, bool) {
	if s.ClosedAt == nil {
		return 0, false
	}
	return int64(*s.ClosedAt) - int64(s.CreatedAt), true
}

// SpanEvent is a point-in-time marker belonging to a span (create, enter,
// exit, close, or an attribute update).
type SpanEvent struct {
	Timestamp Timestamp     `json:"timestamp"`
	SpanKey   SpanKey       `json:"span_key"`
	Kind      SpanEventKind `json:"kind"`
}

func (e *SpanEvent) Key() SpanEventKey { return e.Timestamp }

// Event is a log-like record, optionally nested under a span.
type Event struct {
	Timestamp   Timestamp        `json:"timestamp"`
	ParentKey   *SpanKey         `json:"parent_key,omitempty"`
	ResourceKey ResourceKey      `json:"resource_key"`
	Level       Level            `json:"level"`
	Content     string           `json:"content"`
	Target      string           `json:"target,omitempty"`
	File        string           `json:"file,omitempty"`
	Attributes  map[string]Value `json:"attributes"`
}

func (e *Event) Key() EventKey { return e.Timestamp }
