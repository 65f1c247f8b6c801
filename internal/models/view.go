package models

// SpanView is the JSON-serializable rendering of a span returned from
// queries and subscriptions: the stored fields plus the effective
// (resource ⊕ parent-chain ⊕ own) attribute set resolved by the context
// layer. It is distinct from Span, the storage-internal row, the same
// separation Brokle draws between its stored Span and handler-facing DTOs.
type SpanView struct {
	CreatedAt  Timestamp        `json:"created_at"`
	ClosedAt   *Timestamp       `json:"closed_at,omitempty"`
	BusyNanos  *uint64          `json:"busy_ns,omitempty"`
	ID         FullSpanId       `json:"id"`
	ParentKey  *SpanKey         `json:"parent_key,omitempty"`
	Name       string           `json:"name"`
	Level      Level            `json:"level"`
	Attributes map[string]Value `json:"attributes"`
	Links      []SpanLink       `json:"links,omitempty"`
}

// EventView is the JSON-serializable rendering of a log event with its
// effective attribute set resolved.
type EventView struct {
	Timestamp  Timestamp        `json:"timestamp"`
	ParentKey  *SpanKey         `json:"parent_key,omitempty"`
	Level      Level            `json:"level"`
	Content    string           `json:"content"`
	Target     string           `json:"target,omitempty"`
	File       string           `json:"file,omitempty"`
	Attributes map[string]Value `json:"attributes"`
}
