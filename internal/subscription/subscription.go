// Package subscription implements incremental filter re-evaluation: each
// live subscriber holds a filter and a cache of the keys currently visible
// to it, and is re-evaluated one entity at a time as inserts and updates
// arrive, rather than re-running the full query on every mutation. Grounded
// directly on original_source/venator-engine/src/subscription.rs's
// EventSubscription.on_event.
package subscription

import (
	"sync"
	"sync/atomic"

	"signalstore/internal/filter"
	"signalstore/internal/iterx"
	"signalstore/internal/models"
	"signalstore/pkg/ulid"
)

// ResponseKind tags whether a subscription update is a new/updated match or
// a previously-matching entity no longer matching.
type ResponseKind int

const (
	ResponseAdd ResponseKind = iota
	ResponseRemove
)

// Response[T] is one message delivered to a subscriber: either a full
// rendered view (Add) or just the key that dropped out (Remove).
type Response[T any] struct {
	Kind ResponseKind
	View T
	Key  models.Timestamp
}

// ID identifies a live subscription, minted with the same ULID wrapper
// used for request/trace identifiers elsewhere in this codebase.
type ID = ulid.ULID

func NewID() ID { return ulid.New() }

// entry is the generic half of EventSubscription/SpanSubscription: the
// filter, the delivery channel, and the membership cache the venator
// source keeps as a plain sorted Vec searched with upper_bound_via_expansion.
type entry[T any] struct {
	id       ID
	node     filter.FilterNode
	resolver filter.Resolver
	render   func(models.Timestamp) (T, bool)
	ch       chan Response[T]
	cache    []models.Timestamp
	closed   atomic.Bool
}

func newEntry[T any](node filter.FilterNode, resolver filter.Resolver, render func(models.Timestamp) (T, bool), bufferSize int) *entry[T] {
	return &entry[T]{
		id:       NewID(),
		node:     node,
		resolver: resolver,
		render:   render,
		ch:       make(chan Response[T], bufferSize),
	}
}

// on notifies the subscription that entity ts was created or may have been
// impacted by a change to its parent chain. It mirrors venator's on_event:
// a matching entity is always (re-)emitted as Add (the subscriber needs
// fresh data even if it was already visible); a non-matching entity that
// was previously visible emits Remove and drops from the cache.
//
// As the upstream source itself documents, a negated filter combined with
// an entity the subscriber pre-loaded before subscribing can miss a Remove
// if a later parent update makes it stop matching — this is carried over
// unchanged rather than "fixed", since fixing it requires re-evaluating
// the filter against every cached key on every parent mutation, which
// defeats the purpose of incremental re-evaluation.
func (e *entry[T]) on(ts models.Timestamp) {
	matched, err := filter.Evaluate(e.node, ts, e.resolver)
	if err != nil {
		return
	}

	idx := iterx.UpperBoundViaExpansion(e.cache, ts)
	wasVisible := idx != 0 && e.cache[idx-1] == ts

	if matched {
		if !wasVisible {
			e.cache = iterx.InsertSorted(e.cache, ts)
		}
		view, ok := e.render(ts)
		if !ok {
			return
		}
		e.trySend(Response[T]{Kind: ResponseAdd, View: view})
		return
	}

	if wasVisible {
		e.cache = append(e.cache[:idx-1], e.cache[idx:]...)
		e.trySend(Response[T]{Kind: ResponseRemove, Key: ts})
	}
}

func (e *entry[T]) trySend(resp Response[T]) {
	if e.closed.Load() {
		return
	}
	select {
	case e.ch <- resp:
	default:
		// Slow subscriber: drop rather than block the single engine
		// worker goroutine every other caller depends on.
	}
}

func (e *entry[T]) Channel() <-chan Response[T] { return e.ch }

func (e *entry[T]) Close() {
	if e.closed.CompareAndSwap(false, true) {
		close(e.ch)
	}
}

// EventSubscription is a live query over the event stream.
type EventSubscription struct {
	*entry[*models.EventView]
}

func NewEventSubscription(node filter.FilterNode, resolver filter.Resolver, render func(models.Timestamp) (*models.EventView, bool), bufferSize int) *EventSubscription {
	return &EventSubscription{entry: newEntry(node, resolver, render, bufferSize)}
}

// SpanSubscription is a live query over the span stream.
type SpanSubscription struct {
	*entry[*models.SpanView]
}

func NewSpanSubscription(node filter.FilterNode, resolver filter.Resolver, render func(models.Timestamp) (*models.SpanView, bool), bufferSize int) *SpanSubscription {
	return &SpanSubscription{entry: newEntry(node, resolver, render, bufferSize)}
}

// Manager owns every live subscription and fans out notifications.
type Manager struct {
	mu     sync.RWMutex
	events map[ID]*EventSubscription
	spans  map[ID]*SpanSubscription
}

func NewManager() *Manager {
	return &Manager{
		events: make(map[ID]*EventSubscription),
		spans:  make(map[ID]*SpanSubscription),
	}
}

func (m *Manager) AddEventSubscription(s *EventSubscription) ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[s.id] = s
	return s.id
}

func (m *Manager) AddSpanSubscription(s *SpanSubscription) ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spans[s.id] = s
	return s.id
}

// Unsubscribe closes and removes the subscription with id, whichever kind
// it is.
func (m *Manager) Unsubscribe(id ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.events[id]; ok {
		s.Close()
		delete(m.events, id)
	}
	if s, ok := m.spans[id]; ok {
		s.Close()
		delete(m.spans, id)
	}
}

// NotifyEvent re-evaluates every live event subscription against ts.
func (m *Manager) NotifyEvent(ts models.Timestamp) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.events {
		s.on(ts)
	}
}

// NotifySpan re-evaluates every live span subscription against ts.
func (m *Manager) NotifySpan(ts models.Timestamp) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.spans {
		s.on(ts)
	}
}
