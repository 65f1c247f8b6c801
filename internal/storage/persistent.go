package storage

import (
	"context"
	"encoding/binary"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"signalstore/internal/models"
)

// Key byte prefixes, one per entity kind, grounded on Jaeger's badger
// spanstore writer key scheme (spanKeyPrefix/serviceNameIndexKey/... in
// plugin/storage/badger/spanstore/writer.go): a single prefix byte followed
// by a big-endian-encoded sort key keeps every entity kind's keyspace
// lexicographically ordered by timestamp within Badger's own sorted LSM.
const (
	prefixResource  byte = 0x01
	prefixSpan      byte = 0x02
	prefixSpanEvent byte = 0x03
	prefixEvent     byte = 0x04
)

// Persistent is an embedded, crash-safe archive backed by
// github.com/dgraph-io/badger/v4, the same embedded sorted key-value engine
// Acksell-bezos layers its DynamoDB-compatible store over
// (dynamodb/ddbstore/partitions). Badger's own directory lock file enforces
// the single-writer requirement in §5/§9 without any extra locking code
// here.
type Persistent struct {
	db *badger.DB
}

// OpenPersistent opens (creating if absent) a Badger archive at dir with
// Badger's default async-write policy.
func OpenPersistent(dir string) (*Persistent, error) {
	return OpenPersistentWithSync(dir, false)
}

// OpenPersistentWithSync opens a Badger archive at dir, optionally forcing
// every write to fsync before it is acknowledged. syncWrites trades
// throughput for the guarantee that an acknowledged insert survives a
// crash; StorageConfig.ArchiveFsync controls this at the config layer.
func OpenPersistentWithSync(dir string, syncWrites bool) (*Persistent, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil).WithSyncWrites(syncWrites)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: open badger archive: %w", err)
	}
	return &Persistent{db: db}, nil
}

func encodeKey(prefix byte, ts models.Timestamp) []byte {
	key := make([]byte, 9)
	key[0] = prefix
	binary.BigEndian.PutUint64(key[1:], uint64(ts))
	return key
}

func (p *Persistent) put(kind EntityKind, prefix byte, ts models.Timestamp, payload any) error {
	buf, err := EncodeRecord(kind, payload)
	if err != nil {
		return err
	}
	return p.db.Update(func(txn *badger.Txn) error {
		return txn.Set(encodeKey(prefix, ts), buf)
	})
}

func (p *Persistent) get(prefix byte, ts models.Timestamp, out any, kindName string) error {
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(encodeKey(prefix, ts))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			// item.Value hands back a slice valid only for this callback;
			// DecodeRecord copies it into out via json.Unmarshal, so no
			// alignment concerns survive past this point (the
			// "copy-on-read, validate-once" strategy from §9).
			_, derr := DecodeRecord(val, out)
			return derr
		})
	})
	if err == badger.ErrKeyNotFound {
		return &ErrNotFound{Kind: kindName}
	}
	return err
}

func (p *Persistent) scanAll(prefix byte, visit func(val []byte) error) error {
	return p.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte{prefix}
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte{prefix}); it.ValidForPrefix([]byte{prefix}); it.Next() {
			item := it.Item()
			if err := item.Value(func(val []byte) error {
				return visit(val)
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *Persistent) drop(prefix byte, keys []models.Timestamp) error {
	return p.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete(encodeKey(prefix, k)); err != nil && err != badger.ErrKeyNotFound {
				return err
			}
		}
		return nil
	})
}

func (p *Persistent) GetResource(_ context.Context, at models.ResourceKey) (*models.Resource, error) {
	var r models.Resource
	if err := p.get(prefixResource, at, &r, "resource"); err != nil {
		return nil, err
	}
	return &r, nil
}

func (p *Persistent) GetSpan(_ context.Context, at models.SpanKey) (*models.Span, error) {
	var s models.Span
	if err := p.get(prefixSpan, at, &s, "span"); err != nil {
		return nil, err
	}
	return &s, nil
}

func (p *Persistent) GetSpanEvent(_ context.Context, at models.SpanEventKey) (*models.SpanEvent, error) {
	var e models.SpanEvent
	if err := p.get(prefixSpanEvent, at, &e, "span_event"); err != nil {
		return nil, err
	}
	return &e, nil
}

func (p *Persistent) GetEvent(_ context.Context, at models.EventKey) (*models.Event, error) {
	var e models.Event
	if err := p.get(prefixEvent, at, &e, "event"); err != nil {
		return nil, err
	}
	return &e, nil
}

func (p *Persistent) GetAllResources(_ context.Context) ([]*models.Resource, error) {
	var out []*models.Resource
	err := p.scanAll(prefixResource, func(val []byte) error {
		var r models.Resource
		if _, err := DecodeRecord(val, &r); err != nil {
			return err
		}
		out = append(out, &r)
		return nil
	})
	return out, err
}

func (p *Persistent) GetAllSpans(_ context.Context) ([]*models.Span, error) {
	var out []*models.Span
	err := p.scanAll(prefixSpan, func(val []byte) error {
		var s models.Span
		if _, err := DecodeRecord(val, &s); err != nil {
			return err
		}
		out = append(out, &s)
		return nil
	})
	return out, err
}

func (p *Persistent) GetAllSpanEvents(_ context.Context) ([]*models.SpanEvent, error) {
	var out []*models.SpanEvent
	err := p.scanAll(prefixSpanEvent, func(val []byte) error {
		var e models.SpanEvent
		if _, err := DecodeRecord(val, &e); err != nil {
			return err
		}
		out = append(out, &e)
		return nil
	})
	return out, err
}

func (p *Persistent) GetAllEvents(_ context.Context) ([]*models.Event, error) {
	var out []*models.Event
	err := p.scanAll(prefixEvent, func(val []byte) error {
		var e models.Event
		if _, err := DecodeRecord(val, &e); err != nil {
			return err
		}
		out = append(out, &e)
		return nil
	})
	return out, err
}

func (p *Persistent) InsertResource(_ context.Context, r *models.Resource) error {
	return p.put(KindResource, prefixResource, r.Key(), r)
}

func (p *Persistent) InsertSpan(_ context.Context, s *models.Span) error {
	return p.put(KindSpan, prefixSpan, s.Key(), s)
}

func (p *Persistent) InsertSpanEvent(_ context.Context, e *models.SpanEvent) error {
	return p.put(KindSpanEvent, prefixSpanEvent, e.Key(), e)
}

func (p *Persistent) InsertEvent(_ context.Context, e *models.Event) error {
	return p.put(KindEvent, prefixEvent, e.Key(), e)
}

func (p *Persistent) UpdateSpanClosed(ctx context.Context, at models.SpanKey, closedAt models.Timestamp, busyNanos *uint64) error {
	s, err := p.GetSpan(ctx, at)
	if err != nil {
		return err
	}
	s.ClosedAt = &closedAt
	s.BusyNanos = busyNanos
	return p.InsertSpan(ctx, s)
}

func (p *Persistent) UpdateSpanAttributes(ctx context.Context, at models.SpanKey, attrs map[string]models.Value) error {
	s, err := p.GetSpan(ctx, at)
	if err != nil {
		return err
	}
	if s.Attributes == nil {
		s.Attributes = make(map[string]models.Value, len(attrs))
	}
	for k, v := range attrs {
		s.Attributes[k] = v
	}
	return p.InsertSpan(ctx, s)
}

func (p *Persistent) UpdateSpanLink(ctx context.Context, at models.SpanKey, link models.SpanLink) error {
	s, err := p.GetSpan(ctx, at)
	if err != nil {
		return err
	}
	s.Links = append(s.Links, link)
	return p.InsertSpan(ctx, s)
}

func (p *Persistent) UpdateSpanParent(ctx context.Context, at models.SpanKey, parent models.SpanKey, parentID *models.FullSpanId) error {
	s, err := p.GetSpan(ctx, at)
	if err != nil {
		return err
	}
	s.ParentKey = &parent
	s.ParentID = parentID
	return p.InsertSpan(ctx, s)
}

func (p *Persistent) UpdateEventParent(ctx context.Context, at models.EventKey, parent models.SpanKey) error {
	e, err := p.GetEvent(ctx, at)
	if err != nil {
		return err
	}
	e.ParentKey = &parent
	return p.InsertEvent(ctx, e)
}

func (p *Persistent) DropResources(_ context.Context, keys []models.ResourceKey) error {
	return p.drop(prefixResource, keys)
}

func (p *Persistent) DropSpans(_ context.Context, keys []models.SpanKey) error {
	return p.drop(prefixSpan, keys)
}

func (p *Persistent) DropSpanEvents(_ context.Context, keys []models.SpanEventKey) error {
	return p.drop(prefixSpanEvent, keys)
}

func (p *Persistent) DropEvents(_ context.Context, keys []models.EventKey) error {
	return p.drop(prefixEvent, keys)
}

func (p *Persistent) Close() error { return p.db.Close() }
