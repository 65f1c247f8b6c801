// Package archive exports dropped and evicted entities to columnar files
// for cold-storage retention, additive to the engine's Badger-backed
// persistent storage: it serves replay/migration, not the hot query path.
package archive

import (
	"encoding/json"
	"time"

	"signalstore/internal/models"
)

// SignalKind names the entity kind an archived record came from, the
// partitioning dimension of the Hive-style export layout.
type SignalKind string

const (
	SignalSpans     SignalKind = "spans"
	SignalEvents    SignalKind = "events"
	SignalResources SignalKind = "resources"
)

// Record is one archived entity: its own key fields plus the full entity
// serialized as JSON, mirroring the teacher's RawTelemetryRecord shape
// (record_id/signal_type/timestamp + a JSON payload column sufficient for
// replay) rather than flattening every attribute into its own column.
type Record struct {
	Signal     string    `parquet:"signal"`
	Key        int64     `parquet:"key,timestamp(microsecond)"`
	ParentKey  int64     `parquet:"parent_key"`
	Level      string    `parquet:"level"`
	PayloadRaw string    `parquet:"payload_raw"`
	ArchivedAt time.Time `parquet:"archived_at,timestamp(microsecond)"`
}

func newRecord(signal SignalKind, key models.Timestamp, parentKey *models.SpanKey, level string, payload any, archivedAt time.Time) (Record, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Record{}, err
	}
	var parent int64 = -1
	if parentKey != nil {
		parent = int64(*parentKey)
	}
	return Record{
		Signal:     string(signal),
		Key:        int64(key),
		ParentKey:  parent,
		Level:      level,
		PayloadRaw: string(raw),
		ArchivedAt: archivedAt,
	}, nil
}

// SpanRecord builds the archive record for a dropped or evicted span.
func SpanRecord(s *models.Span, archivedAt time.Time) (Record, error) {
	return newRecord(SignalSpans, s.CreatedAt, s.ParentKey, s.Level.String(), s, archivedAt)
}

// EventRecord builds the archive record for a dropped or evicted event.
func EventRecord(ev *models.Event, archivedAt time.Time) (Record, error) {
	return newRecord(SignalEvents, ev.Timestamp, ev.ParentKey, ev.Level.String(), ev, archivedAt)
}

// ResourceRecord builds the archive record for a dropped or evicted
// resource. Resources have no parent or level, so those columns carry
// their zero/sentinel values.
func ResourceRecord(r *models.Resource, archivedAt time.Time) (Record, error) {
	return newRecord(SignalResources, r.CreatedAt, nil, "", r, archivedAt)
}
