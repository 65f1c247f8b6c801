package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalstore/internal/models"
	"signalstore/pkg/logging"
)

func TestRecordBuildersSerializeEntities(t *testing.T) {
	now := time.Now()

	span := &models.Span{CreatedAt: 100, Level: models.LevelWarn, Name: "op"}
	rec, err := SpanRecord(span, now)
	require.NoError(t, err)
	assert.Equal(t, string(SignalSpans), rec.Signal)
	assert.Equal(t, int64(100), rec.Key)
	assert.Equal(t, int64(-1), rec.ParentKey)
	assert.Equal(t, "WARN", rec.Level)
	assert.Contains(t, rec.PayloadRaw, `"name":"op"`)

	parentKey := models.SpanKey(50)
	ev := &models.Event{Timestamp: 200, ParentKey: &parentKey, Level: models.LevelError, Content: "boom"}
	rec, err = EventRecord(ev, now)
	require.NoError(t, err)
	assert.Equal(t, string(SignalEvents), rec.Signal)
	assert.Equal(t, int64(50), rec.ParentKey)

	res := &models.Resource{CreatedAt: 300}
	rec, err = ResourceRecord(res, now)
	require.NoError(t, err)
	assert.Equal(t, string(SignalResources), rec.Signal)
	assert.Equal(t, "", rec.Level)
}

func TestExporterFlushWritesPartitionedFiles(t *testing.T) {
	dir := t.TempDir()
	logger := logging.NewTextLogger(logging.ParseLevel("error"))
	x := NewExporter(dir, 3, time.Hour, logger)

	now := time.Now()
	span := &models.Span{CreatedAt: 100, Level: models.LevelInfo, Name: "op"}
	rec, err := SpanRecord(span, now)
	require.NoError(t, err)
	x.Add(rec)

	ev := &models.Event{Timestamp: 200, Level: models.LevelInfo, Content: "hi"}
	evRec, err := EventRecord(ev, now)
	require.NoError(t, err)
	x.Add(evRec)

	require.NoError(t, x.Flush())

	matches, err := filepath.Glob(filepath.Join(dir, "signal=spans", "year=*", "month=*", "day=*", "*.parquet"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	matches, err = filepath.Glob(filepath.Join(dir, "signal=events", "year=*", "month=*", "day=*", "*.parquet"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	info, err := os.Stat(matches[0])
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestExporterStopFlushesPendingBatch(t *testing.T) {
	dir := t.TempDir()
	logger := logging.NewTextLogger(logging.ParseLevel("error"))
	x := NewExporter(dir, 3, time.Hour, logger)
	x.Start()

	span := &models.Span{CreatedAt: 100, Level: models.LevelInfo, Name: "op"}
	rec, err := SpanRecord(span, time.Now())
	require.NoError(t, err)
	x.Add(rec)

	x.Stop()

	matches, err := filepath.Glob(filepath.Join(dir, "signal=spans", "year=*", "month=*", "day=*", "*.parquet"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}
