package archive

import (
	"bytes"
	"fmt"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// Writer writes Record slices to Parquet with ZSTD compression, the exact
// parquet.NewGenericWriter[T]/zstd.Codec shape the teacher's
// parquet_writer.go uses.
type Writer struct {
	compressionLevel int
}

// NewWriter creates a Writer. compressionLevel is clamped to [1, 22]; the
// teacher's own default (3, a balanced speed/ratio tradeoff) is used by
// NewExporter when unset.
func NewWriter(compressionLevel int) *Writer {
	if compressionLevel < 1 {
		compressionLevel = 1
	}
	if compressionLevel > 22 {
		compressionLevel = 22
	}
	return &Writer{compressionLevel: compressionLevel}
}

func (w *Writer) zstdLevel() zstd.Level {
	switch {
	case w.compressionLevel <= 1:
		return zstd.SpeedFastest
	case w.compressionLevel <= 3:
		return zstd.SpeedDefault
	case w.compressionLevel <= 9:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

// WriteRecords encodes records as a single Parquet file.
func (w *Writer) WriteRecords(records []Record) ([]byte, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("archive: no records to write")
	}

	var buf bytes.Buffer
	writer := parquet.NewGenericWriter[Record](
		&buf,
		parquet.Compression(&zstd.Codec{Level: w.zstdLevel()}),
	)

	if _, err := writer.Write(records); err != nil {
		return nil, fmt.Errorf("archive: write parquet records: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("archive: close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}
