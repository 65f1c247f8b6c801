package archive

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"signalstore/pkg/ulid"
)

// Exporter batches archive records and periodically flushes each signal
// kind's batch to its own Parquet file under a Hive-style partition
// layout, grounded on the teacher's ArchiveService.ArchiveBatch /
// GenerateS3Path — adapted from an S3 upload target to a local directory,
// since this store is embeddable and has no object-storage dependency to
// reach for.
type Exporter struct {
	writer *Writer
	logger *slog.Logger

	baseDir  string
	interval time.Duration

	mu      sync.Mutex
	batches map[SignalKind][]Record

	quit chan struct{}
	done chan struct{}
}

// NewExporter creates an Exporter rooted at baseDir. compressionLevel <= 0
// falls back to 3, the teacher's balanced default.
func NewExporter(baseDir string, compressionLevel int, interval time.Duration, logger *slog.Logger) *Exporter {
	if compressionLevel <= 0 {
		compressionLevel = 3
	}
	return &Exporter{
		writer:   NewWriter(compressionLevel),
		logger:   logger,
		baseDir:  baseDir,
		interval: interval,
		batches:  make(map[SignalKind][]Record),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Add queues a record for the next flush.
func (x *Exporter) Add(r Record) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.batches[SignalKind(r.Signal)] = append(x.batches[SignalKind(r.Signal)], r)
}

// Start runs the periodic flush loop in a dedicated goroutine.
func (x *Exporter) Start() {
	go x.loop()
}

func (x *Exporter) loop() {
	defer close(x.done)
	ticker := time.NewTicker(x.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := x.Flush(); err != nil {
				x.logger.Error("archive flush failed", "error", err)
			}
		case <-x.quit:
			if err := x.Flush(); err != nil {
				x.logger.Error("archive final flush failed", "error", err)
			}
			return
		}
	}
}

// Stop signals the flush loop to drain and exit, blocking until it does.
func (x *Exporter) Stop() {
	close(x.quit)
	<-x.done
}

// Flush writes every non-empty signal batch to its own Parquet file and
// clears the in-memory buffers. Safe to call concurrently with Add.
func (x *Exporter) Flush() error {
	x.mu.Lock()
	pending := x.batches
	x.batches = make(map[SignalKind][]Record)
	x.mu.Unlock()

	for signal, records := range pending {
		if len(records) == 0 {
			continue
		}
		if err := x.writeBatch(signal, records); err != nil {
			return err
		}
	}
	return nil
}

func (x *Exporter) writeBatch(signal SignalKind, records []Record) error {
	data, err := x.writer.WriteRecords(records)
	if err != nil {
		return fmt.Errorf("archive: encode %s batch: %w", signal, err)
	}

	path := x.partitionPath(signal, time.Now(), ulid.New())
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("archive: create partition dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("archive: write partition file: %w", err)
	}
	x.logger.Info("archived batch", "signal", signal, "records", len(records), "path", path)
	return nil
}

// partitionPath builds a Hive-style path: {baseDir}/signal={kind}/
// year={y}/month={m}/day={d}/{batchID}.parquet, the same layout shape as
// the teacher's GenerateS3Path with the S3 prefix replaced by a local
// directory root.
func (x *Exporter) partitionPath(signal SignalKind, at time.Time, batchID ulid.ULID) string {
	return filepath.Join(
		x.baseDir,
		fmt.Sprintf("signal=%s", signal),
		fmt.Sprintf("year=%04d", at.Year()),
		fmt.Sprintf("month=%02d", at.Month()),
		fmt.Sprintf("day=%02d", at.Day()),
		batchID.String()+".parquet",
	)
}
