package core

// importer.go implements the chunked import executor.
//
// The file is read twice: a counting pass establishes the total, then a
// second pass fills fixed-size chunks of records. Each chunk is normalized,
// deduplicated by lower-cased sku and committed in its own transaction, so a
// failure rolls back only the chunk in flight. Memory use is bounded by the
// chunk size regardless of file size.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/AarnabDutta/Product-Importer-FullStack/internal/logging"
)

// DefaultChunkSize is used when neither the job nor the importer sets one.
const DefaultChunkSize = 5000

// progressEvery is the chunk cadence for progress reports.
const progressEvery = 2

// ProgressFunc receives (processed, total) after qualifying chunks.
type ProgressFunc func(current, total int)

// Importer executes import jobs against a ChunkWriter.
type Importer struct {
	store     ChunkWriter
	chunkSize int
	now       func() time.Time
}

// NewImporter creates an Importer. A non-positive chunkSize falls back to
// DefaultChunkSize.
func NewImporter(store ChunkWriter, chunkSize int) *Importer {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Importer{store: store, chunkSize: chunkSize, now: time.Now}
}

// Run imports job.FilePath. The source file is removed when Run returns,
// whether or not the import succeeded.
func (im *Importer) Run(ctx context.Context, job Job, report ProgressFunc) (ImportResult, error) {
	log := logging.WithFields(ctx, "file", job.FileName)
	defer removeSource(ctx, job.FilePath)

	if report == nil {
		report = func(int, int) {}
	}
	chunkSize := job.ChunkSize
	if chunkSize <= 0 {
		chunkSize = im.chunkSize
	}

	total, err := countRows(job.FilePath)
	if err != nil {
		return ImportResult{}, err
	}
	log.Info("import started", "total_rows", total, "chunk_size", chunkSize)

	f, err := os.Open(job.FilePath)
	if err != nil {
		return ImportResult{}, fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	cr := NewCSVReader(f)
	header, err := cr.Read()
	if err != nil {
		return ImportResult{}, fmt.Errorf("%w: %v", ErrUnreadableCSV, err)
	}
	if err := ValidateHeader(header); err != nil {
		return ImportResult{}, err
	}
	idx := MakeHeaderIndex(header)

	var (
		rowsRead  int
		processed int
		chunkNo   int
		pending   int
		rows      = make([]ProductRow, 0, chunkSize)
	)

	flush := func(last bool) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunkNo++
		batch := dedupeChunk(rows)
		n, err := im.store.UpsertChunk(ctx, batch, im.now().UTC())
		if err != nil {
			return fmt.Errorf("chunk %d: %w", chunkNo, err)
		}
		processed += n
		log.Debug("chunk committed", "chunk", chunkNo, "rows_read", pending, "upserted", n)

		if chunkNo%progressEvery == 0 || last {
			report(min(processed, total), total)
		}
		rows = rows[:0]
		pending = 0
		return nil
	}

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ImportResult{}, fmt.Errorf("%w: %v", ErrUnreadableCSV, err)
		}
		rowsRead++
		pending++

		row, ok, err := buildRow(idx, record)
		if err != nil {
			return ImportResult{}, fmt.Errorf("row %d: %w", rowsRead, err)
		}
		if ok {
			rows = append(rows, row)
		}

		if pending == chunkSize {
			if err := flush(rowsRead >= total); err != nil {
				return ImportResult{}, err
			}
		}
	}

	if pending > 0 {
		if err := flush(true); err != nil {
			return ImportResult{}, err
		}
	}
	if chunkNo == 0 {
		report(0, total)
	}

	total = max(total, rowsRead)
	log.Info("import finished", "processed", processed, "chunks", chunkNo)

	return ImportResult{
		Status:    "completed",
		Total:     total,
		Processed: processed,
		Message:   fmt.Sprintf("Successfully imported %d products", processed),
	}, nil
}

// countRows streams the file once and returns the number of data rows.
func countRows(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	cr := NewCSVReader(f)
	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("%w: file is empty", ErrUnreadableCSV)
		}
		return 0, fmt.Errorf("%w: %v", ErrUnreadableCSV, err)
	}

	n := 0
	for {
		_, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnreadableCSV, err)
		}
		n++
	}
}

func removeSource(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.FromContext(ctx).Warn("failed to remove import file", "path", path, "error", err)
	}
}
