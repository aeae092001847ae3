// Package telemetry provides a slog.Handler that captures error-level log
// records into Parquet files, giving long-running ingest jobs a queryable
// audit trail of failed graph operations.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
)

// Record is one captured log entry in its Parquet layout.
type Record struct {
	ID         string    `parquet:"id"`
	Timestamp  time.Time `parquet:"timestamp"`
	Level      string    `parquet:"level"`
	Message    string    `parquet:"message"`
	SourceFile string    `parquet:"source_file"`
	LineNumber int       `parquet:"line_number"`
	Attributes string    `parquet:"attributes"` // JSON-encoded attrs
}

// ParquetHandler wraps another slog.Handler and additionally buffers records
// at or above MinLevel, flushing them to timestamped Parquet files in the
// output directory.
type ParquetHandler struct {
	next      slog.Handler
	outputDir string
	minLevel  slog.Level
	batchSize int

	mu     sync.Mutex
	buffer []Record
}

// Option tunes a ParquetHandler.
type Option func(*ParquetHandler)

// WithMinLevel sets the lowest level captured to Parquet (default Error).
func WithMinLevel(level slog.Level) Option {
	return func(h *ParquetHandler) { h.minLevel = level }
}

// WithBatchSize sets how many records accumulate before a flush (default 100).
func WithBatchSize(n int) Option {
	return func(h *ParquetHandler) {
		if n > 0 {
			h.batchSize = n
		}
	}
}

// NewParquetHandler builds a handler that forwards every record to next and
// persists captured ones under outputDir.
func NewParquetHandler(next slog.Handler, outputDir string, opts ...Option) (*ParquetHandler, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}
	h := &ParquetHandler{
		next:      next,
		outputDir: outputDir,
		minLevel:  slog.LevelError,
		batchSize: 100,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.buffer = make([]Record, 0, h.batchSize)
	return h, nil
}

func (h *ParquetHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ParquetHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.next.Handle(ctx, r); err != nil {
		return err
	}
	if r.Level < h.minLevel {
		return nil
	}

	attrs := make(map[string]any)
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})
	attrsJSON, _ := json.Marshal(attrs)

	frames := runtime.CallersFrames([]uintptr{r.PC})
	frame, _ := frames.Next()

	rec := Record{
		ID:         uuid.NewString(),
		Timestamp:  r.Time.UTC(),
		Level:      r.Level.String(),
		Message:    r.Message,
		SourceFile: frame.File,
		LineNumber: frame.Line,
		Attributes: string(attrsJSON),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.buffer = append(h.buffer, rec)
	if len(h.buffer) >= h.batchSize {
		return h.flush()
	}
	return nil
}

// Flush writes any buffered records out immediately.
func (h *ParquetHandler) Flush() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.flush()
}

// Close flushes remaining records. The handler stays usable afterwards.
func (h *ParquetHandler) Close() error {
	return h.Flush()
}

// flush writes the buffer to a fresh Parquet file. Caller holds the lock.
func (h *ParquetHandler) flush() error {
	if len(h.buffer) == 0 {
		return nil
	}
	name := fmt.Sprintf("graph_errors_%s_%d.parquet",
		time.Now().UTC().Format("20060102_150405"), time.Now().UnixNano())
	if err := parquet.WriteFile(filepath.Join(h.outputDir, name), h.buffer); err != nil {
		return fmt.Errorf("failed to write telemetry file: %w", err)
	}
	h.buffer = h.buffer[:0]
	return nil
}

func (h *ParquetHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.clone(h.next.WithAttrs(attrs))
}

func (h *ParquetHandler) WithGroup(name string) slog.Handler {
	return h.clone(h.next.WithGroup(name))
}

// clone derives a handler with its own buffer; child loggers batch
// independently.
func (h *ParquetHandler) clone(next slog.Handler) *ParquetHandler {
	return &ParquetHandler{
		next:      next,
		outputDir: h.outputDir,
		minLevel:  h.minLevel,
		batchSize: h.batchSize,
		buffer:    make([]Record, 0, h.batchSize),
	}
}
