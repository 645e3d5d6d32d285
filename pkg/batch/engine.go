// Package batch turns bulk jobs against a single resolved client into
// results with bounded parallelism, explicit chunking and
// partial-failure bookkeeping.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hadoopt/odoo-bridge/pkg/client"
	"github.com/hadoopt/odoo-bridge/pkg/logging"
)

// Defaults for engine configuration.
const (
	DefaultChunkSize   = 100
	DefaultConcurrency = 3
)

// Client is the slice of the RPC client the engine needs. The engine is
// always handed an already-resolved client; it never talks to the
// registry.
type Client interface {
	SearchRead(ctx context.Context, model string, domain []any, opts client.SearchOptions) ([]client.Record, error)
	SearchCount(ctx context.Context, model string, domain []any) (int, error)
	CreateRecord(ctx context.Context, model string, values map[string]any) (int64, error)
	UpdateRecords(ctx context.Context, model string, ids []int64, values map[string]any) error
	DeleteRecords(ctx context.Context, model string, ids []int64) error
	FieldsGet(ctx context.Context, model string, attributes []string) (map[string]client.Record, error)
}

// Config tunes an Engine.
type Config struct {
	// ChunkSize is the default records-per-chunk for all operations.
	ChunkSize int

	// Concurrency bounds the ParallelMap worker pool.
	Concurrency int
}

// DefaultConfig returns safe defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:   DefaultChunkSize,
		Concurrency: DefaultConcurrency,
	}
}

// Engine executes bulk jobs against one client.
type Engine struct {
	client Client
	config Config
	logger zerolog.Logger
}

// NewEngine creates an engine over an already-resolved client.
func NewEngine(c Client, cfg Config) *Engine {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Engine{
		client: c,
		config: cfg,
		logger: logging.NewLogger("batch"),
	}
}

// ReadJob parameterizes a paginated bulk read.
type ReadJob struct {
	Model  string
	Domain []any
	Fields []string
	Order  string

	// ChunkSize overrides the engine default when positive.
	ChunkSize int

	// MaxRecords caps the total records fetched; zero means no cap.
	MaxRecords int

	// ContinueOnError keeps pagination going past a failed chunk.
	ContinueOnError bool

	// Sink receives each chunk instead of accumulating records. When
	// set, SearchReadAll returns a nil record slice.
	Sink func(chunk []client.Record) error
}

// SearchReadAll reads all records matching the job in fixed-size
// chunks. The matching count steers the iteration but actual data is
// the source of truth: a short or empty chunk ends pagination early.
// Per-chunk failures are collected in the result; the returned error is
// non-nil only for invalid job parameters.
func (e *Engine) SearchReadAll(ctx context.Context, job ReadJob) ([]client.Record, Result, error) {
	result := Result{Operation: "search_read", Model: job.Model}
	if job.Model == "" {
		return nil, result, fmt.Errorf("%w: model is required", ErrInvalidOperation)
	}

	chunkSize := job.ChunkSize
	if chunkSize <= 0 {
		chunkSize = e.config.ChunkSize
	}

	start := time.Now()
	defer func() {
		jobDuration.WithLabelValues("search_read").Observe(time.Since(start).Seconds())
	}()

	total, ok := e.countRecords(ctx, job, chunkSize)
	if !ok {
		result.finish(start)
		return []client.Record{}, result, nil
	}
	if job.MaxRecords > 0 && total > job.MaxRecords {
		total = job.MaxRecords
	}
	result.Total = total

	e.logger.Info().
		Str("model", job.Model).
		Int("total", total).
		Int("chunk_size", chunkSize).
		Msg("Starting paginated read")

	var accumulated []client.Record
	if job.Sink == nil {
		accumulated = make([]client.Record, 0, total)
	}

	// Offsets advance strictly in order; later chunks depend on the
	// stability of earlier offset/limit windows.
	for offset := 0; offset < total; offset += chunkSize {
		limit := chunkSize
		if remaining := total - offset; remaining < limit {
			limit = remaining
		}

		chunk, err := e.client.SearchRead(ctx, job.Model, job.Domain, client.SearchOptions{
			Fields: job.Fields,
			Offset: offset,
			Limit:  limit,
			Order:  job.Order,
		})
		if err != nil {
			result.Failed += limit
			result.addError(ItemError{Index: offset, ChunkSize: limit, Message: err.Error()})
			itemsTotal.WithLabelValues("search_read", "failed").Add(float64(limit))
			e.logger.Error().Err(err).
				Str("model", job.Model).
				Int("offset", offset).
				Msg("Chunk fetch failed")
			if !job.ContinueOnError {
				break
			}
			continue
		}

		// The count may be stale under concurrent writes; an empty
		// chunk means the data ran out.
		if len(chunk) == 0 {
			e.logger.Debug().Int("offset", offset).Msg("Empty chunk, ending pagination")
			break
		}

		if job.Sink != nil {
			if err := job.Sink(chunk); err != nil {
				result.Failed += len(chunk)
				result.addError(ItemError{Index: offset, ChunkSize: len(chunk), Message: err.Error()})
				break
			}
		} else {
			accumulated = append(accumulated, chunk...)
		}

		result.Processed += len(chunk)
		chunksTotal.WithLabelValues("search_read").Inc()
		itemsTotal.WithLabelValues("search_read", "ok").Add(float64(len(chunk)))

		if len(chunk) < limit {
			break
		}
		if job.MaxRecords > 0 && result.Processed >= job.MaxRecords {
			break
		}
	}

	result.finish(start)
	e.logger.Info().
		Str("model", job.Model).
		Int("processed", result.Processed).
		Int("failed", result.Failed).
		Dur("elapsed", result.Elapsed).
		Msg("Paginated read complete")
	return accumulated, result, nil
}

// countRecords determines how many records match. When the count call
// fails it probes with a single-record fetch and assumes at least one
// chunk rather than failing the job outright. The second return is
// false when the probe shows no data at all.
func (e *Engine) countRecords(ctx context.Context, job ReadJob, chunkSize int) (int, bool) {
	total, err := e.client.SearchCount(ctx, job.Model, job.Domain)
	if err == nil {
		return total, true
	}
	e.logger.Warn().Err(err).
		Str("model", job.Model).
		Msg("Count call failed, probing with single-record fetch")

	probe, probeErr := e.client.SearchRead(ctx, job.Model, job.Domain, client.SearchOptions{
		Fields: job.Fields,
		Limit:  1,
	})
	if probeErr != nil || len(probe) == 0 {
		return 0, false
	}
	return chunkSize, true
}
