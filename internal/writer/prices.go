package writer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rickgao/refdata-normalizer/internal/database"
	"github.com/rickgao/refdata-normalizer/internal/model"
)

// DefaultTable is the price history table name.
const DefaultTable = "prices"

// ErrNoDatabase is returned when records are written without a database.
var ErrNoDatabase = errors.New("no database")

// WriteError is returned when the store rejects the batch.
type WriteError struct {
	Rows int // Rows in the rejected statement
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("insert %d price rows: %v", e.Rows, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Execer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// PriceWriter writes PriceRecords to the prices table.
type PriceWriter struct {
	cfg    WriterConfig
	db     Execer
	logger *slog.Logger

	mu      sync.Mutex
	metrics WriterMetrics
}

// NewPriceWriter creates a new PriceWriter.
func NewPriceWriter(cfg WriterConfig, db Execer, logger *slog.Logger) *PriceWriter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	return &PriceWriter{
		cfg:    cfg,
		db:     db,
		logger: logger.With("component", "writer"),
	}
}

// Write inserts all records with one statement and returns the rows affected.
// An empty slice is a no-op.
func (w *PriceWriter) Write(ctx context.Context, records []model.PriceRecord) (int64, error) {
	if len(records) == 0 {
		w.logger.Info("no price records, nothing written")
		return 0, nil
	}
	if w.db == nil {
		return 0, ErrNoDatabase
	}

	start := time.Now()
	cols := transform(records)

	tag, err := w.db.Exec(ctx, w.insertSQL(),
		cols.SecurityIDs, cols.Asks, cols.Bids, cols.PxLasts, cols.DateTimes,
	)
	if err != nil {
		w.mu.Lock()
		w.metrics.Errors++
		w.mu.Unlock()

		w.logger.Error("batch insert failed", "error", err, "count", len(records))
		return 0, &WriteError{Rows: len(records), Err: err}
	}

	inserted := tag.RowsAffected()

	w.mu.Lock()
	w.metrics.Inserts += inserted
	w.metrics.Flushes++
	w.mu.Unlock()

	w.logger.Info("flushed prices",
		"count", len(records),
		"inserted", inserted,
		"duration", time.Since(start),
	)

	return inserted, nil
}

// Stats returns current metrics.
func (w *PriceWriter) Stats() WriterMetrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metrics
}

// insertSQL unnests one array per column so any batch size is a single
// statement with five parameters.
func (w *PriceWriter) insertSQL() string {
	return fmt.Sprintf(`
		INSERT INTO %s (security_id, ask, bid, px_last, date_time)
		SELECT * FROM unnest($1::bigint[], $2::float8[], $3::float8[], $4::float8[], $5::timestamptz[])
	`, database.QuoteIdent(w.cfg.Table))
}

// transform converts records to column arrays, preserving order.
func transform(records []model.PriceRecord) priceColumns {
	cols := priceColumns{
		SecurityIDs: make([]int64, len(records)),
		Asks:        make([]float64, len(records)),
		Bids:        make([]float64, len(records)),
		PxLasts:     make([]float64, len(records)),
		DateTimes:   make([]time.Time, len(records)),
	}
	for i, r := range records {
		cols.SecurityIDs[i] = r.SecurityID
		cols.Asks[i] = r.Ask
		cols.Bids[i] = r.Bid
		cols.PxLasts[i] = r.PxLast
		cols.DateTimes[i] = r.ObservedAt
	}
	return cols
}
