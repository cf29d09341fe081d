package writer

import "time"

// WriterConfig contains configuration for the price writer.
type WriterConfig struct {
	// Table is the prices table, optionally schema-qualified ("dbo.prices").
	Table string
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		Table: DefaultTable,
	}
}

// priceColumns holds one array per prices column, index-aligned.
type priceColumns struct {
	SecurityIDs []int64
	Asks        []float64
	Bids        []float64
	PxLasts     []float64
	DateTimes   []time.Time
}

// WriterMetrics holds metrics for a writer.
type WriterMetrics struct {
	Inserts int64
	Errors  int64
	Flushes int64
}
