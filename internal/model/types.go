package model

import "time"

// Security is one row of the catalog.
type Security struct {
	ID   int64  // Store-assigned, > 0 when known
	Name string // Service identifier (e.g. "XYZ US Equity")
}

// Known reports whether the security carries a store-assigned id.
func (s Security) Known() bool {
	return s.ID > 0
}

// PriceRecord is one normalized row for the prices table.
type PriceRecord struct {
	SecurityID int64     // Foreign key to securities.id
	Bid        float64   // BID
	Ask        float64   // ASK
	PxLast     float64   // PX_LAST
	ObservedAt time.Time // Wall clock at extraction, not a service value
}
