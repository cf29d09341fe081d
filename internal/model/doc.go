// Package model defines shared data types used across the reference-data normalizer.
//
// All types mirror the store schema:
//   - securities(id, name): the catalog read once per run
//   - prices(security_id, ask, bid, px_last, date_time): append-only price history
//
// Conventions:
//   - Prices: float64 exactly as returned by the service (no rounding, no unit conversion)
//   - Timestamps: time.Time wall clock at extraction
//   - Security names: the service identifier (e.g. "XYZ US Equity")
package model
