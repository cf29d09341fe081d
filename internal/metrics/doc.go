// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Run outcomes and durations
//   - Price rows written per run
//   - Non-fatal faults by kind (security errors, field exceptions, unmatched, duplicates, extraction)
//   - Response events by kind
//   - Go runtime and process collectors
package metrics
