// Package pipeline runs one normalization pass end to end.
//
// A run acquires a store connection and a service session, loads the
// security catalog, sends one reference-data request, accumulates price
// records until the FINAL response, and writes them with one statement.
// The store and the session are released on every exit path.
//
// Connect, service-open, transport and write failures abort the run and are
// returned as errors. Security errors, field exceptions, unmatched names and
// malformed entries are recorded in the run's report and never abort it.
package pipeline
