// Package database provides connection pool management for the PostgreSQL store.
//
// The store holds two relations:
//   - securities (id, name): the catalog read at the start of each run
//   - prices (security_id, ask, bid, px_last, date_time): append-only price history
//
// EnsureSchema creates both when missing; existing tables are left untouched.
package database
