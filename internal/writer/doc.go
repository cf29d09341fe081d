// Package writer implements the BatchWriter.
//
// One run produces at most one statement: every accumulated PriceRecord is
// inserted by a single multi-row INSERT into the prices table. An empty batch
// executes nothing. The statement either succeeds as a whole or the driver
// error is returned as a *WriteError; there is no partial persistence.
//
// The prices table is append-only (never update, only insert).
package writer
