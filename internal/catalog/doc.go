// Package catalog implements the SecurityCatalog.
//
// The catalog is read once per run from the securities table and resolves
// service names to securities by exact match. The first row wins when a name
// appears twice.
package catalog
