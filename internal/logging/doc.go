// Package logging builds the process logger from configuration.
//
// Output is stdout, stderr, or a file path. File output rotates by size
// and age via lumberjack.
package logging
