// Package processor implements the ResponseProcessor component.
//
// The processor pulls events from an EventSource until the FINAL event of its
// request arrives:
//   - OTHER events are logged and contribute nothing
//   - PARTIAL and FINAL events are processed identically; only FINAL is terminal
//   - Each securityData entry is classified as FieldData, SecurityError or MalformedData
//   - FieldData entries resolving to a known catalog security become PriceRecords
//
// Accumulation is append-only. The buffer is handed over once, after FINAL.
package processor
