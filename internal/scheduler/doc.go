// Package scheduler implements the daily run trigger.
//
// The Scheduler:
//   - Fires once per day at a fixed local time of day (default 18:00)
//   - Optionally fires once immediately on start
//   - Serializes runs: a firing that lands while a run is executing is skipped
//   - Waits for the in-flight run on Stop
package scheduler
