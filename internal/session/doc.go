// Package session implements the ServiceSession component.
//
// The session:
//   - Dials the reference-data gateway over WebSocket (ws://host:port/)
//   - Waits for SessionStarted, then opens the named service (default //blp/refdata)
//   - Sends one request under a fresh correlation id
//   - Hands out events one at a time via NextEvent, blocking until the next frame
//
// States: Disconnected → Connecting → ServiceReady → Terminated, or Failed when
// connect or service-open does not succeed. There is no reconnect.
package session
