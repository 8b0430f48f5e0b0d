// Package ws provides websocket connection handling and message
// dispatch for collaborative boards.
//
// The package implements:
//   - Client: one participant's connection with a bounded send queue
//   - Handler: upgrade, heartbeat, and per-kind message dispatch
//
// Key behaviors:
//   - Authoritative events (draw, text, undo, clear) are delivered in
//     board log order; a subscriber that cannot keep pace is
//     disconnected and resynchronizes from a fresh snapshot
//   - Ephemeral events (cursor) may be dropped under pressure
//   - Protocol violations are reported only to the offending
//     connection, which stays open
//   - Idle connections are probed with pings; missed heartbeats are
//     treated as a disconnect
package ws
