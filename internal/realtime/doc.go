// Package realtime implements the console's connection to the platform
// socket server.
//
// The Manager:
//   - Owns exactly one live transport connection at a time
//   - Falls back from websocket to HTTP long-polling when dialing
//   - Reconnects a dropped connection a bounded number of times with a fixed delay
//   - Re-asserts admin room membership on every transition into connected
//   - Dispatches inbound frames to registered listeners in delivery order
package realtime
