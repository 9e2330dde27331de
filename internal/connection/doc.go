// Package connection implements the chat client's Connection Manager.
//
// The Connection Manager:
//   - Owns exactly one WebSocket handle per logical session
//   - Announces the session identity as the first frame of every connection
//   - Forwards inbound frames verbatim to the registered Observer
//   - Reconnects with exponential backoff (1s, 2s, 4s, ... capped at 30s)
//     up to a bounded number of attempts, then reports OnGiveUp
//
// All state transitions run on a single event-loop goroutine. Transport
// goroutines and timers only enqueue events, so a slow observer never
// stalls the socket reader and no two handlers ever run concurrently.
package connection
