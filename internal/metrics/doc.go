// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Connection state and dial attempts
//   - Reconnect delays and give-ups
//   - Inbound and outbound message rates and sizes
//   - Rejected sends by reason
package metrics
