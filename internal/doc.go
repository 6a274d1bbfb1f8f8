// Package internal groups helpers that are private to goPrereg.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher and Sink implementations)
//   - cooldown: the one-second resend countdown
//   - flows: pure-function orchestrators for the backend operations
//   - limiters: the Redis dispatch limiter
//   - metrics: lock-free counters and the backend latency histogram
//
// # What this package must NOT do
//
//   - Export types that appear in the public goPrereg API except through
//     aliases in the root package.
package internal
