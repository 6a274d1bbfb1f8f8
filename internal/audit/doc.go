// Package audit relays pre-registration flow events to a caller-supplied sink.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: structured record of a flow command: type, flow ID, masked email, outcome.
//
// # Architecture boundaries
//
// This package owns buffering and sink delivery. Which events exist and when
// they fire is decided by the engine and the flow functions.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on flow state.
//   - Import goPrereg or any sibling internal package.
//   - Record raw email addresses or verification codes; callers pass masked values.
package audit
