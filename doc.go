// Package goPrereg drives a pre-registration email verification flow: the user
// enters an email, receives a one-time code, verifies it, and lands on a
// success screen. Resends are gated by a ticking cooldown.
//
// An [Engine] is built once through [Builder.Build] and is safe for
// concurrent use. Each user-facing dialog gets its own [Flow] from
// [Engine.NewFlow]; a Flow serializes its commands and publishes every
// committed [FlowState] to subscribers.
//
// # Architecture boundaries
//
// goPrereg is the public surface. It exposes [Engine], [Builder], [Flow],
// [Config], and value types (FlowState, MetricsSnapshot, AuditEvent). Backend
// normalization, the cooldown countdown, dispatch limiting, and audit dispatch
// live under internal/ and are never exported. The HTTP backend client lives
// in httpclient/ and does not import this package.
//
// # What this package must NOT do
//
//   - Generate, store, or check verification codes. That is the backend's job.
//   - Expose Redis clients or limiter internals in its public API.
//   - Invoke caller code while holding a Flow's state lock.
//   - Import any sub-package that re-imports goPrereg (no import cycles).
package goPrereg
