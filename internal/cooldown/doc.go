// Package cooldown implements the resend lockout countdown owned by a flow.
//
// A [Timer] counts whole ticks down to zero on its own goroutine. The tick
// source is injected so tests can drive the countdown without sleeping.
//
// # Architecture boundaries
//
// The timer only counts. It does not know about flow steps or resend
// semantics; the owning flow decides what a tick means and whether a late
// tick still applies.
//
// # What this package must NOT do
//
//   - Import goPrereg or any sibling internal package.
//   - Keep a goroutine alive after the countdown reaches zero or is cancelled.
//   - Let the remaining value go below zero.
package cooldown
