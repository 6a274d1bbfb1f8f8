// Package flows contains the pure-function orchestrators behind the engine's
// backend operations (RunSendCode, RunVerifyCode, RunResendCode).
//
// Each function takes a RegistrationDeps struct of callbacks, validates and
// normalises its input, consults the dispatch limiter, calls the backend, and
// maps every outcome to nil or a *Failure carrying a displayable message.
//
// # Architecture boundaries
//
// Flow functions coordinate the backend, limiter, audit, and metrics hooks
// they are handed. They do NOT own any of these resources; ownership stays
// with the Engine. Dialog state (steps, loading, cooldown) lives in the root
// Flow type, not here.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goPrereg (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through the deps callbacks.
package flows
