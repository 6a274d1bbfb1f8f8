// Package httpclient implements the verification backend over HTTP.
//
// Each operation is a JSON POST. A 2xx response is success unless its body
// carries "success": false. Anything else becomes an [*Error] holding the
// status and the backend's human-readable message, which the flow surfaces
// to the user verbatim.
//
// # Architecture boundaries
//
// The client knows nothing about flows, cooldowns, or input validation.
// It is handed to the engine through the root Builder and used only through
// the three-method Backend contract.
//
// # What this package must NOT do
//
//   - Retry requests. A resend is a user decision.
//   - Log email addresses or codes.
//   - Import the root goPrereg package.
package httpclient
