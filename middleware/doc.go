// Package middleware holds net/http adapters around a goPrereg Engine and
// around the service assertions the HTTP backend client attaches.
//
//   - [RequireEnabled] answers 503 while pre-registration is switched off.
//   - [ClientIP] records the caller address for audit metadata.
//   - [RequireAssertion] is for the backend side: it verifies the bearer
//     assertion on incoming verification requests.
//
// # What this package must NOT do
//
//   - Drive flows. Handlers own their Flow values.
//   - Sign assertions (the httpclient package does that).
package middleware
