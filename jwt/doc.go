// Package jwt issues and verifies the short-lived service assertions that
// authenticate verification requests to the backend.
//
// # Architecture boundaries
//
// This package owns key parsing and token encoding. It knows nothing about
// HTTP; httpclient attaches tokens to requests.
//
// # What this package must NOT do
//
//   - Accept tokens signed with an algorithm other than the configured one.
//   - Import goPrereg or any sibling package.
package jwt
