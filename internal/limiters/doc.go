// Package limiters provides the Redis-backed dispatch limiter that caps how
// many verification codes one address may request per window.
//
// # Limiters
//
//   - [DispatchLimiter]: fixed-window counter per hashed email address, shared
//     across processes through Redis.
//
// The limiter is nil-safe: calling Check on a nil receiver, or on a limiter
// without a Redis client or budget, returns nil.
//
// # Architecture boundaries
//
// The limiter owns its Redis key namespace and error types. It only counts;
// the engine decides whether a Redis outage blocks a request.
//
// # What this package must NOT do
//
//   - Import goPrereg or any sibling internal package.
//   - Store raw email addresses in Redis keys.
package limiters
