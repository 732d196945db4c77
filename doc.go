// Package adminkit provides the admin-side session and content toolkit for a
// portfolio site: an auth session lifecycle around a hosted identity provider,
// a structured error classifier, and a carousel store with a one-way broadcast
// channel toward the public display surface.
//
// Session lifecycle:
//   - AuthSession owns login, logout, refresh scheduling, login throttling,
//     and inactivity tracking. It is an explicitly constructed service with
//     Start/Stop, persisting its state through a SessionStore backed by any
//     kv.Store (in-memory or bun/sqlite).
//   - AuthGuard is the Fiber middleware companion: it redirects anonymous
//     visitors to the login surface (remembering the requested URL) and
//     enforces per-route role requirements.
//
// Error classification:
//   - Classify maps any error (structured go-errors values, HTTP-status
//     carrying errors, plain messages) onto a fixed taxonomy with severity,
//     retryability, a user-facing message, and an optional follow-up action.
//
// Carousel:
//   - CarouselStore keeps an ordered list of media items in the local store,
//     mirrors mutations to the remote API best-effort, and publishes the
//     active set through CarouselBroadcast plus a durable broadcast slot that
//     other processes can watch.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by AuthSession and
//     CarouselStore. Sinks run best-effort (errors are logged) so you can
//     forward events to a database without blocking the session flow.
package adminkit
