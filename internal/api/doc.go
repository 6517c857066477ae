// Package api implements the HTTP REST API and WebSocket stream of the
// climate service.
//
// This package provides:
//   - read endpoints for derived sensors, discovery status and the audit trail
//   - admin service calls that drive the discovery engine
//   - a WebSocket hub streaming derived sensor states
//   - health, JSON metrics and Prometheus exposition
//
// # Security
//
// Health and metrics are public. Every other route needs an HS256 bearer
// token whose role grants the route's permission (see package auth). The
// WebSocket route also accepts the token in the access_token query
// parameter because browsers cannot set headers on the upgrade request.
//
// # Errors
//
// Failures use one JSON envelope {"status","code","message"}. Discovery
// errors map to 400 (invalid argument), 404 (unknown entity), 409 (already
// exists or engine not running).
package api
