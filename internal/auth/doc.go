// Package auth verifies the bearer tokens that guard the climate service's
// admin endpoints.
//
// Tokens are HS256 JWTs carrying a subject and a role. The service never
// stores users; any identity provider sharing the signing secret can issue
// tokens, and IssueToken exists for bootstrap and tests.
//
// Roles map to a fixed permission set:
//
//	viewer: sensor:read
//	admin:  sensor:read, service:call, audit:read
//	owner:  everything admin has
package auth
