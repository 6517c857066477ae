// Package audit records discovery and operator activity in the audit_logs
// table and serves it back for the API.
//
// The trail is history only: nothing in it is read back into the discovery
// registry, which is rebuilt from live sensors on every start.
package audit
