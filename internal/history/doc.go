// Package history keeps a local record of derived sensor values in SQLite.
//
// A Recorder sits on the platform as a state publisher and stores a row each
// time a derived sensor's value changes. Rows older than the retention window
// are pruned periodically. The table gives the API a short history even when
// InfluxDB is disabled or unreachable.
package history
