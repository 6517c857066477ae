// Package host provides the runtime the climate engine lives in.
//
// It plays the role a home automation hub plays for an integration:
//
//   - StateStore: current state of every entity, with change listeners
//   - Loop: a single goroutine that runs deferred tasks in order
//   - Dispatcher: named signals for operator commands
//   - Platform: registers derived entities, refreshes them on a schedule
//     and publishes their states
//   - Ingest: feeds upstream sensor states from MQTT into the store
//
// Runtime ties these together and satisfies discovery.Host.
//
// Concurrency:
//
// Store writes may come from any goroutine, but in the daemon every write
// is queued on the Loop (Ingest does this, and the Platform runs inside
// loop tasks), so listeners observe changes in a single order. Listeners
// must not block; anything slow goes through Loop.CreateTask.
package host

// Logger is the logging interface used by the host runtime.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
