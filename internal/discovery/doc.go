// Package discovery finds humidity/temperature sensor pairs and creates the
// derived climate sensors for them.
//
// The package has three parts:
//
//   - Matcher: a fixed, ordered list of ID transforms that proposes the
//     temperature partner of a humidity sensor, plus the outdoor vocabulary
//     used to recognise outdoor sensors.
//   - Registry: the record of which humidity sensors and indoor pairs
//     already have derived sensors, and outdoor reference resolution.
//   - Engine: the lifecycle state machine that scans at startup, reacts to
//     live state changes and re-evaluates window sensors when outdoor
//     sensors appear.
//
// # Lifecycle
//
//	Idle --Start--> Scanning --scan done--> Steady --Close--> Closed
//
// In Steady the engine listens to every state change. Humidity events
// schedule pair creation. Humidity and temperature events from outdoor-like
// sensors schedule a re-evaluation pass, because the outdoor reference may
// resolve at any time after startup.
//
// # Exactly once
//
// Each humidity sensor gets at most one absolute humidity sensor and each
// indoor pair at most one window sensor for the life of the engine. The
// registry's Register methods are atomic check-then-insert, pair creation is
// deduplicated by an in-flight set checked before a task is queued, and
// concurrent re-evaluation passes are collapsed with singleflight.
//
// # Self-exclusion
//
// Derived sensors (sensor.absolute_humidity_* and
// sensor.window_recommendation_*) are written back into the host's state
// store. The absolute humidity sensors carry the humidity device class, so
// the engine sees its own output as humidity events and must skip them.
// IDs in either derived namespace are never pairing candidates.
//
// # Administrative operations
//
// AddSensor, AddWindowSensor, Rediscover and ReevaluateWindowSensors run on
// the host task loop and report errors to the caller. The same additions are
// reachable through the climate_add_sensor and climate_add_window_sensor
// dispatcher signals, where failures are only logged.
package discovery
