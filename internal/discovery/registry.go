package discovery

import (
	"sort"
	"sync"

	"github.com/nerrad567/gray-logic-climate/internal/entity"
	"github.com/nerrad567/gray-logic-climate/internal/sensor"
)

// PairKey identifies an indoor humidity/temperature pair.
type PairKey struct {
	Humidity    string
	Temperature string
}

// String returns the registry key "<humidity>_<temperature>".
func (k PairKey) String() string {
	return k.Humidity + "_" + k.Temperature
}

// OutdoorReference is the currently resolved outdoor sensor pair. Either
// slot may be empty while sensors are still appearing.
type OutdoorReference struct {
	Temperature string `json:"temperature,omitempty"`
	Humidity    string `json:"humidity,omitempty"`
}

// Complete reports whether both slots are resolved.
func (r OutdoorReference) Complete() bool {
	return r.Temperature != "" && r.Humidity != ""
}

// StateEnumerator resolves and lists entities.
type StateEnumerator interface {
	StateLookup
	EntityIDs(domain string) []string
}

// Registry records which derived sensors already exist. It is safe for
// concurrent use; each Register call is an atomic check-then-insert.
type Registry struct {
	mu          sync.Mutex
	humidity    map[string]struct{}
	windowPairs map[string]struct{}
	windowed    map[string]struct{} // humidity IDs with a window sensor
	matcher     *Matcher
	logger      Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(matcher *Matcher) *Registry {
	if matcher == nil {
		matcher = NewMatcher()
	}
	return &Registry{
		humidity:    make(map[string]struct{}),
		windowPairs: make(map[string]struct{}),
		windowed:    make(map[string]struct{}),
		matcher:     matcher,
		logger:      noopLogger{},
	}
}

// SetLogger sets the logger for outdoor resolution diagnostics.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RegisterHumidity marks humidityID as having an absolute humidity sensor.
// It returns false if it was already registered.
func (r *Registry) RegisterHumidity(humidityID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.humidity[humidityID]; ok {
		return false
	}
	r.humidity[humidityID] = struct{}{}
	return true
}

// HasHumidity reports whether humidityID is registered.
func (r *Registry) HasHumidity(humidityID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.humidity[humidityID]
	return ok
}

// RegisterWindowPair marks key as having a window recommendation sensor.
// It returns false if the pair, or any pair with the same humidity sensor,
// was already registered. The window entity ID derives from the humidity
// sensor alone, so a second temperature cannot get its own sensor.
func (r *Registry) RegisterWindowPair(key PairKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key.String()
	if _, ok := r.windowPairs[k]; ok {
		return false
	}
	if _, ok := r.windowed[key.Humidity]; ok {
		return false
	}
	r.windowPairs[k] = struct{}{}
	r.windowed[key.Humidity] = struct{}{}
	return true
}

// HasWindowPair reports whether key is registered.
func (r *Registry) HasWindowPair(key PairKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.windowPairs[key.String()]
	return ok
}

// Humidity returns the registered humidity IDs in sorted order.
func (r *Registry) Humidity() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.humidity))
	for id := range r.humidity {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// Counts returns the number of registered humidity sensors and window pairs.
func (r *Registry) Counts() (humidity, windowPairs int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.humidity), len(r.windowPairs)
}

// Reset clears the registry.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.humidity = make(map[string]struct{})
	r.windowPairs = make(map[string]struct{})
	r.windowed = make(map[string]struct{})
}

// ResolveOutdoorReference finds the outdoor sensor pair.
//
// Configured IDs that resolve always win. Any slot still empty is filled by
// scanning sensors in enumeration order for the first outdoor-like sensor of
// the right device class. The scan stops once both slots are filled.
//
// Parameters:
//   - configuredTemperature, configuredHumidity: IDs from config, may be empty
//   - states: live state access
//
// Returns:
//   - OutdoorReference: possibly partial
func (r *Registry) ResolveOutdoorReference(configuredTemperature, configuredHumidity string, states StateEnumerator) OutdoorReference {
	var ref OutdoorReference

	if configuredTemperature != "" {
		if _, ok := states.GetState(configuredTemperature); ok {
			ref.Temperature = configuredTemperature
		} else {
			r.logger.Warn("configured outdoor temperature sensor not found", "entity_id", configuredTemperature)
		}
	}
	if configuredHumidity != "" {
		if _, ok := states.GetState(configuredHumidity); ok {
			ref.Humidity = configuredHumidity
		} else {
			r.logger.Warn("configured outdoor humidity sensor not found", "entity_id", configuredHumidity)
		}
	}
	if ref.Complete() {
		return ref
	}

	for _, id := range states.EntityIDs(entity.DomainSensor) {
		if sensor.IsDerived(id) {
			continue
		}
		st, ok := states.GetState(id)
		if !ok || !r.matcher.IsOutdoorLike(id, st.FriendlyName()) {
			continue
		}
		switch st.DeviceClass() {
		case entity.DeviceClassTemperature:
			if ref.Temperature == "" {
				ref.Temperature = id
			}
		case entity.DeviceClassHumidity:
			if ref.Humidity == "" {
				ref.Humidity = id
			}
		}
		if ref.Complete() {
			break
		}
	}

	r.logger.Debug("outdoor reference resolved",
		"temperature", ref.Temperature,
		"humidity", ref.Humidity,
	)
	return ref
}
