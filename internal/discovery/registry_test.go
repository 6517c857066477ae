package discovery

import (
	"sync"
	"testing"
)

func TestRegistry_RegisterIsIdempotent(t *testing.T) {
	r := NewRegistry(nil)

	if !r.RegisterHumidity("sensor.a_humidity") {
		t.Fatal("first RegisterHumidity() = false")
	}
	if r.RegisterHumidity("sensor.a_humidity") {
		t.Error("second RegisterHumidity() = true")
	}
	if !r.HasHumidity("sensor.a_humidity") || r.HasHumidity("sensor.b_humidity") {
		t.Error("HasHumidity() misreports")
	}

	key := PairKey{Humidity: "sensor.a_humidity", Temperature: "sensor.a_temperature"}
	if !r.RegisterWindowPair(key) {
		t.Fatal("first RegisterWindowPair() = false")
	}
	if r.RegisterWindowPair(key) {
		t.Error("second RegisterWindowPair() = true")
	}
	if !r.HasWindowPair(key) {
		t.Error("HasWindowPair() = false after register")
	}

	hum, win := r.Counts()
	if hum != 1 || win != 1 {
		t.Errorf("Counts() = (%d, %d), want (1, 1)", hum, win)
	}
}

func TestRegistry_OneWindowPerHumiditySensor(t *testing.T) {
	r := NewRegistry(nil)
	first := PairKey{Humidity: "sensor.a_humidity", Temperature: "sensor.a_temperature"}
	other := PairKey{Humidity: "sensor.a_humidity", Temperature: "sensor.b_temperature"}

	if !r.RegisterWindowPair(first) {
		t.Fatal("first RegisterWindowPair() = false")
	}
	if r.RegisterWindowPair(other) {
		t.Error("RegisterWindowPair() accepted a second temperature for the same humidity sensor")
	}
	if r.HasWindowPair(other) {
		t.Error("HasWindowPair() = true for rejected pair")
	}
	if _, win := r.Counts(); win != 1 {
		t.Errorf("window pairs = %d, want 1", win)
	}

	r.Reset()
	if !r.RegisterWindowPair(other) {
		t.Error("RegisterWindowPair() after Reset = false")
	}
}

func TestRegistry_ConcurrentRegisterWinsOnce(t *testing.T) {
	r := NewRegistry(nil)
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.RegisterHumidity("sensor.race_humidity") {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("RegisterHumidity() succeeded %d times, want 1", wins)
	}
}

func TestRegistry_HumiditySortedAndReset(t *testing.T) {
	r := NewRegistry(nil)
	r.RegisterHumidity("sensor.c")
	r.RegisterHumidity("sensor.a")
	r.RegisterHumidity("sensor.b")

	got := r.Humidity()
	want := []string{"sensor.a", "sensor.b", "sensor.c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Humidity() = %v, want %v", got, want)
		}
	}

	r.Reset()
	if hum, win := r.Counts(); hum != 0 || win != 0 {
		t.Errorf("Counts() after Reset = (%d, %d)", hum, win)
	}
	if !r.RegisterHumidity("sensor.a") {
		t.Error("RegisterHumidity() after Reset = false")
	}
}

func TestPairKey_String(t *testing.T) {
	k := PairKey{Humidity: "sensor.a_humidity", Temperature: "sensor.a_temperature"}
	if got := k.String(); got != "sensor.a_humidity_sensor.a_temperature" {
		t.Errorf("String() = %q", got)
	}
}

func TestRegistry_ResolveOutdoorReference(t *testing.T) {
	t.Run("configuration wins over auto-detection", func(t *testing.T) {
		h := newFakeHost()
		h.temperature("sensor.garden_temperature", "18", "Garden Temperature")
		h.humidity("sensor.garden_humidity", "60", "Garden Humidity")
		h.temperature("sensor.station_t", "19", "Station")
		h.humidity("sensor.station_rh", "65", "Station")

		ref := NewRegistry(nil).ResolveOutdoorReference("sensor.station_t", "sensor.station_rh", h)
		if ref.Temperature != "sensor.station_t" || ref.Humidity != "sensor.station_rh" {
			t.Errorf("ResolveOutdoorReference() = %+v, want configured pair", ref)
		}
		if n := h.enumerations(); n != 0 {
			t.Errorf("EntityIDs called %d times, want no auto-detection scan", n)
		}
	})

	t.Run("missing configured slot is auto-detected", func(t *testing.T) {
		h := newFakeHost()
		h.temperature("sensor.station_t", "19", "Station")
		h.humidity("sensor.patio_humidity", "60", "Patio Humidity")

		ref := NewRegistry(nil).ResolveOutdoorReference("sensor.station_t", "sensor.gone", h)
		if ref.Temperature != "sensor.station_t" || ref.Humidity != "sensor.patio_humidity" {
			t.Errorf("ResolveOutdoorReference() = %+v", ref)
		}
	})

	t.Run("first outdoor-like sensor per class in enumeration order", func(t *testing.T) {
		h := newFakeHost()
		h.temperature("sensor.a_outside_temperature", "10", "")
		h.temperature("sensor.b_outside_temperature", "11", "")
		h.humidity("sensor.c_weather_humidity", "70", "")
		h.humidity("sensor.living_humidity", "50", "")

		ref := NewRegistry(nil).ResolveOutdoorReference("", "", h)
		if ref.Temperature != "sensor.a_outside_temperature" || ref.Humidity != "sensor.c_weather_humidity" {
			t.Errorf("ResolveOutdoorReference() = %+v", ref)
		}
	})

	t.Run("partial resolution", func(t *testing.T) {
		h := newFakeHost()
		h.humidity("sensor.outdoor_humidity", "70", "")

		ref := NewRegistry(nil).ResolveOutdoorReference("", "", h)
		if ref.Complete() || ref.Humidity != "sensor.outdoor_humidity" || ref.Temperature != "" {
			t.Errorf("ResolveOutdoorReference() = %+v, want humidity only", ref)
		}
	})

	t.Run("derived sensors are ignored", func(t *testing.T) {
		h := newFakeHost()
		h.humidity("sensor.absolute_humidity_outdoor_humidity", "12", "Outdoor Absolute Humidity")

		ref := NewRegistry(nil).ResolveOutdoorReference("", "", h)
		if ref.Humidity != "" {
			t.Errorf("ResolveOutdoorReference() picked derived sensor %q", ref.Humidity)
		}
	})
}
