package entity

import "testing"

func TestState_Validity(t *testing.T) {
	tests := []struct {
		value string
		want  Validity
	}{
		{"21.5", ValidityOK},
		{"unknown", ValidityUnknown},
		{"", ValidityUnknown},
		{"unavailable", ValidityUnavailable},
		{"not-a-number", ValidityOK},
	}

	for _, tt := range tests {
		s := &State{EntityID: "sensor.x", Value: tt.value}
		if got := s.Validity(); got != tt.want {
			t.Errorf("Validity(%q) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestState_Attributes(t *testing.T) {
	s := &State{
		EntityID: "sensor.kitchen_humidity",
		Value:    "48",
		Attributes: map[string]any{
			AttrDeviceClass:  "humidity",
			AttrFriendlyName: "Kitchen Humidity",
			"precision":      2,
		},
	}

	if got := s.DeviceClass(); got != DeviceClassHumidity {
		t.Errorf("DeviceClass() = %q, want %q", got, DeviceClassHumidity)
	}
	if got := s.FriendlyName(); got != "Kitchen Humidity" {
		t.Errorf("FriendlyName() = %q", got)
	}
	if got := s.Attr("precision"); got != "2" {
		t.Errorf("Attr(precision) = %q, want %q", got, "2")
	}
	if got := (&State{}).DeviceClass(); got != "" {
		t.Errorf("DeviceClass() on empty state = %q, want empty", got)
	}
}

func TestState_Float(t *testing.T) {
	s := &State{EntityID: "sensor.t", Value: " 21.25 "}
	f, err := s.Float()
	if err != nil {
		t.Fatalf("Float() error = %v", err)
	}
	if f != 21.25 {
		t.Errorf("Float() = %v, want 21.25", f)
	}

	s.Value = "warm"
	if _, err := s.Float(); err == nil {
		t.Error("Float() expected error for non-numeric state")
	}
}

func TestState_CloneIsIndependent(t *testing.T) {
	orig := &State{EntityID: "sensor.a", Value: "1", Attributes: map[string]any{"k": "v"}}
	cpy := orig.Clone()
	cpy.Attributes["k"] = "changed"

	if orig.Attributes["k"] != "v" {
		t.Error("Clone() shares attribute map with original")
	}
	if (*State)(nil).Clone() != nil {
		t.Error("Clone() of nil should be nil")
	}
}

func TestSplitID(t *testing.T) {
	tests := []struct {
		id, domain, object string
	}{
		{"sensor.kitchen_humidity", "sensor", "kitchen_humidity"},
		{"kitchen", "", "kitchen"},
		{"sensor.a.b", "sensor", "a.b"},
	}
	for _, tt := range tests {
		d, o := SplitID(tt.id)
		if d != tt.domain || o != tt.object {
			t.Errorf("SplitID(%q) = (%q, %q), want (%q, %q)", tt.id, d, o, tt.domain, tt.object)
		}
	}

	if got := ObjectID("sensor.a.b"); got != "b" {
		t.Errorf("ObjectID() = %q, want %q", got, "b")
	}
	if !InDomain("sensor.x", DomainSensor) || InDomain("binary_sensor.x", DomainSensor) {
		t.Error("InDomain() misclassified")
	}
}
