package climate

import (
	"errors"
	"math"
	"testing"
)

func TestAbsoluteHumidity_ReferencePoint(t *testing.T) {
	got, err := AbsoluteHumidity(50, 20)
	if err != nil {
		t.Fatalf("AbsoluteHumidity() error = %v", err)
	}
	if math.Abs(got-8.64) > 0.02 {
		t.Errorf("AbsoluteHumidity(50, 20) = %v, want ~8.64", got)
	}
}

func TestAbsoluteHumidity_RoundedToTwoDecimals(t *testing.T) {
	got, err := AbsoluteHumidity(63.7, 21.3)
	if err != nil {
		t.Fatalf("AbsoluteHumidity() error = %v", err)
	}
	if got != Round(got, 2) {
		t.Errorf("AbsoluteHumidity() = %v, not rounded to 2 decimals", got)
	}
}

func TestAbsoluteHumidity_Bounds(t *testing.T) {
	tests := []struct {
		name    string
		rh      float64
		temp    float64
		wantErr bool
	}{
		{"dry and freezing", 0, -40, false},
		{"saturated and hot", 100, 80, false},
		{"humidity below zero", -0.1, 20, true},
		{"humidity above 100", 100.1, 20, true},
		{"temperature too low", 50, -40.1, true},
		{"temperature too high", 50, 80.1, true},
		{"nan humidity", math.NaN(), 20, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AbsoluteHumidity(tt.rh, tt.temp)
			if tt.wantErr {
				if !errors.Is(err, ErrOutOfRange) {
					t.Errorf("error = %v, want ErrOutOfRange", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestAbsoluteHumidity_ZeroHumidityIsZero(t *testing.T) {
	got, err := AbsoluteHumidity(0, 25)
	if err != nil {
		t.Fatalf("AbsoluteHumidity() error = %v", err)
	}
	if got != 0 {
		t.Errorf("AbsoluteHumidity(0, 25) = %v, want 0", got)
	}
}

func TestAbsoluteHumidity_MonotonicInHumidity(t *testing.T) {
	prev := -1.0
	for rh := 0.0; rh <= 100; rh += 10 {
		v := RawAbsoluteHumidity(rh, 18)
		if v < prev {
			t.Fatalf("absolute humidity decreased at rh=%v: %v < %v", rh, v, prev)
		}
		prev = v
	}
}

func TestAbsoluteHumidity_MonotonicInTemperature(t *testing.T) {
	for _, rh := range []float64{1, 50, 100} {
		prevRaw, prevRounded := -1.0, -1.0
		for temp := -40.0; temp <= 80; temp += 0.5 {
			raw := RawAbsoluteHumidity(rh, temp)
			if raw <= prevRaw {
				t.Fatalf("rh=%v: raw value did not increase at %v°C: %v <= %v", rh, temp, raw, prevRaw)
			}
			rounded, err := AbsoluteHumidity(rh, temp)
			if err != nil {
				t.Fatalf("AbsoluteHumidity(%v, %v) error = %v", rh, temp, err)
			}
			if rounded < prevRounded {
				t.Fatalf("rh=%v: rounded value decreased at %v°C: %v < %v", rh, temp, rounded, prevRounded)
			}
			prevRaw, prevRounded = raw, rounded
		}
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{8.6392, 8.64},
		{0.125, 0.13},
		{1.234567, 1.23},
		{0, 0},
	}
	for _, tt := range tests {
		if got := Round(tt.in, 2); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Round(%v, 2) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
