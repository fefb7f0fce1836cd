package units

import (
	"math"
	"testing"
)

func TestPositiveMod(t *testing.T) {
	tests := []struct {
		name string
		x, m float64
		want float64
	}{
		{"in range", 1.5, FourPi, 1.5},
		{"zero", 0, FourPi, 0},
		{"exactly period", FourPi, FourPi, 0},
		{"negative", -1.0, FourPi, FourPi - 1.0},
		{"above period", FourPi + 0.25, FourPi, 0.25},
		{"several periods negative", -2*FourPi - 0.5, FourPi, FourPi - 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PositiveMod(tt.x, tt.m)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("PositiveMod(%v, %v) = %v, want %v", tt.x, tt.m, got, tt.want)
			}
			if got < 0 || got >= tt.m {
				t.Errorf("PositiveMod(%v, %v) = %v, outside [0, %v)", tt.x, tt.m, got, tt.m)
			}
		})
	}
}

func TestPositiveModTinyNegative(t *testing.T) {
	got := PositiveMod(-1e-18, FourPi)
	if got < 0 || got >= FourPi {
		t.Errorf("PositiveMod(-1e-18) = %v, outside [0, 4pi)", got)
	}
}

func TestConversions(t *testing.T) {
	if got := Rpm(60); math.Abs(got-2*math.Pi) > 1e-12 {
		t.Errorf("Rpm(60) = %v, want 2pi", got)
	}
	if got := ToRpm(Rpm(3500)); math.Abs(got-3500) > 1e-9 {
		t.Errorf("ToRpm(Rpm(3500)) = %v, want 3500", got)
	}
	if got := Deg(180); math.Abs(got-math.Pi) > 1e-12 {
		t.Errorf("Deg(180) = %v, want pi", got)
	}
	if got := ToDeg(Deg(720)); math.Abs(got-720) > 1e-9 {
		t.Errorf("ToDeg(Deg(720)) = %v, want 720", got)
	}
}
