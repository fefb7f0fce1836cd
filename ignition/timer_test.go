package ignition

import (
	"math"
	"testing"

	"github.com/pthm-cable/ignition/units"
)

// fakeCrank is a crankshaft whose state is set directly by the test.
type fakeCrank struct {
	omega float64
	angle float64
}

func (c *fakeCrank) AngularVelocity() float64 { return c.omega }
func (c *fakeCrank) CycleAngle() float64      { return c.angle }

// constCurve returns a fixed advance at any speed.
type constCurve float64

func (c constCurve) SampleTriangle(float64) float64 { return float64(c) }

// linearCurve returns slope * speed.
type linearCurve float64

func (c linearCurve) SampleTriangle(x float64) float64 { return float64(c) * x }

func newTestTimer(n int, crank *fakeCrank, curve TimingCurve) *Timer {
	return NewTimer(Params{CylinderCount: n, Crankshaft: crank, TimingCurve: curve})
}

func TestInitializeDefaults(t *testing.T) {
	crank := &fakeCrank{omega: -100}
	timer := newTestTimer(4, crank, constCurve(0))

	if timer.CylinderCount() != 4 {
		t.Fatalf("CylinderCount() = %d, want 4", timer.CylinderCount())
	}
	for i := 0; i < 4; i++ {
		p := timer.Plug(i)
		if p.Angle != 0 || p.IgnitionEvent || p.Disabled {
			t.Errorf("plug %d = %+v, want zero value", i, *p)
		}
	}
}

func TestDestroyThenReinitialize(t *testing.T) {
	crank := &fakeCrank{omega: -100, angle: 1.0}

	for _, n := range []int{0, 1, 4, 12} {
		timer := newTestTimer(n, crank, constCurve(0))
		for i := 0; i < n; i++ {
			timer.Plug(i).IgnitionEvent = true
		}
		timer.Destroy()
		if timer.CylinderCount() != 0 {
			t.Errorf("n=%d: CylinderCount() after Destroy = %d, want 0", n, timer.CylinderCount())
		}

		timer.Initialize(Params{CylinderCount: n + 2, Crankshaft: crank, TimingCurve: constCurve(0)})
		if timer.CylinderCount() != n+2 {
			t.Errorf("n=%d: CylinderCount() after re-init = %d, want %d", n, timer.CylinderCount(), n+2)
		}
		for i := 0; i < n+2; i++ {
			if timer.IgnitionEvent(i) {
				t.Errorf("n=%d: residual event on cylinder %d", n, i)
			}
		}
	}
}

func TestResetClearsEvents(t *testing.T) {
	crank := &fakeCrank{omega: -100, angle: 2.5}
	timer := newTestTimer(6, crank, constCurve(0))
	for i := 0; i < 6; i++ {
		timer.Plug(i).IgnitionEvent = true
	}

	timer.Reset()

	for i := 0; i < 6; i++ {
		if timer.IgnitionEvent(i) {
			t.Errorf("IgnitionEvent(%d) = true after Reset", i)
		}
	}
	if timer.LastCrankshaftAngle() != 2.5 {
		t.Errorf("LastCrankshaftAngle() = %v, want 2.5", timer.LastCrankshaftAngle())
	}
}

func TestResetIgnitionEventsKeepsBaseline(t *testing.T) {
	crank := &fakeCrank{omega: -100, angle: 1.0}
	timer := newTestTimer(2, crank, constCurve(0))
	timer.Reset()

	crank.angle = 3.0
	timer.Plug(0).IgnitionEvent = true
	timer.ResetIgnitionEvents()

	if timer.IgnitionEvent(0) {
		t.Error("expected event cleared")
	}
	if timer.LastCrankshaftAngle() != 1.0 {
		t.Errorf("LastCrankshaftAngle() = %v, want 1.0 (unchanged)", timer.LastCrankshaftAngle())
	}
}

func TestUpdateMonotonicSweep(t *testing.T) {
	crank := &fakeCrank{omega: -100, angle: 1.0}
	timer := newTestTimer(2, crank, constCurve(0))
	timer.SetFiringOrder(0, 1.5)
	timer.SetFiringOrder(1, 2.5)
	timer.Reset()

	crank.angle = 2.0
	timer.Update(1.0 / 60)

	if !timer.IgnitionEvent(0) {
		t.Error("cylinder 0 (1.5 in [1.0, 2.0)) should fire")
	}
	if timer.IgnitionEvent(1) {
		t.Error("cylinder 1 (2.5 outside [1.0, 2.0)) should not fire")
	}
	if timer.LastCrankshaftAngle() != 2.0 {
		t.Errorf("LastCrankshaftAngle() = %v, want 2.0", timer.LastCrankshaftAngle())
	}
}

func TestUpdateHalfOpenInterval(t *testing.T) {
	tests := []struct {
		name  string
		angle float64
		want  bool
	}{
		{"lower bound inclusive", 1.0, true},
		{"upper bound exclusive", 2.0, false},
		{"below", 0.99, false},
		{"inside", 1.999, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crank := &fakeCrank{omega: -100, angle: 1.0}
			timer := newTestTimer(1, crank, constCurve(0))
			timer.SetFiringOrder(0, tt.angle)
			timer.Reset()

			crank.angle = 2.0
			timer.Update(0)

			if got := timer.IgnitionEvent(0); got != tt.want {
				t.Errorf("firing angle %v: IgnitionEvent = %v, want %v", tt.angle, got, tt.want)
			}
		})
	}
}

func TestUpdateWraparound(t *testing.T) {
	crank := &fakeCrank{omega: -100, angle: units.FourPi - 0.1}
	timer := newTestTimer(2, crank, constCurve(0))
	timer.SetFiringOrder(0, 0.05)
	timer.SetFiringOrder(1, 0.2)
	timer.Reset()

	crank.angle = 0.1
	timer.Update(0)

	if !timer.IgnitionEvent(0) {
		t.Error("cylinder 0 at 0.05 should fire across the 4pi wrap")
	}
	if timer.IgnitionEvent(1) {
		t.Error("cylinder 1 at 0.2 is beyond the swept interval")
	}
	if timer.LastCrankshaftAngle() != 0.1 {
		t.Errorf("LastCrankshaftAngle() = %v, want 0.1", timer.LastCrankshaftAngle())
	}
}

func TestUpdateWrapStepSkipsTailOfCycle(t *testing.T) {
	// On a wrapping step the candidate is shifted with r1, so an angle in
	// [r0, 4pi) lands past the interval and does not latch.
	crank := &fakeCrank{omega: -100, angle: units.FourPi - 0.1}
	timer := newTestTimer(1, crank, constCurve(0))
	timer.SetFiringOrder(0, units.FourPi-0.05)
	timer.Reset()

	crank.angle = 0.1
	timer.Update(0)

	if timer.IgnitionEvent(0) {
		t.Error("angle in the tail of the cycle latched on a wrapping step")
	}
}

func TestUpdateAppliesAdvance(t *testing.T) {
	// Firing angle 2.5 with 1.0 rad advance is effectively 1.5
	crank := &fakeCrank{omega: -100, angle: 1.0}
	timer := newTestTimer(1, crank, constCurve(1.0))
	timer.SetFiringOrder(0, 2.5)
	timer.Reset()

	crank.angle = 2.0
	timer.Update(0)

	if !timer.IgnitionEvent(0) {
		t.Error("advanced firing angle 1.5 should fire in [1.0, 2.0)")
	}
}

func TestUpdateAdvanceWrapsBelowZero(t *testing.T) {
	// Firing angle 0.1 with 0.2 advance normalizes to 4pi - 0.1
	crank := &fakeCrank{omega: -100, angle: units.FourPi - 0.3}
	timer := newTestTimer(1, crank, constCurve(0.2))
	timer.SetFiringOrder(0, 0.1)
	timer.Reset()

	crank.angle = units.FourPi - 0.05
	timer.Update(0)

	if !timer.IgnitionEvent(0) {
		t.Error("advance past zero should wrap to the end of the cycle and fire")
	}
}

func TestUpdateReverseRotationIsNoop(t *testing.T) {
	for _, omega := range []float64{0, 50} {
		crank := &fakeCrank{omega: -100, angle: 1.0}
		timer := newTestTimer(3, crank, constCurve(0))
		timer.SetFiringOrder(0, 1.5)
		timer.SetFiringOrder(1, 1.2)
		timer.SetFiringOrder(2, 3.0)
		timer.Reset()
		timer.Plug(2).IgnitionEvent = true

		crank.omega = omega
		crank.angle = 2.0
		timer.Update(0.1)

		if timer.IgnitionEvent(0) || timer.IgnitionEvent(1) {
			t.Errorf("omega=%v: events set while not rotating forward", omega)
		}
		if !timer.IgnitionEvent(2) {
			t.Errorf("omega=%v: existing event cleared by update", omega)
		}
		if timer.LastCrankshaftAngle() != 1.0 {
			t.Errorf("omega=%v: LastCrankshaftAngle() = %v, want 1.0", omega, timer.LastCrankshaftAngle())
		}
	}
}

func TestEventsAreSticky(t *testing.T) {
	crank := &fakeCrank{omega: -100, angle: 1.0}
	timer := newTestTimer(1, crank, constCurve(0))
	timer.SetFiringOrder(0, 1.5)
	timer.Reset()

	crank.angle = 2.0
	timer.Update(0)
	crank.angle = 3.0
	timer.Update(0)

	if !timer.IgnitionEvent(0) {
		t.Error("event should persist until reset")
	}
}

func TestDisabledPlugNeverFires(t *testing.T) {
	crank := &fakeCrank{omega: -100, angle: 1.0}
	timer := newTestTimer(2, crank, constCurve(0))
	timer.SetFiringOrder(0, 1.5)
	timer.SetFiringOrder(1, 1.5)
	timer.SetEnabled(1, false)
	timer.Reset()

	crank.angle = 2.0
	timer.Update(0)

	if !timer.IgnitionEvent(0) {
		t.Error("enabled cylinder should fire")
	}
	if timer.IgnitionEvent(1) {
		t.Error("disabled cylinder should not fire")
	}
}

func TestRevLimiter(t *testing.T) {
	crank := &fakeCrank{omega: -500, angle: 0.5}
	timer := NewTimer(Params{
		CylinderCount:   1,
		Crankshaft:      crank,
		TimingCurve:     constCurve(0),
		RevLimit:        400,
		LimiterDuration: 0.5,
	})
	timer.SetFiringOrder(0, 1.5)
	timer.Reset()

	// Over the limit: cut
	crank.angle = 2.0
	timer.Update(0.25)
	if timer.IgnitionEvent(0) {
		t.Error("spark should be cut above the rev limit")
	}
	if !timer.Limiting() {
		t.Error("expected limiter active")
	}
	if timer.LastCrankshaftAngle() != 2.0 {
		t.Errorf("angle tracking should continue while limiting, got %v", timer.LastCrankshaftAngle())
	}

	// Back under the limit, cut timer still running
	crank.omega = -300
	crank.angle = 2.5
	timer.Update(0.25)
	if timer.Limiting() {
		t.Error("limiter should expire after its duration")
	}

	// Sweep past the plug again: fires normally
	crank.angle = 4.0
	timer.Update(0.25)
	timer.Reset()
	crank.angle = 1.0
	timer.Update(0.25)
	crank.angle = 1.6
	timer.Update(0.25)
	if !timer.IgnitionEvent(0) {
		t.Error("spark should resume once the limiter expires")
	}
}

func TestPlugWraps(t *testing.T) {
	crank := &fakeCrank{omega: -100}
	timer := newTestTimer(4, crank, constCurve(0))

	tests := []struct{ i, want int }{
		{-1, 3},
		{4, 0},
		{-4, 0},
		{-5, 3},
		{9, 1},
		{2, 2},
	}
	for _, tt := range tests {
		if timer.Plug(tt.i) != timer.Plug(tt.want) {
			t.Errorf("Plug(%d) != Plug(%d)", tt.i, tt.want)
		}
	}
}

func TestTimingAdvanceIdempotent(t *testing.T) {
	crank := &fakeCrank{omega: -300}
	timer := newTestTimer(4, crank, linearCurve(0.001))

	a := timer.TimingAdvance()
	b := timer.TimingAdvance()
	if a != b {
		t.Errorf("TimingAdvance not idempotent: %v then %v", a, b)
	}
	if math.Abs(a-0.3) > 1e-12 {
		t.Errorf("TimingAdvance() = %v, want 0.3 (curve sampled at speed magnitude)", a)
	}
}

func TestFiredCylinders(t *testing.T) {
	crank := &fakeCrank{omega: -100, angle: 0}
	timer := newTestTimer(4, crank, constCurve(0))
	for i := 0; i < 4; i++ {
		timer.SetFiringOrder(i, float64(i))
	}
	timer.Reset()

	crank.angle = 2.5
	timer.Update(0)

	got := timer.FiredCylinders(nil)
	want := []int{0, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("FiredCylinders() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("FiredCylinders()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestContractViolationsPanic(t *testing.T) {
	crank := &fakeCrank{omega: -100}

	tests := []struct {
		name string
		fn   func()
	}{
		{"negative cylinder count", func() {
			NewTimer(Params{CylinderCount: -1, Crankshaft: crank, TimingCurve: constCurve(0)})
		}},
		{"nil crankshaft", func() {
			NewTimer(Params{CylinderCount: 1, TimingCurve: constCurve(0)})
		}},
		{"nil curve", func() {
			NewTimer(Params{CylinderCount: 1, Crankshaft: crank})
		}},
		{"firing order out of range", func() {
			newTestTimer(2, crank, constCurve(0)).SetFiringOrder(2, 0)
		}},
		{"firing order negative", func() {
			newTestTimer(2, crank, constCurve(0)).SetFiringOrder(-1, 0)
		}},
		{"event out of range", func() {
			newTestTimer(2, crank, constCurve(0)).IgnitionEvent(2)
		}},
		{"plug on empty timer", func() {
			newTestTimer(0, crank, constCurve(0)).Plug(0)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			tt.fn()
		})
	}
}
