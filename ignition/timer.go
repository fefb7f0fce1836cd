// Package ignition decides, once per simulation step, which cylinders' spark plugs fire.
//
// A Timer compares each cylinder's advance-adjusted firing angle against the crank
// angle swept since the previous step. Firing is purely angle driven: the timer reads
// the crankshaft's cycle angle (position within the 4π four-stroke cycle) and its
// angular velocity, and the timing curve maps engine speed to a spark advance.
//
// Forward engine rotation is negative angular velocity. This sign convention belongs to
// the crankshaft model and must not be flipped here.
//
// The Timer is not safe for concurrent use. Contract violations (out of range cylinder
// index, nil collaborators, wrap lookup on a zero-cylinder timer) panic.
package ignition

import (
	"fmt"

	"github.com/pthm-cable/ignition/units"
)

// Crankshaft is the read-only view of the crankshaft the timer consumes.
type Crankshaft interface {
	// AngularVelocity returns the signed angular velocity in rad/s.
	// Forward (firing) rotation is negative.
	AngularVelocity() float64
	// CycleAngle returns the position within the combustion cycle, in [0, 4π).
	CycleAngle() float64
}

// TimingCurve maps engine speed (rad/s) to spark advance (radians).
type TimingCurve interface {
	SampleTriangle(x float64) float64
}

// Params configures a Timer.
type Params struct {
	CylinderCount int
	Crankshaft    Crankshaft
	TimingCurve   TimingCurve

	// Rev limiter. RevLimit is a speed magnitude in rad/s (0 = disabled);
	// LimiterDuration is how long, in seconds, sparks stay cut once the limit is hit.
	RevLimit        float64
	LimiterDuration float64
}

// SparkPlug is the per-cylinder firing configuration and event latch.
type SparkPlug struct {
	Angle         float64 // Nominal firing angle in the cycle, radians
	IgnitionEvent bool    // Latched when the crank sweeps past the adjusted angle
	Disabled      bool    // A disabled plug never latches (cylinder cut)
}

// Timer detects ignition events for a fixed set of cylinders.
type Timer struct {
	plugs []SparkPlug

	// Borrowed collaborators, owned by the surrounding engine.
	crankshaft  Crankshaft
	timingCurve TimingCurve

	lastCrankshaftAngle float64

	revLimit        float64
	limiterDuration float64
	limiterTimer    float64
}

// NewTimer creates an initialized timer.
func NewTimer(p Params) *Timer {
	t := &Timer{}
	t.Initialize(p)
	return t
}

// Initialize allocates one default plug per cylinder and stores the collaborators.
// Any previous plug state is discarded.
func (t *Timer) Initialize(p Params) {
	if p.CylinderCount < 0 {
		panic(fmt.Sprintf("ignition: negative cylinder count %d", p.CylinderCount))
	}
	if p.Crankshaft == nil {
		panic("ignition: nil crankshaft")
	}
	if p.TimingCurve == nil {
		panic("ignition: nil timing curve")
	}

	t.plugs = make([]SparkPlug, p.CylinderCount)
	t.crankshaft = p.Crankshaft
	t.timingCurve = p.TimingCurve
	t.lastCrankshaftAngle = 0
	t.revLimit = p.RevLimit
	t.limiterDuration = p.LimiterDuration
	t.limiterTimer = 0
}

// Destroy releases the plugs. The timer may be initialized again afterwards.
func (t *Timer) Destroy() {
	t.plugs = nil
}

// CylinderCount returns the number of plugs.
func (t *Timer) CylinderCount() int {
	return len(t.plugs)
}

// SetFiringOrder sets the nominal firing angle (radians) of a cylinder.
func (t *Timer) SetFiringOrder(cylinderIndex int, angle float64) {
	t.checkIndex(cylinderIndex)
	t.plugs[cylinderIndex].Angle = angle
}

// SetEnabled enables or cuts a cylinder's spark.
func (t *Timer) SetEnabled(cylinderIndex int, enabled bool) {
	t.checkIndex(cylinderIndex)
	t.plugs[cylinderIndex].Disabled = !enabled
}

// Reset re-synchronizes the angle baseline to the crankshaft and clears all events.
// Call at cycle boundaries or after (re)initialization so a discontinuity in the
// crank angle is not read as a sweep.
func (t *Timer) Reset() {
	t.lastCrankshaftAngle = t.crankshaft.CycleAngle()
	t.ResetIgnitionEvents()
}

// Update advances event detection by one step.
//
// dt only drives the rev limiter's cut timer; event detection depends on crank
// position alone. Nothing happens unless the crank rotates forward (negative
// angular velocity).
func (t *Timer) Update(dt float64) {
	omega := t.crankshaft.AngularVelocity()
	if omega >= 0 {
		return
	}

	cycleAngle := t.crankshaft.CycleAngle()
	advance := t.timingCurve.SampleTriangle(-omega)
	cut := t.updateLimiter(-omega, dt)

	for i := range t.plugs {
		plug := &t.plugs[i]
		if cut || plug.Disabled {
			continue
		}

		adjustedAngle := units.PositiveMod(plug.Angle-advance, units.FourPi)
		r0 := t.lastCrankshaftAngle
		r1 := cycleAngle

		// Counter wrapped past 4π: unwrap the interval and the candidate together
		if cycleAngle < r0 {
			r1 += units.FourPi
			adjustedAngle += units.FourPi
		}

		if adjustedAngle >= r0 && adjustedAngle < r1 {
			plug.IgnitionEvent = true
		}
	}

	t.lastCrankshaftAngle = cycleAngle
}

// updateLimiter arms the cut timer when speed exceeds the rev limit and reports
// whether sparks are cut for this step.
func (t *Timer) updateLimiter(speed, dt float64) bool {
	if t.revLimit <= 0 {
		return false
	}
	if speed > t.revLimit {
		t.limiterTimer = t.limiterDuration
	}
	if t.limiterTimer <= 0 {
		return false
	}
	t.limiterTimer -= dt
	return true
}

// Limiting reports whether the rev limiter is currently cutting sparks.
func (t *Timer) Limiting() bool {
	return t.limiterTimer > 0
}

// IgnitionEvent reports whether cylinder index has fired since the last reset.
func (t *Timer) IgnitionEvent(index int) bool {
	t.checkIndex(index)
	return t.plugs[index].IgnitionEvent
}

// ResetIgnitionEvents clears every event latch without touching the angle baseline.
// Lower-level than Reset: use it to consume events mid-cycle.
func (t *Timer) ResetIgnitionEvents() {
	for i := range t.plugs {
		t.plugs[i].IgnitionEvent = false
	}
}

// FiredCylinders appends the indices of latched plugs to dst and returns it.
func (t *Timer) FiredCylinders(dst []int) []int {
	for i := range t.plugs {
		if t.plugs[i].IgnitionEvent {
			dst = append(dst, i)
		}
	}
	return dst
}

// TimingAdvance returns the advance (radians) for the current crank speed.
func (t *Timer) TimingAdvance() float64 {
	return t.timingCurve.SampleTriangle(-t.crankshaft.AngularVelocity())
}

// LastCrankshaftAngle returns the cycle angle recorded by the last forward update.
func (t *Timer) LastCrankshaftAngle() float64 {
	return t.lastCrankshaftAngle
}

// Plug returns cylinder i, wrapping negative and overflowing indices into range,
// so Plug(-1) is the last cylinder.
func (t *Timer) Plug(i int) *SparkPlug {
	n := len(t.plugs)
	if n == 0 {
		panic("ignition: Plug on a timer with no cylinders")
	}
	i %= n
	if i < 0 {
		i += n
	}
	return &t.plugs[i]
}

func (t *Timer) checkIndex(i int) {
	if i < 0 || i >= len(t.plugs) {
		panic(fmt.Sprintf("ignition: cylinder index %d out of range [0, %d)", i, len(t.plugs)))
	}
}
