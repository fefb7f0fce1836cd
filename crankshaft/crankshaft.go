// Package crankshaft provides a kinematic crankshaft for driving ignition timing.
// It integrates a constant angular velocity; torque, inertia and friction belong to
// the engine dynamics and are not modelled here.
package crankshaft

import (
	"github.com/pthm-cable/ignition/units"
)

// Body is the rotational state of the crank.
// Forward engine rotation is negative VTheta, so Theta decreases while running.
type Body struct {
	Theta  float64 // Absolute angle, radians (unbounded)
	VTheta float64 // Angular velocity, rad/s
}

// Crankshaft is a rotating crank with a four-stroke cycle angle.
type Crankshaft struct {
	Body Body
}

// New creates a crank spinning forward at the given speed.
func New(rpm float64) *Crankshaft {
	c := &Crankshaft{}
	c.SetRPM(rpm)
	return c
}

// SetRPM sets the forward rotation speed. Negative rpm spins the engine backwards.
func (c *Crankshaft) SetRPM(rpm float64) {
	c.Body.VTheta = -units.Rpm(rpm)
}

// RPM returns the forward rotation speed.
func (c *Crankshaft) RPM() float64 {
	return units.ToRpm(-c.Body.VTheta)
}

// Step advances the crank by dt seconds.
func (c *Crankshaft) Step(dt float64) {
	c.Body.Theta += c.Body.VTheta * dt
}

// AngularVelocity returns the signed angular velocity in rad/s.
func (c *Crankshaft) AngularVelocity() float64 {
	return c.Body.VTheta
}

// CycleAngle returns the position within the two-revolution cycle, in [0, 4π).
// It grows as the engine turns forward.
func (c *Crankshaft) CycleAngle() float64 {
	return units.PositiveMod(-c.Body.Theta, units.FourPi)
}
