// Package telemetry provides ignition event records, window statistics, performance
// timing and CSV output for simulation runs.
package telemetry

import "github.com/pthm-cable/ignition/units"

// Event is a single spark: one cylinder of one engine firing during a step.
// Angles are stored in degrees for readable CSV output.
type Event struct {
	Tick          int64   `csv:"tick"`
	SimTimeSec    float64 `csv:"sim_time"`
	Engine        int     `csv:"engine"`
	Cylinder      int     `csv:"cylinder"`
	CycleAngleDeg float64 `csv:"cycle_angle_deg"` // Crank position at the end of the step
	AdvanceDeg    float64 `csv:"advance_deg"`
	RPM           float64 `csv:"rpm"`
}

// NewIgnitionEvent creates an event from simulation units.
// cycleAngle and advance are radians, omega is the signed crank velocity in rad/s.
func NewIgnitionEvent(tick int64, dt float64, engine, cylinder int, cycleAngle, advance, omega float64) Event {
	return Event{
		Tick:          tick,
		SimTimeSec:    float64(tick) * dt,
		Engine:        engine,
		Cylinder:      cylinder,
		CycleAngleDeg: units.ToDeg(cycleAngle),
		AdvanceDeg:    units.ToDeg(advance),
		RPM:           units.ToRpm(-omega),
	}
}
