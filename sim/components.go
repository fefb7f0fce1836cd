package sim

import (
	"github.com/pthm-cable/ignition/crankshaft"
	"github.com/pthm-cable/ignition/curve"
	"github.com/pthm-cable/ignition/ignition"
)

// Crank holds an engine's crankshaft.
type Crank struct {
	Shaft *crankshaft.Crankshaft
}

// Ignition holds an engine's timer and the curve it samples.
// The timer borrows the entity's crankshaft and curve, so both live as long as the entity.
type Ignition struct {
	Timer *ignition.Timer
	Curve *curve.Function
}

// EngineInfo identifies an engine.
type EngineInfo struct {
	ID   int
	Name string
}
