// Package sim steps a world of engines, each a crankshaft driving an ignition timer,
// and reports the sparks of every step.
package sim

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/ignition/config"
	"github.com/pthm-cable/ignition/crankshaft"
	"github.com/pthm-cable/ignition/curve"
	"github.com/pthm-cable/ignition/ignition"
	"github.com/pthm-cable/ignition/telemetry"
	"github.com/pthm-cable/ignition/units"
)

// EngineSpec describes an engine to add to the world.
type EngineSpec struct {
	Name         string
	RPM          float64
	StartAngle   float64   // Initial cycle angle, radians
	FiringAngles []float64 // One per cylinder, radians
	Disabled     []int
	Curve        *curve.Function

	RevLimit        float64 // rad/s, 0 = no limiter
	LimiterDuration float64
}

// SpecFromConfig builds an engine spec from configuration and a timing curve.
func SpecFromConfig(cfg *config.Config, timing *curve.Function) EngineSpec {
	return EngineSpec{
		Name:            cfg.Engine.Name,
		RPM:             cfg.Simulation.RPM,
		FiringAngles:    cfg.Derived.FiringAngles,
		Disabled:        cfg.Engine.DisabledCylinders,
		Curve:           timing,
		RevLimit:        cfg.Derived.RevLimit,
		LimiterDuration: cfg.Limiter.Duration,
	}
}

// EngineView is a read-only snapshot of one engine, for display.
type EngineView struct {
	ID           int
	Name         string
	RPM          float64
	CycleAngle   float64
	Advance      float64
	FiringAngles []float64
	Limiting     bool
}

// World holds all engines and the simulation clock.
type World struct {
	world   *ecs.World
	engines *ecs.Map3[Crank, Ignition, EngineInfo]
	filter  *ecs.Filter3[Crank, Ignition, EngineInfo]

	dt     float64
	tick   int64
	nextID int
	count  int

	events []telemetry.Event
	fired  []int

	perf      *telemetry.PerfCollector
	collector *telemetry.Collector
}

// New creates an empty world stepping dt seconds per tick.
func New(dt float64) *World {
	world := ecs.NewWorld()
	return &World{
		world:   world,
		engines: ecs.NewMap3[Crank, Ignition, EngineInfo](world),
		filter:  ecs.NewFilter3[Crank, Ignition, EngineInfo](world),
		dt:      dt,
	}
}

// SetPerf attaches a performance collector timing each step. nil disables timing.
func (w *World) SetPerf(p *telemetry.PerfCollector) {
	w.perf = p
}

// SetCollector attaches a stats collector fed with every engine step and event.
func (w *World) SetCollector(c *telemetry.Collector) {
	w.collector = c
}

// AddEngine creates an engine entity and synchronizes its timer to the crank.
func (w *World) AddEngine(spec EngineSpec) ecs.Entity {
	timing := spec.Curve
	if timing == nil {
		timing = curve.New()
	}

	shaft := crankshaft.New(spec.RPM)
	shaft.Body.Theta = -spec.StartAngle

	timer := ignition.NewTimer(ignition.Params{
		CylinderCount:   len(spec.FiringAngles),
		Crankshaft:      shaft,
		TimingCurve:     timing,
		RevLimit:        spec.RevLimit,
		LimiterDuration: spec.LimiterDuration,
	})
	for i, angle := range spec.FiringAngles {
		timer.SetFiringOrder(i, angle)
	}
	for _, i := range spec.Disabled {
		timer.SetEnabled(i, false)
	}
	timer.Reset()

	info := EngineInfo{ID: w.nextID, Name: spec.Name}
	w.nextID++
	w.count++

	return w.engines.NewEntity(
		&Crank{Shaft: shaft},
		&Ignition{Timer: timer, Curve: timing},
		&info,
	)
}

// RemoveEngine destroys an engine's timer and removes it from the world.
func (w *World) RemoveEngine(e ecs.Entity) {
	if !w.world.Alive(e) {
		return
	}
	_, ign, _ := w.engines.Get(e)
	ign.Timer.Destroy()
	w.world.RemoveEntity(e)
	w.count--
}

// Step advances every engine by one tick and records the sparks it produced.
// Events are consumed: each spark is reported in exactly one step.
func (w *World) Step() {
	w.tick++
	w.events = w.events[:0]

	if w.perf != nil {
		w.perf.StartTick()
	}

	query := w.filter.Query()
	for query.Next() {
		crank, ign, info := query.Get()

		w.startPhase(telemetry.PhaseCrankshaft)
		crank.Shaft.Step(w.dt)

		w.startPhase(telemetry.PhaseIgnition)
		ign.Timer.Update(w.dt)

		w.startPhase(telemetry.PhaseEvents)
		w.fired = ign.Timer.FiredCylinders(w.fired[:0])
		if len(w.fired) > 0 {
			omega := crank.Shaft.AngularVelocity()
			cycle := crank.Shaft.CycleAngle()
			advance := ign.Timer.TimingAdvance()
			for _, cyl := range w.fired {
				w.events = append(w.events,
					telemetry.NewIgnitionEvent(w.tick, w.dt, info.ID, cyl, cycle, advance, omega))
			}
			ign.Timer.ResetIgnitionEvents()
		}

		if w.collector != nil {
			w.startPhase(telemetry.PhaseTelemetry)
			w.collector.RecordStep(info.ID, ign.Timer.CylinderCount(), crank.Shaft.RPM(), ign.Timer.Limiting())
		}
	}

	if w.collector != nil {
		for _, e := range w.events {
			w.collector.RecordEvent(e)
		}
	}

	if w.perf != nil {
		w.perf.EndTick()
	}
}

func (w *World) startPhase(p telemetry.Phase) {
	if w.perf != nil {
		w.perf.StartPhase(p)
	}
}

// Events returns the sparks of the last step. The slice is reused by the next Step.
func (w *World) Events() []telemetry.Event {
	return w.events
}

// SetRPM sets the speed of every engine.
func (w *World) SetRPM(rpm float64) {
	query := w.filter.Query()
	for query.Next() {
		crank, _, _ := query.Get()
		crank.Shaft.SetRPM(rpm)
	}
}

// Engines appends a snapshot of every engine to dst.
func (w *World) Engines(dst []EngineView) []EngineView {
	query := w.filter.Query()
	for query.Next() {
		crank, ign, info := query.Get()
		t := ign.Timer

		angles := make([]float64, t.CylinderCount())
		for i := range angles {
			angles[i] = t.Plug(i).Angle
		}

		dst = append(dst, EngineView{
			ID:           info.ID,
			Name:         info.Name,
			RPM:          crank.Shaft.RPM(),
			CycleAngle:   crank.Shaft.CycleAngle(),
			Advance:      t.TimingAdvance(),
			FiringAngles: angles,
			Limiting:     t.Limiting(),
		})
	}
	return dst
}

// EngineCount returns the number of engines.
func (w *World) EngineCount() int {
	return w.count
}

// Tick returns the number of steps taken.
func (w *World) Tick() int64 {
	return w.tick
}

// Time returns simulated seconds elapsed.
func (w *World) Time() float64 {
	return float64(w.tick) * w.dt
}

// DT returns the step length in seconds.
func (w *World) DT() float64 {
	return w.dt
}

// CyclePeriod returns the duration of one combustion cycle at rpm, in seconds.
func CyclePeriod(rpm float64) float64 {
	return units.FourPi / units.Rpm(rpm)
}

// Close destroys every engine's timer.
func (w *World) Close() {
	query := w.filter.Query()
	for query.Next() {
		_, ign, _ := query.Get()
		ign.Timer.Destroy()
	}
}
