package telemetry

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int64
	dt                  float64

	// Current window tracking
	windowStartTick int64

	// Counters for current window
	events       int
	limitedSteps int
	cycles       float64
	rpmSamples   []float64
	advanceDeg   []float64
	firesPerCyl  map[cylinderKey]int
	cylinders    map[int]int // Engine ID -> cylinder count, for engines stepped this window
}

type cylinderKey struct {
	engine, cylinder int
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec float64, dt float64) *Collector {
	ticksPerWindow := int64(windowDurationSec / dt)
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
		firesPerCyl:         make(map[cylinderKey]int),
		cylinders:           make(map[int]int),
	}
}

// RecordStep records one engine's crank state for a step. cylinders is the engine's
// cylinder count; cylinders that never fire in the window count as zero fires.
func (c *Collector) RecordStep(engine, cylinders int, rpm float64, limiting bool) {
	c.cylinders[engine] = cylinders
	c.rpmSamples = append(c.rpmSamples, rpm)
	// Two revolutions per cycle
	c.cycles += rpm / 60 * c.dt / 2
	if limiting {
		c.limitedSteps++
	}
}

// RecordEvent records an ignition event.
func (c *Collector) RecordEvent(e Event) {
	c.events++
	c.firesPerCyl[cylinderKey{e.Engine, e.Cylinder}]++
	c.advanceDeg = append(c.advanceDeg, e.AdvanceDeg)
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int64) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int64) WindowStats {
	rpmMean, rpmMin, rpmMax := ComputeRPMStats(c.rpmSamples)
	advMean, advP10, advP50, advP90 := ComputeSpreadStats(c.advanceDeg)

	var firesPerCycle float64
	if c.cycles > 0 {
		firesPerCycle = float64(c.events) / c.cycles
	}

	minCyl, maxCyl := c.cylinderFireRange()

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		Events:        c.events,
		Cycles:        c.cycles,
		FiresPerCycle: firesPerCycle,
		MinCylFires:   minCyl,
		MaxCylFires:   maxCyl,
		LimitedSteps:  c.limitedSteps,

		RPMMean: rpmMean,
		RPMMin:  rpmMin,
		RPMMax:  rpmMax,

		AdvanceMeanDeg: advMean,
		AdvanceP10Deg:  advP10,
		AdvanceP50Deg:  advP50,
		AdvanceP90Deg:  advP90,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.events = 0
	c.limitedSteps = 0
	c.cycles = 0
	c.rpmSamples = c.rpmSamples[:0]
	c.advanceDeg = c.advanceDeg[:0]
	clear(c.firesPerCyl)
	clear(c.cylinders)

	return stats
}

// cylinderFireRange returns the fewest and most fires of any cylinder in the window.
// Every cylinder of every stepped engine is counted, including ones that never fired.
func (c *Collector) cylinderFireRange() (minFires, maxFires int) {
	first := true
	visit := func(n int) {
		if first || n < minFires {
			minFires = n
		}
		if first || n > maxFires {
			maxFires = n
		}
		first = false
	}
	for engine, n := range c.cylinders {
		for cyl := 0; cyl < n; cyl++ {
			visit(c.firesPerCyl[cylinderKey{engine, cyl}])
		}
	}
	// Events from engines that were not stepped this window
	for key, n := range c.firesPerCyl {
		if _, ok := c.cylinders[key.engine]; !ok {
			visit(n)
		}
	}
	return minFires, maxFires
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int64 {
	return c.windowDurationTicks
}
