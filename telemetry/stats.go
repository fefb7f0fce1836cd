package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int64   `csv:"-"`
	WindowEndTick   int64   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Firing during window, summed over engines
	Events        int     `csv:"events"`
	Cycles        float64 `csv:"cycles"`          // Combustion cycles swept by all cranks
	FiresPerCycle float64 `csv:"fires_per_cycle"` // Equals active cylinder count at steady state
	MinCylFires   int     `csv:"min_cyl_fires"`
	MaxCylFires   int     `csv:"max_cyl_fires"`
	LimitedSteps  int     `csv:"limited_steps"` // Engine steps with the rev limiter cutting spark

	// Crank speed
	RPMMean float64 `csv:"rpm_mean"`
	RPMMin  float64 `csv:"rpm_min"`
	RPMMax  float64 `csv:"rpm_max"`

	// Advance at firing
	AdvanceMeanDeg float64 `csv:"advance_mean_deg"`
	AdvanceP10Deg  float64 `csv:"advance_p10_deg"`
	AdvanceP50Deg  float64 `csv:"advance_p50_deg"`
	AdvanceP90Deg  float64 `csv:"advance_p90_deg"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeSpreadStats calculates mean and percentiles from a set of values.
func ComputeSpreadStats(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}

	mean = stat.Mean(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, p10, p50, p90
}

// ComputeRPMStats returns mean, min and max of speed samples, or zeros when empty.
func ComputeRPMStats(values []float64) (mean, lo, hi float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}
	return stat.Mean(values, nil), floats.Min(values), floats.Max(values)
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartTick),
		slog.Int64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("events", s.Events),
		slog.Float64("cycles", s.Cycles),
		slog.Float64("fires_per_cycle", s.FiresPerCycle),
		slog.Int("min_cyl_fires", s.MinCylFires),
		slog.Int("max_cyl_fires", s.MaxCylFires),
		slog.Int("limited_steps", s.LimitedSteps),
		slog.Float64("rpm_mean", s.RPMMean),
		slog.Float64("rpm_min", s.RPMMin),
		slog.Float64("rpm_max", s.RPMMax),
		slog.Float64("advance_mean_deg", s.AdvanceMeanDeg),
		slog.Float64("advance_p10_deg", s.AdvanceP10Deg),
		slog.Float64("advance_p50_deg", s.AdvanceP50Deg),
		slog.Float64("advance_p90_deg", s.AdvanceP90Deg),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"events", s.Events,
		"fires_per_cycle", s.FiresPerCycle,
		"min_cyl_fires", s.MinCylFires,
		"max_cyl_fires", s.MaxCylFires,
		"limited_steps", s.LimitedSteps,
		"rpm_mean", s.RPMMean,
		"advance_mean_deg", s.AdvanceMeanDeg,
	)
}
