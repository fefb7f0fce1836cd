package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/pthm-cable/ignition/config"
	"github.com/pthm-cable/ignition/sim"
	"github.com/pthm-cable/ignition/telemetry"
	"github.com/pthm-cable/ignition/units"
	"github.com/pthm-cable/ignition/viewer"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output window stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = use config)")
	rpm := flag.Float64("rpm", 0, "Engine speed in rpm (0 = use config)")

	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	if *rpm != 0 {
		cfg.Simulation.RPM = *rpm
	}
	if *maxTicks > 0 {
		cfg.Simulation.MaxTicks = *maxTicks
	}

	timing, err := cfg.TimingCurve()
	if err != nil {
		slog.Error("failed to build timing curve", "error", err)
		os.Exit(1)
	}

	world := sim.New(cfg.Simulation.DT)
	defer world.Close()

	// Stagger engines evenly through the cycle
	n := cfg.Simulation.Engines
	for i := 0; i < n; i++ {
		spec := sim.SpecFromConfig(cfg, timing)
		spec.StartAngle = units.FourPi * float64(i) / float64(n)
		world.AddEngine(spec)
	}

	perf := telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow)
	world.SetPerf(perf)

	if !*headless {
		viewer.Run(world, cfg.Simulation.RPM, cfg.Screen.Width, cfg.Screen.Height, cfg.Screen.TargetFPS, perf)
		return
	}

	if err := runHeadless(cfg, world, perf, *outputDir, *logStats); err != nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

// runHeadless steps the world for the configured number of ticks, writing events and
// window stats as it goes.
func runHeadless(cfg *config.Config, world *sim.World, perf *telemetry.PerfCollector, outputDir string, logStats bool) error {
	om, err := telemetry.NewOutputManager(outputDir)
	if err != nil {
		return err
	}
	defer om.Close()

	if err := om.WriteConfig(cfg); err != nil {
		return err
	}

	collector := telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Simulation.DT)
	world.SetCollector(collector)

	slog.Info("starting headless simulation",
		"engine", cfg.Engine.Name,
		"cylinders", cfg.Engine.Cylinders,
		"engines", world.EngineCount(),
		"rpm", cfg.Simulation.RPM,
		"dt", cfg.Simulation.DT,
		"max_ticks", cfg.Simulation.MaxTicks,
	)

	var pending []telemetry.Event
	total := 0
	flush := func() error {
		stats := collector.Flush(world.Tick())
		if logStats {
			stats.LogStats()
			perf.Stats().LogStats()
		}
		if err := om.WriteEvents(pending); err != nil {
			return err
		}
		pending = pending[:0]
		if err := om.WriteTelemetry(stats); err != nil {
			return err
		}
		return om.WritePerf(perf.Stats(), world.Tick())
	}

	for world.Tick() < int64(cfg.Simulation.MaxTicks) {
		world.Step()
		pending = append(pending, world.Events()...)
		total += len(world.Events())

		if collector.ShouldFlush(world.Tick()) {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	slog.Info("max ticks reached",
		"tick", world.Tick(),
		"sim_time", world.Time(),
		"events", total,
		"output_dir", om.Dir(),
	)
	return nil
}
