package main

import (
	"flag"
	"log/slog"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/flowfield/agents"
	"github.com/pthm-cable/flowfield/config"
	"github.com/pthm-cable/flowfield/field"
	"github.com/pthm-cable/flowfield/solver"
	"github.com/pthm-cable/flowfield/telemetry"
	"github.com/pthm-cable/flowfield/viz"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	scenario := flag.String("scenario", field.ScenarioRooms, "Built-in layout: open, ring-sink, corridor, rooms")
	bitmapPath := flag.String("bitmap", "", "Classification bitmap (PNG, must match grid dimensions; overrides -scenario)")
	agentCount := flag.Int("agents", -1, "Agent count (-1 = use config)")
	seed := flag.Int64("seed", 0, "Agent RNG seed (0 = use config)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// Layout: bitmap wins over built-in scenario
	var layout *field.Layout
	var scripted []field.ScenarioInfluence
	if *bitmapPath != "" {
		l, err := field.LoadLayout(*bitmapPath)
		if err != nil {
			slog.Error("failed to load layout bitmap", "path", *bitmapPath, "error", err)
			os.Exit(1)
		}
		if l.W != cfg.Grid.Width || l.H != cfg.Grid.Height {
			slog.Error("bitmap does not match grid",
				"bitmap_w", l.W, "bitmap_h", l.H,
				"grid_w", cfg.Grid.Width, "grid_h", cfg.Grid.Height)
			os.Exit(1)
		}
		layout = l
	} else {
		sc, err := field.BuildScenario(*scenario, cfg.Grid.Width, cfg.Grid.Height)
		if err != nil {
			slog.Error("failed to build scenario", "error", err)
			os.Exit(1)
		}
		layout = sc.Layout
		scripted = sc.Influences
	}

	s, err := solver.New(solver.FromConfig(cfg), layout)
	if err != nil {
		slog.Error("failed to initialize solver", "error", err)
		os.Exit(1)
	}
	defer s.Close()

	for _, in := range scripted {
		wx := s.Grid().OriginX + in.FX*s.Grid().WorldW()
		wy := s.Grid().OriginY + in.FY*s.Grid().WorldH()
		if _, err := s.AddInfluence(wx, wy, in.Kind, in.Strength*float32(cfg.Influence.MaxStrength)); err != nil {
			slog.Error("failed to add scripted influence", "error", err)
			os.Exit(1)
		}
	}

	// Telemetry
	perf := telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow)
	s.AttachPerf(perf)

	statsWindowSec := cfg.Telemetry.StatsWindow
	if *statsWindow > 0 {
		statsWindowSec = *statsWindow
	}
	collector := telemetry.NewCollector(statsWindowSec, cfg.Derived.DT32, float32(cfg.Sampler.DeadZoneEpsilon))

	var output *telemetry.OutputManager
	if *outputDir != "" {
		output, err = telemetry.NewOutputManager(*outputDir)
		if err != nil {
			slog.Error("failed to create output directory", "error", err)
			os.Exit(1)
		}
		defer output.Close()
		if err := output.WriteConfig(cfg); err != nil {
			slog.Error("failed to write config snapshot", "error", err)
			os.Exit(1)
		}
	}

	// Demo swarm
	swarmCfg := agents.Config{
		Count:     cfg.Agents.Count,
		MaxSpeed:  float32(cfg.Agents.MaxSpeed),
		SteerRate: float32(cfg.Agents.SteerRate),
		Seed:      int64(cfg.Agents.Seed),
	}
	if *agentCount >= 0 {
		swarmCfg.Count = *agentCount
	}
	if *seed != 0 {
		swarmCfg.Seed = *seed
	}
	var swarm *agents.Swarm
	if swarmCfg.Count > 0 {
		swarm, err = agents.NewSwarm(swarmCfg, s.Sampler(), s)
		if err != nil {
			slog.Error("failed to create swarm", "error", err)
			os.Exit(1)
		}
		defer swarm.Close()
	}

	run := runState{
		solver:    s,
		swarm:     swarm,
		collector: collector,
		perf:      perf,
		output:    output,
		dt:        cfg.Derived.DT32,
		logStats:  *logStats,
		maxTicks:  uint64(*maxTicks),
	}

	if *headless {
		slog.Info("starting headless simulation",
			"scenario", *scenario,
			"grid_w", cfg.Grid.Width, "grid_h", cfg.Grid.Height,
			"agents", swarmCfg.Count,
			"max_ticks", *maxTicks)
		run.headless()
		return
	}
	run.graphical(cfg)
}

// runState bundles the simulation loop collaborators.
type runState struct {
	solver    *solver.Solver
	swarm     *agents.Swarm
	collector *telemetry.Collector
	perf      *telemetry.PerfCollector
	output    *telemetry.OutputManager
	dt        float32
	logStats  bool
	maxTicks  uint64
}

// step advances the solver and swarm one tick and flushes telemetry at
// window boundaries. Reports false once the tick budget is spent.
func (r *runState) step() bool {
	if err := r.solver.Update(r.dt); err != nil {
		slog.Error("tick failed", "tick", r.solver.Tick(), "error", err)
		return false
	}
	if r.swarm != nil {
		r.swarm.Update(r.dt)
	}

	if r.collector.ShouldFlush(r.solver.Tick()) {
		stats := r.collector.Flush(
			r.solver.Tick(),
			r.solver.Snapshot(),
			r.solver.Classes(),
			r.solver.Divergence(),
			r.solver.Pressure(),
			r.solver.InfluenceCount(),
		)
		if r.logStats {
			stats.LogStats()
			r.perf.Stats().LogStats()
		}
		if r.output != nil {
			if err := r.output.WriteStats(stats); err != nil {
				slog.Error("failed to write stats", "error", err)
			}
			if err := r.output.WritePerf(r.perf.Stats(), r.solver.Tick()); err != nil {
				slog.Error("failed to write perf", "error", err)
			}
		}
	}

	if r.maxTicks > 0 && r.solver.Tick() >= r.maxTicks {
		slog.Info("max ticks reached", "tick", r.solver.Tick())
		return false
	}
	return true
}

func (r *runState) headless() {
	for r.step() {
	}
}

func (r *runState) graphical(cfg *config.Config) {
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "flowfield")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	renderer := viz.New(int32(cfg.Screen.Width), int32(cfg.Screen.Height), r.solver)

	for !rl.WindowShouldClose() {
		renderer.HandleInput(r.solver)
		if !r.step() {
			break
		}
		r.perf.RecordFrame()

		rl.BeginDrawing()
		rl.ClearBackground(rl.Black)
		renderer.Draw(r.solver, r.swarm)
		rl.EndDrawing()
	}
}
