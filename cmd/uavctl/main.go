package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/zejdajan/mrs-uav-controllers/internal/analysis"
	"github.com/zejdajan/mrs-uav-controllers/internal/automation"
	"github.com/zejdajan/mrs-uav-controllers/internal/config"
	"github.com/zejdajan/mrs-uav-controllers/internal/export"
	"github.com/zejdajan/mrs-uav-controllers/internal/optim"
	"github.com/zejdajan/mrs-uav-controllers/internal/plant"
	"github.com/zejdajan/mrs-uav-controllers/internal/registry"
	"github.com/zejdajan/mrs-uav-controllers/internal/sim"
	"github.com/zejdajan/mrs-uav-controllers/internal/storage"
	"github.com/zejdajan/mrs-uav-controllers/internal/telemetry"
	"github.com/zejdajan/mrs-uav-controllers/internal/uav"
	"github.com/zejdajan/mrs-uav-controllers/internal/viz"
)

var (
	dataDir    string
	verbose    bool
	configFile string
	preset     string

	controllerName string
	integratorName string
	dt             float64
	duration       float64
	filterRate     float64

	// Plant overrides. plantMass lets the true vehicle mass differ from the
	// mass the controller was configured with.
	windX     float64
	windY     float64
	dragCoeff float64
	plantMass float64

	startX float64
	startY float64
	startZ float64

	controllerList string
	plotAll        bool
	svgOut         string
	tunePoints     int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "uavctl",
		Short: "multicopter controller simulation bench",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".uavctl", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	flyCmd := &cobra.Command{
		Use:   "fly [trajectory]",
		Short: "fly a trajectory and store the run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  flyTrajectory,
	}
	addLoopFlags(flyCmd)

	liveCmd := &cobra.Command{
		Use:   "live [trajectory]",
		Short: "fly with the interactive terminal view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addLoopFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run (defaults to the latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().BoolVar(&plotAll, "all", false, "also plot velocity, attitude and command channels")
	plotCmd.Flags().StringVar(&svgOut, "svg", "", "write the top-down flight path to an SVG file")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency and step-response analysis of a stored run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  analyzeRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a stored run as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportRun,
	}

	compareCmd := &cobra.Command{
		Use:   "compare [trajectory]",
		Short: "fly the same trajectory with several controllers",
		Args:  cobra.MaximumNArgs(1),
		RunE:  compareControllers,
	}
	addLoopFlags(compareCmd)
	compareCmd.Flags().StringVar(&controllerList, "controllers", "nsf,pid", "comma-separated controllers to compare")

	tuneCmd := &cobra.Command{
		Use:   "tune [trajectory]",
		Short: "grid-search controller gains on a trajectory",
		Args:  cobra.MaximumNArgs(1),
		RunE:  tuneGains,
	}
	addLoopFlags(tuneCmd)
	tuneCmd.Flags().IntVar(&tunePoints, "points", 5, "grid points per gain axis")

	campaignCmd := &cobra.Command{
		Use:   "campaign [file]",
		Short: "run a scripted flight campaign from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE:  runCampaign,
	}
	campaignCmd.Flags().StringVar(&configFile, "config", "", "controller config file (yaml)")
	campaignCmd.Flags().StringVar(&preset, "preset", "", "tuning preset")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark integrators on the hover loop",
		RunE:  benchIntegrators,
	}
	benchCmd.Flags().Float64Var(&duration, "time", 10.0, "simulated duration")

	trajectoriesCmd := &cobra.Command{
		Use:   "trajectories",
		Short: "list available trajectories",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range sim.ListTrajectories() {
				fmt.Println(" ", name)
			}
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available tuning presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range config.ListPresets() {
				fmt.Println(" ", name)
			}
		},
	}

	rootCmd.AddCommand(flyCmd, liveCmd, listCmd, plotCmd, analyzeCmd, exportCmd,
		compareCmd, tuneCmd, campaignCmd, benchCmd, trajectoriesCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addLoopFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&controllerName, "controller", "nsf", "controller (nsf, pid)")
	cmd.Flags().StringVar(&integratorName, "integrator", "rk4", "integrator (euler, rk4, rk45)")
	cmd.Flags().Float64Var(&dt, "dt", 0.01, "timestep")
	cmd.Flags().Float64Var(&duration, "time", 10.0, "simulated duration")
	cmd.Flags().Float64Var(&filterRate, "filter-rate", -1, "gain filter rate, hz (-1 uses the config value)")
	cmd.Flags().StringVar(&configFile, "config", "", "controller config file (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "tuning preset")
	cmd.Flags().Float64Var(&windX, "wind-x", 0, "world-frame wind force, N")
	cmd.Flags().Float64Var(&windY, "wind-y", 0, "world-frame wind force, N")
	cmd.Flags().Float64Var(&dragCoeff, "drag", 0.1, "linear drag coefficient")
	cmd.Flags().Float64Var(&plantMass, "plant-mass", 0, "true vehicle mass, kg (0 follows the config)")
	cmd.Flags().Float64Var(&startX, "x", 0, "initial x position")
	cmd.Flags().Float64Var(&startY, "y", 0, "initial y position")
	cmd.Flags().Float64Var(&startZ, "z", 0, "initial z position")
}

// loadConfig resolves the controller configuration: preset first, then an
// explicit config file replacing it entirely.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}
	return cfg, nil
}

func buildPlant(cfg *config.Config) *plant.Quadrotor {
	q := plant.FromConfig(cfg)
	q.Wind = uav.Vec2{X: windX, Y: windY}
	q.DragCoeff = dragCoeff
	if plantMass > 0 {
		q.Mass = plantMass
	}
	return q
}

func loopConfig(cfg *config.Config) sim.Config {
	simCfg := sim.DefaultConfig()
	simCfg.Dt = dt
	simCfg.Duration = duration
	simCfg.FilterRate = cfg.NSF.GainsFilter.FilterRate
	if filterRate >= 0 {
		simCfg.FilterRate = filterRate
	}
	return simCfg
}

func trajectoryArg(args []string) (sim.Trajectory, error) {
	name := "hover"
	if len(args) > 0 {
		name = args[0]
	}
	return sim.GetTrajectory(name)
}

func flyTrajectory(cmd *cobra.Command, args []string) error {
	traj, err := trajectoryArg(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := telemetry.New(verbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctrl, err := registry.NewController(controllerName, cfg, log)
	if err != nil {
		return err
	}

	integ, err := registry.NewIntegrator(integratorName)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	q := buildPlant(cfg)
	x0 := q.InitialState(uav.Vec3{X: startX, Y: startY, Z: startZ})

	s := sim.New(q, integ, ctrl, traj)
	for _, m := range registry.DefaultMetrics(cfg) {
		s.AddMetric(m)
	}

	simCfg := loopConfig(cfg)

	fmt.Printf("flying %s with the %s controller...\n", traj.Name(), controllerName)
	start := time.Now()

	result, err := s.Run(context.Background(), x0, simCfg)
	if err != nil {
		var stepErr *sim.StepError
		if errors.As(err, &stepErr) {
			return fmt.Errorf("loop diverged at t=%.2fs (step %d): %w", stepErr.Time, stepErr.Step, err)
		}
		return err
	}

	elapsed := time.Since(start)

	meta := storage.RunMetadata{
		Controller: controllerName,
		Trajectory: traj.Name(),
		Integrator: integratorName,
		Dt:         simCfg.Dt,
		Duration:   simCfg.Duration,
		FilterRate: simCfg.FilterRate,
		UAVMass:    cfg.UAVMass,
	}
	runID, err := st.Save(meta, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Println("\nmetrics:")
	printValues(result.Metrics)

	return nil
}

func printValues(m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, m[name])
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	traj, err := trajectoryArg(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The terminal owns the screen; keep the controller quiet.
	ctrl, err := registry.NewController(controllerName, cfg, telemetry.Nop())
	if err != nil {
		return err
	}

	integ, err := registry.NewIntegrator(integratorName)
	if err != nil {
		return err
	}

	q := buildPlant(cfg)
	x0 := q.InitialState(uav.Vec3{X: startX, Y: startY, Z: startZ})

	simCfg := loopConfig(cfg)

	m := viz.NewModel(q, integ, ctrl, traj, x0, simCfg.Dt, simCfg.FilterRate)
	p := tea.NewProgram(m)
	_, err = p.Run()
	return err
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		if errors.Is(err, storage.ErrNoRuns) {
			fmt.Println("no runs found")
			return nil
		}
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCTRL\tTRAJECTORY\tTIME\tDURATION\tDT\tINTEG\tRMS")

	for _, run := range runs {
		rms := "-"
		if v, ok := run.Metrics["tracking_error_rms"]; ok {
			rms = fmt.Sprintf("%.4f", v)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%.4fs\t%s\t%s\n",
			run.ID,
			run.Controller,
			run.Trajectory,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Integrator,
			rms,
		)
	}

	return w.Flush()
}

// resolveRunID picks the run from the argument or falls back to the latest.
func resolveRunID(st *storage.Store, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	latest, err := st.Latest()
	if err != nil {
		return "", err
	}
	return latest.ID, nil
}

// positionChannels maps state columns to their reference columns and plot
// captions. The plant state layout is position, velocity, attitude.
var positionChannels = []struct {
	state, ref, caption string
}{
	{"x0", "ref_x", "x position vs reference [m]"},
	{"x1", "ref_y", "y position vs reference [m]"},
	{"x2", "ref_z", "z position vs reference [m]"},
}

var extraChannels = []struct {
	col, caption string
}{
	{"x3", "x velocity [m/s]"},
	{"x4", "y velocity [m/s]"},
	{"x5", "z velocity [m/s]"},
	{"x6", "roll [rad]"},
	{"x7", "pitch [rad]"},
	{"x8", "yaw [rad]"},
	{"u0", "commanded roll [rad]"},
	{"u1", "commanded pitch [rad]"},
	{"u3", "commanded thrust"},
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRunID(st, args)
	if err != nil {
		return err
	}

	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	data, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	if len(data.Times) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("controller: %s, trajectory: %s\n", meta.Controller, meta.Trajectory)
	fmt.Printf("samples: %d\n\n", len(data.Times))

	for _, ch := range positionChannels {
		pos := data.Column(ch.state)
		ref := data.Column(ch.ref)
		if pos == nil || ref == nil {
			continue
		}
		graph := asciigraph.PlotMany([][]float64{pos, ref},
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(ch.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	if svgOut != "" {
		if err := writePathSVG(data, svgOut); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n\n", svgOut)
	}

	if !plotAll {
		return nil
	}

	for _, ch := range extraChannels {
		col := data.Column(ch.col)
		if col == nil {
			continue
		}
		graph := asciigraph.Plot(col,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(ch.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func writePathSVG(data *storage.RunData, path string) error {
	xs, ys := data.Column("x0"), data.Column("x1")
	refX, refY := data.Column("ref_x"), data.Column("ref_y")
	if xs == nil || ys == nil {
		return fmt.Errorf("run has no position columns")
	}

	flown := make([]uav.Vec2, len(xs))
	for i := range xs {
		flown[i] = uav.Vec2{X: xs[i], Y: ys[i]}
	}
	var ref []uav.Vec2
	if refX != nil && refY != nil {
		ref = make([]uav.Vec2, len(refX))
		for i := range refX {
			ref[i] = uav.Vec2{X: refX[i], Y: refY[i]}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return export.PathSVG(f, flown, ref, 800, 600)
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRunID(st, args)
	if err != nil {
		return err
	}

	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	data, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	if len(data.Times) < 2 {
		return fmt.Errorf("not enough samples to analyze")
	}

	rate := 1.0 / meta.Dt
	if meta.Dt <= 0 {
		rate = float64(len(data.Times)-1) / (data.Times[len(data.Times)-1] - data.Times[0])
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("controller: %s, trajectory: %s, sample rate: %.1f hz\n\n", meta.Controller, meta.Trajectory, rate)

	axes := []struct {
		name, state, ref string
	}{
		{"x", "x0", "ref_x"},
		{"y", "x1", "ref_y"},
		{"z", "x2", "ref_z"},
	}

	// The axis with the strongest oscillation gets its spectrum plotted.
	var bestSpectrum *analysis.Spectrum
	bestPower := 0.0
	bestAxis := ""

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "AXIS\tDOMINANT\tRISE\tOVERSHOOT\tSETTLING\tFINAL ERR")

	for _, axis := range axes {
		col := data.Column(axis.state)
		refCol := data.Column(axis.ref)
		if col == nil || refCol == nil {
			continue
		}

		sp := analysis.PowerSpectrum(col, rate)
		dominant := "-"
		if sp != nil {
			if freq, power := sp.Dominant(); power > 0 {
				dominant = fmt.Sprintf("%.2f hz", freq)
				if power > bestPower {
					bestPower = power
					bestSpectrum = sp
					bestAxis = axis.name
				}
			}
		}

		sm := analysis.StepResponse(data.Times, col, refCol[len(refCol)-1])
		fmt.Fprintf(w, "%s\t%s\t%.2fs\t%.1f%%\t%.2fs\t%.4f\n",
			axis.name, dominant, sm.RiseTime, sm.Overshoot*100, sm.SettlingTime, sm.FinalError)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if bestSpectrum != nil {
		fmt.Println()
		plotData := bestSpectrum.Power[:len(bestSpectrum.Power)/4]
		graph := asciigraph.Plot(plotData,
			asciigraph.Height(12),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("power spectrum (%s axis)", bestAxis)),
		)
		fmt.Println(graph)
	}

	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRunID(st, args)
	if err != nil {
		return err
	}
	return st.ExportJSON(os.Stdout, runID)
}

func compareControllers(cmd *cobra.Command, args []string) error {
	traj, err := trajectoryArg(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	names := strings.Split(controllerList, ",")
	for i, name := range names {
		names[i] = strings.TrimSpace(name)
	}

	sims := make([]*sim.Simulator, len(names))
	inits := make([]sim.State, len(names))

	for i, name := range names {
		ctrl, err := registry.NewController(name, cfg, telemetry.Nop())
		if err != nil {
			return err
		}
		integ, err := registry.NewIntegrator(integratorName)
		if err != nil {
			return err
		}
		q := buildPlant(cfg)
		s := sim.New(q, integ, ctrl, traj)
		for _, m := range registry.DefaultMetrics(cfg) {
			s.AddMetric(m)
		}
		sims[i] = s
		inits[i] = q.InitialState(uav.Vec3{X: startX, Y: startY, Z: startZ})
	}

	sweep := sim.NewSweep(func(variant int) (*sim.Simulator, sim.State) {
		return sims[variant], inits[variant]
	}, len(names))

	fmt.Printf("comparing %v on %s...\n\n", names, traj.Name())
	results, err := sweep.Run(context.Background(), loopConfig(cfg))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CTRL\tSTEPS\tRMS\tEFFORT\tSETTLING\tSATURATION")
	for i, res := range results {
		fmt.Fprintf(w, "%s\t%d\t%.4f\t%.4f\t%.2fs\t%.1f%%\n",
			names[i],
			res.StepsTaken,
			res.Metrics["tracking_error_rms"],
			res.Metrics["control_effort"],
			res.Metrics["settling_time"],
			res.Metrics["saturation"]*100,
		)
	}
	return w.Flush()
}

func tuneGains(cmd *cobra.Command, args []string) error {
	traj, err := trajectoryArg(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var axes []optim.Axis
	switch controllerName {
	case "nsf":
		h := cfg.NSF.DefaultGains.Horizontal
		axes = []optim.Axis{
			{Name: "kp", Values: optim.Span(0.5*h.Kp, 1.5*h.Kp, tunePoints)},
			{Name: "kv", Values: optim.Span(0.5*h.Kv, 1.5*h.Kv, tunePoints)},
		}
	case "pid":
		axes = []optim.Axis{
			{Name: "kp", Values: optim.Span(0.5*cfg.PID.Kp, 1.5*cfg.PID.Kp, tunePoints)},
			{Name: "kd", Values: optim.Span(0.5*cfg.PID.Kd, 1.5*cfg.PID.Kd, tunePoints)},
		}
	default:
		return fmt.Errorf("unknown controller: %s (available: %v)", controllerName, registry.Controllers())
	}

	evaluate := func(ctx context.Context, params map[string]float64) (float64, error) {
		tuned := *cfg
		switch controllerName {
		case "nsf":
			tuned.NSF.DefaultGains.Horizontal.Kp = params["kp"]
			tuned.NSF.DefaultGains.Horizontal.Kv = params["kv"]
		case "pid":
			tuned.PID.Kp = params["kp"]
			tuned.PID.Kd = params["kd"]
		}

		ctrl, err := registry.NewController(controllerName, &tuned, telemetry.Nop())
		if err != nil {
			return 0, err
		}
		integ, err := registry.NewIntegrator(integratorName)
		if err != nil {
			return 0, err
		}
		q := buildPlant(&tuned)
		s := sim.New(q, integ, ctrl, traj)
		for _, m := range registry.DefaultMetrics(&tuned) {
			s.AddMetric(m)
		}

		res, err := s.Run(ctx, q.InitialState(uav.Vec3{X: startX, Y: startY, Z: startZ}), loopConfig(&tuned))
		if err != nil {
			return 0, err
		}
		return res.Metrics["tracking_error_rms"], nil
	}

	g := optim.NewGridSearch(axes...)
	fmt.Printf("searching %d gain combinations of the %s controller on %s...\n",
		g.Points(), controllerName, traj.Name())

	best, cost, err := g.Search(context.Background(), evaluate)
	if err != nil {
		return err
	}

	fmt.Println("\nbest gains:")
	printValues(best)
	fmt.Printf("\ntracking rms: %.4f\n", cost)
	return nil
}

func runCampaign(cmd *cobra.Command, args []string) error {
	c, err := automation.LoadCampaign(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := telemetry.New(verbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	fmt.Printf("campaign %q: %d flights\n\n", c.Name, len(c.Flights))
	results, runErr := automation.NewRunner(cfg, st, log).Run(context.Background(), c)

	if len(results) > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FLIGHT\tCTRL\tTRAJECTORY\tRUN\tSTEPS\tRMS")
		for _, res := range results {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.4f\n",
				res.Flight.Name,
				res.Flight.Controller,
				res.Flight.Trajectory,
				res.RunID,
				res.Result.StepsTaken,
				res.Result.Metrics["tracking_error_rms"],
			)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	return runErr
}

func benchIntegrators(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	traj, err := sim.GetTrajectory("hover")
	if err != nil {
		return err
	}

	dts := []float64{0.001, 0.01, 0.1}

	fmt.Println("benchmarking the hover loop")
	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEG\tDT\tSTEPS\tTIME\tSTEPS/SEC")

	for _, name := range registry.Integrators() {
		integ, err := registry.NewIntegrator(name)
		if err != nil {
			return err
		}
		for _, stepDt := range dts {
			ctrl, err := registry.NewController("nsf", cfg, telemetry.Nop())
			if err != nil {
				return err
			}
			q := plant.FromConfig(cfg)
			s := sim.New(q, integ, ctrl, traj)

			simCfg := sim.DefaultConfig()
			simCfg.Dt = stepDt
			simCfg.Duration = duration
			simCfg.FilterRate = cfg.NSF.GainsFilter.FilterRate

			start := time.Now()
			result, err := s.Run(context.Background(), q.InitialState(uav.Vec3{}), simCfg)
			if err != nil {
				var stepErr *sim.StepError
				if errors.As(err, &stepErr) {
					fmt.Fprintf(w, "%s\t%.4fs\t%d\tdiverged at t=%.2fs\t-\n",
						name, stepDt, stepErr.Step, stepErr.Time)
					continue
				}
				return err
			}
			elapsed := time.Since(start)

			stepsPerSec := float64(result.StepsTaken) / elapsed.Seconds()
			fmt.Fprintf(w, "%s\t%.4fs\t%d\t%v\t%.0f\n",
				name, stepDt, result.StepsTaken, elapsed, stepsPerSec)
		}
	}

	return w.Flush()
}
