package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/plasma1d/internal/analysis"
	"github.com/san-kum/plasma1d/internal/config"
	"github.com/san-kum/plasma1d/internal/experiment"
	"github.com/san-kum/plasma1d/internal/export"
	"github.com/san-kum/plasma1d/internal/integrator"
	"github.com/san-kum/plasma1d/internal/mesh"
	"github.com/san-kum/plasma1d/internal/optim"
	"github.com/san-kum/plasma1d/internal/plasma"
	"github.com/san-kum/plasma1d/internal/storage"
	"github.com/san-kum/plasma1d/internal/transport"
	"github.com/san-kum/plasma1d/internal/viz"
)

var (
	dataDir    string
	verbose    bool
	configFile string
	preset     string

	dt     float64
	steps  int
	width  float64
	nx     int
	ne0    float64
	nn0    float64
	te0    float64
	ti0    float64
	se0    float64
	wall   string
	form   string
	static bool

	speed    int
	dts      []float64
	outFile  string
	profile  bool
	params   []string
	metric   string
	maximize bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "plasma1d",
		Short:         "1D plasma transport simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".plasma1d", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [closure]",
		Short: "run a simulation and store it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot mean density history and final profile",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export diagnostics (or the final profile) to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().BoolVar(&profile, "profile", false, "export the final profile instead of the diagnostics")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "export the final profile as an SVG plot",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	liveCmd := &cobra.Command{
		Use:   "live [closure]",
		Short: "run a simulation with a live profile view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)
	liveCmd.Flags().IntVar(&speed, "speed", 1, "integrator steps per frame")

	compareCmd := &cobra.Command{
		Use:   "compare [closure] [closure] ...",
		Short: "run several closures in parallel on the same configuration",
		Args:  cobra.MinimumNArgs(1),
		RunE:  compareClosures,
	}
	addRunFlags(compareCmd)

	scanCmd := &cobra.Command{
		Use:   "scan [closure]",
		Short: "repeat a run at several time steps",
		Args:  cobra.MaximumNArgs(1),
		RunE:  scanTimeStep,
	}
	addRunFlags(scanCmd)
	scanCmd.Flags().Float64SliceVar(&dts, "dts", []float64{1e-7, 1e-6, 1e-5, 1e-4}, "time steps to scan")

	searchCmd := &cobra.Command{
		Use:   "search [closure]",
		Short: "grid search run parameters for the best metric",
		Args:  cobra.MaximumNArgs(1),
		RunE:  searchParams,
	}
	addRunFlags(searchCmd)
	searchCmd.Flags().StringArrayVar(&params, "param", nil, "parameter grid as name=v1,v2,... (repeatable)")
	searchCmd.Flags().StringVar(&metric, "metric", "particle_loss", "metric to optimise")
	searchCmd.Flags().BoolVar(&maximize, "maximize", false, "maximise the metric instead of minimising it")

	presetsCmd := &cobra.Command{
		Use:   "presets [closure]",
		Short: "list configuration presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, exportJSONCmd, exportCSVCmd, exportSVGCmd, liveCmd, compareCmd, scanCmd, searchCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	d := config.DefaultConfig()
	f := cmd.Flags()
	f.Float64Var(&dt, "dt", d.Run.Dt, "time step (s)")
	f.IntVar(&steps, "steps", d.Run.Steps, "number of steps")
	f.Float64Var(&width, "width", d.Mesh.Width, "domain width (m)")
	f.IntVar(&nx, "nx", d.Mesh.Nx, "number of mesh nodes")
	f.Float64Var(&ne0, "ne0", d.Plasma.Ne, "initial electron density (m^-3)")
	f.Float64Var(&nn0, "nn0", d.Plasma.Nn, "neutral density (m^-3)")
	f.Float64Var(&te0, "te0", d.Plasma.Te, "electron temperature (eV)")
	f.Float64Var(&ti0, "ti0", d.Plasma.Ti, "ion temperature (eV)")
	f.Float64Var(&se0, "se0", d.Plasma.Se, "uniform source (m^-3 s^-1)")
	f.StringVar(&wall, "wall", d.Plasma.Wall, "wall model: absorbing or extension")
	f.StringVar(&form, "form", d.Transport.Form, "ambipolar form: simplified or general")
	f.BoolVar(&static, "static", d.Transport.Static, "compute transport coefficients once")
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
}

// buildConfig resolves preset, then config file, then explicitly set flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	closure := config.DefaultClosure
	if len(args) > 0 {
		closure = args[0]
	}

	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(closure, preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(closure))
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if len(args) > 0 {
		cfg.Closure = closure
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Run.Dt = dt
	}
	if flags.Changed("steps") {
		cfg.Run.Steps = steps
	}
	if flags.Changed("width") {
		cfg.Mesh.Width = width
	}
	if flags.Changed("nx") {
		cfg.Mesh.Nx = nx
	}
	if flags.Changed("ne0") {
		cfg.Plasma.Ne = ne0
	}
	if flags.Changed("nn0") {
		cfg.Plasma.Nn = nn0
	}
	if flags.Changed("te0") {
		cfg.Plasma.Te = te0
	}
	if flags.Changed("ti0") {
		cfg.Plasma.Ti = ti0
	}
	if flags.Changed("se0") {
		cfg.Plasma.Se = se0
	}
	if flags.Changed("wall") {
		cfg.Plasma.Wall = wall
	}
	if flags.Changed("form") {
		cfg.Transport.Form = form
	}
	if flags.Changed("static") {
		cfg.Transport.Static = static
	}
	return cfg, cfg.Validate()
}

func setupExperiment(cfg *config.Config) (*experiment.Experiment, error) {
	e := experiment.New(cfg)
	if err := e.Setup(experiment.NewRegistry()); err != nil {
		return nil, err
	}
	return e, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	exp, err := setupExperiment(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logrus.WithFields(logrus.Fields{
		"closure": cfg.Closure,
		"nx":      cfg.Mesh.Nx,
		"dt":      cfg.Run.Dt,
		"steps":   cfg.Run.Steps,
	}).Debug("starting run")
	fmt.Printf("running %s simulation...\n", cfg.Closure)

	result, runErr := exp.Run(ctx)
	if result == nil {
		return runErr
	}

	st := storage.New(dataDir)
	runID, err := st.Save(cfg, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", result.Elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("status: %s\n", result.Status)
	fmt.Printf("steps: %d (t = %.4g s)\n", result.Steps, result.Time)
	printMetrics(result.Metrics)

	if result.Final != nil {
		shape := analysis.Profile(result.Final.Mesh, result.Final.Ne)
		fmt.Println("\nfinal profile:")
		fmt.Printf("  peak ne: %.4g m^-3 at x = %.4g m\n", shape.Peak, shape.PeakX)
		fmt.Printf("  inventory: %.4g m^-2\n", shape.Inventory)
		fmt.Printf("  fwhm: %.4g m\n", shape.FWHM)
	}
	if fit, err := analysis.FitDecay(result.Times(), result.MeanNe()); err == nil && fit.Rate > 0 {
		fmt.Printf("  decay time: %.4g s (r2 %.3f)\n", fit.Tau, fit.R2)
	}

	return runErr
}

func printMetrics(m map[string]float64) {
	if len(m) == 0 {
		return
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6g\n", name, m[name])
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCLOSURE\tTIME\tNX\tDT\tSTEPS\tDURATION\tSTATUS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.1es\t%d\t%.3es\t%s\n",
			run.ID,
			run.Closure,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Nx,
			run.Dt,
			run.Steps,
			run.Duration,
			run.Status,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	diags, err := st.LoadDiagnostics(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("closure: %s (%s wall)\n", meta.Closure, meta.Wall)
	fmt.Printf("steps: %d\n\n", len(diags))

	size := viz.ChartSize{Width: 80, Height: 10}
	mean := make([]float64, len(diags))
	for i, d := range diags {
		mean[i] = d.MeanNe
	}
	if chart := viz.HistoryChart(size, "mean ne vs step", "m^-3", mean); chart != "" {
		fmt.Println(chart)
		fmt.Println()
	}

	p, err := st.LoadProfile(runID)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Println(viz.ProfileChart(size, "final ne, ni vs node", p.Ne, p.Ni))

	m, err := mesh.FromPoints(p.X)
	if err != nil {
		return err
	}
	shape := analysis.Profile(m, p.Ne)
	fmt.Printf("\npeak ne: %.4g m^-3 at x = %.4g m, fwhm %.4g m\n", shape.Peak, shape.PeakX, shape.FWHM)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	data, err := st.Export(args[0])
	if err != nil {
		return err
	}
	if outFile == "" {
		return storage.WriteJSON(os.Stdout, data)
	}
	if err := storage.ExportJSON(outFile, data); err != nil {
		return err
	}
	fmt.Printf("exported %s to %s\n", args[0], outFile)
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if profile {
		p, err := st.LoadProfile(args[0])
		if err != nil {
			return err
		}
		return storage.WriteProfileCSV(os.Stdout, p)
	}
	diags, err := st.LoadDiagnostics(args[0])
	if err != nil {
		return err
	}
	return storage.WriteDiagnosticsCSV(os.Stdout, diags)
}

func exportSVG(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	p, err := st.LoadProfile(args[0])
	if err != nil {
		return err
	}
	if outFile == "" {
		return export.WriteProfileSVG(os.Stdout, p, 800, 400)
	}
	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := export.WriteProfileSVG(f, p, 800, 400); err != nil {
		return err
	}
	fmt.Printf("exported %s to %s\n", args[0], outFile)
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	exp, err := setupExperiment(cfg)
	if err != nil {
		return err
	}
	// log lines would tear the alternate screen
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	exp.Integrator.Log = quiet
	return viz.Run(exp, speed)
}

func compareClosures(cmd *cobra.Command, args []string) error {
	base, err := buildConfig(cmd, args[:1])
	if err != nil {
		return err
	}

	jobs := make([]integrator.Job, 0, len(args))
	theory := make([]float64, 0, len(args))
	for _, name := range args {
		cfg := base.Clone()
		cfg.Closure = name
		exp, err := setupExperiment(cfg)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		tau := 0.0
		if d, err := transport.MaxDiffusivity(exp.Closure, exp.State); err == nil && d > 0 {
			tau = analysis.DiffusionTime(cfg.Mesh.Width, d)
		}
		theory = append(theory, tau)
		job, err := exp.Job(name)
		if err != nil {
			return err
		}
		jobs = append(jobs, job)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	results, err := integrator.NewEnsemble(0).Run(ctx, jobs)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CLOSURE\tSTATUS\tSTEPS\tMEAN NE\tLOSS\tTAU FIT\tTAU THEORY\tR2")
	for i, r := range results {
		if r.Result == nil {
			fmt.Fprintf(w, "%s\terror: %v\t\t\t\t\t\t\n", r.Name, r.Err)
			continue
		}
		mean := 0.0
		if r.Result.Final != nil {
			mean = r.Result.Final.InteriorMean(r.Result.Final.Ne)
		}
		fit, ferr := analysis.FitDecay(r.Result.Times(), r.Result.MeanNe())
		tauFit := "-"
		r2 := "-"
		if ferr == nil && fit.Rate > 0 {
			tauFit = fmt.Sprintf("%.3es", fit.Tau)
			r2 = fmt.Sprintf("%.3f", fit.R2)
		}
		tauTheory := "-"
		if theory[i] > 0 {
			tauTheory = fmt.Sprintf("%.3es", theory[i])
		}
		status := r.Result.Status.String()
		if r.Err != nil {
			status = "failed: " + r.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%.4e\t%.4f\t%s\t%s\t%s\n",
			r.Name, status, r.Result.Steps, mean, r.Result.Metrics["particle_loss"], tauFit, tauTheory, r2)
	}
	return w.Flush()
}

func scanTimeStep(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	setup := func() (*plasma.State, transport.Closure, error) {
		exp, err := setupExperiment(cfg)
		if err != nil {
			return nil, nil, err
		}
		return exp.State, exp.Closure, nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	points, err := analysis.ScanTimeStep(ctx, setup, dts, cfg.Duration())
	if err != nil {
		return err
	}

	fmt.Printf("%s over %.3e s\n\n", cfg.Closure, cfg.Duration())
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DT\tSTEPS\tCFL\tSTABILITY\tTAU\tR2\tERROR")
	for _, p := range points {
		cfl := "ok"
		if !p.CFL {
			cfl = "exceeded"
		}
		tau, r2, msg := "-", "-", ""
		if p.Err != nil {
			msg = p.Err.Error()
		} else if p.Fit.Rate > 0 {
			tau = fmt.Sprintf("%.3es", p.Fit.Tau)
			r2 = fmt.Sprintf("%.3f", p.Fit.R2)
		}
		fmt.Fprintf(w, "%.1e\t%d\t%s\t%.3f\t%s\t%s\t%s\n", p.Dt, p.Steps, cfl, p.Stability, tau, r2, msg)
	}
	return w.Flush()
}

func searchParams(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if len(params) == 0 {
		return fmt.Errorf("at least one --param is required (known: %v)", optim.Params())
	}
	names := make([]string, 0, len(params))
	ranges := make([][]float64, 0, len(params))
	for _, p := range params {
		name, values, err := optim.ParseParam(p)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}
	g, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}
	g.Maximize = maximize

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	best, points, err := g.Search(ctx, cfg, metric)
	if err != nil && !errors.Is(err, optim.ErrNoResult) {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := ""
	for _, name := range names {
		header += strings.ToUpper(name) + "\t"
	}
	fmt.Fprintln(w, header+strings.ToUpper(metric))
	for _, p := range points {
		for _, name := range names {
			fmt.Fprintf(w, "%.4g\t", p.Params[name])
		}
		if p.Err != nil {
			fmt.Fprintf(w, "error: %v\n", p.Err)
			continue
		}
		fmt.Fprintf(w, "%.6g\n", p.Value)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if best.Params == nil {
		return optim.ErrNoResult
	}
	fmt.Printf("\nbest %s = %.6g at %v\n", metric, best.Value, best.Params)
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	closures := args
	if len(closures) == 0 {
		closures = experiment.NewRegistry().ListClosures()
	}
	for _, c := range closures {
		presets := config.ListPresets(c)
		if len(presets) == 0 {
			fmt.Printf("no presets for closure: %s\n", c)
			continue
		}
		fmt.Printf("presets for %s:\n", c)
		for _, p := range presets {
			fmt.Printf("  %s\n", p)
		}
	}
	return nil
}
