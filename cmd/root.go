package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bankqueue-sim/bankqueue-sim/sim"
	"github.com/bankqueue-sim/bankqueue-sim/sim/telemetry"
	"github.com/bankqueue-sim/bankqueue-sim/sim/trace"
)

var (
	// Run shape
	configPath  string        // Optional YAML config file
	duration    time.Duration // Total simulation time
	seed        int64         // Master seed for the partitioned RNG
	servers     int           // Number of competing servers
	pacingDelay time.Duration // Delay between generator attempts
	maxAttempts int64         // Per-generator attempt cap (0 = unlimited)
	admission   string        // Admission policy name
	logLevel    string        // Log verbosity level

	// Per-class arrival gate and patience
	regularRate       float64
	regularAcceptance float64
	regularMaxWait    time.Duration
	urgentRate        float64
	urgentAcceptance  float64
	urgentMaxWait     time.Duration

	// Service time range
	serviceMin  int64
	serviceMax  int64
	serviceUnit time.Duration

	// Output
	quiet        bool   // Suppress per-event lines
	showProgress bool   // Show a wall-clock progress bar on stderr
	traceLevel   string // Event trace level for the wait summary and --events-out
	eventsOut    string // JSONL event trace path
	otelOut      string // OpenTelemetry span output path
	plotOut      string // Bar chart PNG path
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "bankqueue-sim",
	Short: "Concurrent bank queueing simulator with impatient clients",
}

// runCmd executes the simulation using parameters from the config file and CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bank queue simulation",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg := sim.DefaultConfig()
		if configPath != "" {
			cfg, err = sim.LoadConfig(configPath)
			if err != nil {
				logrus.Fatalf("Failed to load config %s: %v", configPath, err)
			}
			logrus.Infof("Loaded config from %s", configPath)
		}
		applyFlagOverrides(cmd, &cfg)
		if err := cfg.Validate(); err != nil {
			logrus.Fatalf("%v", err)
		}
		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Invalid trace level: %s (valid: none, outcomes, all)", traceLevel)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if otelOut != "" {
			f, err := os.Create(otelOut)
			if err != nil {
				logrus.Fatalf("Failed to create %s: %v", otelOut, err)
			}
			defer f.Close()
			shutdown, err := telemetry.Init("bankqueue-sim", "dev", f)
			if err != nil {
				logrus.Fatalf("Failed to initialize tracing: %v", err)
			}
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logrus.Warnf("tracing shutdown: %v", err)
				}
			}()
		}

		var opts []sim.Option
		if !quiet {
			opts = append(opts, sim.WithEventSink(newEventPrinter(os.Stdout)))
		}
		var st *trace.SimulationTrace
		if trace.TraceLevel(traceLevel) != trace.TraceLevelNone {
			st = trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevel(traceLevel)})
			opts = append(opts, sim.WithEventSink(sim.TraceSink(st)))
		}

		s, err := sim.NewSimulation(cfg, opts...)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if st != nil {
			st.Config.RunID = s.RunID()
		}

		var finish func()
		if showProgress {
			finish = startProgress(ctx, s.Config().Duration, os.Stderr)
		}
		snap := s.Run(ctx)
		if finish != nil {
			finish()
		}
		if snap.Interrupted && ctx.Err() != nil {
			logrus.Warnf("Simulation interrupted by signal after %s", snap.Elapsed.Round(time.Millisecond))
		}

		printReport(os.Stdout, snap)
		if st != nil {
			printWaitSummary(os.Stdout, trace.Summarize(st))
		}

		if st != nil && eventsOut != "" {
			if err := writeEvents(eventsOut, st); err != nil {
				logrus.Errorf("Failed to write events: %v", err)
			} else {
				logrus.Infof("Wrote %d events to %s", len(st.Events), eventsOut)
			}
		}
		if plotOut != "" {
			if err := savePlot(snap, plotOut); err != nil {
				logrus.Errorf("Failed to save plot: %v", err)
			} else {
				logrus.Infof("Saved plot to %s", plotOut)
			}
		}
	},
}

// applyFlagOverrides copies explicitly set flags onto cfg. Flags left at their
// defaults never override values from the config file.
func applyFlagOverrides(cmd *cobra.Command, cfg *sim.Config) {
	flags := cmd.Flags()
	if flags.Changed("duration") {
		cfg.Duration = duration
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("servers") {
		cfg.Servers = servers
	}
	if flags.Changed("pacing-delay") {
		cfg.PacingDelay = pacingDelay
	}
	if flags.Changed("max-attempts") {
		cfg.MaxAttempts = maxAttempts
	}
	if flags.Changed("admission") {
		cfg.Admission = admission
	}
	if flags.Changed("regular-rate") {
		cfg.Regular.Rate = regularRate
	}
	if flags.Changed("regular-acceptance") {
		cfg.Regular.Acceptance = regularAcceptance
	}
	if flags.Changed("regular-max-wait") {
		cfg.Regular.MaxWait = regularMaxWait
	}
	if flags.Changed("urgent-rate") {
		cfg.Urgent.Rate = urgentRate
	}
	if flags.Changed("urgent-acceptance") {
		cfg.Urgent.Acceptance = urgentAcceptance
	}
	if flags.Changed("urgent-max-wait") {
		cfg.Urgent.MaxWait = urgentMaxWait
	}
	if flags.Changed("service-min") {
		cfg.ServiceTime.Min = serviceMin
	}
	if flags.Changed("service-max") {
		cfg.ServiceTime.Max = serviceMax
	}
	if flags.Changed("service-unit") {
		cfg.ServiceTime.Unit = serviceUnit
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	registerRunFlags(runCmd)

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}

func registerRunFlags(cmd *cobra.Command) {
	def := sim.DefaultConfig()

	cmd.Flags().StringVar(&configPath, "config", "", "YAML config file; explicitly set flags override its values")
	cmd.Flags().DurationVar(&duration, "duration", def.Duration, "Total simulation time")
	cmd.Flags().Int64Var(&seed, "seed", def.Seed, "Seed for arrival gates and service times")
	cmd.Flags().IntVar(&servers, "servers", def.Servers, "Number of processing servers")
	cmd.Flags().DurationVar(&pacingDelay, "pacing-delay", def.PacingDelay, "Delay between client creation attempts")
	cmd.Flags().Int64Var(&maxAttempts, "max-attempts", def.MaxAttempts, "Creation attempts per generator (0 = until the deadline)")
	cmd.Flags().StringVar(&admission, "admission", def.Admission, "Admission policy (patience, always)")
	cmd.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	// Arrival gates and patience
	cmd.Flags().Float64Var(&regularRate, "regular-rate", def.Regular.Rate, "Rate of the regular exponential gate")
	cmd.Flags().Float64Var(&regularAcceptance, "regular-acceptance", def.Regular.Acceptance, "Regular client is created when the gate sample is at or below this value")
	cmd.Flags().DurationVar(&regularMaxWait, "regular-max-wait", def.Regular.MaxWait, "Max wait for regular clients (negative = unlimited)")
	cmd.Flags().Float64Var(&urgentRate, "urgent-rate", def.Urgent.Rate, "Rate of the urgent exponential gate")
	cmd.Flags().Float64Var(&urgentAcceptance, "urgent-acceptance", def.Urgent.Acceptance, "Urgent client is created when the gate sample is at or below this value")
	cmd.Flags().DurationVar(&urgentMaxWait, "urgent-max-wait", def.Urgent.MaxWait, "Max wait for urgent clients (negative = unlimited)")

	// Service time
	cmd.Flags().Int64Var(&serviceMin, "service-min", def.ServiceTime.Min, "Minimum service time in units")
	cmd.Flags().Int64Var(&serviceMax, "service-max", def.ServiceTime.Max, "Maximum service time in units")
	cmd.Flags().DurationVar(&serviceUnit, "service-unit", def.ServiceTime.Unit, "Service time unit")

	// Output
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Do not print per-client event lines")
	cmd.Flags().BoolVar(&showProgress, "progress", false, "Show a progress bar on stderr")
	cmd.Flags().StringVar(&traceLevel, "trace-level", string(trace.TraceLevelAll), "Events kept for the wait summary and --events-out: none, outcomes, all")
	cmd.Flags().StringVar(&eventsOut, "events-out", "", "Write the event trace as JSON lines to this file")
	cmd.Flags().StringVar(&otelOut, "otel-out", "", "Write OpenTelemetry spans to this file")
	cmd.Flags().StringVar(&plotOut, "plot", "", "Save a per-server outcome bar chart (PNG) to this file")
}
