// Package cli is the command surface shared by the benchmark drivers: core
// flags, environment and config-file defaults, logging, tracing, metrics
// export and report rendering.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/LynnColeArt/kbench"
	"github.com/LynnColeArt/kbench/gobench"
)

// EnvPrefix prefixes environment variables that supply flag defaults,
// e.g. KBENCH_ITER=500 or KBENCH_COLD_CACHE=true.
const EnvPrefix = "KBENCH"

// DefaultConfigName is looked up in the working directory when --config is not given
const DefaultConfigName = "kbench"

// Core flag names
const (
	FlagWarmup      = "warmup"
	FlagIter        = "iter"
	FlagTolerance   = "tolerance"
	FlagFormat      = "format"
	FlagOutput      = "output"
	FlagMetricsFile = "metrics-file"
	FlagTrace       = "trace"
	FlagVerbose     = "verbose"
	FlagLogJSON     = "log-json"
	FlagConfig      = "config"
	FlagColdCache   = "cold-cache"
	FlagGoBench     = "gobench"
)

// ErrFailed is returned when a run completes but a candidate failed
// validation or errored.
var ErrFailed = errors.New("one or more implementations failed")

// RunFunc builds and runs a comparison using the environment's settings
type RunFunc func(ctx context.Context, env *Env) (*kbench.Report, error)

// Env carries the resolved settings into a RunFunc
type Env struct {
	Viper   *viper.Viper
	Config  *kbench.Config
	Logger  *slog.Logger
	GoBench *gobench.Plugin // nil unless --gobench

	tracer  trace.TracerProvider
	metrics *kbench.Metrics
	cold    bool
}

// Options returns the comparison options derived from the flags
func (e *Env) Options() []kbench.Option {
	opts := []kbench.Option{
		kbench.WithConfig(e.Config),
		kbench.WithLogger(e.Logger),
		kbench.WithTracerProvider(e.tracer),
		kbench.WithMetrics(e.metrics),
	}
	if e.cold {
		opts = append(opts, kbench.WithColdCache(kbench.DefaultFlushBytes))
	}
	return opts
}

// AttachAll registers impls with the gobench plugin when --gobench is set
func AttachAll[In, Out any](env *Env, impls ...*kbench.Impl[In, Out]) {
	if env.GoBench == nil {
		return
	}
	for _, impl := range impls {
		impl.Attach(env.GoBench)
	}
}

// NewCommand returns a root command that runs run with the core flags
// applied. Drivers add their own flags to cmd.Flags(); every flag can also
// be set from the environment or the config file and is read back through
// Env.Viper.
func NewCommand(use, short string, run RunFunc) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	if version, _ := kbench.Version(); version != "" {
		cmd.Version = version
	}

	registerCoreFlags(cmd.PersistentFlags())

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initConfig(v, cmd)
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return execute(cmd, v, run)
	}
	return cmd
}

func registerCoreFlags(f *pflag.FlagSet) {
	f.Uint64(FlagWarmup, kbench.DefaultWarmupIters, "untimed warmup iterations per implementation")
	f.Uint64(FlagIter, kbench.DefaultBenchIters, "measured iterations per implementation")
	f.Float64(FlagTolerance, 0, "absolute tolerance applied to every floating precision (default epsilon*1000)")
	f.String(FlagFormat, string(kbench.FormatText), "report format: text, json or yaml")
	f.StringP(FlagOutput, "o", "", "write the report to this file instead of stdout")
	f.String(FlagMetricsFile, "", "write Prometheus metrics in text format to this file")
	f.Bool(FlagTrace, false, "print an OpenTelemetry span per implementation to stderr")
	f.BoolP(FlagVerbose, "v", false, "enable debug logging")
	f.Bool(FlagLogJSON, false, "log as JSON instead of text")
	f.String(FlagConfig, "", "config file (default ./kbench.yaml when present)")
	f.Bool(FlagColdCache, false, "flush CPU caches before each implementation")
	f.Bool(FlagGoBench, false, "also run every implementation under testing.Benchmark")
}

// initConfig loads .env, the config file and the environment into v
func initConfig(v *viper.Viper, cmd *cobra.Command) error {
	// a missing .env is fine, a malformed one is not
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if file := v.GetString(FlagConfig); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", file, err)
		}
		return nil
	}

	v.AddConfigPath(".")
	v.SetConfigType("yaml")
	v.SetConfigName(DefaultConfigName)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// NewLogger returns a text or JSON slog logger writing to w
func NewLogger(w io.Writer, verbose, json bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ApplyConfig copies the iteration and tolerance settings from v into cfg
func ApplyConfig(v *viper.Viper, cfg *kbench.Config) error {
	cfg.SetWarmupIters(v.GetUint64(FlagWarmup))
	cfg.SetBenchIters(v.GetUint64(FlagIter))
	if v.IsSet(FlagTolerance) {
		if err := cfg.SetAllTolerances(v.GetFloat64(FlagTolerance)); err != nil {
			return err
		}
	}
	return nil
}

func newTracerProvider(w io.Writer) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	), nil
}

func execute(cmd *cobra.Command, v *viper.Viper, run RunFunc) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	format, err := kbench.ParseFormat(v.GetString(FlagFormat))
	if err != nil {
		return err
	}

	logger := NewLogger(cmd.ErrOrStderr(), v.GetBool(FlagVerbose), v.GetBool(FlagLogJSON))
	slog.SetDefault(logger)

	env := &Env{
		Viper:  v,
		Config: kbench.NewConfig(),
		Logger: logger,
		tracer: noop.NewTracerProvider(),
		cold:   v.GetBool(FlagColdCache),
	}
	if err := ApplyConfig(v, env.Config); err != nil {
		return err
	}
	if v.GetBool(FlagGoBench) {
		env.GoBench = gobench.New()
	}

	if v.GetBool(FlagTrace) {
		tp, err := newTracerProvider(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer func() {
			if shutdownErr := tp.Shutdown(context.Background()); shutdownErr != nil && err == nil {
				err = shutdownErr
			}
		}()
		env.tracer = tp
	}

	var reg *prometheus.Registry
	metricsFile := v.GetString(FlagMetricsFile)
	if metricsFile != "" {
		reg = prometheus.NewRegistry()
		if env.metrics, err = kbench.NewMetrics(reg); err != nil {
			return err
		}
	}

	report, err := run(ctx, env)
	if err != nil {
		return err
	}

	if err := writeReport(cmd, v.GetString(FlagOutput), report, format); err != nil {
		return err
	}

	if reg != nil {
		if err := prometheus.WriteToTextfile(metricsFile, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
		logger.Debug("metrics written", "path", metricsFile)
	}

	if report.Failed() {
		return ErrFailed
	}
	return nil
}

func writeReport(cmd *cobra.Command, path string, report *kbench.Report, format kbench.Format) error {
	if path == "" {
		return kbench.Render(cmd.OutOrStdout(), report, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	if err := kbench.Render(f, report, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Execute runs cmd with an interrupt-aware context and returns the process
// exit status.
func Execute(cmd *cobra.Command) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrFailed):
		fmt.Fprintln(cmd.ErrOrStderr(), "FAIL:", err)
		return 1
	default:
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		fmt.Fprintf(cmd.ErrOrStderr(), "Run '%s --help' for usage.\n", cmd.CommandPath())
		return 1
	}
}
