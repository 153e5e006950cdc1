// Package commands implements CLI command handlers for polynote.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"

	"github.com/ikpaetukgabriel/polynote/internal/config"
	"github.com/ikpaetukgabriel/polynote/internal/notebook"
	"github.com/ikpaetukgabriel/polynote/internal/observability"
	"github.com/ikpaetukgabriel/polynote/pkg/session"
	"github.com/ikpaetukgabriel/polynote/pkg/toolchain"
)

const (
	meterName              = "polynote"
	metricsReadTimeout     = 5 * time.Second
	metricsShutdownTimeout = 2 * time.Second
)

// ErrCompilationFailed indicates at least one cell produced errors.
var ErrCompilationFailed = errors.New("notebook compilation failed")

// Output formats for the run command.
const (
	formatTable = "table"
	formatJSON  = "json"
)

// ErrUnknownFormat indicates an unsupported --format value.
var ErrUnknownFormat = errors.New("unknown output format (use table or json)")

// RunCommand holds configuration and dependencies for the run command.
type RunCommand struct {
	configPath  string
	metricsAddr string
	format      string
	noColor     bool
	verbose     bool
	prune       bool
	pruneSet    bool
}

// NewRunCommand creates the run subcommand.
func NewRunCommand() *cobra.Command {
	runCmd := &RunCommand{}

	cmd := &cobra.Command{
		Use:   "run <notebook-file>",
		Short: "Compile a notebook document and show cell outputs",
		Long: `Run parses a notebook document (JSON or YAML), compiles its cells in
dependency order, and prints each cell's named outputs with their
resolved types.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCmd.pruneSet = cmd.Flags().Changed("prune")

			return runCmd.Execute(cmd.Context(), args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&runCmd.configPath, "config", "", "config file path")
	cmd.Flags().StringVarP(&runCmd.format, "format", "f", formatTable, "output format: table or json")
	cmd.Flags().StringVar(&runCmd.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	cmd.Flags().BoolVar(&runCmd.noColor, "no-color", false, "disable colored output")
	cmd.Flags().BoolVarP(&runCmd.verbose, "verbose", "v", false, "verbose output")
	cmd.Flags().BoolVar(&runCmd.prune, "prune", true, "narrow each cell to the dependencies its body uses")

	return cmd
}

// Execute runs the notebook at path and renders the results to writer.
func (rc *RunCommand) Execute(ctx context.Context, path string, writer io.Writer) error {
	if rc.format != formatTable && rc.format != formatJSON {
		return fmt.Errorf("%w: %s", ErrUnknownFormat, rc.format)
	}

	cfg, err := rc.loadConfig()
	if err != nil {
		return err
	}

	obsCfg := observabilityConfig(cfg, rc.verbose)
	logger := observability.BuildLogger(obsCfg)

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer rc.shutdownProviders(providers, cfg, logger)

	meter, stopMetrics, err := startMetrics(cfg.Observability.MetricsAddr, logger, providers)
	if err != nil {
		return err
	}

	defer stopMetrics()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading notebook: %w", err)
	}

	doc, err := notebook.Parse(path, data)
	if err != nil {
		return err
	}

	sess, err := rc.buildSession(cfg, logger, providers, meter)
	if err != nil {
		return err
	}

	defer sess.Close()

	runner := notebook.NewRunner(sess, logger, cfg.Session.Prune)

	results, runErr := runner.Run(ctx, doc)

	if rc.format == formatJSON {
		err = renderJSON(writer, doc, results)
		if err != nil {
			return err
		}
	} else {
		render(writer, doc, results, rc.noColor)
	}

	if runErr != nil {
		return fmt.Errorf("%w: %s", ErrCompilationFailed, runErr)
	}

	return nil
}

func (rc *RunCommand) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(rc.configPath)
	if err != nil {
		return nil, err
	}

	if rc.metricsAddr != "" {
		cfg.Observability.MetricsAddr = rc.metricsAddr
	}

	if rc.pruneSet {
		cfg.Session.Prune = rc.prune
	}

	return cfg, nil
}

func (rc *RunCommand) buildSession(
	cfg *config.Config,
	logger *slog.Logger,
	providers observability.Providers,
	meter metric.Meter,
) (*session.Session, error) {
	metrics, err := observability.NewCompileMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("building metrics: %w", err)
	}

	opts := []session.Option{
		session.WithLogger(logger),
		session.WithMetrics(metrics),
		session.WithTracer(providers.Tracer),
		session.WithImplicitCacheSize(cfg.Session.ImplicitCacheSize),
	}

	if cfg.Session.Resolver == config.ResolverRegistry {
		opts = append(opts, session.WithPackageResolver(toolchain.NewRestrictedResolver()))
	}

	return session.New(opts...), nil
}

// startMetrics serves prometheus metrics when an address is configured and
// returns the meter compile metrics should be built on.
func startMetrics(
	addr string,
	logger *slog.Logger,
	providers observability.Providers,
) (metric.Meter, func(), error) {
	if addr == "" {
		return providers.Meter, func() {}, nil
	}

	handler, provider, err := observability.PrometheusHandler()
	if err != nil {
		return nil, nil, fmt.Errorf("building prometheus exporter: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	server := &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: metricsReadTimeout,
	}

	go func() {
		serveErr := server.ListenAndServe()
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", serveErr)
		}
	}()

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()

		_ = server.Shutdown(ctx)
		_ = provider.Shutdown(ctx)
	}

	return provider.Meter(meterName), stop, nil
}

func (rc *RunCommand) shutdownProviders(providers observability.Providers, cfg *config.Config, logger *slog.Logger) {
	timeout := time.Duration(cfg.Observability.ShutdownTimeoutSec) * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := providers.Shutdown(ctx)
	if err != nil {
		logger.Warn("telemetry shutdown failed", "error", err)
	}
}

func observabilityConfig(cfg *config.Config, verbose bool) observability.Config {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceName = cfg.Observability.ServiceName
	obsCfg.OTLPEndpoint = cfg.Observability.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Observability.OTLPInsecure
	obsCfg.LogJSON = cfg.Observability.LogJSON
	obsCfg.ShutdownTimeoutSec = cfg.Observability.ShutdownTimeoutSec
	obsCfg.LogLevel = logLevel(cfg.Observability.LogLevel)

	if verbose {
		obsCfg.LogLevel = slog.LevelDebug
	}

	return obsCfg
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
