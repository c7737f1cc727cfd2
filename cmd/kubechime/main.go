// cmd/kubechime/main.go
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"k8s.io/client-go/kubernetes"
	metricsclient "k8s.io/metrics/pkg/client/clientset/versioned"

	"github.com/chimeworks/kubechime/internal/audio"
	"github.com/chimeworks/kubechime/internal/config"
	"github.com/chimeworks/kubechime/internal/display"
	"github.com/chimeworks/kubechime/internal/kube"
	"github.com/chimeworks/kubechime/internal/monitor"
	"github.com/chimeworks/kubechime/internal/version"
)

type flags struct {
	color       bool
	beep        bool
	interval    float64
	namespace   string
	verbose     bool
	configPath  string
	showVersion bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "kubechime",
		Short: "Ambient sonification of Kubernetes workload metrics",
		Long: "kubechime polls a Kubernetes namespace on a fixed interval and turns each\n" +
			"metric reading into a tone and a colored terminal line, so cluster health\n" +
			"is something you hear change rather than read.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.showVersion {
				fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
				return nil
			}
			return run(cmd, f)
		},
	}

	cmd.Flags().BoolVarP(&f.color, "color", "c", false, "show ANSI colors in output")
	cmd.Flags().BoolVarP(&f.beep, "beep", "b", false, "use the system beep backend instead of PCM synthesis")
	cmd.Flags().Float64VarP(&f.interval, "interval", "i", 0, "polling interval in seconds")
	cmd.Flags().StringVarP(&f.namespace, "namespace", "n", "default", "Kubernetes namespace to monitor")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "enable verbose logging")
	cmd.Flags().StringVarP(&f.configPath, "config", "f", "", "path to a configuration file")
	cmd.Flags().BoolVar(&f.showVersion, "version", false, "print version information and exit")

	return cmd
}

func run(cmd *cobra.Command, f flags) error {
	zapCfg := zap.NewProductionConfig()
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	zapCfg.Level = level
	zapLog, err := zapCfg.Build()
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = zapLog.Sync() }()
	logger := zapr.NewLogger(zapLog)

	cfg, err := config.Load(f.configPath, logger)
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, f, cfg)
	if cfg.Monitoring.Verbose {
		level.SetLevel(zapcore.DebugLevel)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Info("Starting kubechime",
		"version", version.Get().Version,
		"namespace", cfg.Kubernetes.Namespace,
		"intervalSeconds", cfg.Monitoring.PollInterval)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Cluster connection. Failure here is fatal; there is nothing to
	// sonify without a cluster.
	restCfg, err := kube.BuildRestConfig(
		cfg.Kubernetes.UseKubeconfig,
		cfg.Kubernetes.KubeconfigPath,
		cfg.Kubernetes.APIURL,
	)
	if err != nil {
		return err
	}
	clientset, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return fmt.Errorf("creating Kubernetes client: %w", err)
	}
	metricsClientset, err := metricsclient.NewForConfig(restCfg)
	if err != nil {
		// Optional: usage falls back to request-based estimates.
		logger.Info("No metrics clientset available", "reason", err.Error())
		metricsClientset = nil
	}

	client := kube.NewClient(clientset, metricsClientset, cfg.Kubernetes.Namespace, logger)
	if err := client.Connect(ctx); err != nil {
		return err
	}

	provider := kube.NewProvider(client, buildEstimator(cfg, logger), snapshotTTL(cfg), logger)

	// Audio comes up degraded rather than failing: a missing device
	// means silent mode, announced once inside NewEngine.
	engine := audio.NewEngine(pickBackend(cfg), logger)
	defer engine.Stop()

	formatter := display.NewFormatter(cmd.OutOrStdout(), cfg.Monitoring.UseColor)

	m, err := monitor.New(provider, engine, formatter, cmd.OutOrStdout(), monitor.Options{
		Metrics:      cfg.Metrics.Enabled,
		Interval:     cfg.PollInterval(),
		NoteDuration: cfg.NoteDuration(),
	}, logger)
	if err != nil {
		return err
	}

	return m.Run(ctx)
}

// applyFlagOverrides lets explicitly set flags win over the file and
// the environment. Unchanged flags leave the loaded values alone.
func applyFlagOverrides(cmd *cobra.Command, f flags, cfg *config.Config) {
	if cmd.Flags().Changed("color") {
		cfg.Monitoring.UseColor = f.color
	}
	if cmd.Flags().Changed("beep") {
		cfg.Audio.Beep = f.beep
	}
	if cmd.Flags().Changed("interval") && f.interval > 0 {
		cfg.Monitoring.PollInterval = f.interval
	}
	if cmd.Flags().Changed("namespace") {
		cfg.Kubernetes.Namespace = f.namespace
	}
	if f.verbose {
		cfg.Monitoring.Verbose = true
	}
}

func pickBackend(cfg *config.Config) audio.Backend {
	switch {
	case !cfg.Audio.Enabled:
		return audio.NewNoopBackend()
	case cfg.Audio.Beep:
		return audio.NewBeepBackend()
	default:
		return audio.NewOtoBackend()
	}
}

// buildEstimator returns the Prometheus-backed estimator when an
// address is configured, falling back to health-derived estimates if
// the client cannot be constructed.
func buildEstimator(cfg *config.Config, logger logr.Logger) kube.Estimator {
	if cfg.Prometheus.URL == "" {
		return kube.HealthEstimator{}
	}
	est, err := kube.NewPromEstimator(cfg.Prometheus.URL, cfg.Kubernetes.Namespace, logger)
	if err != nil {
		logger.Error(err, "Prometheus estimator unavailable, falling back to health-derived estimates")
		return kube.HealthEstimator{}
	}
	logger.Info("Using Prometheus-backed latency and error-rate estimates", "url", cfg.Prometheus.URL)
	return est
}

// snapshotTTL keeps the pod snapshot fresh across cycles while letting
// the five pod-derived metrics of one cycle share a single list call.
func snapshotTTL(cfg *config.Config) time.Duration {
	return cfg.PollInterval() * 4 / 5
}
