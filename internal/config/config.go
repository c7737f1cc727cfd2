// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/chimeworks/kubechime/internal/sonify"
)

// envPrefix namespaces the structured environment overrides, e.g.
// KUBECHIME_KUBERNETES__NAMESPACE. Double underscore separates key
// segments so keys like poll_interval stay addressable.
const envPrefix = "KUBECHIME_"

// Config is the process-wide configuration. It is read-only after Load.
type Config struct {
	Kubernetes KubernetesConfig `koanf:"kubernetes"`
	Monitoring MonitoringConfig `koanf:"monitoring"`
	Audio      AudioConfig      `koanf:"audio"`
	Metrics    MetricsConfig    `koanf:"metrics"`
	Prometheus PrometheusConfig `koanf:"prometheus"`
}

type KubernetesConfig struct {
	Namespace      string `koanf:"namespace"`
	UseKubeconfig  bool   `koanf:"use_kubeconfig"`
	KubeconfigPath string `koanf:"kubeconfig_path"`
	APIURL         string `koanf:"api_url"`
}

type MonitoringConfig struct {
	PollInterval float64 `koanf:"poll_interval"` // seconds
	Verbose      bool    `koanf:"verbose"`
	UseColor     bool    `koanf:"use_color"`
}

type AudioConfig struct {
	Enabled      bool    `koanf:"enabled"`
	NoteDuration float64 `koanf:"note_duration"` // seconds
	Beep         bool    `koanf:"beep"`
}

type MetricsConfig struct {
	Enabled []string `koanf:"enabled"`
}

type PrometheusConfig struct {
	URL string `koanf:"url"`
}

// PollInterval returns the poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Monitoring.PollInterval * float64(time.Second))
}

// NoteDuration returns the tone length as a duration.
func (c *Config) NoteDuration() time.Duration {
	return time.Duration(c.Audio.NoteDuration * float64(time.Second))
}

func setDefaults(k *koanf.Koanf) {
	k.Set("kubernetes.namespace", "default")
	k.Set("kubernetes.use_kubeconfig", true)

	k.Set("monitoring.poll_interval", 5.0)
	k.Set("monitoring.verbose", false)
	k.Set("monitoring.use_color", true)

	k.Set("audio.enabled", true)
	k.Set("audio.note_duration", 0.5)
	k.Set("audio.beep", false)

	k.Set("metrics.enabled", []string{
		sonify.MetricCPUUsage,
		sonify.MetricMemoryUsage,
		sonify.MetricPodStatus,
		sonify.MetricHTTPLatency,
		sonify.MetricErrorsPerSecond,
		sonify.MetricReplicas,
		sonify.MetricNodePressure,
	})
}

// Load builds the configuration from, in increasing precedence:
// built-in defaults, the YAML file at path (when given), KUBECHIME_*
// environment variables, and finally the legacy environment names kept
// for compatibility with existing deployments.
func Load(path string, logger logr.Logger) (*Config, error) {
	k := koanf.New(".")
	setDefaults(k)

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
		logger.Info("Loaded configuration file", "path", path)
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment overrides: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling configuration: %w", err)
	}

	cfg.applyLegacyEnv(logger)
	return &cfg, nil
}

// applyLegacyEnv honors the flat environment names the tool has always
// recognized. They win over both the file and the KUBECHIME_* variables.
func (c *Config) applyLegacyEnv(logger logr.Logger) {
	if ns := os.Getenv("K8S_NAMESPACE"); ns != "" {
		c.Kubernetes.Namespace = ns
		logger.Info("Loaded namespace from environment", "namespace", ns)
	}

	if intervalStr := os.Getenv("POLL_INTERVAL"); intervalStr != "" {
		if interval, err := strconv.ParseFloat(intervalStr, 64); err == nil {
			c.Monitoring.PollInterval = interval
			logger.Info("Loaded poll interval from environment", "seconds", interval)
		} else {
			logger.Error(err, "Failed to parse POLL_INTERVAL environment variable", "value", intervalStr)
		}
	}

	if useKubeconfig := os.Getenv("USE_KUBE_CONFIG"); useKubeconfig != "" {
		c.Kubernetes.UseKubeconfig = strings.EqualFold(useKubeconfig, "true")
		logger.Info("Loaded kubeconfig usage from environment", "useKubeconfig", c.Kubernetes.UseKubeconfig)
	}

	// TEST_MODE silences audio while keeping mapping and printing
	// intact, so integration tests can run without a sound device.
	if testMode := os.Getenv("TEST_MODE"); strings.EqualFold(testMode, "true") {
		c.Audio.Enabled = false
		logger.Info("TEST_MODE set, audio disabled")
	}
}

// Validate rejects configurations the monitor cannot run with. An
// enabled metric without a sound map entry is a startup error, never a
// runtime fallback.
func (c *Config) Validate() error {
	if c.Monitoring.PollInterval <= 0 {
		return fmt.Errorf("monitoring.poll_interval must be positive, got %v", c.Monitoring.PollInterval)
	}
	if c.Audio.NoteDuration <= 0 {
		return fmt.Errorf("audio.note_duration must be positive, got %v", c.Audio.NoteDuration)
	}
	if len(c.Metrics.Enabled) == 0 {
		return fmt.Errorf("metrics.enabled must name at least one metric")
	}
	for _, name := range c.Metrics.Enabled {
		if _, ok := sonify.Lookup(name); !ok {
			return fmt.Errorf("metric %q is not in the sound map", name)
		}
	}
	return nil
}
