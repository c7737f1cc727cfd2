// internal/monitor/monitor.go
package monitor

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-logr/logr"

	"github.com/chimeworks/kubechime/internal/display"
	"github.com/chimeworks/kubechime/internal/kube"
	"github.com/chimeworks/kubechime/internal/sonify"
)

// MetricSource fetches one raw metric reading. Errors are per-metric
// and recoverable.
type MetricSource interface {
	Fetch(ctx context.Context, metric string) (kube.Sample, error)
}

// TonePlayer accepts fire-and-forget tone requests. The monitor never
// waits for playback.
type TonePlayer interface {
	Enqueue(frequency float64, duration time.Duration)
}

// Options configures a Monitor.
type Options struct {
	// Metrics is the ordered list of metric keys to process each cycle.
	Metrics []string

	// Interval is the pause between cycles.
	Interval time.Duration

	// NoteDuration is the length of each played tone.
	NoteDuration time.Duration
}

// Monitor drives the poll cycle: for each enabled metric, fetch a
// sample, map it onto the sound table, queue the tone, print the line.
// Metric processing is strictly sequential; playback is the only work
// that overlaps the next iteration.
type Monitor struct {
	source    MetricSource
	player    TonePlayer
	formatter *display.Formatter
	out       io.Writer
	opts      Options
	logger    logr.Logger
}

// New creates a monitor. Every metric in opts.Metrics must already be
// validated against the sound map; an unknown key here is a bug.
func New(
	source MetricSource,
	player TonePlayer,
	formatter *display.Formatter,
	out io.Writer,
	opts Options,
	logger logr.Logger,
) (*Monitor, error) {
	for _, metric := range opts.Metrics {
		if _, ok := sonify.Lookup(metric); !ok {
			return nil, fmt.Errorf("metric %q is not in the sound map", metric)
		}
	}
	if opts.Interval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %v", opts.Interval)
	}
	return &Monitor{
		source:    source,
		player:    player,
		formatter: formatter,
		out:       out,
		opts:      opts,
		logger:    logger.WithName("monitor"),
	}, nil
}

// Run polls until ctx is cancelled, starting with an immediate cycle.
// Cancellation during the inter-cycle wait aborts the wait; Run then
// returns nil so an interrupt shuts the process down cleanly.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("Starting metric sonification",
		"metrics", m.opts.Metrics, "interval", m.opts.Interval)

	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	m.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Stopping metric sonification")
			return nil
		case <-ticker.C:
			m.runCycle(ctx)
		}
	}
}

// runCycle processes every enabled metric once, in order. A failure on
// one metric never aborts the rest of the cycle.
func (m *Monitor) runCycle(ctx context.Context) {
	for _, metric := range m.opts.Metrics {
		if ctx.Err() != nil {
			return
		}
		m.processMetric(ctx, metric)
	}
}

func (m *Monitor) processMetric(ctx context.Context, metric string) {
	def, ok := sonify.Lookup(metric)
	if !ok {
		// Unreachable after New's validation; kept as a guard.
		m.logger.Error(nil, "Metric missing from sound map", "metric", metric)
		return
	}

	sample, err := m.source.Fetch(ctx, metric)
	if err != nil {
		m.logger.V(1).Info("Metric fetch failed, skipping this cycle",
			"metric", metric, "error", err.Error())
		fmt.Fprintln(m.out, display.UnknownLine(def))
		return
	}

	var (
		res   sonify.Result
		value string
	)
	if def.Categorical() {
		var recognized bool
		res, recognized, err = sonify.MapStatus(metric, sample.Status)
		if err == nil && !recognized {
			m.logger.V(1).Info("Unrecognized category, using fallback slot",
				"metric", metric, "status", sample.Status)
		}
		value = sample.Status
	} else {
		res, err = sonify.Map(metric, sample.Value)
		value = fmt.Sprintf("%.2f", sample.Value)
	}
	if err != nil {
		// Non-finite values and table bugs land here; both are
		// provider-side failures as far as this cycle is concerned.
		m.logger.V(1).Info("Metric mapping failed, skipping this cycle",
			"metric", metric, "error", err.Error())
		fmt.Fprintln(m.out, display.UnknownLine(def))
		return
	}

	m.player.Enqueue(float64(res.Frequency), m.opts.NoteDuration)

	line := display.Line(def, value, res, sample.Extra)
	fmt.Fprintln(m.out, m.formatter.Render(line, res.Color))
}
