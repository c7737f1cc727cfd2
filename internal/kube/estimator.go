// internal/kube/estimator.go
package kube

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// ClusterHealth is the pod-status digest handed to estimators.
// Index follows the pod_status sound table: 3 healthy, 1 pending,
// 0 failed or unknown.
type ClusterHealth struct {
	Phase string
	Index int
}

func healthOf(phase string) ClusterHealth {
	index := 0
	switch phase {
	case "Running", "Succeeded":
		index = 3
	case "Pending":
		index = 1
	}
	return ClusterHealth{Phase: phase, Index: index}
}

// Estimator supplies the HTTP latency and error-rate readings. Neither
// comes from the cluster API, so the source is pluggable: the default
// derives them from pod health, and a Prometheus-backed implementation
// queries real series when an address is configured. Either way the
// values are best effort, never guarantees.
type Estimator interface {
	LatencyMillis(ctx context.Context, health ClusterHealth) (float64, error)
	ErrorRate(ctx context.Context, health ClusterHealth) (float64, error)
}

// HealthEstimator derives the readings from pod health alone: a fully
// healthy namespace reads 50 ms and 0 err/s, a failed one 350 ms and
// 5 err/s.
type HealthEstimator struct{}

func (HealthEstimator) LatencyMillis(_ context.Context, health ClusterHealth) (float64, error) {
	return 50 + float64(3-health.Index)*100, nil
}

func (HealthEstimator) ErrorRate(_ context.Context, health ClusterHealth) (float64, error) {
	if health.Index >= 3 {
		return 0, nil
	}
	return 5, nil
}

var errEmptyResult = errors.New("empty query result")

// PromEstimator reads p50 request latency and 5xx rate from a
// Prometheus server instead of guessing from pod health.
type PromEstimator struct {
	api       promv1.API
	namespace string
	logger    logr.Logger
}

// NewPromEstimator connects to the Prometheus server at address.
func NewPromEstimator(address, namespace string, logger logr.Logger) (*PromEstimator, error) {
	client, err := api.NewClient(api.Config{Address: address})
	if err != nil {
		return nil, fmt.Errorf("creating prometheus client for %s: %w", address, err)
	}
	return &PromEstimator{
		api:       promv1.NewAPI(client),
		namespace: namespace,
		logger:    logger.WithName("prom-estimator"),
	}, nil
}

// NewPromEstimatorWithAPI wires an existing API, used by tests.
func NewPromEstimatorWithAPI(papi promv1.API, namespace string, logger logr.Logger) *PromEstimator {
	return &PromEstimator{
		api:       papi,
		namespace: namespace,
		logger:    logger.WithName("prom-estimator"),
	}
}

func (e *PromEstimator) LatencyMillis(ctx context.Context, _ ClusterHealth) (float64, error) {
	query := fmt.Sprintf(
		`histogram_quantile(0.50, sum by (le) (rate(http_request_duration_seconds_bucket{namespace=%q}[5m]))) * 1000`,
		e.namespace,
	)
	value, err := e.queryScalar(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("querying latency: %w", err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		// histogram_quantile yields NaN when no buckets have data.
		return 0, fmt.Errorf("querying latency: no samples in range")
	}
	return value, nil
}

func (e *PromEstimator) ErrorRate(ctx context.Context, _ ClusterHealth) (float64, error) {
	query := fmt.Sprintf(
		`sum(rate(http_requests_total{namespace=%q, code=~"5.."}[5m]))`,
		e.namespace,
	)
	value, err := e.queryScalar(ctx, query)
	if errors.Is(err, errEmptyResult) {
		// No 5xx series at all means no errors, not a failure.
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("querying error rate: %w", err)
	}
	return value, nil
}

func (e *PromEstimator) queryScalar(ctx context.Context, query string) (float64, error) {
	result, warnings, err := e.api.Query(ctx, query, time.Now())
	if err != nil {
		return 0, fmt.Errorf("prometheus query failed: %w", err)
	}
	if len(warnings) > 0 {
		e.logger.V(1).Info("Prometheus warnings", "warnings", warnings)
	}

	switch v := result.(type) {
	case *model.Scalar:
		return float64(v.Value), nil
	case model.Vector:
		if len(v) > 0 {
			return float64(v[0].Value), nil
		}
		return 0, errEmptyResult
	default:
		return 0, fmt.Errorf("unexpected result type: %T", result)
	}
}
