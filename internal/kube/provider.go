// internal/kube/provider.go
package kube

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	cache "github.com/Code-Hex/go-generics-cache"
	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/chimeworks/kubechime/internal/sonify"
)

// ErrUnknownMetric means the provider has no fetch routine for a key.
var ErrUnknownMetric = errors.New("provider: unknown metric")

// Sample is one metric reading. Numeric metrics populate Value,
// categorical metrics populate Status. Extra carries display-only
// context (pod counts, estimation markers).
type Sample struct {
	Metric string
	Value  float64
	Status string
	Extra  map[string]string
	Time   time.Time
}

// podSnapshot is the per-cycle digest of the namespace's pods. Five of
// the seven metrics derive from it, so it is cached for roughly one
// poll interval and the pod list is fetched once per cycle.
type podSnapshot struct {
	podCount    int
	worstPhase  string
	health      ClusterHealth
	cpuPercent  float64
	memPercent  float64
	usageSource string
}

const snapshotKey = "pods"

// Node conditions that count as pressure.
var pressureConditions = []corev1.NodeConditionType{
	corev1.NodeMemoryPressure,
	corev1.NodeDiskPressure,
	corev1.NodePIDPressure,
	corev1.NodeNetworkUnavailable,
}

// Provider fetches raw metric values from the cluster.
type Provider struct {
	client    *Client
	estimator Estimator
	logger    logr.Logger

	mu        sync.Mutex
	snapshots *cache.Cache[string, *podSnapshot]
	ttl       time.Duration
}

// NewProvider creates a provider. ttl should be slightly below the
// poll interval so every cycle sees a fresh snapshot but one cycle
// never lists pods twice. A nil estimator falls back to the
// health-derived one.
func NewProvider(client *Client, estimator Estimator, ttl time.Duration, logger logr.Logger) *Provider {
	if estimator == nil {
		estimator = HealthEstimator{}
	}
	return &Provider{
		client:    client,
		estimator: estimator,
		logger:    logger.WithName("metric-provider"),
		snapshots: cache.New[string, *podSnapshot](),
		ttl:       ttl,
	}
}

// Fetch returns the current reading for one metric. Errors are
// per-metric: the caller skips the metric for this cycle and moves on.
func (p *Provider) Fetch(ctx context.Context, metric string) (Sample, error) {
	now := time.Now()

	switch metric {
	case sonify.MetricCPUUsage:
		snap, err := p.snapshot(ctx)
		if err != nil {
			return Sample{}, err
		}
		return Sample{
			Metric: metric,
			Value:  snap.cpuPercent,
			Extra:  map[string]string{"source": snap.usageSource},
			Time:   now,
		}, nil

	case sonify.MetricMemoryUsage:
		snap, err := p.snapshot(ctx)
		if err != nil {
			return Sample{}, err
		}
		return Sample{
			Metric: metric,
			Value:  snap.memPercent,
			Extra:  map[string]string{"source": snap.usageSource},
			Time:   now,
		}, nil

	case sonify.MetricPodStatus:
		snap, err := p.snapshot(ctx)
		if err != nil {
			return Sample{}, err
		}
		return Sample{
			Metric: metric,
			Status: snap.worstPhase,
			Extra:  map[string]string{"pods": strconv.Itoa(snap.podCount)},
			Time:   now,
		}, nil

	case sonify.MetricHTTPLatency:
		snap, err := p.snapshot(ctx)
		if err != nil {
			return Sample{}, err
		}
		latency, err := p.estimator.LatencyMillis(ctx, snap.health)
		if err != nil {
			return Sample{}, fmt.Errorf("estimating latency: %w", err)
		}
		return Sample{
			Metric: metric,
			Value:  latency,
			Extra:  map[string]string{"estimated": "true"},
			Time:   now,
		}, nil

	case sonify.MetricErrorsPerSecond:
		snap, err := p.snapshot(ctx)
		if err != nil {
			return Sample{}, err
		}
		rate, err := p.estimator.ErrorRate(ctx, snap.health)
		if err != nil {
			return Sample{}, fmt.Errorf("estimating error rate: %w", err)
		}
		return Sample{
			Metric: metric,
			Value:  rate,
			Extra:  map[string]string{"estimated": "true"},
			Time:   now,
		}, nil

	case sonify.MetricReplicas:
		return p.fetchReplicas(ctx, now)

	case sonify.MetricNodePressure:
		return p.fetchNodePressure(ctx, now)

	default:
		return Sample{}, fmt.Errorf("%w: %s", ErrUnknownMetric, metric)
	}
}

// snapshot returns the cached pod digest, listing pods when the cache
// has expired. The lock also collapses concurrent cache misses,
// although the monitor fetches strictly sequentially.
func (p *Provider) snapshot(ctx context.Context) (*podSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if snap, ok := p.snapshots.Get(snapshotKey); ok {
		return snap, nil
	}

	pods, err := p.client.clientset.CoreV1().Pods(p.client.namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing pods in %s: %w", p.client.namespace, err)
	}

	snap := p.buildSnapshot(ctx, pods.Items)
	p.snapshots.Set(snapshotKey, snap, cache.WithExpiration(p.ttl))
	return snap, nil
}

func (p *Provider) buildSnapshot(ctx context.Context, pods []corev1.Pod) *podSnapshot {
	snap := &podSnapshot{podCount: len(pods)}

	if len(pods) == 0 {
		// Nothing scheduled: report Unknown and the original's idle
		// usage estimates rather than failing the metrics.
		snap.worstPhase = "Unknown"
		snap.health = healthOf("Unknown")
		snap.cpuPercent = 30
		snap.memPercent = 40
		snap.usageSource = "requests"
		return snap
	}

	snap.worstPhase = worstPhase(pods)
	snap.health = healthOf(snap.worstPhase)

	requestedCPU, requestedMem, containers := sumRequests(pods)

	if p.client.metricsAvailable {
		if usedCPU, usedMem, err := p.usageFromMetricsServer(ctx); err == nil && requestedCPU > 0 && requestedMem > 0 {
			snap.cpuPercent = capPercent(usedCPU / requestedCPU * 100)
			snap.memPercent = capPercent(usedMem / requestedMem * 100)
			snap.usageSource = "metrics-server"
			return snap
		} else if err != nil {
			p.logger.V(1).Info("metrics-server query failed, estimating from requests", "error", err.Error())
		}
	}

	snap.cpuPercent, snap.memPercent = estimateFromRequests(requestedCPU, requestedMem, containers)
	snap.usageSource = "requests"
	return snap
}

// usageFromMetricsServer sums live usage across pod containers:
// CPU in cores, memory in bytes.
func (p *Provider) usageFromMetricsServer(ctx context.Context) (float64, float64, error) {
	podMetrics, err := p.client.metrics.MetricsV1beta1().PodMetricses(p.client.namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return 0, 0, err
	}

	var cpu, mem float64
	for _, pm := range podMetrics.Items {
		for _, c := range pm.Containers {
			if q, ok := c.Usage[corev1.ResourceCPU]; ok {
				cpu += float64(q.MilliValue()) / 1000
			}
			if q, ok := c.Usage[corev1.ResourceMemory]; ok {
				mem += float64(q.Value())
			}
		}
	}
	return cpu, mem, nil
}

// sumRequests totals container resource requests: CPU in cores, memory
// in bytes, plus the number of containers that declared requests.
func sumRequests(pods []corev1.Pod) (cpu, mem float64, containers int) {
	for _, pod := range pods {
		for _, c := range pod.Spec.Containers {
			requests := c.Resources.Requests
			if len(requests) == 0 {
				continue
			}
			if q, ok := requests[corev1.ResourceCPU]; ok {
				cpu += float64(q.MilliValue()) / 1000
			}
			if q, ok := requests[corev1.ResourceMemory]; ok {
				mem += float64(q.Value())
			}
			containers++
		}
	}
	return cpu, mem, containers
}

// estimateFromRequests approximates usage percentages from declared
// requests when no metrics backend is available. The scale factors
// are rough by design: requests say what pods ask for, not what they
// burn, and the ambient signal only needs the trend.
func estimateFromRequests(cpu, mem float64, containers int) (cpuPercent, memPercent float64) {
	if containers == 0 {
		return 30, 40
	}
	cpuPercent = capPercent(cpu / float64(containers) * 20)
	memPercent = capPercent(mem / float64(containers) / (1024 * 1024) / 10)
	return cpuPercent, memPercent
}

func capPercent(v float64) float64 {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}

// phaseSeverity orders pod phases from healthy to broken so the worst
// one wins the cycle. A single failing pod should be audible even in a
// namespace full of healthy ones.
func phaseSeverity(phase corev1.PodPhase) int {
	switch phase {
	case corev1.PodRunning, corev1.PodSucceeded:
		return 0
	case corev1.PodPending:
		return 1
	case corev1.PodUnknown:
		return 2
	case corev1.PodFailed:
		return 3
	default:
		return 2
	}
}

func worstPhase(pods []corev1.Pod) string {
	worst := pods[0].Status.Phase
	for _, pod := range pods[1:] {
		if phaseSeverity(pod.Status.Phase) > phaseSeverity(worst) {
			worst = pod.Status.Phase
		}
	}
	if worst == "" {
		return "Unknown"
	}
	return string(worst)
}

func (p *Provider) fetchReplicas(ctx context.Context, now time.Time) (Sample, error) {
	deployments, err := p.client.clientset.AppsV1().Deployments(p.client.namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return Sample{}, fmt.Errorf("listing deployments in %s: %w", p.client.namespace, err)
	}

	if len(deployments.Items) == 0 {
		return Sample{
			Metric: sonify.MetricReplicas,
			Value:  1,
			Extra:  map[string]string{"deployments": "0"},
			Time:   now,
		}, nil
	}

	var total int32
	for _, d := range deployments.Items {
		if d.Spec.Replicas != nil {
			total += *d.Spec.Replicas
		}
	}
	avg := float64(total) / float64(len(deployments.Items))

	return Sample{
		Metric: sonify.MetricReplicas,
		Value:  avg,
		Extra:  map[string]string{"deployments": strconv.Itoa(len(deployments.Items))},
		Time:   now,
	}, nil
}

func (p *Provider) fetchNodePressure(ctx context.Context, now time.Time) (Sample, error) {
	nodes, err := p.client.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return Sample{}, fmt.Errorf("listing nodes: %w", err)
	}

	pressure := "False"
	for _, node := range nodes.Items {
		for _, cond := range node.Status.Conditions {
			if cond.Status != corev1.ConditionTrue {
				continue
			}
			for _, pressureType := range pressureConditions {
				if cond.Type == pressureType {
					pressure = "True"
				}
			}
		}
	}

	return Sample{
		Metric: sonify.MetricNodePressure,
		Status: pressure,
		Extra:  map[string]string{"nodes": strconv.Itoa(len(nodes.Items))},
		Time:   now,
	}, nil
}
