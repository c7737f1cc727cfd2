package kube

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"
	metricsv1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"
	metricsfake "k8s.io/metrics/pkg/client/clientset/versioned/fake"

	"github.com/chimeworks/kubechime/internal/sonify"
)

func testPod(name string, phase corev1.PodPhase, cpu, mem string) *corev1.Pod {
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "default"},
		Spec: corev1.PodSpec{
			Containers: []corev1.Container{{Name: "app"}},
		},
		Status: corev1.PodStatus{Phase: phase},
	}
	if cpu != "" {
		pod.Spec.Containers[0].Resources.Requests = corev1.ResourceList{
			corev1.ResourceCPU:    resource.MustParse(cpu),
			corev1.ResourceMemory: resource.MustParse(mem),
		}
	}
	return pod
}

func testDeployment(name string, replicas int32) *appsv1.Deployment {
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "default"},
		Spec:       appsv1.DeploymentSpec{Replicas: &replicas},
	}
}

func newTestProvider(t *testing.T, objects ...runtime.Object) (*Provider, *fake.Clientset) {
	t.Helper()
	clientset := fake.NewSimpleClientset(objects...)
	client := NewClient(clientset, nil, "default", logr.Discard())
	provider := NewProvider(client, nil, time.Minute, logr.Discard())
	return provider, clientset
}

func TestFetchEmptyClusterDefaults(t *testing.T) {
	provider, _ := newTestProvider(t)
	ctx := context.Background()

	cpu, err := provider.Fetch(ctx, sonify.MetricCPUUsage)
	require.NoError(t, err)
	assert.Equal(t, 30.0, cpu.Value)

	mem, err := provider.Fetch(ctx, sonify.MetricMemoryUsage)
	require.NoError(t, err)
	assert.Equal(t, 40.0, mem.Value)

	status, err := provider.Fetch(ctx, sonify.MetricPodStatus)
	require.NoError(t, err)
	assert.Equal(t, "Unknown", status.Status)
	assert.Equal(t, "0", status.Extra["pods"])

	replicas, err := provider.Fetch(ctx, sonify.MetricReplicas)
	require.NoError(t, err)
	assert.Equal(t, 1.0, replicas.Value)
	assert.Equal(t, "0", replicas.Extra["deployments"])

	pressure, err := provider.Fetch(ctx, sonify.MetricNodePressure)
	require.NoError(t, err)
	assert.Equal(t, "False", pressure.Status)
}

func TestFetchUsageEstimatedFromRequests(t *testing.T) {
	provider, _ := newTestProvider(t, testPod("web", corev1.PodRunning, "2", "500Mi"))
	ctx := context.Background()

	cpu, err := provider.Fetch(ctx, sonify.MetricCPUUsage)
	require.NoError(t, err)
	// 2 cores requested by 1 container: 2 * 20 = 40%.
	assert.InDelta(t, 40, cpu.Value, 0.01)
	assert.Equal(t, "requests", cpu.Extra["source"])

	mem, err := provider.Fetch(ctx, sonify.MetricMemoryUsage)
	require.NoError(t, err)
	// 500Mi by 1 container: 500 / 10 = 50%.
	assert.InDelta(t, 50, mem.Value, 0.01)
}

func TestFetchUsageCapsAtHundred(t *testing.T) {
	provider, _ := newTestProvider(t, testPod("hog", corev1.PodRunning, "64", "100Gi"))
	ctx := context.Background()

	cpu, err := provider.Fetch(ctx, sonify.MetricCPUUsage)
	require.NoError(t, err)
	assert.Equal(t, 100.0, cpu.Value)

	mem, err := provider.Fetch(ctx, sonify.MetricMemoryUsage)
	require.NoError(t, err)
	assert.Equal(t, 100.0, mem.Value)
}

func TestFetchUsageFromMetricsServer(t *testing.T) {
	clientset := fake.NewSimpleClientset(testPod("web", corev1.PodRunning, "1", "500Mi"))
	podMetrics := metricsv1beta1.PodMetrics{
		ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "default"},
		Containers: []metricsv1beta1.ContainerMetrics{{
			Name: "app",
			Usage: corev1.ResourceList{
				corev1.ResourceCPU:    resource.MustParse("500m"),
				corev1.ResourceMemory: resource.MustParse("250Mi"),
			},
		}},
	}
	// The metrics fake's tracker does not serve objects seeded through
	// NewSimpleClientset, so list calls must be answered via a reactor.
	metricsClientset := metricsfake.NewSimpleClientset()
	metricsClientset.PrependReactor("list", "pods", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, &metricsv1beta1.PodMetricsList{Items: []metricsv1beta1.PodMetrics{podMetrics}}, nil
	})

	client := NewClient(clientset, metricsClientset, "default", logr.Discard())
	require.NoError(t, client.Connect(context.Background()))
	require.True(t, client.MetricsAvailable())

	provider := NewProvider(client, nil, time.Minute, logr.Discard())

	cpu, err := provider.Fetch(context.Background(), sonify.MetricCPUUsage)
	require.NoError(t, err)
	// 500m used of 1 core requested.
	assert.InDelta(t, 50, cpu.Value, 0.01)
	assert.Equal(t, "metrics-server", cpu.Extra["source"])

	mem, err := provider.Fetch(context.Background(), sonify.MetricMemoryUsage)
	require.NoError(t, err)
	// 250Mi used of 500Mi requested.
	assert.InDelta(t, 50, mem.Value, 0.01)
}

func TestFetchPodStatusWorstPhaseWins(t *testing.T) {
	provider, _ := newTestProvider(t,
		testPod("ok-1", corev1.PodRunning, "", ""),
		testPod("bad", corev1.PodFailed, "", ""),
		testPod("ok-2", corev1.PodRunning, "", ""),
	)

	status, err := provider.Fetch(context.Background(), sonify.MetricPodStatus)
	require.NoError(t, err)
	assert.Equal(t, "Failed", status.Status)
	assert.Equal(t, "3", status.Extra["pods"])
}

func TestFetchEstimatedLatencyAndErrors(t *testing.T) {
	healthy, _ := newTestProvider(t, testPod("web", corev1.PodRunning, "", ""))
	ctx := context.Background()

	latency, err := healthy.Fetch(ctx, sonify.MetricHTTPLatency)
	require.NoError(t, err)
	assert.Equal(t, 50.0, latency.Value)
	assert.Equal(t, "true", latency.Extra["estimated"])

	errorRate, err := healthy.Fetch(ctx, sonify.MetricErrorsPerSecond)
	require.NoError(t, err)
	assert.Equal(t, 0.0, errorRate.Value)

	broken, _ := newTestProvider(t, testPod("web", corev1.PodFailed, "", ""))

	latency, err = broken.Fetch(ctx, sonify.MetricHTTPLatency)
	require.NoError(t, err)
	assert.Equal(t, 350.0, latency.Value)

	errorRate, err = broken.Fetch(ctx, sonify.MetricErrorsPerSecond)
	require.NoError(t, err)
	assert.Equal(t, 5.0, errorRate.Value)
}

func TestFetchReplicasAverages(t *testing.T) {
	provider, _ := newTestProvider(t,
		testDeployment("a", 3),
		testDeployment("b", 5),
	)

	replicas, err := provider.Fetch(context.Background(), sonify.MetricReplicas)
	require.NoError(t, err)
	assert.Equal(t, 4.0, replicas.Value)
	assert.Equal(t, "2", replicas.Extra["deployments"])
}

func TestFetchNodePressure(t *testing.T) {
	node := &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: "node-1"},
		Status: corev1.NodeStatus{
			Conditions: []corev1.NodeCondition{
				{Type: corev1.NodeReady, Status: corev1.ConditionTrue},
				{Type: corev1.NodeMemoryPressure, Status: corev1.ConditionTrue},
			},
		},
	}
	provider, _ := newTestProvider(t, node)

	pressure, err := provider.Fetch(context.Background(), sonify.MetricNodePressure)
	require.NoError(t, err)
	assert.Equal(t, "True", pressure.Status)
	assert.Equal(t, "1", pressure.Extra["nodes"])
}

func TestFetchNodePressureIgnoresFalseConditions(t *testing.T) {
	node := &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: "node-1"},
		Status: corev1.NodeStatus{
			Conditions: []corev1.NodeCondition{
				{Type: corev1.NodeMemoryPressure, Status: corev1.ConditionFalse},
				{Type: corev1.NodeDiskPressure, Status: corev1.ConditionFalse},
			},
		},
	}
	provider, _ := newTestProvider(t, node)

	pressure, err := provider.Fetch(context.Background(), sonify.MetricNodePressure)
	require.NoError(t, err)
	assert.Equal(t, "False", pressure.Status)
}

func TestFetchUnknownMetric(t *testing.T) {
	provider, _ := newTestProvider(t)
	_, err := provider.Fetch(context.Background(), "disk_usage")
	assert.ErrorIs(t, err, ErrUnknownMetric)
}

func TestSnapshotListsPodsOncePerCycle(t *testing.T) {
	provider, clientset := newTestProvider(t, testPod("web", corev1.PodRunning, "", ""))
	ctx := context.Background()

	// Five pod-derived metrics in one cycle.
	for _, metric := range []string{
		sonify.MetricCPUUsage, sonify.MetricMemoryUsage, sonify.MetricPodStatus,
		sonify.MetricHTTPLatency, sonify.MetricErrorsPerSecond,
	} {
		_, err := provider.Fetch(ctx, metric)
		require.NoError(t, err)
	}

	podLists := 0
	for _, action := range clientset.Actions() {
		if action.Matches("list", "pods") {
			podLists++
		}
	}
	assert.Equal(t, 1, podLists, "one cycle must list pods exactly once")
}
