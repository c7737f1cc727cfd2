// internal/kube/client.go
package kube

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/go-logr/logr"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
	metricsclient "k8s.io/metrics/pkg/client/clientset/versioned"
)

// BuildRestConfig builds the client-go REST config either from a
// kubeconfig file (default: ~/.kube/config) or from the in-cluster
// service account.
func BuildRestConfig(useKubeconfig bool, kubeconfigPath, apiURL string) (*rest.Config, error) {
	if !useKubeconfig {
		cfg, err := rest.InClusterConfig()
		if err != nil {
			return nil, fmt.Errorf("loading in-cluster configuration: %w", err)
		}
		return cfg, nil
	}

	if kubeconfigPath == "" {
		if home := homedir.HomeDir(); home != "" {
			kubeconfigPath = filepath.Join(home, ".kube", "config")
		}
	}
	cfg, err := clientcmd.BuildConfigFromFlags(apiURL, kubeconfigPath)
	if err != nil {
		return nil, fmt.Errorf("loading kubeconfig from %s: %w", kubeconfigPath, err)
	}
	return cfg, nil
}

// Client wraps the cluster clientsets for a single target namespace.
// The metrics clientset is optional: its availability is probed once in
// Connect and never re-attempted.
type Client struct {
	clientset kubernetes.Interface
	metrics   metricsclient.Interface
	namespace string
	logger    logr.Logger

	metricsAvailable bool
}

// NewClient creates a client for the given namespace. metrics may be
// nil when no metrics-server clientset could be constructed.
func NewClient(
	clientset kubernetes.Interface,
	metrics metricsclient.Interface,
	namespace string,
	logger logr.Logger,
) *Client {
	return &Client{
		clientset: clientset,
		metrics:   metrics,
		namespace: namespace,
		logger:    logger.WithName("kube-client"),
	}
}

// Namespace returns the namespace this client monitors.
func (c *Client) Namespace() string {
	return c.namespace
}

// Connect probes the cluster. A failure here is fatal to the caller:
// there is nothing to sonify without a cluster. It also decides, once,
// whether metrics-server is usable.
func (c *Client) Connect(ctx context.Context) error {
	if _, err := c.clientset.CoreV1().Pods(c.namespace).List(ctx, metav1.ListOptions{Limit: 1}); err != nil {
		return fmt.Errorf("connecting to cluster (namespace %s): %w", c.namespace, err)
	}
	c.logger.Info("Connected to Kubernetes cluster", "namespace", c.namespace)

	if c.metrics != nil {
		if _, err := c.metrics.MetricsV1beta1().PodMetricses(c.namespace).List(ctx, metav1.ListOptions{Limit: 1}); err != nil {
			c.logger.Info("metrics-server unavailable, using request-based usage estimates",
				"reason", err.Error())
		} else {
			c.metricsAvailable = true
			c.logger.Info("metrics-server detected, using real usage metrics")
		}
	}
	return nil
}

// MetricsAvailable reports whether metrics-server answered the probe.
func (c *Client) MetricsAvailable() bool {
	return c.metricsAvailable
}
