package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "uomi",
		Name:      "http_request_duration_seconds",
		Help:      "Latency of HTTP requests served by the agent daemon.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"handler", "method", "code"})

	invocations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "uomi",
		Name:      "invocations_total",
		Help:      "Agent invocations partitioned by the branch that produced the response.",
	}, []string{"branch"})

	chainProxyRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "uomi",
		Name:      "chain_proxy_requests_total",
		Help:      "Blockchain proxy requests partitioned by action and outcome code.",
	}, []string{"action", "outcome"})
)

func init() {
	registry.MustRegister(httpDuration, invocations, chainProxyRequests)
}

// ObserveHTTPRequest records metrics about an HTTP request lifecycle.
func ObserveHTTPRequest(handler, method string, status int, duration time.Duration) {
	httpDuration.WithLabelValues(handler, method, strconv.Itoa(status)).Observe(duration.Seconds())
}

// ObserveInvocation counts one agent invocation answered by branch.
func ObserveInvocation(branch string) {
	invocations.WithLabelValues(branch).Inc()
}

// ObserveChainProxy counts one blockchain proxy request.
func ObserveChainProxy(action, outcome string) {
	chainProxyRequests.WithLabelValues(action, outcome).Inc()
}

// Handler exposes the metrics in Prometheus text exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and embedding.
func Registry() *prometheus.Registry {
	return registry
}
