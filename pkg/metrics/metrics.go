// Package metrics provides the Prometheus metrics registry reference for
// chemidr. All metrics are defined in their respective packages (client,
// cache, ratelimit) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by chemidr.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Throttle Metrics (pkg/ratelimit):
//   - chemidr_throttle_load_percent (Gauge): Highest reported PubChem throttling load
//   - chemidr_throttle_blocks_total (Counter): Requests blocked on red/black status
//   - chemidr_throttle_delays_total (Counter): Requests delayed on yellow status
//
// Cache Metrics (pkg/cache):
//   - chemidr_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - chemidr_cache_misses_total (Counter): Cache misses
//   - chemidr_cache_size_bytes{layer="redis"} (Gauge): Current cache size in bytes
//   - chemidr_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - chemidr_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - chemidr_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - chemidr_errors_total{class} (Counter): Errors by class (rate_limit, server_busy, client, server, network)
//
// Retry Metrics (pkg/client):
//   - chemidr_retries_total{error_class} (Counter): Retry attempts by error class
//   - chemidr_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - chemidr_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(chemidr_cache_hits_total[5m])) /
//   (sum(rate(chemidr_cache_hits_total[5m])) + sum(rate(chemidr_cache_misses_total[5m])))
//
//   # Throttling pressure
//   chemidr_throttle_load_percent > 75
//
//   # Request Error Rate
//   rate(chemidr_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(chemidr_request_duration_seconds_bucket[5m]))
