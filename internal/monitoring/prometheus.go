// Package monitoring provides Prometheus metrics for the SENTRA-CORE policy
// engine.
//
// Usage:
//
//  1. Setup metrics in your main function:
//     router := gin.New()
//     monitoring.SetupPrometheusMetrics(router)
//
//  2. Add HTTP metrics middleware:
//     router.Use(monitoring.HTTPMetricsMiddleware())
//
//  3. Record custom metrics in your services:
//
//	// Directory store operations
//	start := time.Now()
//	// ... store call ...
//	monitoring.RecordStoreOperation("read", "role", time.Since(start), true)
//
//	// Cache operations
//	monitoring.RecordCacheOperation("get_role", "hit")
//
//	// Admin API operations
//	monitoring.RecordAPIOperation("assign_user", "rbac.user_role", time.Since(start), true)
//
//	// Authorization decisions
//	monitoring.RecordCheckDecision("rbac", true)
//
//	// Hierarchy graph rebuilds
//	monitoring.RecordGraphRebuild("role", tenantID)
//
// Available Metrics:
//
//   - sentra_core_http_requests_total{method, endpoint, status_code, tenant_id}
//   - sentra_core_http_request_duration_seconds{method, endpoint, tenant_id}
//   - sentra_core_store_operations_total{operation, entity, status}
//   - sentra_core_store_operation_duration_seconds{operation, entity}
//   - sentra_core_cache_operations_total{operation, result}
//   - sentra_core_api_operations_total{operation, resource, status}
//   - sentra_core_api_operation_duration_seconds{operation, resource}
//   - sentra_core_check_decisions_total{kind, decision}
//   - sentra_core_graph_rebuilds_total{hierarchy, tenant_id}
//   - sentra_core_sod_violations_total{type}
//   - sentra_core_errors_total{type, component}
//   - sentra_core_build_info{version, component, go_version}
package monitoring

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentra_core_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code", "tenant_id"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentra_core_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "tenant_id"},
	)

	// Directory store operation metrics
	storeOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentra_core_store_operations_total",
			Help: "Total number of directory store operations",
		},
		[]string{"operation", "entity", "status"},
	)

	storeOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentra_core_store_operation_duration_seconds",
			Help:    "Directory store operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation", "entity"},
	)

	// Cache metrics
	cacheOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentra_core_cache_operations_total",
			Help: "Total number of cache operations",
		},
		[]string{"operation", "result"}, // result: hit, miss, error
	)

	// API operation metrics
	apiOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentra_core_api_operations_total",
			Help: "Total number of API operations",
		},
		[]string{"operation", "resource", "status"},
	)

	apiOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentra_core_api_operation_duration_seconds",
			Help:    "API operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "resource"},
	)

	// Authorization decision metrics
	checkDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentra_core_check_decisions_total",
			Help: "Total number of permission check decisions",
		},
		[]string{"kind", "decision"}, // kind: rbac, arbac; decision: granted, denied
	)

	// Hierarchy graph rebuild metrics
	graphRebuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentra_core_graph_rebuilds_total",
			Help: "Total number of hierarchy graph cache rebuilds",
		},
		[]string{"hierarchy", "tenant_id"},
	)

	// Separation-of-duty violation metrics
	sodViolationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentra_core_sod_violations_total",
			Help: "Total number of separation-of-duty violations detected",
		},
		[]string{"type"}, // type: ssd, dsd
	)

	// Active connections gauge
	activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentra_core_active_connections",
			Help: "Number of active connections",
		},
	)

	// Error rate metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentra_core_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type", "component"}, // type: api, store, cache, sod, etc.
	)
)

// SetupPrometheusMetrics configures the Prometheus metrics endpoint for SENTRA-CORE
func SetupPrometheusMetrics(router gin.IRoutes) {
	// Register build info (ignore if already registered)
	_ = prometheus.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "sentra_core_build_info",
		Help: "Build information for SENTRA-CORE",
		ConstLabels: prometheus.Labels{
			"version":    "v1.4.2",
			"component":  "sentra-core",
			"go_version": "1.24",
		},
	}, func() float64 { return 1 }))

	// Register metrics (ignore if already registered)
	_ = prometheus.Register(httpRequestsTotal)
	_ = prometheus.Register(httpRequestDuration)
	_ = prometheus.Register(storeOperationsTotal)
	_ = prometheus.Register(storeOperationDuration)
	_ = prometheus.Register(cacheOperationsTotal)
	_ = prometheus.Register(apiOperationsTotal)
	_ = prometheus.Register(apiOperationDuration)
	_ = prometheus.Register(checkDecisionsTotal)
	_ = prometheus.Register(graphRebuildsTotal)
	_ = prometheus.Register(sodViolationsTotal)
	_ = prometheus.Register(activeConnections)
	_ = prometheus.Register(errorsTotal)

	// Expose metrics endpoint using default registry
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// HTTPMetricsMiddleware collects HTTP request metrics
func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path

		// Normalize path for metrics (remove IDs, etc.)
		endpoint := normalizeEndpoint(path)

		// Get tenant_id from context (set by auth middleware)
		tenantID := c.GetString("tenant_id")
		if tenantID == "" {
			tenantID = "unknown"
		}

		activeConnections.Inc()
		defer activeConnections.Dec()

		c.Next()

		statusCode := strconv.Itoa(c.Writer.Status())
		duration := time.Since(start).Seconds()

		httpRequestsTotal.WithLabelValues(method, endpoint, statusCode, tenantID).Inc()
		httpRequestDuration.WithLabelValues(method, endpoint, tenantID).Observe(duration)

		if c.Writer.Status() >= 400 {
			errorsTotal.WithLabelValues("http", endpoint).Inc()
		}
	}
}

// RecordStoreOperation records directory store operation metrics
func RecordStoreOperation(operation, entity string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
		errorsTotal.WithLabelValues("store", entity).Inc()
	}

	storeOperationsTotal.WithLabelValues(operation, entity, status).Inc()
	storeOperationDuration.WithLabelValues(operation, entity).Observe(duration.Seconds())
}

// RecordCacheOperation records cache operation metrics
func RecordCacheOperation(operation, result string) {
	cacheOperationsTotal.WithLabelValues(operation, result).Inc()
	if result == "error" {
		errorsTotal.WithLabelValues("cache", operation).Inc()
	}
}

// RecordAPIOperation records API operation metrics
func RecordAPIOperation(operation, resource string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
		errorsTotal.WithLabelValues("api", resource).Inc()
	}

	apiOperationsTotal.WithLabelValues(operation, resource, status).Inc()
	apiOperationDuration.WithLabelValues(operation, resource).Observe(duration.Seconds())
}

// RecordCheckDecision records a permission check outcome. kind is "rbac" or
// "arbac".
func RecordCheckDecision(kind string, granted bool) {
	decision := "denied"
	if granted {
		decision = "granted"
	}
	checkDecisionsTotal.WithLabelValues(kind, decision).Inc()
}

// RecordGraphRebuild records a hierarchy graph cache rebuild
func RecordGraphRebuild(hierarchy, tenantID string) {
	if tenantID == "" {
		tenantID = "default"
	}
	graphRebuildsTotal.WithLabelValues(hierarchy, tenantID).Inc()
}

// RecordSoDViolation records a detected separation-of-duty violation. typ is
// "ssd" or "dsd".
func RecordSoDViolation(typ string) {
	sodViolationsTotal.WithLabelValues(typ).Inc()
}

// normalizeEndpoint collapses path segments that look like identifiers so the
// endpoint label cardinality stays bounded.
func normalizeEndpoint(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part == "" {
			continue
		}
		if len(part) > 20 || isIdentifierSegment(part) {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}

func isIdentifierSegment(segment string) bool {
	digits := 0
	for _, r := range segment {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits > 0 && digits >= len(segment)/2
}
