// Package monitoring - metrics.go provides simple counters.
//
// DESIGN: Lightweight in-memory counters for operational metrics:
//   - requests/successes: Total and successful HTTP requests
//   - invocations:        Meta-tool `invoke` calls
//   - cache_hits/misses:  Response cache performance
//
// For production, export these to Prometheus or similar.
package monitoring

import (
	"sync/atomic"
	"time"
)

// MetricsCollector collects operational metrics.
type MetricsCollector struct {
	requests    atomic.Int64
	successes   atomic.Int64
	invocations atomic.Int64
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

// RecordRequest records an inbound HTTP request.
func (mc *MetricsCollector) RecordRequest(success bool, _ time.Duration) {
	mc.requests.Add(1)
	if success {
		mc.successes.Add(1)
	}
}

// RecordInvocation records a completed meta-tool `invoke` call.
func (mc *MetricsCollector) RecordInvocation() {
	mc.invocations.Add(1)
}

// RecordCacheHit records a response-cache hit.
func (mc *MetricsCollector) RecordCacheHit() { mc.cacheHits.Add(1) }

// RecordCacheMiss records a response-cache miss.
func (mc *MetricsCollector) RecordCacheMiss() { mc.cacheMisses.Add(1) }

// Stats returns current metrics.
func (mc *MetricsCollector) Stats() map[string]int64 {
	return map[string]int64{
		"requests":     mc.requests.Load(),
		"successes":    mc.successes.Load(),
		"invocations":  mc.invocations.Load(),
		"cache_hits":   mc.cacheHits.Load(),
		"cache_misses": mc.cacheMisses.Load(),
	}
}

// Stop is a no-op for compatibility.
func (mc *MetricsCollector) Stop() {}
