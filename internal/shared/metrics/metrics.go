package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	jobStartedTotal   atomic.Uint64
	jobCompletedTotal atomic.Uint64
	jobFailedTotal    atomic.Uint64
	jobSuspendedTotal atomic.Uint64

	searchCacheHitTotal  atomic.Uint64
	searchCacheMissTotal atomic.Uint64

	jobDuration = newHistogram([]float64{500, 1000, 2000, 5000, 10000, 30000, 60000, 120000, 300000})
)

// IncJobStarted increments the started counter.
func IncJobStarted() {
	jobStartedTotal.Add(1)
}

// IncJobCompleted increments the completed counter.
func IncJobCompleted() {
	jobCompletedTotal.Add(1)
}

// IncJobFailed increments the failed counter.
func IncJobFailed() {
	jobFailedTotal.Add(1)
}

// IncJobSuspended increments the awaiting-feedback counter.
func IncJobSuspended() {
	jobSuspendedTotal.Add(1)
}

// IncSearchCacheHit increments the search cache hit counter.
func IncSearchCacheHit() {
	searchCacheHitTotal.Add(1)
}

// IncSearchCacheMiss increments the search cache miss counter.
func IncSearchCacheMiss() {
	searchCacheMissTotal.Add(1)
}

// ObserveJobDurationMs records a job duration in milliseconds.
func ObserveJobDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	jobDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "job_started_total", "Total resume jobs started", jobStartedTotal.Load())
	writeCounter(&buf, "job_completed_total", "Total resume jobs completed", jobCompletedTotal.Load())
	writeCounter(&buf, "job_failed_total", "Total resume jobs failed", jobFailedTotal.Load())
	writeCounter(&buf, "job_suspended_total", "Total resume jobs suspended for feedback", jobSuspendedTotal.Load())
	writeCounter(&buf, "search_cache_hit_total", "Total job search cache hits", searchCacheHitTotal.Load())
	writeCounter(&buf, "search_cache_miss_total", "Total job search cache misses", searchCacheMissTotal.Load())
	writeHistogram(&buf, "job_duration_ms", "Resume job duration in milliseconds", jobDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
