package shared

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ServiceMetrics tracks request counts, latency and named counters for one service
type ServiceMetrics struct {
	serviceName string
	mutex       sync.RWMutex

	totalRequests       int64
	successfulRequests  int64
	failedRequests      int64
	totalProcessingTime time.Duration
	lastUpdated         time.Time
	counters            map[string]int64
	performance         *PerformanceMetrics
}

// MetricsSnapshot is a point-in-time copy of ServiceMetrics, safe to serialize
type MetricsSnapshot struct {
	ServiceName           string           `json:"service_name"`
	TotalRequests         int64            `json:"total_requests"`
	SuccessfulRequests    int64            `json:"successful_requests"`
	FailedRequests        int64            `json:"failed_requests"`
	SuccessRate           float64          `json:"success_rate"`
	AverageProcessingTime time.Duration    `json:"average_processing_time"`
	MinProcessingTime     time.Duration    `json:"min_processing_time"`
	MaxProcessingTime     time.Duration    `json:"max_processing_time"`
	P95ProcessingTime     time.Duration    `json:"p95_processing_time"`
	LastUpdated           time.Time        `json:"last_updated"`
	Counters              map[string]int64 `json:"counters"`
}

// NewServiceMetrics creates a new metrics tracker for a service
func NewServiceMetrics(serviceName string) *ServiceMetrics {
	return &ServiceMetrics{
		serviceName: serviceName,
		lastUpdated: time.Now(),
		counters:    make(map[string]int64),
		performance: NewPerformanceMetrics(),
	}
}

// RecordRequest records a request with its success status and processing time
func (m *ServiceMetrics) RecordRequest(success bool, processingTime time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.totalRequests++
	m.totalProcessingTime += processingTime
	if success {
		m.successfulRequests++
	} else {
		m.failedRequests++
	}
	m.lastUpdated = time.Now()

	m.performance.RecordProcessingTime(processingTime)
}

// IncrementCounter increments a named counter
func (m *ServiceMetrics) IncrementCounter(key string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.counters[key]++
	m.lastUpdated = time.Now()
}

// Counter returns the current value of a named counter
func (m *ServiceMetrics) Counter(key string) int64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.counters[key]
}

func (m *ServiceMetrics) successRateLocked() float64 {
	if m.totalRequests == 0 {
		return 0.0
	}
	return float64(m.successfulRequests) / float64(m.totalRequests) * 100.0
}

// GetSnapshot returns a thread-safe snapshot of current metrics
func (m *ServiceMetrics) GetSnapshot() MetricsSnapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	counters := make(map[string]int64, len(m.counters))
	for k, v := range m.counters {
		counters[k] = v
	}

	var avg time.Duration
	if m.totalRequests > 0 {
		avg = time.Duration(int64(m.totalProcessingTime) / m.totalRequests)
	}

	perf := m.performance.GetPerformanceSnapshot()
	return MetricsSnapshot{
		ServiceName:           m.serviceName,
		TotalRequests:         m.totalRequests,
		SuccessfulRequests:    m.successfulRequests,
		FailedRequests:        m.failedRequests,
		SuccessRate:           m.successRateLocked(),
		AverageProcessingTime: avg,
		MinProcessingTime:     perf.Min,
		MaxProcessingTime:     perf.Max,
		P95ProcessingTime:     perf.P95,
		LastUpdated:           m.lastUpdated,
		Counters:              counters,
	}
}

// LogSummary logs the current snapshot
func (m *ServiceMetrics) LogSummary() {
	snapshot := m.GetSnapshot()

	logrus.WithFields(logrus.Fields{
		"service_name":            snapshot.ServiceName,
		"total_requests":          snapshot.TotalRequests,
		"successful_requests":     snapshot.SuccessfulRequests,
		"failed_requests":         snapshot.FailedRequests,
		"success_rate":            snapshot.SuccessRate,
		"average_processing_time": snapshot.AverageProcessingTime,
		"p95_processing_time":     snapshot.P95ProcessingTime,
		"counters":                snapshot.Counters,
	}).Info("Service metrics summary")
}

// HTTPMetrics tracks upstream HTTP calls by status code and error type
type HTTPMetrics struct {
	mutex            sync.RWMutex
	totalRequests    int64
	failedRequests   int64
	timeoutRequests  int64
	statusCodeCounts map[int]int64
	errorCounts      map[string]int64
}

// HTTPSnapshot is a point-in-time copy of HTTPMetrics
type HTTPSnapshot struct {
	TotalRequests    int64            `json:"total_requests"`
	FailedRequests   int64            `json:"failed_requests"`
	TimeoutRequests  int64            `json:"timeout_requests"`
	StatusCodeCounts map[int]int64    `json:"status_code_counts"`
	ErrorCounts      map[string]int64 `json:"error_counts"`
}

// NewHTTPMetrics creates a new HTTP metrics tracker
func NewHTTPMetrics() *HTTPMetrics {
	return &HTTPMetrics{
		statusCodeCounts: make(map[int]int64),
		errorCounts:      make(map[string]int64),
	}
}

// RecordHTTPRequest records an upstream call. statusCode is 0 when no response arrived.
func (hm *HTTPMetrics) RecordHTTPRequest(success bool, statusCode int, errorType string, isTimeout bool) {
	hm.mutex.Lock()
	defer hm.mutex.Unlock()

	hm.totalRequests++
	if !success {
		hm.failedRequests++
	}
	if isTimeout {
		hm.timeoutRequests++
	}
	if statusCode != 0 {
		hm.statusCodeCounts[statusCode]++
	}
	if errorType != "" {
		hm.errorCounts[errorType]++
	}
}

// GetSnapshot returns a copy of the current HTTP metrics
func (hm *HTTPMetrics) GetSnapshot() HTTPSnapshot {
	hm.mutex.RLock()
	defer hm.mutex.RUnlock()

	codes := make(map[int]int64, len(hm.statusCodeCounts))
	for k, v := range hm.statusCodeCounts {
		codes[k] = v
	}
	errs := make(map[string]int64, len(hm.errorCounts))
	for k, v := range hm.errorCounts {
		errs[k] = v
	}
	return HTTPSnapshot{
		TotalRequests:    hm.totalRequests,
		FailedRequests:   hm.failedRequests,
		TimeoutRequests:  hm.timeoutRequests,
		StatusCodeCounts: codes,
		ErrorCounts:      errs,
	}
}

// PerformanceMetrics keeps a bounded window of processing times
type PerformanceMetrics struct {
	mutex   sync.RWMutex
	min     time.Duration
	max     time.Duration
	samples []time.Duration
}

// PerformanceSnapshot holds the derived latency figures
type PerformanceSnapshot struct {
	Min time.Duration `json:"min"`
	Max time.Duration `json:"max"`
	P95 time.Duration `json:"p95"`
	P99 time.Duration `json:"p99"`
}

const maxPerformanceSamples = 1000

// NewPerformanceMetrics creates a new performance metrics tracker
func NewPerformanceMetrics() *PerformanceMetrics {
	return &PerformanceMetrics{
		samples: make([]time.Duration, 0, maxPerformanceSamples),
	}
}

// RecordProcessingTime records a processing time
func (pm *PerformanceMetrics) RecordProcessingTime(duration time.Duration) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	if pm.min == 0 || duration < pm.min {
		pm.min = duration
	}
	if duration > pm.max {
		pm.max = duration
	}

	if len(pm.samples) >= maxPerformanceSamples {
		pm.samples = pm.samples[1:]
	}
	pm.samples = append(pm.samples, duration)
}

// GetPerformanceSnapshot computes percentiles over the current window
func (pm *PerformanceMetrics) GetPerformanceSnapshot() PerformanceSnapshot {
	pm.mutex.RLock()
	defer pm.mutex.RUnlock()

	snapshot := PerformanceSnapshot{Min: pm.min, Max: pm.max}
	if len(pm.samples) == 0 {
		return snapshot
	}

	times := make([]time.Duration, len(pm.samples))
	copy(times, pm.samples)
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	snapshot.P95 = times[percentileIndex(len(times), 0.95)]
	snapshot.P99 = times[percentileIndex(len(times), 0.99)]
	return snapshot
}

func percentileIndex(n int, p float64) int {
	idx := int(float64(n) * p)
	if idx >= n {
		idx = n - 1
	}
	return idx
}
