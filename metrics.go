package goAuthClient

import (
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goAuthClient/pipeline"
)

// MetricID identifies one Engine counter or histogram.
type MetricID uint16

const (
	// MetricInitializeAuthenticated counts startups that restored a verified session.
	MetricInitializeAuthenticated MetricID = iota
	// MetricInitializeAnonymous counts startups that ended without a session.
	MetricInitializeAnonymous
	// MetricInitializeDegraded counts startups that fell back to the cached user.
	MetricInitializeDegraded
	MetricLoginSuccess
	MetricLoginFailure
	MetricRegisterSuccess
	MetricRegisterFailure
	// MetricValidationRejected counts login or register calls stopped client-side.
	MetricValidationRejected
	MetricLogout
	MetricRefreshSuccess
	MetricRefreshFailure
	// MetricRefreshShared counts Refresh calls that joined an in-flight refresh.
	MetricRefreshShared
	// MetricSessionExpired counts forced logouts after a 401.
	MetricSessionExpired
	// MetricStaleResultDiscarded counts remote results ignored because a newer
	// operation had started.
	MetricStaleResultDiscarded
	MetricRequestOK
	MetricRequestRejected
	MetricRequestUnauthorized
	MetricRequestForbidden
	MetricRequestNotFound
	MetricRequestServerError
	MetricRequestStatusError
	MetricRequestTransportError
	MetricRequestCanceled
	MetricRequestInvalid
	// MetricRequestLatency is the latency histogram of every pipeline request.
	MetricRequestLatency
	// MetricRefreshLatency is the latency histogram of refresh round-trips.
	MetricRefreshLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters and fixed-bucket latency histograms.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every metric.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a Metrics honoring cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether histograms are recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in histogram id. Only latency metrics carry histograms.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || !isHistogram(id) {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// RecordRequest counts a pipeline outcome and observes its latency.
func (m *Metrics) RecordRequest(kind pipeline.Kind, latency time.Duration) {
	m.Inc(requestMetric(kind))
	m.Observe(MetricRequestLatency, latency)
}

// Snapshot copies every counter and, when enabled, every histogram.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 2),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if isHistogram(id) {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	if m.enableLatency {
		for _, id := range []MetricID{MetricRequestLatency, MetricRefreshLatency} {
			buckets := make([]uint64, histBucketCount)
			for i := 0; i < histBucketCount; i++ {
				buckets[i] = atomic.LoadUint64(&m.histograms[id].buckets[i])
			}
			s.Histograms[id] = buckets
		}
	}
	return s
}

func isHistogram(id MetricID) bool {
	return id == MetricRequestLatency || id == MetricRefreshLatency
}

func requestMetric(kind pipeline.Kind) MetricID {
	switch kind {
	case pipeline.KindOK:
		return MetricRequestOK
	case pipeline.KindRejected:
		return MetricRequestRejected
	case pipeline.KindSessionExpired:
		return MetricRequestUnauthorized
	case pipeline.KindForbidden:
		return MetricRequestForbidden
	case pipeline.KindNotFound:
		return MetricRequestNotFound
	case pipeline.KindServer:
		return MetricRequestServerError
	case pipeline.KindStatus:
		return MetricRequestStatusError
	case pipeline.KindTransport:
		return MetricRequestTransportError
	case pipeline.KindCanceled:
		return MetricRequestCanceled
	default:
		return MetricRequestInvalid
	}
}

// bucketIndex maps d to one of eight buckets: <=5ms, 10, 25, 50, 100, 250,
// 500 ms, and +Inf.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
