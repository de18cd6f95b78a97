package goAuthClient

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goAuthClient/pipeline"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)

	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestMetricsNilIsSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricLogout)
	m.Observe(MetricRequestLatency, time.Millisecond)
	m.RecordRequest(pipeline.KindOK, time.Millisecond)
	if m.Value(MetricLogout) != 0 || len(m.Snapshot().Counters) != 0 {
		t.Fatal("nil metrics must record nothing")
	}
}

func TestMetricsEnabledIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)

	if got := m.Value(MetricLoginSuccess); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricRefreshSuccess)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricRefreshSuccess); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		700 * time.Millisecond,
	}

	for _, d := range observations {
		m.Observe(MetricRequestLatency, d)
	}

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricRequestLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}

	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
}

func TestMetricsObserveIgnoresCounters(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Observe(MetricLoginSuccess, time.Millisecond)
	if _, ok := m.Snapshot().Histograms[MetricLoginSuccess]; ok {
		t.Fatal("counters must not carry histograms")
	}
}

func TestMetricsRecordRequestMapsKinds(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	cases := map[pipeline.Kind]MetricID{
		pipeline.KindOK:              MetricRequestOK,
		pipeline.KindRejected:        MetricRequestRejected,
		pipeline.KindSessionExpired:  MetricRequestUnauthorized,
		pipeline.KindForbidden:       MetricRequestForbidden,
		pipeline.KindNotFound:        MetricRequestNotFound,
		pipeline.KindServer:          MetricRequestServerError,
		pipeline.KindStatus:          MetricRequestStatusError,
		pipeline.KindTransport:       MetricRequestTransportError,
		pipeline.KindCanceled:        MetricRequestCanceled,
		pipeline.KindInvalidRequest:  MetricRequestInvalid,
		pipeline.KindInvalidResponse: MetricRequestInvalid,
	}
	for kind := range cases {
		m.RecordRequest(kind, 2*time.Millisecond)
	}

	snap := m.Snapshot()
	for kind, id := range cases {
		want := uint64(1)
		if id == MetricRequestInvalid {
			want = 2
		}
		if got := snap.Counters[id]; got != want {
			t.Fatalf("%s: expected %d, got %d", kind, want, got)
		}
	}
	if got := snap.Histograms[MetricRequestLatency][0]; got != uint64(len(cases)) {
		t.Fatalf("expected %d latency observations, got %d", len(cases), got)
	}
}

func TestEngineCountsPipelineOutcomes(t *testing.T) {
	f := newEngineFixture(t, nil, nil)
	f.login(t, "alice")
	if _, err := f.engine.ListUsers(context.Background()); err == nil {
		t.Fatal("expected forbidden")
	}

	snap := f.engine.MetricsSnapshot()
	if snap.Counters[MetricRequestOK] != 1 {
		t.Fatalf("expected one OK request, got %d", snap.Counters[MetricRequestOK])
	}
	if snap.Counters[MetricRequestForbidden] != 1 {
		t.Fatalf("expected one forbidden request, got %d", snap.Counters[MetricRequestForbidden])
	}
	if snap.Counters[MetricLoginSuccess] != 1 {
		t.Fatal("expected login success counted")
	}
}
