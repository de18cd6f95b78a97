package refresh

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type staticTokens struct {
	mu    sync.Mutex
	token string
}

func (s *staticTokens) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

type nearExpiry map[string]bool

func (n nearExpiry) IsNearExpiry(token string, _ int) bool { return n[token] }

type thresholdSpy struct{ got int }

func (t *thresholdSpy) IsNearExpiry(_ string, threshold int) bool {
	t.got = threshold
	return false
}

func TestCheckSkipsWithoutToken(t *testing.T) {
	var calls int32
	s := New(Config{}, &staticTokens{}, nearExpiry{}, RefresherFunc(func(context.Context) bool {
		atomic.AddInt32(&calls, 1)
		return true
	}), nil)

	attempted, _ := s.Check(context.Background())
	if attempted || atomic.LoadInt32(&calls) != 0 {
		t.Fatal("expected no refresh without a stored token")
	}
}

func TestCheckRefreshesOnlyNearExpiry(t *testing.T) {
	var calls int32
	tokens := &staticTokens{token: "fresh"}
	s := New(Config{}, tokens, nearExpiry{"stale": true}, RefresherFunc(func(context.Context) bool {
		atomic.AddInt32(&calls, 1)
		return true
	}), nil)

	if attempted, _ := s.Check(context.Background()); attempted {
		t.Fatal("fresh token must not be refreshed")
	}

	tokens.mu.Lock()
	tokens.token = "stale"
	tokens.mu.Unlock()

	attempted, ok := s.Check(context.Background())
	if !attempted || !ok {
		t.Fatalf("expected successful refresh attempt, got attempted=%v ok=%v", attempted, ok)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected 1 refresh call, got %d", got)
	}
}

func TestCheckReportsFailure(t *testing.T) {
	s := New(Config{}, &staticTokens{token: "stale"}, nearExpiry{"stale": true}, RefresherFunc(func(context.Context) bool {
		return false
	}), nil)
	attempted, ok := s.Check(context.Background())
	if !attempted || ok {
		t.Fatalf("expected failed attempt, got attempted=%v ok=%v", attempted, ok)
	}
}

func TestDefaults(t *testing.T) {
	spy := &thresholdSpy{}
	s := New(Config{}, &staticTokens{token: "x"}, spy, RefresherFunc(func(context.Context) bool { return true }), nil)
	if s.Config().Interval != time.Minute {
		t.Fatalf("interval = %v, want 1m", s.Config().Interval)
	}
	s.Check(context.Background())
	if spy.got != 10 {
		t.Fatalf("threshold = %d, want 10", spy.got)
	}
}

func TestStartIsSingleInstance(t *testing.T) {
	var calls int32
	s := New(Config{Interval: 5 * time.Millisecond}, &staticTokens{token: "stale"}, nearExpiry{"stale": true},
		RefresherFunc(func(context.Context) bool {
			atomic.AddInt32(&calls, 1)
			return true
		}), nil)

	if !s.Start(context.Background()) {
		t.Fatal("first start should launch the loop")
	}
	if s.Start(context.Background()) {
		t.Fatal("second start must be a no-op")
	}
	if !s.Running() {
		t.Fatal("expected running scheduler")
	}

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&calls) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if atomic.LoadInt32(&calls) < 2 {
		t.Fatal("expected periodic refresh calls")
	}

	select {
	case <-s.Stop():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit after Stop")
	}
	if s.Running() {
		t.Fatal("expected stopped scheduler")
	}

	after := atomic.LoadInt32(&calls)
	time.Sleep(30 * time.Millisecond)
	if atomic.LoadInt32(&calls) != after {
		t.Fatal("refresh ran after Stop")
	}
}

func TestStopFromInsideRefresherDoesNotDeadlock(t *testing.T) {
	var s *Scheduler
	stopped := make(chan struct{})
	s = New(Config{Interval: 5 * time.Millisecond}, &staticTokens{token: "stale"}, nearExpiry{"stale": true},
		RefresherFunc(func(context.Context) bool {
			s.Stop()
			select {
			case <-stopped:
			default:
				close(stopped)
			}
			return false
		}), nil)

	s.Start(context.Background())
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("refresher never ran")
	}
	if s.Running() {
		t.Fatal("expected scheduler stopped by its refresher")
	}
}

func TestStopWhenIdle(t *testing.T) {
	s := New(Config{}, &staticTokens{}, nearExpiry{}, RefresherFunc(func(context.Context) bool { return true }), nil)
	select {
	case <-s.Stop():
	default:
		t.Fatal("Stop on idle scheduler must return a closed channel")
	}
}

func TestParentCancellationStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New(Config{Interval: time.Hour}, &staticTokens{}, nearExpiry{}, RefresherFunc(func(context.Context) bool { return true }), nil)
	s.Start(ctx)
	cancel()

	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop ignored parent cancellation")
	}
}
