package goAuthClient

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

func collectEvents(sink *ChannelSink, max int, wait time.Duration) []AuditEvent {
	events := make([]AuditEvent, 0, max)
	timeout := time.After(wait)
	for len(events) < max {
		select {
		case ev := <-sink.Events():
			events = append(events, ev)
		case <-timeout:
			return events
		}
	}
	return events
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	sink := &countingSink{}
	f := newEngineFixture(t, nil, nil, func(c *Config, b *Builder) {
		c.Audit.Enabled = false
		b.WithAuditSink(sink)
	})

	f.engine.Login(context.Background(), LoginRequest{Username: "alice", Password: "wrong1"})
	f.login(t, "alice")
	f.engine.Logout(context.Background())
	time.Sleep(30 * time.Millisecond)

	if sink.Count() != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", sink.Count())
	}
}

func TestAuditFailureCarriesServerMessage(t *testing.T) {
	sink := NewChannelSink(8)
	f := newEngineFixture(t, nil, nil, withAudit(sink))

	f.engine.Login(context.Background(), LoginRequest{Username: "alice", Password: "wrong1"})

	events := collectEvents(sink, 1, 2*time.Second)
	if len(events) != 1 {
		t.Fatal("expected a login event")
	}
	ev := events[0]
	if ev.EventType != "login" || ev.Success || ev.Username != "alice" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if !strings.Contains(ev.Error, "Invalid username or password") {
		t.Fatalf("expected server message in error, got %q", ev.Error)
	}
	if ev.ID == "" || ev.Timestamp.IsZero() {
		t.Fatal("expected dispatcher to stamp id and timestamp")
	}
}

func TestAuditValidationRejectionStage(t *testing.T) {
	sink := NewChannelSink(8)
	f := newEngineFixture(t, nil, nil, withAudit(sink))

	f.engine.Register(context.Background(), RegisterRequest{Username: "al", Email: "al@example.com", Password: "secret1", ConfirmPassword: "secret1"})

	events := collectEvents(sink, 1, 2*time.Second)
	if len(events) != 1 || events[0].EventType != "register" || events[0].Metadata["stage"] != "validation" {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestAuditNoSecretsInEvents(t *testing.T) {
	sink := NewChannelSink(32)
	f := newEngineFixture(t, nil, nil, withAudit(sink))

	const sensitivePassword = "secret1"
	f.login(t, "alice")
	token := f.engine.State().Token
	refreshToken, _ := f.engine.Store().RefreshToken()
	if !f.engine.Refresh(context.Background()) {
		t.Fatal("refresh failed")
	}
	f.engine.Login(context.Background(), LoginRequest{Username: "alice", Password: "wrong-" + sensitivePassword})
	f.engine.Logout(context.Background())

	events := collectEvents(sink, 4, 2*time.Second)
	if len(events) == 0 {
		t.Fatal("expected at least one audit event")
	}

	needles := []string{sensitivePassword, token, refreshToken}
	for _, ev := range events {
		for _, needle := range needles {
			if needle == "" {
				continue
			}
			if strings.Contains(ev.Error, needle) {
				t.Fatalf("sensitive value leaked in audit error field: %q", needle)
			}
			for k, v := range ev.Metadata {
				if strings.Contains(k, needle) || strings.Contains(v, needle) {
					t.Fatalf("sensitive value leaked in audit metadata: %q", needle)
				}
			}
		}
	}
}
