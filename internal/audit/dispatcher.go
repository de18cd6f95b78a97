package audit

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Config controls dispatcher buffering and what reaches the sink.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// Origin is stamped on events that carry none.
	Origin string
	// Exclude lists event types that are never queued.
	Exclude []string
}

// Redacted replaces secret values in event metadata and error text.
const Redacted = "[redacted]"

var (
	secretKeys = []string{"token", "password", "authorization", "secret"}
	jwtPattern = regexp.MustCompile(`eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*`)
)

// Dispatcher forwards events to a sink from a single background goroutine,
// so the sink sees events in emission order. Events are scrubbed of token
// and password material before they are queued.
type Dispatcher struct {
	cfg       Config
	exclude   map[string]struct{}
	sink      Sink
	queue     chan Event
	stop      chan struct{}
	wg        sync.WaitGroup
	delivered atomic.Uint64
	dropped   atomic.Uint64
	filtered  atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher returns nil when cfg.Enabled is false. A nil Dispatcher is
// valid and discards everything.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	exclude := make(map[string]struct{}, len(cfg.Exclude))
	for _, t := range cfg.Exclude {
		exclude[strings.TrimSpace(t)] = struct{}{}
	}

	d := &Dispatcher{
		cfg:     cfg,
		exclude: exclude,
		sink:    sink,
		queue:   make(chan Event, cfg.BufferSize),
		stop:    make(chan struct{}),
	}
	d.wg.Add(1)
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()
	for {
		select {
		case event := <-d.queue:
			d.send(event)
		case <-d.stop:
			for {
				select {
				case event := <-d.queue:
					d.send(event)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) send(event Event) {
	d.sink.Emit(context.Background(), event)
	d.delivered.Add(1)
}

// Emit prepares the event and queues it. With DropIfFull a full buffer
// drops the event; otherwise Emit waits for room or for ctx.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if _, skip := d.exclude[event.EventType]; skip {
		d.filtered.Add(1)
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	event = d.prepare(event)

	if d.cfg.DropIfFull {
		select {
		case d.queue <- event:
		case <-d.stop:
		default:
			d.dropped.Add(1)
		}
		return
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.stop:
	}
}

// prepare stamps ID, Timestamp and Origin and scrubs secrets. Metadata is
// copied so the caller's map is never shared with the sink.
func (d *Dispatcher) prepare(event Event) Event {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Origin == "" {
		event.Origin = d.cfg.Origin
	}
	event.Error = Scrub(event.Error)
	if len(event.Metadata) > 0 {
		meta := make(map[string]string, len(event.Metadata))
		for k, v := range event.Metadata {
			if secretKey(k) {
				meta[k] = Redacted
				continue
			}
			meta[k] = Scrub(v)
		}
		event.Metadata = meta
	}
	return event
}

// Scrub replaces anything shaped like a JWT in s.
func Scrub(s string) string {
	if s == "" || !strings.Contains(s, "eyJ") {
		return s
	}
	return jwtPattern.ReplaceAllString(s, Redacted)
}

func secretKey(key string) bool {
	k := strings.ToLower(key)
	for _, s := range secretKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.stop)
		d.wg.Wait()
	})
}

// Dropped reports events discarded because the buffer was full.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Delivered reports events handed to the sink.
func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}

// Filtered reports events skipped by Config.Exclude.
func (d *Dispatcher) Filtered() uint64 {
	if d == nil {
		return 0
	}
	return d.filtered.Load()
}

// KnownEventType reports whether t is one of the Event* constants.
func KnownEventType(t string) bool {
	switch t {
	case EventInitialize, EventLogin, EventRegister, EventLogout,
		EventRefresh, EventSessionExpired, EventStaleResult:
		return true
	}
	return false
}
