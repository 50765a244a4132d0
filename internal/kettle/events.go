package kettle

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventType identifies a telemetry event emitted by the client
type EventType string

const (
	EventFillAttempt              EventType = "fill_attempt"
	EventFillSuccess              EventType = "fill_success"
	EventTransportFault           EventType = "transport_fault"
	EventTimeout                  EventType = "timeout"
	EventMalformedFrame           EventType = "malformed_frame"
	EventAuthMismatch             EventType = "auth_mismatch"
	EventAuthenticated            EventType = "authenticated"
	EventUnrecognizedNotification EventType = "unrecognized_notification"
	EventBackoffArmed             EventType = "backoff_armed"
	EventAttemptFailed            EventType = "attempt_failed"
)

// Event is a single telemetry record
type Event struct {
	Type    EventType
	Time    time.Time
	Address string
	Attempt int    // 1-based fill attempt, 0 outside a fill cycle
	Handle  Handle // Notification handle, if any
	Err     error
}

// EventSink receives telemetry events (sink pattern).
// Implementations must be safe for concurrent use; Record must not block.
type EventSink interface {
	Record(Event)
}

// NopSink discards all events
type NopSink struct{}

// Record implements EventSink
func (NopSink) Record(Event) {}

// MemorySink stores events in memory (testing and inspection use)
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

// NewMemorySink creates a new in-memory event sink
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Record appends an event
func (s *MemorySink) Record(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

// Events returns a copy of all stored events
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Count returns the number of stored events of type t
func (s *MemorySink) Count(t EventType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// LogSink writes events to a zap logger at debug level
type LogSink struct {
	Logger *zap.Logger
}

// Record implements EventSink
func (s LogSink) Record(e Event) {
	if s.Logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("event", string(e.Type)),
		zap.String("address", e.Address),
	}
	if e.Attempt > 0 {
		fields = append(fields, zap.Int("attempt", e.Attempt))
	}
	if e.Handle != 0 {
		fields = append(fields, zap.Uint16("handle", uint16(e.Handle)))
	}
	if e.Err != nil {
		fields = append(fields, zap.Error(e.Err))
	}
	s.Logger.Debug("Kettle event", fields...)
}
