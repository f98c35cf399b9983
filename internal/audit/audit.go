package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"
)

// Kind enumerates the recorded authentication events.
type Kind string

const (
	KindLogin                        Kind = "login"
	KindFailedLogin                  Kind = "failed_login"
	KindLogout                       Kind = "logout"
	KindTOTPLogin                    Kind = "totp_login"
	KindTOTPLoginPendingVerification Kind = "totp_login_pending_verification"
	KindTOTPFailedLogin              Kind = "totp_failed_login"
)

// ErrSinkUnavailable wraps failures of a sink backend.
var ErrSinkUnavailable = errors.New("audit sink unavailable")

// Event is one audit record. Events are never mutated after Append.
type Event struct {
	ID        string            `json:"id"`
	Kind      Kind              `json:"kind"`
	UserID    string            `json:"user_id,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink appends events.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// MemorySink stores events in memory.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of everything appended so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Count returns how many events of kind were appended.
func (s *MemorySink) Count(kind Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Append(_ context.Context, event Event) error {
	if s == nil || s.writer == nil {
		return ErrSinkUnavailable
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.writer.Write(data); err != nil {
		return errors.Join(ErrSinkUnavailable, err)
	}
	return nil
}

// MultiSink appends each event to every sink in order and stops at the first
// failure. Sinks ahead of the failing one keep the event.
type MultiSink struct {
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	out := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &MultiSink{sinks: out}
}

func (m *MultiSink) Append(ctx context.Context, event Event) error {
	if m == nil || len(m.sinks) == 0 {
		return ErrSinkUnavailable
	}
	for _, s := range m.sinks {
		if err := s.Append(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
