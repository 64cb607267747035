package events

import (
	"context"
	"errors"
	"sync"

	"github.com/segmentio/kafka-go"
)

// MockWriter records written messages instead of sending them to Kafka.
type MockWriter struct {
	mu         sync.Mutex
	Messages   []kafka.Message
	ShouldFail bool // flag to simulate failures during writes
}

func (m *MockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.ShouldFail {
		return errors.New("mock kafka write failed")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, msgs...)
	return nil
}

// Written returns a copy of the messages written so far.
func (m *MockWriter) Written() []kafka.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]kafka.Message(nil), m.Messages...)
}

func (m *MockWriter) Close() error { return nil }

// Recorder is a Publisher that keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

func (r *Recorder) Publish(ctx context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Types returns the types of the recorded events in publishing order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, len(r.Events))
	for i, e := range r.Events {
		types[i] = e.Type
	}
	return types
}
