package chat

import (
	"sync"

	"github.com/xperiencelabs/archat/internal/interfaces"
)

// SinkEvent is one call observed by a RecordingSink
type SinkEvent struct {
	Kind    string
	Message interfaces.ChatMessage
	Reason  string
}

// Names of recorded sink calls
const (
	SinkSessionReady           = "session_ready"
	SinkMessage                = "message"
	SinkVisualizationAvailable = "visualization_available"
	SinkError                  = "error"
)

// RecordingSink is an EventSink that remembers every call, in order
type RecordingSink struct {
	mu     sync.Mutex
	events []SinkEvent
}

func (r *RecordingSink) record(e SinkEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *RecordingSink) OnSessionReady() {
	r.record(SinkEvent{Kind: SinkSessionReady})
}

func (r *RecordingSink) OnMessage(msg interfaces.ChatMessage) {
	r.record(SinkEvent{Kind: SinkMessage, Message: msg})
}

func (r *RecordingSink) OnVisualizationAvailable() {
	r.record(SinkEvent{Kind: SinkVisualizationAvailable})
}

func (r *RecordingSink) OnError(reason string) {
	r.record(SinkEvent{Kind: SinkError, Reason: reason})
}

// Events returns a copy of everything recorded so far
func (r *RecordingSink) Events() []SinkEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SinkEvent(nil), r.events...)
}

// Kinds returns the sequence of recorded call names
func (r *RecordingSink) Kinds() []string {
	events := r.Events()
	kinds := make([]string, len(events))
	for i, e := range events {
		kinds[i] = e.Kind
	}
	return kinds
}

// Messages returns only the recorded chat messages
func (r *RecordingSink) Messages() []interfaces.ChatMessage {
	var out []interfaces.ChatMessage
	for _, e := range r.Events() {
		if e.Kind == SinkMessage {
			out = append(out, e.Message)
		}
	}
	return out
}

// Errors returns only the recorded failure reasons
func (r *RecordingSink) Errors() []string {
	var out []string
	for _, e := range r.Events() {
		if e.Kind == SinkError {
			out = append(out, e.Reason)
		}
	}
	return out
}
