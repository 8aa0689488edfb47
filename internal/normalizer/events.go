package normalizer

import "fmt"

// EventKind discriminates the variants of Event
type EventKind int

const (
	KindSessionUpdated EventKind = iota
	KindTextReply
	KindImageReply
	KindScrapedTextReply
	KindFailure
)

func (k EventKind) String() string {
	switch k {
	case KindSessionUpdated:
		return "session_updated"
	case KindTextReply:
		return "text_reply"
	case KindImageReply:
		return "image_reply"
	case KindScrapedTextReply:
		return "scraped_text_reply"
	case KindFailure:
		return "failure"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Event is one normalized observation extracted from a server response.
// Only the fields relevant to Kind are populated.
type Event struct {
	Kind      EventKind
	SessionID string
	Text      string
	Image2D   string
	Image3D   string
	// Derived is set when Image3D was computed from Image2D rather than supplied by the server
	Derived bool
	Reason  string
	// Server is set on a Failure the server reported in its own error field
	Server bool
}

// SessionUpdated creates a session rotation event
func SessionUpdated(id string) Event {
	return Event{Kind: KindSessionUpdated, SessionID: id}
}

// TextReply creates an assistant text event
func TextReply(text string) Event {
	return Event{Kind: KindTextReply, Text: text}
}

// ImageReply creates an image event with both references
func ImageReply(image2D, image3D string, derived bool) Event {
	return Event{Kind: KindImageReply, Image2D: image2D, Image3D: image3D, Derived: derived}
}

// ScrapedTextReply creates a fallback text event
func ScrapedTextReply(text string) Event {
	return Event{Kind: KindScrapedTextReply, Text: text}
}

// Failure creates a failure event
func Failure(reason string) Event {
	return Event{Kind: KindFailure, Reason: reason}
}

// ServerFailure creates a failure event for an error the server reported
func ServerFailure(reason string) Event {
	return Event{Kind: KindFailure, Reason: reason, Server: true}
}

func (e Event) String() string {
	switch e.Kind {
	case KindSessionUpdated:
		return fmt.Sprintf("SessionUpdated(%s)", e.SessionID)
	case KindTextReply:
		return fmt.Sprintf("TextReply(%q)", e.Text)
	case KindImageReply:
		return fmt.Sprintf("ImageReply(%s, %s)", e.Image2D, e.Image3D)
	case KindScrapedTextReply:
		return fmt.Sprintf("ScrapedTextReply(%q)", e.Text)
	case KindFailure:
		return fmt.Sprintf("Failure(%s)", e.Reason)
	default:
		return e.Kind.String()
	}
}

// Events is the ordered result of normalizing one response
type Events []Event

// SessionIDs returns the ids of all SessionUpdated events in order
func (es Events) SessionIDs() []string {
	var ids []string
	for _, e := range es {
		if e.Kind == KindSessionUpdated {
			ids = append(ids, e.SessionID)
		}
	}
	return ids
}

// Failures returns the reasons of all Failure events in order
func (es Events) Failures() []string {
	var reasons []string
	for _, e := range es {
		if e.Kind == KindFailure {
			reasons = append(reasons, e.Reason)
		}
	}
	return reasons
}

// Without returns the events whose kind differs from kind, preserving order
func (es Events) Without(kind EventKind) Events {
	out := make(Events, 0, len(es))
	for _, e := range es {
		if e.Kind != kind {
			out = append(out, e)
		}
	}
	return out
}

// Count returns how many events have the given kind
func (es Events) Count(kind EventKind) int {
	n := 0
	for _, e := range es {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
