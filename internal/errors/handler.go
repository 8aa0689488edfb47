package errors

import (
	"context"
	stderrors "errors"
)

// Failure reasons used by the session client when no more specific text is available.
const (
	ReasonMalformedResponse = "malformed response"
	ReasonEmptySessionID    = "empty session id"
	ReasonTimeout           = "timeout"
	ReasonNotInitialized    = "session not initialized"
	ReasonCanceled          = "canceled"
)

// ReasonOf turns any error into the short reason string handed to an event sink.
// Contextual errors contribute their user message; bare context errors map to the
// fixed timeout and cancellation reasons.
func ReasonOf(err error) string {
	if err == nil {
		return ""
	}

	var ce *ContextualError
	if stderrors.As(err, &ce) {
		switch ce.Type {
		case ErrorTypeTimeout:
			return ReasonTimeout
		case ErrorTypeCanceled:
			return ReasonCanceled
		}
		return ce.GetUserMessage()
	}

	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case stderrors.Is(err, context.Canceled):
		return ReasonCanceled
	}
	return err.Error()
}
