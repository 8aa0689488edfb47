package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestContextualErrorUnwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewNetworkError("protocol").
		WithMessage("request execution failed").
		WithCause(cause).
		Silent().
		Build()

	if !stderrors.Is(err, cause) {
		t.Error("ContextualError should unwrap to its cause")
	}
	msg := err.Error()
	if !strings.Contains(msg, "protocol:network") {
		t.Errorf("Error() should contain component and type, got: %q", msg)
	}
	if !strings.Contains(msg, "connection refused") {
		t.Errorf("Error() should contain the cause, got: %q", msg)
	}
}

func TestGetUserMessage(t *testing.T) {
	err := NewStateError("chat").WithMessage("send before start").Silent().Build()
	if got := err.GetUserMessage(); got != "send before start" {
		t.Errorf("GetUserMessage() = %q, want fallback to Message", got)
	}

	err = NewStateError("chat").WithMessage("send before start").WithUserMessage(ReasonNotInitialized).Silent().Build()
	if got := err.GetUserMessage(); got != ReasonNotInitialized {
		t.Errorf("GetUserMessage() = %q, want %q", got, ReasonNotInitialized)
	}
}

func TestIsType(t *testing.T) {
	err := NewParseError("normalizer").WithMessage(ReasonMalformedResponse).Silent().Build()
	wrapped := fmt.Errorf("chat failed: %w", err)

	if !IsType(wrapped, ErrorTypeParse) {
		t.Error("IsType should see through wrapping")
	}
	if IsType(wrapped, ErrorTypeNetwork) {
		t.Error("IsType should not match a different type")
	}
	if IsType(stderrors.New("plain"), ErrorTypeParse) {
		t.Error("IsType should be false for plain errors")
	}
}

func TestReasonOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"timeout type", NewTimeoutError("chat").WithMessage("deadline").Silent().Build(), ReasonTimeout},
		{"canceled type", NewCanceledError("chat").WithMessage("closed").Silent().Build(), ReasonCanceled},
		{"user message", NewParseError("chat").WithMessage("x").WithUserMessage(ReasonMalformedResponse).Silent().Build(), ReasonMalformedResponse},
		{"deadline exceeded", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), ReasonTimeout},
		{"context canceled", context.Canceled, ReasonCanceled},
		{"plain", stderrors.New("disk full"), "disk full"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReasonOf(tt.err); got != tt.want {
				t.Errorf("ReasonOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorChain(t *testing.T) {
	chain := NewErrorChain(nil)
	if chain.HasErrors() {
		t.Fatal("new chain should be empty")
	}
	if chain.ToCombinedError(ErrorTypeStorage, "transcript") != nil {
		t.Fatal("empty chain should not combine into an error")
	}

	first := stderrors.New("first")
	chain.Add(nil).Add(first).Add(stderrors.New("second"))

	if len(chain.GetErrors()) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(chain.GetErrors()))
	}
	combined := chain.ToCombinedError(ErrorTypeStorage, "transcript")
	if !stderrors.Is(combined, first) {
		t.Error("combined error should wrap the first error")
	}
	if !strings.Contains(combined.Message, "second") {
		t.Errorf("combined message should list every error, got %q", combined.Message)
	}
}
