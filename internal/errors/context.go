// Package errors provides the error taxonomy of the session client. Every failure that
// crosses a package boundary is a ContextualError carrying its type, severity and whether
// the conversation can continue after it.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/xperiencelabs/archat/internal/logging"
)

// ErrorType categorizes different types of errors for appropriate handling
type ErrorType string

const (
	ErrorTypeNetwork       ErrorType = "network"
	ErrorTypeProtocol      ErrorType = "protocol"
	ErrorTypeParse         ErrorType = "parse"
	ErrorTypeState         ErrorType = "state"
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeTimeout       ErrorType = "timeout"
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeStorage       ErrorType = "storage"
	ErrorTypeCanceled      ErrorType = "canceled"
)

// ErrorSeverity indicates the impact level of an error
type ErrorSeverity string

const (
	SeverityLow      ErrorSeverity = "low"
	SeverityMedium   ErrorSeverity = "medium"
	SeverityHigh     ErrorSeverity = "high"
	SeverityCritical ErrorSeverity = "critical"
)

// ContextualError provides enhanced error information with diagnostic context
type ContextualError struct {
	Type        ErrorType              `json:"type"`
	Severity    ErrorSeverity          `json:"severity"`
	Message     string                 `json:"message"`
	UserMessage string                 `json:"userMessage,omitempty"`
	Code        string                 `json:"code,omitempty"`
	Component   string                 `json:"component"`
	Operation   string                 `json:"operation,omitempty"`
	Context     map[string]interface{} `json:"context,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
	Cause       error                  `json:"-"`
	Recoverable bool                   `json:"recoverable"`
}

// Error implements the error interface
func (e *ContextualError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Component, e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Component, e.Type, e.Message)
}

// Unwrap provides access to the underlying error
func (e *ContextualError) Unwrap() error {
	return e.Cause
}

// GetUserMessage returns a user-friendly error message
func (e *ContextualError) GetUserMessage() string {
	if e.UserMessage != "" {
		return e.UserMessage
	}
	return e.Message
}

// IsRecoverable indicates if the conversation can continue after this error
func (e *ContextualError) IsRecoverable() bool {
	return e.Recoverable
}

// ErrorBuilder provides a fluent interface for creating contextual errors
type ErrorBuilder struct {
	err    *ContextualError
	logger *logging.Logger
	silent bool
}

// NewErrorBuilder creates a new error builder with default settings
func NewErrorBuilder(errorType ErrorType, component string) *ErrorBuilder {
	return &ErrorBuilder{
		err: &ContextualError{
			Type:        errorType,
			Severity:    SeverityMedium,
			Component:   component,
			Context:     make(map[string]interface{}),
			Timestamp:   time.Now(),
			Recoverable: true,
		},
		logger: logging.GetGlobalLogger().WithComponent(component),
	}
}

// WithSeverity sets the error severity level
func (eb *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	eb.err.Severity = severity
	return eb
}

// WithMessage sets the technical error message
func (eb *ErrorBuilder) WithMessage(message string) *ErrorBuilder {
	eb.err.Message = message
	return eb
}

// WithMessagef sets the technical error message from a format string
func (eb *ErrorBuilder) WithMessagef(format string, args ...interface{}) *ErrorBuilder {
	eb.err.Message = fmt.Sprintf(format, args...)
	return eb
}

// WithUserMessage sets a user-friendly error message
func (eb *ErrorBuilder) WithUserMessage(userMessage string) *ErrorBuilder {
	eb.err.UserMessage = userMessage
	return eb
}

// WithCode sets an error code for categorization
func (eb *ErrorBuilder) WithCode(code string) *ErrorBuilder {
	eb.err.Code = code
	return eb
}

// WithOperation sets the operation that failed
func (eb *ErrorBuilder) WithOperation(operation string) *ErrorBuilder {
	eb.err.Operation = operation
	return eb
}

// WithCause sets the underlying error that caused this error
func (eb *ErrorBuilder) WithCause(cause error) *ErrorBuilder {
	eb.err.Cause = cause
	return eb
}

// WithContext adds contextual information to the error
func (eb *ErrorBuilder) WithContext(key string, value interface{}) *ErrorBuilder {
	eb.err.Context[key] = value
	return eb
}

// WithRecoverable sets whether the error is recoverable
func (eb *ErrorBuilder) WithRecoverable(recoverable bool) *ErrorBuilder {
	eb.err.Recoverable = recoverable
	return eb
}

// Silent suppresses logging when the error is built
func (eb *ErrorBuilder) Silent() *ErrorBuilder {
	eb.silent = true
	return eb
}

// Build creates the contextual error and logs it appropriately
func (eb *ErrorBuilder) Build() *ContextualError {
	if eb.silent {
		return eb.err
	}

	logFields := map[string]interface{}{
		"error_type":  eb.err.Type,
		"severity":    eb.err.Severity,
		"recoverable": eb.err.Recoverable,
	}
	if eb.err.Operation != "" {
		logFields["operation"] = eb.err.Operation
	}
	if eb.err.Code != "" {
		logFields["error_code"] = eb.err.Code
	}
	for k, v := range eb.err.Context {
		logFields["ctx_"+k] = v
	}

	logMessage := eb.err.Message
	if eb.err.Cause != nil {
		logMessage = fmt.Sprintf("%s: %v", eb.err.Message, eb.err.Cause)
	}

	loggerWithFields := eb.logger.WithFields(logFields)

	switch eb.err.Severity {
	case SeverityCritical, SeverityHigh:
		loggerWithFields.Error(logMessage)
	case SeverityMedium:
		loggerWithFields.Warn(logMessage)
	case SeverityLow:
		loggerWithFields.Debug(logMessage)
	}

	return eb.err
}

// Component-specific error builders
func NewNetworkError(component string) *ErrorBuilder {
	return NewErrorBuilder(ErrorTypeNetwork, component).WithSeverity(SeverityMedium)
}

func NewProtocolError(component string) *ErrorBuilder {
	return NewErrorBuilder(ErrorTypeProtocol, component).WithSeverity(SeverityHigh)
}

func NewParseError(component string) *ErrorBuilder {
	return NewErrorBuilder(ErrorTypeParse, component).WithSeverity(SeverityMedium)
}

func NewStateError(component string) *ErrorBuilder {
	return NewErrorBuilder(ErrorTypeState, component).WithSeverity(SeverityMedium)
}

func NewValidationError(component string) *ErrorBuilder {
	return NewErrorBuilder(ErrorTypeValidation, component).WithSeverity(SeverityLow)
}

func NewTimeoutError(component string) *ErrorBuilder {
	return NewErrorBuilder(ErrorTypeTimeout, component).WithSeverity(SeverityMedium)
}

func NewConfigurationError(component string) *ErrorBuilder {
	return NewErrorBuilder(ErrorTypeConfiguration, component).WithSeverity(SeverityHigh)
}

func NewStorageError(component string) *ErrorBuilder {
	return NewErrorBuilder(ErrorTypeStorage, component).WithSeverity(SeverityMedium)
}

func NewCanceledError(component string) *ErrorBuilder {
	return NewErrorBuilder(ErrorTypeCanceled, component).WithSeverity(SeverityLow)
}

// IsType reports whether err is, or wraps, a ContextualError of the given type
func IsType(err error, errorType ErrorType) bool {
	var ce *ContextualError
	if stderrors.As(err, &ce) {
		return ce.Type == errorType
	}
	return false
}

// ErrorChain represents a sequence of related errors
type ErrorChain struct {
	errors []error
	logger *logging.Logger
}

// NewErrorChain creates a new error chain
func NewErrorChain(logger *logging.Logger) *ErrorChain {
	return &ErrorChain{
		errors: make([]error, 0),
		logger: logger,
	}
}

// Add appends an error to the chain
func (ec *ErrorChain) Add(err error) *ErrorChain {
	if err != nil {
		ec.errors = append(ec.errors, err)
		if ec.logger != nil {
			ec.logger.Debug("Error added to chain", "error", err.Error(), "chain_length", len(ec.errors))
		}
	}
	return ec
}

// HasErrors returns true if the chain contains any errors
func (ec *ErrorChain) HasErrors() bool {
	return len(ec.errors) > 0
}

// GetErrors returns all errors in the chain
func (ec *ErrorChain) GetErrors() []error {
	return ec.errors
}

// GetFirst returns the first error in the chain
func (ec *ErrorChain) GetFirst() error {
	if len(ec.errors) > 0 {
		return ec.errors[0]
	}
	return nil
}

// ToCombinedError creates a single error that represents the entire chain
func (ec *ErrorChain) ToCombinedError(errorType ErrorType, component string) *ContextualError {
	if !ec.HasErrors() {
		return nil
	}

	messages := make([]string, len(ec.errors))
	for i, err := range ec.errors {
		messages[i] = err.Error()
	}

	return NewErrorBuilder(errorType, component).
		WithMessage(fmt.Sprintf("multiple errors occurred: %s", strings.Join(messages, "; "))).
		WithUserMessage(fmt.Sprintf("%d errors occurred during operation", len(ec.errors))).
		WithCause(ec.GetFirst()).
		WithContext("error_count", len(ec.errors)).
		Build()
}
