// Package transcript archives conversation transcripts so they survive the process.
package transcript

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/xperiencelabs/archat/internal/errors"
	"github.com/xperiencelabs/archat/internal/interfaces"
)

const component = "transcript"

// Supported backends
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// DefaultDatabasePath returns where the sqlite backend keeps its file when no path is configured
func DefaultDatabasePath() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataHome = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataHome, "archat", "transcripts.db"), nil
}

// NewStore opens the backend selected by cfg
func NewStore(cfg interfaces.TranscriptConfig) (interfaces.TranscriptStore, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		path := cfg.Path
		if path == "" {
			defaultPath, err := DefaultDatabasePath()
			if err != nil {
				return nil, apperrors.NewConfigurationError(component).
					WithMessage("cannot resolve transcript database path").
					WithCause(err).
					Build()
			}
			path = defaultPath
		}
		store, err := OpenSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendRedis:
		return NewRedisStore(cfg), nil
	default:
		return nil, apperrors.NewConfigurationError(component).
			WithMessagef("unknown transcript backend %q", cfg.Backend).
			WithUserMessage(fmt.Sprintf("unknown transcript backend %q", cfg.Backend)).
			WithContext("backend", cfg.Backend).
			Build()
	}
}

func storageError(operation string, err error) error {
	return apperrors.NewStorageError(component).
		WithMessagef("transcript %s failed", operation).
		WithOperation(operation).
		WithCause(err).
		WithRecoverable(true).
		Silent().
		Build()
}

func notFound(conversationID string) error {
	return apperrors.NewStorageError(component).
		WithMessagef("conversation %s not found", conversationID).
		WithUserMessage(fmt.Sprintf("conversation %s not found", conversationID)).
		WithCode("not_found").
		WithOperation("load").
		Silent().
		Build()
}

// IsNotFound reports whether err signals an unknown conversation
func IsNotFound(err error) bool {
	var ce *apperrors.ContextualError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == "not_found"
}

// stamp returns the message timestamp, or now for messages created without one
func stamp(msg interfaces.ChatMessage) time.Time {
	if msg.Timestamp.IsZero() {
		return time.Now()
	}
	return msg.Timestamp
}
