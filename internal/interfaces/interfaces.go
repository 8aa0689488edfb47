// Package interfaces defines the contracts shared between the session client core,
// its transport, its persistence backends and the presentation layers that consume
// the normalized chat stream.
package interfaces

import (
	"context"
	"io"
	"time"
)

// Profile represents a complete configuration profile for talking to a recommendation server
type Profile struct {
	Name           string            `yaml:"name"`
	Host           string            `yaml:"host"`
	Scheme         string            `yaml:"scheme,omitempty"`
	UploadURL      string            `yaml:"upload_url,omitempty"`
	StaticPath     string            `yaml:"static_path,omitempty"`
	RequestTimeout time.Duration     `yaml:"request_timeout,omitempty"`
	Theme          string            `yaml:"theme"`
	Auth           AuthConfig        `yaml:"auth"`
	Transcript     TranscriptConfig  `yaml:"transcript"`
	Metadata       map[string]string `yaml:"metadata,omitempty"`
}

// AuthConfig represents authentication configuration for a profile
type AuthConfig struct {
	Type  string `yaml:"type"` // "bearer", "none"
	Token string `yaml:"token,omitempty"`
}

// TranscriptConfig selects where conversations are archived
type TranscriptConfig struct {
	Backend       string        `yaml:"backend"` // "memory", "sqlite", "redis"
	Path          string        `yaml:"path,omitempty"`
	RedisAddr     string        `yaml:"redis_addr,omitempty"`
	RedisPassword string        `yaml:"redis_password,omitempty"`
	RedisDB       int           `yaml:"redis_db,omitempty"`
	TTL           time.Duration `yaml:"ttl,omitempty"`
}

// Theme represents visual styling configuration
type Theme struct {
	Name      string `yaml:"name"`
	Sent      string `yaml:"sent"`
	Received  string `yaml:"received"`
	Error     string `yaml:"error"`
	Info      string `yaml:"info"`
	Highlight string `yaml:"highlight"` // chroma style name for raw responses
}

// ConfigManager handles profile loading and persistence
type ConfigManager interface {
	// LoadProfile retrieves a profile by name with environment overrides applied
	LoadProfile(name string) (*Profile, error)

	// SaveProfile persists a profile to the configuration file
	SaveProfile(profile *Profile) error

	// ListProfiles returns all available profile names
	ListProfiles() ([]string, error)

	// LoadTheme retrieves theme configuration by name
	LoadTheme(name string) (*Theme, error)

	// ValidateProfile ensures profile has all required fields
	ValidateProfile(profile *Profile) error

	// GetConfigPath returns the path to the configuration file
	GetConfigPath() string
}

// Direction tells whether a message was produced locally or by the server
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// MessageKind distinguishes user input from assistant replies
type MessageKind string

const (
	KindPlain MessageKind = "plain"
	KindReply MessageKind = "reply"
)

// ChatMessage is one immutable entry of the conversation transcript.
// Exactly one of Text or ImageRef is expected to carry a value.
type ChatMessage struct {
	Text      string      `json:"text,omitempty" yaml:"text,omitempty"`
	ImageRef  string      `json:"image_ref,omitempty" yaml:"image_ref,omitempty"`
	Direction Direction   `json:"direction" yaml:"direction"`
	Kind      MessageKind `json:"kind" yaml:"kind"`
	Timestamp time.Time   `json:"timestamp" yaml:"timestamp"`
}

// IsEmpty reports whether the message carries neither text nor an image reference
func (m ChatMessage) IsEmpty() bool {
	return m.Text == "" && m.ImageRef == ""
}

// IsImage reports whether the message refers to an image rather than text
func (m ChatMessage) IsImage() bool {
	return m.ImageRef != ""
}

// EventSink is the boundary through which the session client reaches the presentation layer.
// Calls for a single client are delivered in order and never after the client is closed.
type EventSink interface {
	// OnSessionReady is called once the start handshake produced a session id
	OnSessionReady()

	// OnMessage is called for every message appended to the transcript
	OnMessage(msg ChatMessage)

	// OnVisualizationAvailable is called the first time an image reply is observed
	OnVisualizationAvailable()

	// OnError reports a failure reason suitable for display
	OnError(reason string)
}

// SinkFuncs adapts plain functions to EventSink. Nil fields are ignored.
type SinkFuncs struct {
	SessionReady           func()
	Message                func(msg ChatMessage)
	VisualizationAvailable func()
	Error                  func(reason string)
}

func (s SinkFuncs) OnSessionReady() {
	if s.SessionReady != nil {
		s.SessionReady()
	}
}

func (s SinkFuncs) OnMessage(msg ChatMessage) {
	if s.Message != nil {
		s.Message(msg)
	}
}

func (s SinkFuncs) OnVisualizationAvailable() {
	if s.VisualizationAvailable != nil {
		s.VisualizationAvailable()
	}
}

func (s SinkFuncs) OnError(reason string) {
	if s.Error != nil {
		s.Error(reason)
	}
}

// MultipartFile describes the single file part of an upload request
type MultipartFile struct {
	FieldName   string
	Filename    string
	ContentType string
	Body        io.Reader
}

// Transport executes raw HTTP exchanges with the recommendation server.
// Non-2xx statuses are returned as response text, not as errors.
type Transport interface {
	// PostJSON sends body encoded as JSON (or an empty body when nil)
	PostJSON(ctx context.Context, url string, body any) (string, error)

	// PostMultipart sends a multipart/form-data request with one file part
	PostMultipart(ctx context.Context, url string, file MultipartFile) (string, error)
}

// Conversation summarizes an archived transcript
type Conversation struct {
	ID           string    `json:"id" yaml:"id"`
	SessionID    string    `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	MessageCount int       `json:"message_count" yaml:"message_count"`
	StartedAt    time.Time `json:"started_at" yaml:"started_at"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
}

// TranscriptStore archives conversation transcripts. It only ever appends.
type TranscriptStore interface {
	// Append adds msg to the end of the conversation's transcript
	Append(ctx context.Context, conversationID string, msg ChatMessage) error

	// BindSession records the server session id currently associated with a conversation
	BindSession(ctx context.Context, conversationID, sessionID string) error

	// Load returns the full transcript of a conversation in append order
	Load(ctx context.Context, conversationID string) ([]ChatMessage, error)

	// List returns all archived conversations, most recently updated first
	List(ctx context.Context) ([]Conversation, error)

	// Close releases backend resources
	Close() error
}
