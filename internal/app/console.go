// Package app wires configuration, transport, the transcript archive and rendering
// together for the command line front-ends. A Console is built once per process and
// hands out chat clients bound to the selected profile.
package app

import (
	"fmt"
	"sync"

	"github.com/xperiencelabs/archat/internal/chat"
	"github.com/xperiencelabs/archat/internal/config"
	"github.com/xperiencelabs/archat/internal/content"
	apperrors "github.com/xperiencelabs/archat/internal/errors"
	"github.com/xperiencelabs/archat/internal/interfaces"
	"github.com/xperiencelabs/archat/internal/logging"
	"github.com/xperiencelabs/archat/internal/protocol"
	"github.com/xperiencelabs/archat/internal/transcript"
)

// TemporaryProfileName names the profile synthesized from --host
const TemporaryProfileName = "temporary"

// Overrides carries the command line selections that take precedence over the profiles file
type Overrides struct {
	Profile string
	Host    string
	Theme   string
}

// Dependencies holds the injected services a Console is built from
type Dependencies struct {
	ConfigManager interfaces.ConfigManager
	Logger        *logging.Logger
	// OpenStore opens the transcript archive. Defaults to transcript.NewStore.
	OpenStore func(interfaces.TranscriptConfig) (interfaces.TranscriptStore, error)
}

// Console is the resolved runtime of one archat invocation
type Console struct {
	deps      Dependencies
	profile   *interfaces.Profile
	theme     *interfaces.Theme
	endpoints protocol.Endpoints
	transport *protocol.Client

	storeOnce sync.Once
	store     interfaces.TranscriptStore
	storeErr  error
}

// NewConsole resolves the profile and theme and prepares the transport
func NewConsole(deps Dependencies, overrides Overrides) (*Console, error) {
	if deps.ConfigManager == nil {
		return nil, fmt.Errorf("config manager is required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.GetGlobalLogger()
	}
	if deps.OpenStore == nil {
		deps.OpenStore = transcript.NewStore
	}

	profile, err := DetermineProfile(deps.ConfigManager, overrides)
	if err != nil {
		return nil, err
	}

	theme, err := deps.ConfigManager.LoadTheme(profile.Theme)
	if err != nil {
		deps.Logger.Warn("Theme not found, using defaults", "theme", profile.Theme)
		theme = nil
	}

	deps.Logger.Info("Console initialized",
		"profile", profile.Name,
		"host", profile.Host,
		"transcript", profile.Transcript.Backend)

	return &Console{
		deps:      deps,
		profile:   profile,
		theme:     theme,
		endpoints: protocol.EndpointsFor(profile),
		transport: protocol.NewClient(protocol.WithAuth(&profile.Auth)),
	}, nil
}

// DetermineProfile picks the profile named by overrides, or synthesizes one for an
// explicit host. Host and profile are mutually exclusive.
func DetermineProfile(mgr interfaces.ConfigManager, overrides Overrides) (*interfaces.Profile, error) {
	if overrides.Host != "" && overrides.Profile != "" {
		return nil, apperrors.NewValidationError("app").
			WithMessage("cannot specify both --host and --profile").
			WithOperation("determine_profile").
			Silent().
			Build()
	}

	var profile *interfaces.Profile
	if overrides.Host != "" {
		temporary := config.DefaultProfile()
		if err := config.ApplyEnvOverrides(&temporary); err != nil {
			return nil, err
		}
		temporary.Name = TemporaryProfileName
		temporary.Host = overrides.Host
		profile = &temporary
	} else {
		name := overrides.Profile
		if name == "" {
			name = config.DefaultProfileName
		}
		loaded, err := mgr.LoadProfile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to load profile '%s': %w", name, err)
		}
		profile = loaded
	}

	if overrides.Theme != "" {
		profile.Theme = overrides.Theme
	}
	if err := mgr.ValidateProfile(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// Profile returns the resolved profile
func (c *Console) Profile() *interfaces.Profile {
	return c.profile
}

// Theme returns the resolved theme, nil when the profile names an unknown one
func (c *Console) Theme() *interfaces.Theme {
	return c.theme
}

// Endpoints returns the server URLs of the profile
func (c *Console) Endpoints() protocol.Endpoints {
	return c.endpoints
}

// Transport returns the shared HTTP transport
func (c *Console) Transport() interfaces.Transport {
	return c.transport
}

// Renderer creates a renderer styled by the profile theme
func (c *Console) Renderer() *content.Renderer {
	return content.NewRenderer(c.theme, c.endpoints.ResolveAsset)
}

// Store opens the transcript archive on first use
func (c *Console) Store() (interfaces.TranscriptStore, error) {
	c.storeOnce.Do(func() {
		c.storeErr = c.deps.Logger.LogOperation("open transcript store", func() error {
			var err error
			c.store, err = c.deps.OpenStore(c.profile.Transcript)
			return err
		})
	})
	return c.store, c.storeErr
}

// Archive returns the store for a chat, or nil when it cannot be opened. Chats run
// without archiving rather than fail.
func (c *Console) Archive() interfaces.TranscriptStore {
	store, err := c.Store()
	if err != nil {
		c.deps.Logger.Warn("Transcript archive unavailable", "backend", c.profile.Transcript.Backend, "error", err)
		return nil
	}
	return store
}

// NewClient creates a chat client for the profile that reports to sink
func (c *Console) NewClient(sink interfaces.EventSink) *chat.Client {
	return chat.NewClient(c.transport, sink, chat.Options{
		Endpoints:      c.endpoints,
		RequestTimeout: c.profile.RequestTimeout,
		Store:          c.Archive(),
	})
}

// Close releases the archive and idle connections
func (c *Console) Close() error {
	stats := c.transport.Statistics()
	c.deps.Logger.Debug("Transport statistics",
		"requests", stats.TotalRequests,
		"failed", stats.FailedRequests,
		"avg_response", stats.AverageResponseTime,
	)
	c.transport.CloseIdleConnections()
	if c.store != nil && c.storeErr == nil {
		return c.store.Close()
	}
	return nil
}
