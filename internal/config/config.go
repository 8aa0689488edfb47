// Package config manages archat profiles: where the recommendation server lives, how to
// authenticate, where transcripts go and which theme the terminal uses. Profiles live in a
// YAML file with secrets encrypted at rest, and can be overridden from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lpernett/godotenv"
	"gopkg.in/yaml.v3"

	apperrors "github.com/xperiencelabs/archat/internal/errors"
	"github.com/xperiencelabs/archat/internal/interfaces"
	"github.com/xperiencelabs/archat/internal/logging"
	"github.com/xperiencelabs/archat/internal/protocol"
	"github.com/xperiencelabs/archat/internal/transcript"
)

const component = "config"

// DefaultProfileName is used when no profile is selected
const DefaultProfileName = "default"

// Authentication types
const (
	AuthNone   = "none"
	AuthBearer = "bearer"
)

// Environment variables that override the selected profile
const (
	EnvHost           = "ARCHAT_HOST"
	EnvScheme         = "ARCHAT_SCHEME"
	EnvUploadURL      = "ARCHAT_UPLOAD_URL"
	EnvStaticPath     = "ARCHAT_STATIC_PATH"
	EnvToken          = "ARCHAT_TOKEN"
	EnvTimeout        = "ARCHAT_REQUEST_TIMEOUT"
	EnvTheme          = "ARCHAT_THEME"
	EnvTranscript     = "ARCHAT_TRANSCRIPT"
	EnvTranscriptPath = "ARCHAT_TRANSCRIPT_PATH"
	EnvRedisAddr      = "ARCHAT_REDIS_ADDR"
	EnvRedisPassword  = "ARCHAT_REDIS_PASSWORD"
	EnvRedisDB        = "ARCHAT_REDIS_DB"
)

// Config represents the complete configuration file structure
type Config struct {
	Profiles map[string]interfaces.Profile `yaml:"profiles"`
	Themes   map[string]interfaces.Theme   `yaml:"themes"`
}

// Manager implements interfaces.ConfigManager on top of a YAML file
type Manager struct {
	configPath   string
	securityMgr  SecurityManager
	cachedConfig *Config
	logger       *logging.Logger
}

// NewManager uses the XDG config and data directories
func NewManager() (*Manager, error) {
	configPath, err := DefaultConfigPath()
	if err != nil {
		return nil, configError("resolve_path", "failed to determine configuration path", err)
	}

	securityMgr, err := NewSecurityManager()
	if err != nil {
		return nil, configError("init_security", "failed to initialize security manager", err)
	}

	return NewManagerWith(configPath, securityMgr)
}

// NewManagerWith creates a manager for an explicit file and security manager
func NewManagerWith(configPath string, securityMgr SecurityManager) (*Manager, error) {
	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return nil, configError("init", "failed to create configuration directory", err)
	}
	return &Manager{
		configPath:  configPath,
		securityMgr: securityMgr,
		logger:      logging.GetConfigLogger(),
	}, nil
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/archat/profiles.yaml
func DefaultConfigPath() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine home directory: %w", err)
		}
		configHome = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configHome, "archat", "profiles.yaml"), nil
}

// LoadDotEnv loads variables from .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			existing = append(existing, path)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return configError("load_env", "failed to load .env file", err)
	}
	return nil
}

func (m *Manager) loadConfig() (*Config, error) {
	if m.cachedConfig != nil {
		return m.cachedConfig, nil
	}

	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		config := createDefaultConfig()
		if err := m.saveConfig(config); err != nil {
			return nil, err
		}
		m.logger.Info("Created default configuration", "path", m.configPath)
		m.cachedConfig = config
		return config, nil
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return nil, configError("read", "failed to read configuration file", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, configError("parse", "failed to parse configuration file", err)
	}
	if config.Themes == nil {
		config.Themes = defaultThemes()
	}

	for name, profile := range config.Profiles {
		if err := m.transformSecrets(&profile, m.securityMgr.DecryptCredential); err != nil {
			return nil, configError("decrypt", fmt.Sprintf("failed to decrypt secrets of profile %s", name), err)
		}
		config.Profiles[name] = profile
	}

	m.cachedConfig = &config
	return &config, nil
}

// transformSecrets applies fn to every secret a profile carries
func (m *Manager) transformSecrets(profile *interfaces.Profile, fn func(string) (string, error)) error {
	if profile.Auth.Type == AuthBearer && profile.Auth.Token != "" {
		token, err := fn(profile.Auth.Token)
		if err != nil {
			return fmt.Errorf("token: %w", err)
		}
		profile.Auth.Token = token
	}
	if profile.Transcript.RedisPassword != "" {
		password, err := fn(profile.Transcript.RedisPassword)
		if err != nil {
			return fmt.Errorf("redis password: %w", err)
		}
		profile.Transcript.RedisPassword = password
	}
	return nil
}

func (m *Manager) saveConfig(config *Config) error {
	configCopy := *config
	configCopy.Profiles = make(map[string]interfaces.Profile, len(config.Profiles))

	for name, profile := range config.Profiles {
		profileCopy := profile
		if err := m.transformSecrets(&profileCopy, m.securityMgr.EncryptCredential); err != nil {
			return configError("encrypt", fmt.Sprintf("failed to encrypt secrets of profile %s", name), err)
		}
		configCopy.Profiles[name] = profileCopy
	}

	data, err := yaml.Marshal(&configCopy)
	if err != nil {
		return configError("marshal", "failed to marshal configuration", err)
	}
	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		return configError("write", "failed to write configuration file", err)
	}
	return nil
}

// DefaultProfile is the profile written on first use
func DefaultProfile() interfaces.Profile {
	return interfaces.Profile{
		Name:           DefaultProfileName,
		Host:           "localhost:8000",
		Scheme:         "http",
		StaticPath:     protocol.StaticPath,
		RequestTimeout: protocol.DefaultRequestTimeout,
		Theme:          "github",
		Auth:           interfaces.AuthConfig{Type: AuthNone},
		Transcript:     interfaces.TranscriptConfig{Backend: transcript.BackendSQLite},
	}
}

func defaultThemes() map[string]interfaces.Theme {
	return map[string]interfaces.Theme{
		"github": {
			Name:      "github",
			Sent:      "#0366d6",
			Received:  "#24292e",
			Error:     "#dc3545",
			Info:      "#6a737d",
			Highlight: "github",
		},
		"monokai": {
			Name:      "monokai",
			Sent:      "#66d9ef",
			Received:  "#f8f8f2",
			Error:     "#f92672",
			Info:      "#a6e22e",
			Highlight: "monokai",
		},
	}
}

func createDefaultConfig() *Config {
	return &Config{
		Profiles: map[string]interfaces.Profile{DefaultProfileName: DefaultProfile()},
		Themes:   defaultThemes(),
	}
}

// LoadProfile retrieves a profile by name, applies environment overrides and validates it
func (m *Manager) LoadProfile(name string) (*interfaces.Profile, error) {
	if name == "" {
		name = DefaultProfileName
	}

	config, err := m.loadConfig()
	if err != nil {
		return nil, err
	}

	profile, exists := config.Profiles[name]
	if !exists {
		return nil, apperrors.NewConfigurationError(component).
			WithMessagef("profile '%s' not found", name).
			WithUserMessage(fmt.Sprintf("profile '%s' not found", name)).
			WithOperation("load_profile").
			WithCode("profile_not_found").
			Build()
	}
	profile.Name = name

	if err := ApplyEnvOverrides(&profile); err != nil {
		return nil, err
	}
	if err := m.ValidateProfile(&profile); err != nil {
		return nil, err
	}

	m.logger.LogConfigLoad(m.configPath, name)
	return &profile, nil
}

// ApplyEnvOverrides replaces profile fields with any ARCHAT_* variables that are set
func ApplyEnvOverrides(profile *interfaces.Profile) error {
	stringOverrides := []struct {
		env    string
		target *string
	}{
		{EnvHost, &profile.Host},
		{EnvScheme, &profile.Scheme},
		{EnvUploadURL, &profile.UploadURL},
		{EnvStaticPath, &profile.StaticPath},
		{EnvTheme, &profile.Theme},
		{EnvTranscript, &profile.Transcript.Backend},
		{EnvTranscriptPath, &profile.Transcript.Path},
		{EnvRedisAddr, &profile.Transcript.RedisAddr},
		{EnvRedisPassword, &profile.Transcript.RedisPassword},
	}
	for _, o := range stringOverrides {
		if v, ok := os.LookupEnv(o.env); ok && v != "" {
			*o.target = v
		}
	}

	if token := os.Getenv(EnvToken); token != "" {
		profile.Auth = interfaces.AuthConfig{Type: AuthBearer, Token: token}
	}

	if v := os.Getenv(EnvTimeout); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return configError("env", fmt.Sprintf("invalid %s", EnvTimeout), err)
		}
		profile.RequestTimeout = timeout
	}

	if v := os.Getenv(EnvRedisDB); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return configError("env", fmt.Sprintf("invalid %s", EnvRedisDB), err)
		}
		profile.Transcript.RedisDB = db
	}
	return nil
}

// SaveProfile persists a profile to the configuration file
func (m *Manager) SaveProfile(profile *interfaces.Profile) error {
	if err := m.ValidateProfile(profile); err != nil {
		return err
	}

	config, err := m.loadConfig()
	if err != nil {
		return err
	}
	if config.Profiles == nil {
		config.Profiles = make(map[string]interfaces.Profile)
	}
	config.Profiles[profile.Name] = *profile

	if err := m.saveConfig(config); err != nil {
		return err
	}
	m.cachedConfig = config
	return nil
}

// ListProfiles returns all profile names in sorted order
func (m *Manager) ListProfiles() ([]string, error) {
	config, err := m.loadConfig()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(config.Profiles))
	for name := range config.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// LoadTheme retrieves theme configuration by name
func (m *Manager) LoadTheme(name string) (*interfaces.Theme, error) {
	config, err := m.loadConfig()
	if err != nil {
		return nil, err
	}

	theme, exists := config.Themes[name]
	if !exists {
		return nil, apperrors.NewConfigurationError(component).
			WithMessagef("theme '%s' not found", name).
			WithUserMessage(fmt.Sprintf("theme '%s' not found", name)).
			WithOperation("load_theme").
			Silent().
			Build()
	}
	theme.Name = name
	return &theme, nil
}

// ValidateProfile ensures the profile can be used to reach a server
func (m *Manager) ValidateProfile(profile *interfaces.Profile) error {
	if err := validateProfile(profile); err != nil {
		return apperrors.NewConfigurationError(component).
			WithMessage(err.Error()).
			WithUserMessage(err.Error()).
			WithOperation("validate").
			Silent().
			Build()
	}
	if m.securityMgr != nil {
		if err := m.securityMgr.ValidateTokenFormat(profile.Auth.Token, profile.Auth.Type); err != nil {
			return apperrors.NewConfigurationError(component).
				WithMessagef("invalid credentials: %v", err).
				WithUserMessage(err.Error()).
				WithOperation("validate").
				Silent().
				Build()
		}
	}
	return nil
}

func validateProfile(profile *interfaces.Profile) error {
	if profile == nil {
		return fmt.Errorf("profile cannot be nil")
	}
	if strings.TrimSpace(profile.Name) == "" {
		return fmt.Errorf("profile name cannot be empty")
	}
	if strings.TrimSpace(profile.Host) == "" {
		return fmt.Errorf("profile host cannot be empty")
	}
	if !hasPort(profile.Host) {
		return fmt.Errorf("host must include port (e.g., localhost:8000)")
	}

	switch profile.Scheme {
	case "", "http", "https":
	default:
		return fmt.Errorf("unsupported scheme: %s", profile.Scheme)
	}

	if profile.UploadURL != "" {
		u, err := url.Parse(profile.UploadURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("upload_url must be an absolute URL")
		}
	}

	if profile.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must be positive")
	}

	switch profile.Auth.Type {
	case "", AuthNone, AuthBearer:
	default:
		return fmt.Errorf("unsupported authentication type: %s", profile.Auth.Type)
	}

	switch profile.Transcript.Backend {
	case "", transcript.BackendMemory, transcript.BackendSQLite, transcript.BackendRedis:
	default:
		return fmt.Errorf("unsupported transcript backend: %s", profile.Transcript.Backend)
	}
	return nil
}

// hasPort accepts host:port as well as a full URL with an explicit port
func hasPort(host string) bool {
	if strings.Contains(host, "://") {
		u, err := url.Parse(host)
		return err == nil && u.Port() != ""
	}
	idx := strings.LastIndex(host, ":")
	return idx > 0 && idx < len(host)-1
}

// GetConfigPath returns the path to the configuration file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// InvalidateCache forces the next access to re-read the file
func (m *Manager) InvalidateCache() {
	m.cachedConfig = nil
}

// ForgetCredentials strips every stored token and redis password, then discards the
// encryption key. A new key is created the next time a manager starts.
func (m *Manager) ForgetCredentials() (int, error) {
	config, err := m.loadConfig()
	if err != nil {
		return 0, err
	}

	cleared := 0
	for name, profile := range config.Profiles {
		if profile.Auth.Token == "" && profile.Transcript.RedisPassword == "" {
			continue
		}
		profile.Auth = interfaces.AuthConfig{Type: AuthNone}
		profile.Transcript.RedisPassword = ""
		config.Profiles[name] = profile
		cleared++
	}

	if err := m.saveConfig(config); err != nil {
		return 0, err
	}
	m.cachedConfig = config

	if err := m.securityMgr.ClearSecurityData(); err != nil {
		return cleared, configError("clear_security", "failed to discard the encryption key", err)
	}
	m.logger.Info("Stored credentials forgotten", "profiles", cleared)
	return cleared, nil
}

// DeleteProfile removes a profile. The default profile cannot be deleted.
func (m *Manager) DeleteProfile(name string) error {
	if name == DefaultProfileName {
		return apperrors.NewConfigurationError(component).
			WithMessage("cannot delete the default profile").
			WithUserMessage("cannot delete the default profile").
			WithOperation("delete_profile").
			Silent().
			Build()
	}

	config, err := m.loadConfig()
	if err != nil {
		return err
	}
	if _, exists := config.Profiles[name]; !exists {
		return apperrors.NewConfigurationError(component).
			WithMessagef("profile '%s' does not exist", name).
			WithUserMessage(fmt.Sprintf("profile '%s' does not exist", name)).
			WithOperation("delete_profile").
			Silent().
			Build()
	}

	delete(config.Profiles, name)
	if err := m.saveConfig(config); err != nil {
		return err
	}
	m.cachedConfig = config
	return nil
}

func configError(operation, message string, cause error) error {
	return apperrors.NewConfigurationError(component).
		WithMessage(message).
		WithUserMessage(fmt.Sprintf("%s: %v", message, cause)).
		WithOperation(operation).
		WithCause(cause).
		Build()
}
