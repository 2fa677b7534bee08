// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/nexus-tui/internal/apierr"
	"github.com/jeranaias/nexus-tui/internal/catalog"
	"github.com/jeranaias/nexus-tui/internal/conversation"
	"github.com/jeranaias/nexus-tui/internal/dispatch"
	"github.com/jeranaias/nexus-tui/internal/gateway"
	"github.com/jeranaias/nexus-tui/internal/health"
	"github.com/jeranaias/nexus-tui/internal/session"
	"github.com/jeranaias/nexus-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete nexus configuration.
type Config struct {
	Gateway  GatewayConfig  `toml:"gateway" json:"gateway"`
	Timeouts TimeoutsConfig `toml:"timeouts" json:"timeouts"`
	Health   HealthConfig   `toml:"health" json:"health"`
	Chat     ChatConfig     `toml:"chat" json:"chat"`
	Image    ImageConfig    `toml:"image" json:"image"`
	Storage  StorageConfig  `toml:"storage" json:"storage"`
	UI       UIConfig       `toml:"ui" json:"ui"`
	Log      LogConfig      `toml:"log" json:"log"`
}

// GatewayConfig describes how to reach the gateway.
type GatewayConfig struct {
	// URL is the gateway root, e.g. http://localhost:8000
	URL string `toml:"url" json:"url"`
	// RequestsPerSecond limits outbound requests (0 = unlimited)
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`
	// Burst is the limiter burst size
	Burst int `toml:"burst" json:"burst"`
	// MaxResponseBytes caps response bodies
	MaxResponseBytes int64 `toml:"max_response_bytes" json:"max_response_bytes"`
}

// TimeoutsConfig holds per-operation time budgets.
type TimeoutsConfig struct {
	Chat    Duration `toml:"chat" json:"chat"`
	Image   Duration `toml:"image" json:"image"`
	Session Duration `toml:"session" json:"session"`
}

// HealthConfig tunes the background health monitor.
type HealthConfig struct {
	Enabled      bool     `toml:"enabled" json:"enabled"`
	Interval     Duration `toml:"interval" json:"interval"`
	RetryDelay   Duration `toml:"retry_delay" json:"retry_delay"`
	ProbeTimeout Duration `toml:"probe_timeout" json:"probe_timeout"`
}

// ChatConfig holds the initial chat selection and parameters.
type ChatConfig struct {
	Model       string  `toml:"model" json:"model"`
	Provider    string  `toml:"provider" json:"provider"`
	Temperature float64 `toml:"temperature" json:"temperature"`
	MaxTokens   int     `toml:"max_tokens" json:"max_tokens"`
}

// ImageConfig holds the initial image model and parameters.
type ImageConfig struct {
	Model   string `toml:"model" json:"model"`
	Width   int    `toml:"width" json:"width"`
	Height  int    `toml:"height" json:"height"`
	Quality string `toml:"quality" json:"quality"`
	Style   string `toml:"style" json:"style"`
}

// StorageConfig controls the local session archive.
type StorageConfig struct {
	// Archive enables the local SQLite session archive
	Archive bool `toml:"archive" json:"archive"`
	// ArchivePath is the database location (empty = ~/.nexus/archive.db)
	ArchivePath string `toml:"archive_path" json:"archive_path"`
}

// Preset is a named model/provider pair selectable with one key.
type Preset struct {
	Name     string `toml:"name" json:"name"`
	Model    string `toml:"model" json:"model"`
	Provider string `toml:"provider" json:"provider"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// StartMode is the mode shown at startup: "chat" or "image"
	StartMode string   `toml:"start_mode" json:"start_mode"`
	Presets   []Preset `toml:"presets" json:"presets"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `toml:"level" json:"level"`
	// Format is "text" or "json"
	Format string `toml:"format" json:"format"`
	// File receives logs (empty = ~/.nexus/nexus.log for the TUI, stderr otherwise)
	File string `toml:"file" json:"file"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a configuration with sensible defaults.
func Default() *Config {
	chat := dispatch.DefaultChatConfig()
	image := dispatch.DefaultImageConfig("flux")
	hc := health.DefaultConfig()
	gc := gateway.DefaultConfig()

	return &Config{
		Gateway: GatewayConfig{
			URL:               gc.BaseURL,
			RequestsPerSecond: gc.RequestsPerSecond,
			Burst:             gc.Burst,
			MaxResponseBytes:  gc.MaxResponseBytes,
		},
		Timeouts: TimeoutsConfig{
			Chat:    D(dispatch.DefaultChatTimeout),
			Image:   D(dispatch.DefaultImageTimeout),
			Session: D(session.DefaultCallTimeout),
		},
		Health: HealthConfig{
			Enabled:      true,
			Interval:     D(hc.Interval),
			RetryDelay:   D(hc.RetryDelay),
			ProbeTimeout: D(hc.ProbeTimeout),
		},
		Chat: ChatConfig{
			Model:       "microsoft/phi-4",
			Provider:    "g4f.Provider.DeepInfra",
			Temperature: chat.Temperature,
			MaxTokens:   chat.MaxTokens,
		},
		Image: ImageConfig{
			Model:   image.Model,
			Width:   image.Width,
			Height:  image.Height,
			Quality: image.Quality,
			Style:   image.Style,
		},
		Storage: StorageConfig{
			Archive: true,
		},
		UI: UIConfig{
			StartMode: conversation.ModeChat.String(),
			Presets:   DefaultPresets(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultPresets returns the built-in quick-select models.
func DefaultPresets() []Preset {
	return []Preset{
		{Name: "Phi-4", Model: "microsoft/phi-4", Provider: "g4f.Provider.DeepInfra"},
		{Name: "Gemma", Model: "google/gemma-3-4b-it", Provider: "g4f.Provider.DeepInfra"},
		{Name: "Claude", Model: "anthropic/claude-4-sonnet", Provider: "g4f.Provider.DeepInfra"},
		{Name: "DeepSeek", Model: "deepseek-ai/DeepSeek-V3.1", Provider: "g4f.Provider.DeepInfra"},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the nexus configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".nexus"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DefaultLogPath returns where the TUI writes its log.
func DefaultLogPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "nexus.log"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from ~/.nexus/config.toml, falling back to
// defaults when the file does not exist. A file that exists but cannot be
// decoded yields the defaults together with the decode error.
// Environment overrides are applied last.
func Load() (*Config, error) {
	LoadDotEnv()

	path, err := ConfigPath()
	if err != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		return cfg, err
	}

	if _, statErr := os.Stat(path); statErr == nil {
		cfg, err := LoadFromPath(path)
		if err == nil {
			return cfg, nil
		}
		fallback := Default()
		fallback.ApplyEnvOverrides()
		fallback.SetDefaults()
		return fallback, err
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes the TOML file at path on top of cfg.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// LoadFromPath loads configuration from a specific file with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	// Presets from the file replace the built-in list rather than merging.
	cfg.UI.Presets = nil

	if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads .env files from the working directory and the config
// directory into the process environment. Variables already set win, and
// missing files are ignored.
func LoadDotEnv() {
	candidates := []string{".env"}
	if dir, err := ConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, ".env"))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = godotenv.Load(p)
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to the default config path.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg to path atomically with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	data, err := cfg.Encode()
	if err != nil {
		return err
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ErrConfigExists is returned by Init when the file is already present.
var ErrConfigExists = errors.New("config file already exists")

// Init writes the default configuration to path. An existing file is kept
// unless force is set.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}
	return SaveTOML(Default(), path)
}

// Encode renders cfg as a commented TOML document.
func (c *Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# nexus configuration file\n")
	buf.WriteString("# Environment: NEXUS_URL, NEXUS_MODEL, NEXUS_PROVIDER, NEXUS_IMAGE_MODEL, NEXUS_LOG_LEVEL\n\n")

	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// String returns the TOML form of the config.
func (c *Config) String() string {
	data, err := c.Encode()
	if err != nil {
		return err.Error()
	}
	return string(data)
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Gateway
	if u, err := url.Parse(c.Gateway.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("gateway.url", "invalid URL %q, must be http(s)://host[:port]", c.Gateway.URL)
	}
	if c.Gateway.RequestsPerSecond < 0 {
		add("gateway.requests_per_second", "must not be negative")
	}
	if c.Gateway.RequestsPerSecond > 0 && c.Gateway.Burst < 1 {
		add("gateway.burst", "must be at least 1 when rate limiting is enabled")
	}
	if c.Gateway.MaxResponseBytes <= 0 {
		add("gateway.max_response_bytes", "must be positive")
	}

	// Timeouts
	for field, d := range map[string]Duration{
		"timeouts.chat":        c.Timeouts.Chat,
		"timeouts.image":       c.Timeouts.Image,
		"timeouts.session":     c.Timeouts.Session,
		"health.interval":      c.Health.Interval,
		"health.retry_delay":   c.Health.RetryDelay,
		"health.probe_timeout": c.Health.ProbeTimeout,
	} {
		if d.Duration <= 0 {
			add(field, "must be positive, got %s", d)
		}
	}

	// Chat
	if c.Chat.Provider != "" && c.Chat.Model == "" {
		add("chat.provider", "set without chat.model")
	}
	if err := c.ChatParams().Validate(); err != nil {
		add("chat", "%s", detailOf(err))
	}

	// Image
	if err := c.ImageParams().Validate(); err != nil {
		add("image", "%s", detailOf(err))
	}

	// UI
	if _, err := conversation.ParseMode(c.UI.StartMode); err != nil {
		add("ui.start_mode", "invalid mode %q, must be chat or image", c.UI.StartMode)
	}
	for i, p := range c.UI.Presets {
		if p.Name == "" || p.Model == "" {
			add(fmt.Sprintf("ui.presets[%d]", i), "name and model are required")
		}
	}

	// Log
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("log.level", "invalid level %q, must be one of: debug, info, warn, error", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		add("log.format", "invalid format %q, must be text or json", c.Log.Format)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// detailOf returns the human part of a dispatch validation error.
func detailOf(err error) string {
	var ae *apierr.Error
	if errors.As(err, &ae) && ae.Detail != "" {
		return ae.Detail
	}
	return err.Error()
}

// SetDefaults fills zero values with defaults and normalises case-insensitive
// fields. Called after loading and before validation.
func (c *Config) SetDefaults() {
	d := Default()

	c.Gateway.URL = strings.TrimRight(strings.TrimSpace(c.Gateway.URL), "/")
	if c.Gateway.URL == "" {
		c.Gateway.URL = d.Gateway.URL
	}
	if c.Gateway.Burst == 0 {
		c.Gateway.Burst = d.Gateway.Burst
	}
	if c.Gateway.MaxResponseBytes == 0 {
		c.Gateway.MaxResponseBytes = d.Gateway.MaxResponseBytes
	}

	fill := func(dst *Duration, def Duration) {
		if dst.Duration == 0 {
			*dst = def
		}
	}
	fill(&c.Timeouts.Chat, d.Timeouts.Chat)
	fill(&c.Timeouts.Image, d.Timeouts.Image)
	fill(&c.Timeouts.Session, d.Timeouts.Session)
	fill(&c.Health.Interval, d.Health.Interval)
	fill(&c.Health.RetryDelay, d.Health.RetryDelay)
	fill(&c.Health.ProbeTimeout, d.Health.ProbeTimeout)

	if c.Chat.MaxTokens == 0 {
		c.Chat.MaxTokens = d.Chat.MaxTokens
	}

	if c.Image.Width == 0 {
		c.Image.Width = d.Image.Width
	}
	if c.Image.Height == 0 {
		c.Image.Height = d.Image.Height
	}
	c.Image.Quality = strings.ToLower(c.Image.Quality)
	if c.Image.Quality == "" {
		c.Image.Quality = d.Image.Quality
	}
	c.Image.Style = strings.ToLower(c.Image.Style)
	if c.Image.Style == "" {
		c.Image.Style = d.Image.Style
	}

	c.UI.StartMode = strings.ToLower(c.UI.StartMode)
	if c.UI.StartMode == "" {
		c.UI.StartMode = d.UI.StartMode
	}
	if len(c.UI.Presets) == 0 {
		c.UI.Presets = d.UI.Presets
	}

	c.Log.Level = strings.ToLower(c.Log.Level)
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	c.Log.Format = strings.ToLower(c.Log.Format)
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies NEXUS_* environment variables on top of the
// loaded values. Setting NEXUS_MODEL without NEXUS_PROVIDER clears the
// configured provider so the model's default provider is used.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("NEXUS_URL"); v != "" {
		c.Gateway.URL = v
	}
	if v := os.Getenv("NEXUS_MODEL"); v != "" && v != c.Chat.Model {
		c.Chat.Model = v
		c.Chat.Provider = ""
	}
	if v := os.Getenv("NEXUS_PROVIDER"); v != "" {
		c.Chat.Provider = v
	}
	if v := os.Getenv("NEXUS_IMAGE_MODEL"); v != "" {
		c.Image.Model = v
	}
	if v := os.Getenv("NEXUS_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// =============================================================================
// CONVERSIONS
// =============================================================================

// GatewayConfig returns the client configuration for the gateway section.
func (c *Config) GatewayConfig() *gateway.Config {
	return &gateway.Config{
		BaseURL:           c.Gateway.URL,
		RequestsPerSecond: c.Gateway.RequestsPerSecond,
		Burst:             c.Gateway.Burst,
		MaxResponseBytes:  c.Gateway.MaxResponseBytes,
	}
}

// MonitorConfig returns the health monitor timings.
func (c *Config) MonitorConfig() health.Config {
	return health.Config{
		ProbeTimeout: c.Health.ProbeTimeout.Duration,
		RetryDelay:   c.Health.RetryDelay.Duration,
		Interval:     c.Health.Interval.Duration,
	}
}

// ChatParams returns the configured chat parameters.
func (c *Config) ChatParams() dispatch.ChatConfig {
	return dispatch.ChatConfig{Temperature: c.Chat.Temperature, MaxTokens: c.Chat.MaxTokens}
}

// ImageParams returns the configured image parameters.
func (c *Config) ImageParams() dispatch.ImageConfig {
	return dispatch.ImageConfig{
		Model:   c.Image.Model,
		Width:   c.Image.Width,
		Height:  c.Image.Height,
		Quality: c.Image.Quality,
		Style:   c.Image.Style,
	}
}

// Selection returns the configured initial model and provider.
func (c *Config) Selection() catalog.Selection {
	return catalog.Selection{Model: c.Chat.Model, Provider: c.Chat.Provider}
}

// StartMode returns the parsed start mode, defaulting to chat.
func (c *Config) StartMode() conversation.Mode {
	m, err := conversation.ParseMode(c.UI.StartMode)
	if err != nil {
		return conversation.ModeChat
	}
	return m
}

// SessionTimeout returns the per-call budget for session operations.
func (c *Config) SessionTimeout() time.Duration {
	return c.Timeouts.Session.Duration
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	if c.UI.Presets != nil {
		clone.UI.Presets = append([]Preset(nil), c.UI.Presets...)
	}
	return &clone
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		if cfg == nil {
			cfg = Default()
		}
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
