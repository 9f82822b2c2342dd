package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"hitbeacon/internal/match"
)

const (
	defaultLogLevel         = "info"
	defaultLogFormat        = "line"
	defaultPageURL          = "http://localhost/"
	defaultSessionStore     = SessionStoreMemory
	defaultSessionID        = SessionIDTimestamp
	defaultSessionScope     = "default"
	defaultTransportMethod  = "post"
	defaultTransportTimeout = 5 * time.Second
	defaultMetricsListen    = "127.0.0.1:9464"
)

const (
	// SessionStoreMemory keeps the session id for one process run.
	SessionStoreMemory = "memory"
	// SessionStoreSQLite keeps the session id in a SQLite file.
	SessionStoreSQLite = "sqlite"
	// SessionIDTimestamp generates epoch-millisecond ids.
	SessionIDTimestamp = "timestamp"
	// SessionIDUUID generates random UUIDs.
	SessionIDUUID = "uuid"
)

// Duration wraps time.Duration for TOML parsing.
// Params: text duration string (e.g. "5s", "1m").
// Returns: parse error on invalid duration.
type Duration struct {
	time.Duration
}

// UnmarshalText parses TOML duration values.
// Params: text is raw duration bytes from TOML.
// Returns: error when value is not a valid Go duration.
func (d *Duration) UnmarshalText(text []byte) error {
	value := strings.TrimSpace(string(text))
	if value == "" {
		d.Duration = 0
		return nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value, err)
	}

	d.Duration = parsed
	return nil
}

// Config represents the root runtime configuration.
// Params: TOML document sections.
// Returns: validated runtime configuration.
type Config struct {
	App        AppConfig        `toml:"app"`
	Page       PageConfig       `toml:"page"`
	Attributes AttributesConfig `toml:"attributes"`
	Session    SessionConfig    `toml:"session"`
	Transport  TransportConfig  `toml:"transport"`
	Log        LogConfig        `toml:"log"`
	Metrics    MetricsConfig    `toml:"metrics"`
}

// AppConfig is the hit configuration installed into the tracker.
// Params: application id, collection endpoint, default user identifier, debug flag.
// Returns: tracker settings source.
type AppConfig struct {
	AppID          string `toml:"app_id"`
	Server         string `toml:"server"`
	UserIdentifier string `toml:"user_identifier"`
	Debug          bool   `toml:"debug"`
}

// PageConfig describes the headless document.
// Params: document URL and user agent override.
// Returns: page settings.
type PageConfig struct {
	URL       string `toml:"url"`
	UserAgent string `toml:"user_agent"`
}

// AttributesConfig defines the DOM attribute contract.
// Params: marker/name attribute names, field prefix, match strategy and explicit aliases.
// Returns: attribute scheme settings.
type AttributesConfig struct {
	Marker      string            `toml:"marker"`
	Name        string            `toml:"name"`
	FieldPrefix string            `toml:"field_prefix"`
	Match       string            `toml:"match"`
	Aliases     map[string]string `toml:"aliases"`
}

// SessionConfig selects where the session id lives and how it is generated.
// Params: store kind, sqlite path, tab scope and id generator.
// Returns: session settings.
type SessionConfig struct {
	Store string `toml:"store"`
	Path  string `toml:"path"`
	Scope string `toml:"scope"`
	ID    string `toml:"id"`
}

// TransportConfig defines beacon delivery.
// Params: HTTP method and per-attempt timeout.
// Returns: beacon settings.
type TransportConfig struct {
	Method  string   `toml:"method"`
	Timeout Duration `toml:"timeout"`
}

// LogConfig contains console/file logging configuration.
// Params: console and file sink options.
// Returns: logger sink settings.
type LogConfig struct {
	Console LogSinkConfig `toml:"console"`
	File    LogSinkConfig `toml:"file"`
}

// LogSinkConfig defines one logging sink.
// Params: sink options from TOML.
// Returns: sink setup.
type LogSinkConfig struct {
	Enabled bool   `toml:"enabled"`
	Level   string `toml:"level"`
	Format  string `toml:"format"`
	Path    string `toml:"path"`
}

// MetricsConfig defines the optional /metrics and /debug/pprof endpoint.
// Params: enabled flag and listen address in host:port format.
// Returns: metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

// Load reads, expands, validates, and returns config from path.
// Params: path to TOML config file or directory with *.toml files.
// Returns: validated config pointer or error.
func Load(path string) (*Config, error) {
	raw, err := readConfigSource(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(raw))

	var cfg Config
	if err := toml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("decode TOML %q: %w", path, err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// readConfigSource reads one TOML file or concatenates *.toml files from directory.
// Params: path to config file or directory.
// Returns: raw TOML bytes or error.
func readConfigSource(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config %q: %w", path, err)
	}

	if !info.IsDir() {
		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, fmt.Errorf("read config %q: %w", path, readErr)
		}
		return raw, nil
	}

	return readConfigDir(path)
}

// readConfigDir concatenates config snippets from one directory in name order.
// Params: path to directory that contains *.toml files.
// Returns: concatenated TOML content or error.
func readConfigDir(path string) ([]byte, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read config dir %q: %w", path, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".toml") {
			files = append(files, entry.Name())
		}
	}

	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("read config dir %q: no *.toml files", path)
	}

	var builder strings.Builder
	for _, name := range files {
		filePath := filepath.Join(path, name)
		raw, readErr := os.ReadFile(filePath)
		if readErr != nil {
			return nil, fmt.Errorf("read config %q: %w", filePath, readErr)
		}
		builder.Write(raw)
		if len(raw) == 0 || raw[len(raw)-1] != '\n' {
			builder.WriteByte('\n')
		}
		builder.WriteByte('\n')
	}

	return []byte(builder.String()), nil
}

// applyDefaults fills defaults for optional configuration fields.
// Params: receiver config pointer.
// Returns: none.
func (c *Config) applyDefaults() {
	c.Log.Console.Level = lowerOrDefault(c.Log.Console.Level, defaultLogLevel)
	c.Log.Console.Format = lowerOrDefault(c.Log.Console.Format, defaultLogFormat)
	c.Log.File.Level = lowerOrDefault(c.Log.File.Level, defaultLogLevel)
	c.Log.File.Format = lowerOrDefault(c.Log.File.Format, "json")

	if !c.Log.Console.Enabled && !c.Log.File.Enabled {
		c.Log.Console.Enabled = true
	}

	c.App.Server = strings.TrimSpace(c.App.Server)
	if strings.TrimSpace(c.Page.URL) == "" {
		c.Page.URL = defaultPageURL
	}

	c.Attributes.Match = lowerOrDefault(c.Attributes.Match, match.NameSubstring)

	c.Session.Store = lowerOrDefault(c.Session.Store, defaultSessionStore)
	c.Session.ID = lowerOrDefault(c.Session.ID, defaultSessionID)
	if strings.TrimSpace(c.Session.Scope) == "" {
		c.Session.Scope = defaultSessionScope
	}

	c.Transport.Method = lowerOrDefault(c.Transport.Method, defaultTransportMethod)
	if c.Transport.Timeout.Duration <= 0 {
		c.Transport.Timeout.Duration = defaultTransportTimeout
	}

	if c.Metrics.Enabled && strings.TrimSpace(c.Metrics.Listen) == "" {
		c.Metrics.Listen = defaultMetricsListen
	}
}

// validate checks config consistency and required fields.
// Params: receiver config pointer.
// Returns: validation error for invalid or incomplete config.
func (c *Config) validate() error {
	if c.App.Server == "" {
		return fmt.Errorf("app.server is required")
	}
	if err := validateAbsoluteURL("app.server", c.App.Server); err != nil {
		return err
	}
	if err := validateAbsoluteURL("page.url", c.Page.URL); err != nil {
		return err
	}

	if _, err := match.Parse(c.Attributes.Match); err != nil {
		return fmt.Errorf("attributes.match: %w", err)
	}

	switch c.Session.Store {
	case SessionStoreMemory, SessionStoreSQLite:
	default:
		return fmt.Errorf("session.store: unsupported value %q", c.Session.Store)
	}
	switch c.Session.ID {
	case SessionIDTimestamp, SessionIDUUID:
	default:
		return fmt.Errorf("session.id: unsupported value %q", c.Session.ID)
	}

	switch c.Transport.Method {
	case "post", "get":
	default:
		return fmt.Errorf("transport.method: unsupported value %q", c.Transport.Method)
	}

	if err := validateSink("log.console", c.Log.Console, false); err != nil {
		return err
	}
	if err := validateSink("log.file", c.Log.File, true); err != nil {
		return err
	}

	return nil
}

// validateAbsoluteURL checks that value parses as an absolute http(s) URL.
// Params: name is field path for errors; value raw URL.
// Returns: validation error or nil.
func validateAbsoluteURL(name, value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", name, value)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host, got %q", name, value)
	}
	return nil
}

// validateSink validates one logging sink configuration.
// Params: name is sink path for errors; sink is sink config; requirePath means path required when enabled.
// Returns: validation error or nil.
func validateSink(name string, sink LogSinkConfig, requirePath bool) error {
	if sink.Enabled && requirePath && strings.TrimSpace(sink.Path) == "" {
		return fmt.Errorf("%s.path is required when sink is enabled", name)
	}

	if err := validateLogLevel(sink.Level); err != nil {
		return fmt.Errorf("%s.level: %w", name, err)
	}
	if err := validateLogFormat(sink.Format); err != nil {
		return fmt.Errorf("%s.format: %w", name, err)
	}

	return nil
}

// validateLogLevel validates known log levels.
// Params: level is lower-case level name.
// Returns: error when level is unsupported.
func validateLogLevel(level string) error {
	switch strings.TrimSpace(strings.ToLower(level)) {
	case "info", "warn", "error", "debug":
		return nil
	default:
		return fmt.Errorf("unsupported value %q", level)
	}
}

// validateLogFormat validates supported sink formats.
// Params: format is lower-case format name.
// Returns: error when format is unsupported.
func validateLogFormat(format string) error {
	switch strings.TrimSpace(strings.ToLower(format)) {
	case "line", "json":
		return nil
	default:
		return fmt.Errorf("unsupported value %q", format)
	}
}

// lowerOrDefault returns a trimmed lower-case value or default fallback.
// Params: value to normalize; fallback value when empty.
// Returns: normalized value.
func lowerOrDefault(value, fallback string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return fallback
	}
	return normalized
}
