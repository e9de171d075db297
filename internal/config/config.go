// Package config loads and validates the synchronizer configuration.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chrisskurda/csv-to-dg/internal/domain"
)

// Environment variables that override secrets from the config file.
const (
	EnvBindPassword = "CSVDG_BIND_PASSWORD"
	EnvSMTPPassword = "CSVDG_SMTP_PASSWORD"
)

// DirectoryConfig holds directory-service connection parameters. The
// bind password can be supplied via CSVDG_BIND_PASSWORD instead of the
// file. Port defaults to 389, or 636 with TLS; Timeout is the per-call
// deadline (default 30s).
type DirectoryConfig struct {
	Server       string        `yaml:"server"`
	Port         int           `yaml:"port"`
	UseTLS       bool          `yaml:"use_tls"`
	BindDN       string        `yaml:"bind_dn"`
	BindPassword string        `yaml:"bind_password"`
	UserBaseDN   string        `yaml:"user_base_dn"`
	Timeout      time.Duration `yaml:"timeout"`
}

// GroupConfig describes the target group and its managed attributes.
// Pointer/nil list fields mean "not managed": the reconciler leaves the
// attribute untouched.
type GroupConfig struct {
	Name     string `yaml:"name"`
	Mail     string `yaml:"mail"`
	Scope    string `yaml:"scope"`    // default "Universal"
	Category string `yaml:"category"` // default "Distribution"
	OUPath   string `yaml:"ou_path"`

	AuthOrig             []string `yaml:"auth_orig"`
	UnauthOrig           []string `yaml:"unauth_orig"`
	RejectPerms          []string `yaml:"reject_perms"`
	SubmitPerms          []string `yaml:"submit_perms"`
	RequireAuth          *bool    `yaml:"require_auth_to_send"`
	HideFromAddressLists *bool    `yaml:"hide_from_address_lists"`
}

// RosterConfig holds input/output paths and the column projection.
type RosterConfig struct {
	InputPath     string   `yaml:"input_path"`
	Columns       []string `yaml:"columns"`
	EmailColumn   string   `yaml:"email_column"`
	OutputDir     string   `yaml:"output_dir"`
	LogDir        string   `yaml:"log_dir"`
	RetentionDays int      `yaml:"retention_days"` // 0 disables pruning
}

// NotifyConfig holds notification-channel settings.
type NotifyConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"` // default 25
	Username string   `yaml:"username"`
	Password string   `yaml:"password"` // overridable via CSVDG_SMTP_PASSWORD
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
	Subject  string   `yaml:"subject"` // prefix; run date is appended
}

// History granularities.
const (
	GranularityRun    = "run"
	GranularityChange = "change"
)

// HistoryConfig controls run/change history persistence.
type HistoryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`        // SQLite file (default "csvdg_history.sqlite")
	Granularity string `yaml:"granularity"` // "run" (default) or "change"
}

// Config is the full configuration, loaded once at start and read-only
// thereafter.
type Config struct {
	Directory DirectoryConfig `yaml:"directory"`
	Group     GroupConfig     `yaml:"group"`
	Roster    RosterConfig    `yaml:"roster"`
	Notify    NotifyConfig    `yaml:"notify"`
	History   HistoryConfig   `yaml:"history"`
	LogLevel  string          `yaml:"log_level"` // debug, info, warn, error
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// DesiredAttributes builds the target AttributeSet from the managed
// group settings. Unmanaged (nil) fields are omitted.
func (c *Config) DesiredAttributes() domain.AttributeSet {
	attrs := domain.AttributeSet{}
	if c.Group.AuthOrig != nil {
		attrs[domain.AttrAuthOrig] = c.Group.AuthOrig
	}
	if c.Group.UnauthOrig != nil {
		attrs[domain.AttrUnauthOrig] = c.Group.UnauthOrig
	}
	if c.Group.RejectPerms != nil {
		attrs[domain.AttrRejectPerms] = c.Group.RejectPerms
	}
	if c.Group.SubmitPerms != nil {
		attrs[domain.AttrSubmitPerms] = c.Group.SubmitPerms
	}
	if c.Group.RequireAuth != nil {
		attrs[domain.AttrRequireAuth] = []string{boolAttr(*c.Group.RequireAuth)}
	}
	if c.Group.HideFromAddressLists != nil {
		attrs[domain.AttrHideFromAddressLists] = []string{boolAttr(*c.Group.HideFromAddressLists)}
	}
	return attrs
}

// GroupSpec builds the creation spec for the target group.
func (c *Config) GroupSpec() domain.GroupSpec {
	return domain.GroupSpec{
		Name:       c.Group.Name,
		Mail:       c.Group.Mail,
		Scope:      c.Group.Scope,
		Category:   c.Group.Category,
		OUPath:     c.Group.OUPath,
		Attributes: c.DesiredAttributes(),
	}
}

// boolAttr renders a boolean the way the directory stores it.
func boolAttr(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// Validate checks required settings and normalizes defaults.
func (c *Config) Validate() error {
	if c.Directory.Server == "" {
		return domain.ErrValidation("directory.server is required")
	}
	if c.Group.Name == "" {
		return domain.ErrValidation("group.name is required")
	}
	if c.Roster.InputPath == "" {
		return domain.ErrValidation("roster.input_path is required")
	}
	if len(c.Roster.Columns) == 0 {
		return domain.ErrValidation("roster.columns must not be empty")
	}
	if c.Roster.EmailColumn == "" {
		return domain.ErrValidation("roster.email_column is required")
	}
	if !contains(c.Roster.Columns, c.Roster.EmailColumn) {
		return domain.ErrValidation("roster.email_column %q must be one of roster.columns", c.Roster.EmailColumn)
	}
	if c.Roster.OutputDir == "" {
		return domain.ErrValidation("roster.output_dir is required")
	}
	if c.Notify.Enabled {
		if c.Notify.Host == "" || c.Notify.From == "" || len(c.Notify.To) == 0 {
			return domain.ErrValidation("notify.host, notify.from and notify.to are required when notifications are enabled")
		}
	}
	switch c.History.Granularity {
	case "", GranularityRun, GranularityChange:
	default:
		return domain.ErrValidation("history.granularity must be %q or %q", GranularityRun, GranularityChange)
	}

	// Defaults
	if c.Directory.Port == 0 {
		if c.Directory.UseTLS {
			c.Directory.Port = 636
		} else {
			c.Directory.Port = 389
		}
	}
	if c.Directory.Timeout == 0 {
		c.Directory.Timeout = 30 * time.Second
	}
	if c.Group.Scope == "" {
		c.Group.Scope = "Universal"
	}
	if c.Group.Category == "" {
		c.Group.Category = "Distribution"
	}
	if c.Notify.Port == 0 {
		c.Notify.Port = 25
	}
	if c.History.Path == "" {
		c.History.Path = "csvdg_history.sqlite"
	}
	if c.History.Granularity == "" {
		c.History.Granularity = GranularityRun
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	return nil
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

// Load reads, validates, and applies environment overrides to the
// configuration at path. A missing file is reported as NotFoundError so
// the caller can abort before any work.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound("configuration not found: %s", path)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, domain.ErrValidation("parse config: %v", err)
	}

	// Secrets from the environment win over the file.
	if v := os.Getenv(EnvBindPassword); v != "" {
		cfg.Directory.BindPassword = v
	}
	if v := os.Getenv(EnvSMTPPassword); v != "" {
		cfg.Notify.Password = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDotEnv reads a .env file and sets any variables not already in
// the environment. Lines must be KEY=VALUE; comments (#) and blank
// lines are skipped. A missing file is not an error.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
