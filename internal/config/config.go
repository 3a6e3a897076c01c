// Package config loads mailsweep settings from a YAML file, MAILSWEEP_*
// environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Run modes.
const (
	ModePreview = "preview"
	ModeLive    = "live"
)

// Processing strategies.
const (
	StrategySender  = "sender"
	StrategyMessage = "message"
)

// Cleanup policies.
const (
	CleanupKeep   = "keep"
	CleanupTrash  = "trash"
	CleanupDelete = "delete"
)

// Search scopes.
const (
	ScopeInbox = "inbox"
	ScopeAll   = "all"
)

// Mail providers.
const (
	ProviderGmail = "gmail"
	ProviderIMAP  = "imap"
)

// History backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Token stores for the Gmail OAuth token.
const (
	TokenStoreFile    = "file"
	TokenStoreKeyring = "keyring"
)

// GmailConfig locates the OAuth client and the cached token.
type GmailConfig struct {
	Credentials string `mapstructure:"credentials" yaml:"credentials"`
	TokenStore  string `mapstructure:"token_store" yaml:"token_store"`
	TokenFile   string `mapstructure:"token_file" yaml:"token_file"`
}

// IMAPConfig describes an IMAP account. An empty password is looked up in
// the keyring under "imap:<username>".
type IMAPConfig struct {
	Host         string `mapstructure:"host" yaml:"host"`
	Port         int    `mapstructure:"port" yaml:"port"`
	Username     string `mapstructure:"username" yaml:"username"`
	Password     string `mapstructure:"password" yaml:"password"`
	StartTLS     bool   `mapstructure:"starttls" yaml:"starttls"`
	Mailbox      string `mapstructure:"mailbox" yaml:"mailbox"`
	AllMailbox   string `mapstructure:"all_mailbox" yaml:"all_mailbox"`
	TrashMailbox string `mapstructure:"trash_mailbox" yaml:"trash_mailbox"`
}

// InvokeConfig tunes the unsubscribe HTTP requests.
type InvokeConfig struct {
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Retries   int           `mapstructure:"retries" yaml:"retries"`
	Backoff   time.Duration `mapstructure:"backoff" yaml:"backoff"`
	UserAgent string        `mapstructure:"user_agent" yaml:"user_agent"`
}

// HistoryConfig selects where attempts are persisted.
type HistoryConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// Config is the resolved configuration for one invocation.
type Config struct {
	Mode         string        `mapstructure:"mode" yaml:"mode"`
	Preset       string        `mapstructure:"preset" yaml:"preset"`
	Query        string        `mapstructure:"query" yaml:"query"`
	MaxEmails    int64         `mapstructure:"max_emails" yaml:"max_emails"`
	Strategy     string        `mapstructure:"strategy" yaml:"strategy"`
	Cleanup      string        `mapstructure:"cleanup" yaml:"cleanup"`
	Scope        string        `mapstructure:"scope" yaml:"scope"`
	ForceCleanup bool          `mapstructure:"force_cleanup" yaml:"force_cleanup"`
	Label        string        `mapstructure:"label" yaml:"label"`
	Provider     string        `mapstructure:"provider" yaml:"provider"`
	MinInterval  time.Duration `mapstructure:"min_interval" yaml:"min_interval"`
	Output       string        `mapstructure:"output" yaml:"output"`

	Gmail   GmailConfig   `mapstructure:"gmail" yaml:"gmail"`
	IMAP    IMAPConfig    `mapstructure:"imap" yaml:"imap"`
	Invoke  InvokeConfig  `mapstructure:"invoke" yaml:"invoke"`
	History HistoryConfig `mapstructure:"history" yaml:"history"`

	// Dir holds the token, history and keyring fallback files.
	Dir string `mapstructure:"-" yaml:"-"`
}

// Live reports whether mutating calls are allowed.
func (c Config) Live() bool { return c.Mode == ModeLive }

// DefaultDir returns ~/.config/mailsweep.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "mailsweep")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// SetDefaults registers every key so env overrides reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("mode", ModePreview)
	v.SetDefault("preset", "unsubscribe")
	v.SetDefault("query", "")
	v.SetDefault("max_emails", 100)
	v.SetDefault("strategy", StrategySender)
	v.SetDefault("cleanup", CleanupKeep)
	v.SetDefault("scope", ScopeInbox)
	v.SetDefault("force_cleanup", false)
	v.SetDefault("label", "Unsubscribed")
	v.SetDefault("provider", ProviderGmail)
	v.SetDefault("min_interval", "100ms")
	v.SetDefault("output", "text")

	v.SetDefault("gmail.credentials", "")
	v.SetDefault("gmail.token_store", TokenStoreFile)
	v.SetDefault("gmail.token_file", "")

	v.SetDefault("imap.host", "")
	v.SetDefault("imap.port", 993)
	v.SetDefault("imap.username", "")
	v.SetDefault("imap.password", "")
	v.SetDefault("imap.starttls", false)
	v.SetDefault("imap.mailbox", "INBOX")
	v.SetDefault("imap.all_mailbox", "[Gmail]/All Mail")
	v.SetDefault("imap.trash_mailbox", "Trash")

	v.SetDefault("invoke.timeout", "10s")
	v.SetDefault("invoke.retries", 2)
	v.SetDefault("invoke.backoff", "1s")
	v.SetDefault("invoke.user_agent", "")

	v.SetDefault("history.backend", BackendJSON)
	v.SetDefault("history.path", "")
}

// Load reads path (a missing file is not an error) on top of the defaults and
// environment, resolves derived paths and validates the result.
func Load(v *viper.Viper, path, dir string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix("MAILSWEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if dir == "" {
		dir = DefaultDir()
	}
	cfg.Dir = dir
	cfg.resolve()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) resolve() {
	if strings.TrimSpace(c.Query) == "" {
		c.Query = Presets[c.Preset]
	}
	if c.Gmail.Credentials == "" {
		c.Gmail.Credentials = filepath.Join(c.Dir, "credentials.json")
	}
	if c.Gmail.TokenFile == "" {
		c.Gmail.TokenFile = filepath.Join(c.Dir, "token.json")
	}
	if c.History.Path == "" {
		name := "unsubscribe_history.json"
		if c.History.Backend == BackendSQLite {
			name = "unsubscribe_history.db"
		}
		c.History.Path = filepath.Join(c.Dir, name)
	}
}

// Validate rejects unknown enum values and impossible numbers.
func (c Config) Validate() error {
	checks := []struct {
		name, value string
		allowed     []string
	}{
		{"mode", c.Mode, []string{ModePreview, ModeLive}},
		{"strategy", c.Strategy, []string{StrategySender, StrategyMessage}},
		{"cleanup", c.Cleanup, []string{CleanupKeep, CleanupTrash, CleanupDelete}},
		{"scope", c.Scope, []string{ScopeInbox, ScopeAll}},
		{"provider", c.Provider, []string{ProviderGmail, ProviderIMAP}},
		{"output", c.Output, []string{"text", "json", "yaml"}},
		{"history.backend", c.History.Backend, []string{BackendJSON, BackendSQLite}},
		{"gmail.token_store", c.Gmail.TokenStore, []string{TokenStoreFile, TokenStoreKeyring}},
	}
	for _, ch := range checks {
		if !contains(ch.allowed, ch.value) {
			return fmt.Errorf("invalid %s %q (want one of %s)", ch.name, ch.value, strings.Join(ch.allowed, ", "))
		}
	}
	if strings.TrimSpace(c.Query) == "" {
		return fmt.Errorf("unknown preset %q and no query given", c.Preset)
	}
	if c.MaxEmails <= 0 {
		return fmt.Errorf("max_emails must be positive, got %d", c.MaxEmails)
	}
	if c.Invoke.Retries < 0 {
		return fmt.Errorf("invoke.retries must not be negative, got %d", c.Invoke.Retries)
	}
	if c.Invoke.Timeout <= 0 {
		return fmt.Errorf("invoke.timeout must be positive, got %s", c.Invoke.Timeout)
	}
	if c.Provider == ProviderIMAP && (c.IMAP.Host == "" || c.IMAP.Username == "") {
		return errors.New("imap provider needs imap.host and imap.username")
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
