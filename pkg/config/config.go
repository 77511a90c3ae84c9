package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix prefixes every environment override
	EnvPrefix = "NALANDA_"

	// DefaultBaseURL is the portal the downloader talks to
	DefaultBaseURL = "http://nalanda.bits-pilani.ac.in"

	// NeverSynced is shown when no run has been recorded yet
	NeverSynced = "A long time ago..."

	// LastRunLayout formats the last-run timestamp
	LastRunLayout = "2006-01-02 15:04"
)

// Credential store names accepted by credentials.store
const (
	StoreConfig    = "config"
	StoreKeyring   = "keyring"
	StoreEncrypted = "encrypted"
)

// Config holds every option of the downloader
type Config struct {
	Dirs          DirsConfig         `yaml:"dirs"`
	Credentials   CredentialsConfig  `yaml:"credentials"`
	Last          LastRunConfig      `yaml:"last"`
	Portal        PortalConfig       `yaml:"portal"`
	Retry         RetryConfig        `yaml:"retry"`
	RateLimit     RateLimitConfig    `yaml:"rate_limit"`
	Download      DownloadConfig     `yaml:"download"`
	Output        OutputConfig       `yaml:"output"`
	Notifications NotificationConfig `yaml:"notifications"`
	Logging       LoggingConfig      `yaml:"logging"`

	// Path is the file the configuration was read from and is written back to
	Path string `yaml:"-"`
}

// DirsConfig locates the local mirror
type DirsConfig struct {
	RootDir string `yaml:"root_dir"`
}

// CredentialsConfig holds the portal login.
// Password is only read from the file when Store is "config".
type CredentialsConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password,omitempty"`
	Store    string `yaml:"store"`
}

// LastRunConfig is rewritten at the end of every run
type LastRunConfig struct {
	Datetime string `yaml:"datetime"`
	Status   string `yaml:"status"`
}

// PortalConfig describes how to reach the LMS
type PortalConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// RetryConfig bounds the transparent retries on gateway errors
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// RateLimitConfig throttles requests; zero disables throttling
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// DownloadConfig filters what gets materialized
type DownloadConfig struct {
	Exclude []string `yaml:"exclude"`
}

// OutputConfig controls local file naming
type OutputConfig struct {
	SafeFilenames bool `yaml:"safe_filenames"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Credentials: CredentialsConfig{
			Store: StoreConfig,
		},
		Last: LastRunConfig{
			Datetime: NeverSynced,
		},
		Portal: PortalConfig{
			BaseURL:   DefaultBaseURL,
			Timeout:   5 * time.Second,
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		},
		Retry: RetryConfig{
			MaxAttempts: 5,
			BaseDelay:   time.Second,
			MaxDelay:    30 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// DefaultPath is where the configuration lives when none is found
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".nalanda.yaml")
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs error

	if v := getenv("ROOT_DIR"); v != "" {
		c.Dirs.RootDir = v
	}
	if v := getenv("USERNAME"); v != "" {
		c.Credentials.Username = v
	}
	if v := getenv("PASSWORD"); v != "" {
		c.Credentials.Password = v
	}
	if v := getenv("CREDENTIAL_STORE"); v != "" {
		c.Credentials.Store = v
	}
	if v := getenv("BASE_URL"); v != "" {
		c.Portal.BaseURL = v
	}
	if v := getenv("TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%sTIMEOUT: %w", EnvPrefix, err))
		} else {
			c.Portal.Timeout = d
		}
	}
	if v := getenv("MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%sMAX_RETRIES: %w", EnvPrefix, err))
		} else {
			c.Retry.MaxAttempts = n
		}
	}
	if v := getenv("REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%sREQUESTS_PER_MINUTE: %w", EnvPrefix, err))
		} else {
			c.RateLimit.RequestsPerMinute = n
		}
	}
	if v := getenv("NOTIFICATIONS_ENABLED"); v != "" {
		c.Notifications.Enabled = strings.ToLower(v) == "true"
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getenv("LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	return errs
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + key))
}

// LoadFromFile loads configuration from a YAML file.
// An empty path searches the standard locations; a missing file is not an error.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = findConfigFile()
		if path == "" {
			c.Path = DefaultPath()
			return nil
		}
	}
	c.Path = path

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".nalanda.yaml",
		".nalanda.yml",
		filepath.Join(home, ".config", "nalanda", "config.yaml"),
		filepath.Join(home, ".nalanda.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks that every set value is usable
func (c *Config) Validate() error {
	var errs error

	u, err := url.Parse(c.Portal.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = multierror.Append(errs, fmt.Errorf("portal base url %q must be an absolute http(s) url", c.Portal.BaseURL))
	}
	if c.Portal.Timeout <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("portal timeout must be positive"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = multierror.Append(errs, fmt.Errorf("retry max attempts must be at least 1"))
	}
	if c.Retry.BaseDelay < 0 || c.Retry.MaxDelay < 0 {
		errs = multierror.Append(errs, fmt.Errorf("retry delays cannot be negative"))
	}
	if c.RateLimit.RequestsPerMinute < 0 {
		errs = multierror.Append(errs, fmt.Errorf("requests per minute cannot be negative"))
	}

	switch c.Credentials.Store {
	case StoreConfig, StoreKeyring, StoreEncrypted:
	default:
		errs = multierror.Append(errs, fmt.Errorf("unknown credential store %q", c.Credentials.Store))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error", "disabled":
	default:
		errs = multierror.Append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	return errs
}

// Missing lists the required values that are still empty
func (c *Config) Missing() []string {
	var missing []string
	if strings.TrimSpace(c.Dirs.RootDir) == "" {
		missing = append(missing, "dirs.root_dir")
	}
	if strings.TrimSpace(c.Credentials.Username) == "" {
		missing = append(missing, "credentials.username")
	}
	if c.Credentials.Store == StoreConfig && c.Credentials.Password == "" {
		missing = append(missing, "credentials.password")
	}
	return missing
}

// PlaintextPassword reports whether the password sits unencrypted in the file
func (c *Config) PlaintextPassword() bool {
	return c.Credentials.Store == StoreConfig && c.Credentials.Password != ""
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// UpdateFile rewrites only what is stored in the file at path, so values
// that came from the environment or flags never leak into it.
func UpdateFile(path string, mutate func(*Config)) error {
	stored := DefaultConfig()
	if err := stored.LoadFromFile(path); err != nil {
		return err
	}
	mutate(stored)
	return stored.Save(stored.Path)
}

// RecordRun persists the outcome of a run
func RecordRun(path string, at time.Time, status string) error {
	return UpdateFile(path, func(c *Config) {
		c.Last = LastRunConfig{
			Datetime: at.Format(LastRunLayout),
			Status:   status,
		}
	})
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["root-dir"].(string); ok && v != "" {
		c.Dirs.RootDir = v
	}
	if v, ok := flags["base-url"].(string); ok && v != "" {
		c.Portal.BaseURL = v
	}
	if v, ok := flags["timeout"].(time.Duration); ok && v > 0 {
		c.Portal.Timeout = v
	}
	if v, ok := flags["rate-limit"].(int); ok && v >= 0 {
		c.RateLimit.RequestsPerMinute = v
	}
	if v, ok := flags["notifications"].(bool); ok {
		c.Notifications.Enabled = v
	}
	if v, ok := flags["safe-filenames"].(bool); ok {
		c.Output.SafeFilenames = v
	}
	if v, ok := flags["exclude"].([]string); ok && len(v) > 0 {
		c.Download.Exclude = append(c.Download.Exclude, v...)
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".nalanda.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
