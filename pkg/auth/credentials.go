package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"nalanda/pkg/config"
)

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)

// Credentials is a portal login
type Credentials struct {
	Username string
	Password string
}

// PasswordStore keeps portal passwords keyed by username
type PasswordStore interface {
	Get(username string) (string, error)
	Set(username, password string) error
	Delete(username string) error
	Name() string
}

// NewStore selects the password store named by credentials.store
func NewStore(cfg *config.Config) (PasswordStore, error) {
	switch cfg.Credentials.Store {
	case config.StoreConfig, "":
		return NewConfigStore(cfg), nil
	case config.StoreKeyring:
		return NewKeyringStore()
	case config.StoreEncrypted:
		dir, err := configDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get config directory: %w", err)
		}
		return NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	default:
		return nil, fmt.Errorf("unknown credential store %q", cfg.Credentials.Store)
	}
}

// Lookup returns the credentials for cfg's username, or ErrCredentialsNotFound
func Lookup(cfg *config.Config, store PasswordStore) (Credentials, error) {
	username := cfg.Credentials.Username
	if username == "" {
		return Credentials{}, ErrCredentialsNotFound
	}
	password, err := store.Get(username)
	if err != nil {
		return Credentials{Username: username}, err
	}
	return Credentials{Username: username, Password: password}, nil
}

// ConfigStore keeps the password in clear text inside the configuration file
type ConfigStore struct {
	cfg *config.Config
}

// NewConfigStore wraps the loaded configuration
func NewConfigStore(cfg *config.Config) *ConfigStore {
	return &ConfigStore{cfg: cfg}
}

func (s *ConfigStore) Name() string { return config.StoreConfig }

// Get returns the password when it belongs to username
func (s *ConfigStore) Get(username string) (string, error) {
	if username == "" || username != s.cfg.Credentials.Username || s.cfg.Credentials.Password == "" {
		return "", ErrCredentialsNotFound
	}
	return s.cfg.Credentials.Password, nil
}

// Set writes the username and password into the configuration file
func (s *ConfigStore) Set(username, password string) error {
	if username == "" {
		return ErrInvalidCredentials
	}
	s.cfg.Credentials.Username = username
	s.cfg.Credentials.Password = password
	return config.UpdateFile(s.cfg.Path, func(c *config.Config) {
		c.Credentials.Username = username
		c.Credentials.Password = password
	})
}

// Delete blanks the stored password
func (s *ConfigStore) Delete(username string) error {
	if username != s.cfg.Credentials.Username {
		return ErrCredentialsNotFound
	}
	s.cfg.Credentials.Password = ""
	return config.UpdateFile(s.cfg.Path, func(c *config.Config) {
		c.Credentials.Password = ""
	})
}

// configDir returns the per-user directory for secrets
func configDir() (string, error) {
	var dir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, "Library", "Application Support", "nalanda")
	case "windows":
		dir = filepath.Join(os.Getenv("APPDATA"), "nalanda")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			dir = filepath.Join(xdg, "nalanda")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dir = filepath.Join(home, ".config", "nalanda")
		}
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// Mask hides all but the edges of a secret
func Mask(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:1] + "***" + s[len(s)-1:]
}
