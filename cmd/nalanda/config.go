package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"nalanda/pkg/auth"
	"nalanda/pkg/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
	Long: `Manage the nalanda configuration file.

Values are taken from, highest priority first:
  - Command line flags
  - Environment variables (NALANDA_*, also read from .env files)
  - Configuration file
  - Default values`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with every available option.

The file is written to $HOME/.nalanda.yaml unless --config names another path.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging every source.

The password is masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration for errors",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

const exampleConfig = `# nalanda configuration
#
# Every value can also be set with an environment variable prefixed with
# NALANDA_, for example NALANDA_USERNAME or NALANDA_ROOT_DIR.

dirs:
  # Where course data is stored
  root_dir: ""

credentials:
  username: ""
  # Only read when store is "config". Prefer "keyring" or "encrypted".
  password: ""
  # config, keyring or encrypted
  store: config

# Written after every run
last:
  datetime: "A long time ago..."
  status: ""

portal:
  base_url: http://nalanda.bits-pilani.ac.in
  # Connect and response header timeout
  timeout: 5s
  user_agent: ""

# Retries on 502, 503 and 504 responses
retry:
  max_attempts: 5
  base_delay: 1s
  max_delay: 30s

rate_limit:
  # 0 disables throttling
  requests_per_minute: 0

download:
  # File name globs that are never downloaded, e.g. "*.mp4"
  exclude: []

output:
  # Rewrite file names to portable ASCII
  safe_filenames: false

notifications:
  enabled: false

logging:
  # debug, info, warn, error or disabled
  level: warn
  # Log to this file instead of stderr
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	console := newConsole()

	path := configFile
	if path == "" {
		path = config.DefaultPath()
	}

	if _, err := os.Stat(path); err == nil {
		console.Errorf("Configuration file already exists: %s", path)
		exitCode = exitFailure
		return nil
	}

	if err := os.WriteFile(path, []byte(exampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	console.Success("Configuration file created: %s", path)
	console.Printf("\nNext steps:")
	console.Printf("1. Set dirs.root_dir and credentials.username")
	console.Printf("2. Store your password with 'nalanda auth login' or in the file")
	console.Printf("3. Run 'nalanda config validate' to check the file")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	console := newConsole()

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	shown := *cfg
	if shown.Credentials.Password != "" {
		shown.Credentials.Password = auth.Mask(shown.Credentials.Password)
	}

	data, err := yaml.Marshal(&shown)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	console.Announce("Current configuration (%s)", cfg.Path)
	fmt.Print(string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	console := newConsole()

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		console.Errorf("Configuration has errors:")
		console.Errorf("%v", err)
		exitCode = exitFailure
		return nil
	}

	console.Info("Configuration file", cfg.Path)
	if missing := cfg.Missing(); len(missing) > 0 {
		console.Warnf("These values are missing and will be asked for on every run:")
		for _, key := range missing {
			console.Warnf("  - %s", key)
		}
	}
	if cfg.PlaintextPassword() {
		console.Warnf("The password is stored in plain text. Set credentials.store to keyring or encrypted.")
	}

	console.Success("Configuration is valid")
	console.Printf("\nConfiguration summary:")
	console.Printf("  Root directory: %s", cfg.Dirs.RootDir)
	console.Printf("  Portal: %s", cfg.Portal.BaseURL)
	console.Printf("  Credential store: %s", cfg.Credentials.Store)
	console.Printf("  Max attempts: %d", cfg.Retry.MaxAttempts)
	console.Printf("  Log level: %s", cfg.Logging.Level)
	return nil
}
