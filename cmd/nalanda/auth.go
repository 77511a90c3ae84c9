package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"nalanda/pkg/auth"
	"nalanda/pkg/config"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the stored portal password",
	Long: `Manage the portal password kept outside the configuration file.

Set credentials.store in the configuration to choose where it lives:
  - keyring: the system keychain
  - encrypted: an AES-GCM file keyed by NALANDA_PASSPHRASE`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store the password for a portal account",
	Example: `  # Ask for the username and password
  nalanda auth login

  # Store the password for a known username
  nalanda auth login f2019001`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout [username]",
	Short: "Remove the stored password",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuthLogout,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
}

// secureStore opens the configured password store, refusing the plain text one
func secureStore() (*config.Config, auth.PasswordStore, error) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Credentials.Store == config.StoreConfig {
		return nil, nil, fmt.Errorf("credentials.store is %q; set it to %q or %q to use this command",
			config.StoreConfig, config.StoreKeyring, config.StoreEncrypted)
	}
	store, err := auth.NewStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	console := newConsole()
	cfg, store, err := secureStore()
	if err != nil {
		return err
	}
	prompter := auth.NewTerminalPrompter()

	username := cfg.Credentials.Username
	if len(args) > 0 {
		username = args[0]
	}
	if username == "" {
		if username, err = prompter.ReadLine("Enter username: "); err != nil {
			return err
		}
	}
	password, err := prompter.ReadSecret("Enter password: ")
	if err != nil {
		return err
	}
	if username == "" || password == "" {
		return auth.ErrInvalidCredentials
	}

	if err := store.Set(username, password); err != nil {
		return fmt.Errorf("failed to store password in %s: %w", store.Name(), err)
	}
	if err := config.UpdateFile(cfg.Path, func(c *config.Config) {
		c.Credentials.Username = username
		c.Credentials.Password = ""
	}); err != nil {
		return err
	}

	console.Success("Password for %s stored in %s", username, store.Name())
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	console := newConsole()
	cfg, store, err := secureStore()
	if err != nil {
		return err
	}

	username := cfg.Credentials.Username
	if len(args) > 0 {
		username = args[0]
	}
	if username == "" {
		return errors.New("no username given and none configured")
	}

	ok, err := auth.Confirm(auth.NewTerminalPrompter(), fmt.Sprintf("Remove the stored password for %s?", username))
	if err != nil || !ok {
		return err
	}

	if err := store.Delete(username); err != nil {
		if errors.Is(err, auth.ErrCredentialsNotFound) {
			console.Warnf("No password stored for %s", username)
			return nil
		}
		return err
	}
	console.Success("Removed the stored password for %s", username)
	return nil
}
