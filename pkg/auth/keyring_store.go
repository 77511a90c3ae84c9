package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringService = "nalanda-downloader"

// KeyringStore implements PasswordStore using the system keychain
type KeyringStore struct{}

// NewKeyringStore probes the keychain and fails when it is unavailable
func NewKeyringStore() (*KeyringStore, error) {
	const probe = "availability-probe"
	if err := keyring.Set(keyringService, probe, "ok"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	_ = keyring.Delete(keyringService, probe)
	return &KeyringStore{}, nil
}

func (k *KeyringStore) Name() string { return "keyring" }

// Get reads a password from the keychain
func (k *KeyringStore) Get(username string) (string, error) {
	if username == "" {
		return "", ErrInvalidCredentials
	}
	password, err := keyring.Get(keyringService, username)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrCredentialsNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to retrieve from keyring: %w", err)
	}
	return password, nil
}

// Set saves a password to the keychain
func (k *KeyringStore) Set(username, password string) error {
	if username == "" {
		return ErrInvalidCredentials
	}
	if err := keyring.Set(keyringService, username, password); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

// Delete removes a password from the keychain
func (k *KeyringStore) Delete(username string) error {
	err := keyring.Delete(keyringService, username)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrCredentialsNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}
