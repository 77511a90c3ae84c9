package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"nalanda/pkg/auth/mocks"
	"nalanda/pkg/config"
)

func tempConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "nalanda.yaml")
	return cfg
}

func readStored(t *testing.T, path string) config.Config {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var stored config.Config
	require.NoError(t, yaml.Unmarshal(data, &stored))
	return stored
}

func TestNewStoreSelectsConfigStore(t *testing.T) {
	cfg := tempConfig(t)
	store, err := NewStore(cfg)
	require.NoError(t, err)
	assert.Equal(t, config.StoreConfig, store.Name())

	cfg.Credentials.Store = "vault"
	_, err = NewStore(cfg)
	assert.Error(t, err)
}

func TestConfigStore(t *testing.T) {
	cfg := tempConfig(t)
	store := NewConfigStore(cfg)

	_, err := store.Get("f2019001")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	require.NoError(t, store.Set("f2019001", "hunter2"))
	password, err := store.Get("f2019001")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", password)

	stored := readStored(t, cfg.Path)
	assert.Equal(t, "f2019001", stored.Credentials.Username)
	assert.Equal(t, "hunter2", stored.Credentials.Password)

	require.NoError(t, store.Delete("f2019001"))
	assert.Empty(t, readStored(t, cfg.Path).Credentials.Password)
}

func TestLookup(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockPasswordStore(ctrl)
	store.EXPECT().Get("f2019001").Return("s3cret", nil)

	cfg := tempConfig(t)
	cfg.Credentials.Username = "f2019001"

	creds, err := Lookup(cfg, store)
	require.NoError(t, err)
	assert.Equal(t, Credentials{Username: "f2019001", Password: "s3cret"}, creds)

	cfg.Credentials.Username = ""
	_, err = Lookup(cfg, store)
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv(PassphraseEnv, "test-passphrase")
	path := filepath.Join(t.TempDir(), "secrets", "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Set("alice", "pw-a"))
	require.NoError(t, store.Set("bob", "pw-b"))

	got, err := store.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, "pw-a", got)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "pw-a")

	// a second store with the same passphrase reads the same file
	again, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	got, err = again.Get("bob")
	require.NoError(t, err)
	assert.Equal(t, "pw-b", got)

	require.NoError(t, store.Delete("alice"))
	require.NoError(t, store.Delete("bob"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	_, err = store.Get("alice")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	t.Setenv(PassphraseEnv, "right")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Set("alice", "pw"))

	t.Setenv(PassphraseEnv, "wrong")
	other, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = other.Get("alice")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCredentialsNotFound)
}

func TestAskAll(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p := mocks.NewMockPrompter(ctrl)
	gomock.InOrder(
		p.EXPECT().ReadLine("Enter username: ").Return("f2019001", nil),
		p.EXPECT().ReadSecret("Enter password: ").Return("hunter2", nil),
		p.EXPECT().ReadLine("Enter directory path to store course data: ").Return("/srv/lms", nil),
	)

	cfg := tempConfig(t)
	require.NoError(t, AskAll(cfg, p))
	assert.Equal(t, "f2019001", cfg.Credentials.Username)
	assert.Equal(t, "hunter2", cfg.Credentials.Password)
	assert.Equal(t, "/srv/lms", cfg.Dirs.RootDir)
}

func TestAskAllRejectsBlankAnswers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p := mocks.NewMockPrompter(ctrl)
	p.EXPECT().ReadLine(gomock.Any()).Return("", nil).Times(2)
	p.EXPECT().ReadSecret(gomock.Any()).Return("pw", nil)

	err := AskAll(tempConfig(t), p)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestConfirm(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p := mocks.NewMockPrompter(ctrl)
	p.EXPECT().ReadLine("Make these values default? [y/n]: ").Return("Yes", nil)
	p.EXPECT().ReadLine(gomock.Any()).Return("nope", nil)
	p.EXPECT().ReadLine(gomock.Any()).Return("", errors.New("eof"))

	ok, err := Confirm(p, "Make these values default?")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Confirm(p, "again?")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = Confirm(p, "again?")
	assert.Error(t, err)
}

func TestPersistKeepsPasswordOutOfFileForSecureStores(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := tempConfig(t)
	cfg.Credentials = config.CredentialsConfig{Username: "me", Password: "pw", Store: config.StoreKeyring}
	cfg.Dirs.RootDir = "/mirror"

	store := mocks.NewMockPasswordStore(ctrl)
	store.EXPECT().Set("me", "pw").Return(nil)
	store.EXPECT().Name().Return(config.StoreKeyring).AnyTimes()

	require.NoError(t, Persist(cfg, store))

	stored := readStored(t, cfg.Path)
	assert.Equal(t, "me", stored.Credentials.Username)
	assert.Equal(t, config.StoreKeyring, stored.Credentials.Store)
	assert.Equal(t, "/mirror", stored.Dirs.RootDir)
	assert.Empty(t, stored.Credentials.Password)
}

func TestPersistWithConfigStore(t *testing.T) {
	cfg := tempConfig(t)
	cfg.Credentials.Username = "me"
	cfg.Credentials.Password = "pw"
	cfg.Dirs.RootDir = "/mirror"

	require.NoError(t, Persist(cfg, NewConfigStore(cfg)))

	stored := readStored(t, cfg.Path)
	assert.Equal(t, "pw", stored.Credentials.Password)
	assert.Equal(t, "/mirror", stored.Dirs.RootDir)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "****", Mask("abc"))
	assert.Equal(t, "h***2", Mask("hunter2"))
}
