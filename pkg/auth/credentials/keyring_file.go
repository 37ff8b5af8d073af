package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/99designs/keyring"
	"github.com/charmbracelet/huh"
	"github.com/spf13/viper"
	"golang.org/x/term"

	errUtils "github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/errors"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/auth/types"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/schema"
)

const (
	// KeyringDirPermissions restricts the keyring directory to the owner.
	KeyringDirPermissions = 0o700

	defaultPasswordEnv = "CCWB_KEYRING_PASSWORD"
)

var (
	// ErrPasswordTooShort indicates the password does not meet the minimum length.
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	// ErrPasswordRequired indicates a password is needed but none is available.
	ErrPasswordRequired = errors.New("keyring password required")
)

// fileKeyringStore stores records in an encrypted file keyring via
// 99designs/keyring. Used where no OS secure store is available.
type fileKeyringStore struct {
	ring keyring.Keyring
	path string
}

func defaultKeyringPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(homeDir, ".ccwb", "keyring"), nil
}

func newFileKeyringStore(cfg schema.KeyringConfig) (*fileKeyringStore, error) {
	path := cfg.Path
	if path == "" {
		defaultPath, err := defaultKeyringPath()
		if err != nil {
			return nil, errors.Join(errUtils.ErrCredentialStore, err)
		}
		path = defaultPath
	}

	passwordEnv := cfg.PasswordEnv
	if passwordEnv == "" {
		passwordEnv = defaultPasswordEnv
	}

	if err := os.MkdirAll(path, KeyringDirPermissions); err != nil {
		return nil, errors.Join(errUtils.ErrCredentialStore,
			fmt.Errorf("creating keyring directory: %w", err))
	}

	passwordFunc := createPasswordPrompt(passwordEnv)

	ring, err := keyring.Open(keyring.Config{
		ServiceName:                    KeyringUser,
		FileDir:                        path,
		FilePasswordFunc:               passwordFunc,
		AllowedBackends:                []keyring.BackendType{keyring.FileBackend},
		KeychainName:                   "ccwb",
		KeychainPasswordFunc:           passwordFunc,
		KeychainSynchronizable:         false,
		KeychainAccessibleWhenUnlocked: true,
		KeychainTrustApplication:       false,
	})
	if err != nil {
		return nil, errors.Join(errUtils.ErrCredentialStore,
			fmt.Errorf("opening file keyring: %w", err))
	}

	return &fileKeyringStore{ring: ring, path: path}, nil
}

// createPasswordPrompt builds a password function that checks the environment
// first (for automation) and falls back to an interactive prompt on a TTY.
func createPasswordPrompt(passwordEnv string) keyring.PromptFunc {
	return func(prompt string) (string, error) {
		_ = viper.BindEnv(passwordEnv)
		if password := viper.GetString(passwordEnv); password != "" {
			return password, nil
		}

		if term.IsTerminal(int(os.Stdin.Fd())) {
			var password string
			err := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().
						Title(prompt).
						Description("Enter password to encrypt/decrypt keyring file").
						EchoMode(huh.EchoModePassword).
						Value(&password).
						Validate(func(s string) error {
							if len(s) < 8 {
								return ErrPasswordTooShort
							}
							return nil
						}),
				),
			).Run()
			if err != nil {
				return "", fmt.Errorf("password prompt failed: %w", err)
			}
			return password, nil
		}

		return "", fmt.Errorf("%w: set %s or run in interactive mode", ErrPasswordRequired, passwordEnv)
	}
}

// Store persists the record for the given alias.
func (s *fileKeyringStore) Store(alias string, record *types.CachedCredentials) error {
	data, err := marshalRecord(record)
	if err != nil {
		return err
	}
	if err := s.ring.Set(keyring.Item{Key: storageAlias(alias), Data: data}); err != nil {
		return errors.Join(errUtils.ErrCredentialStore,
			fmt.Errorf("storing credentials in file keyring: %w", err))
	}
	return nil
}

// Retrieve returns the record for the given alias.
func (s *fileKeyringStore) Retrieve(alias string) (*types.CachedCredentials, error) {
	item, err := s.ring.Get(storageAlias(alias))
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, errUtils.ErrCredentialsNotFound
		}
		return nil, errors.Join(errUtils.ErrCredentialStore,
			fmt.Errorf("reading credentials from file keyring: %w", err))
	}
	return unmarshalRecord(item.Data)
}

// Delete removes the record for the given alias.
func (s *fileKeyringStore) Delete(alias string) error {
	if err := s.ring.Remove(storageAlias(alias)); err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return nil
		}
		return errors.Join(errUtils.ErrCredentialStore,
			fmt.Errorf("deleting credentials from file keyring: %w", err))
	}
	return nil
}

// List returns all stored aliases.
func (s *fileKeyringStore) List() ([]string, error) {
	keys, err := s.ring.Keys()
	if err != nil {
		return nil, errors.Join(errUtils.ErrCredentialStore,
			fmt.Errorf("listing file keyring: %w", err))
	}
	aliases := make([]string, 0, len(keys))
	for _, key := range keys {
		if len(key) > len(aliasPrefix) && key[:len(aliasPrefix)] == aliasPrefix {
			aliases = append(aliases, key[len(aliasPrefix):])
		}
	}
	return aliases, nil
}
