package credentials

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	errUtils "github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/errors"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/auth/types"
)

// systemKeyringStore stores records in the OS secure store (macOS Keychain,
// Windows Credential Manager, freedesktop Secret Service) via Zalando go-keyring.
type systemKeyringStore struct{}

// newSystemKeyringStore creates a system keyring store. It probes keyring
// availability with a read of a non-existent key: ErrNotFound means the
// keyring works, anything else (e.g. no dbus in a container) means it does not.
func newSystemKeyringStore() (*systemKeyringStore, error) {
	_, err := keyring.Get(aliasPrefix+"availability-probe", KeyringUser)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return nil, errors.Join(errUtils.ErrCredentialStore,
			fmt.Errorf("system keyring not available: %w", err))
	}
	return &systemKeyringStore{}, nil
}

// Store persists the record for the given alias.
func (s *systemKeyringStore) Store(alias string, record *types.CachedCredentials) error {
	data, err := marshalRecord(record)
	if err != nil {
		return err
	}
	if err := keyring.Set(storageAlias(alias), KeyringUser, string(data)); err != nil {
		return errors.Join(errUtils.ErrCredentialStore,
			fmt.Errorf("storing credentials in system keyring: %w", err))
	}
	return nil
}

// Retrieve returns the record for the given alias.
func (s *systemKeyringStore) Retrieve(alias string) (*types.CachedCredentials, error) {
	data, err := keyring.Get(storageAlias(alias), KeyringUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, errUtils.ErrCredentialsNotFound
		}
		return nil, errors.Join(errUtils.ErrCredentialStore,
			fmt.Errorf("reading credentials from system keyring: %w", err))
	}
	return unmarshalRecord([]byte(data))
}

// Delete overwrites the record with a cleared envelope instead of removing
// the keyring entry. On macOS, deleting and re-creating a keychain item drops
// the ACL granting this binary silent access, which would re-prompt the user
// on every subsequent write.
func (s *systemKeyringStore) Delete(alias string) error {
	if _, err := keyring.Get(storageAlias(alias), KeyringUser); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return errors.Join(errUtils.ErrCredentialStore,
			fmt.Errorf("reading credentials from system keyring: %w", err))
	}
	if err := keyring.Set(storageAlias(alias), KeyringUser, string(clearedEnvelope())); err != nil {
		return errors.Join(errUtils.ErrCredentialStore,
			fmt.Errorf("clearing credentials in system keyring: %w", err))
	}
	return nil
}

// List is not supported: go-keyring provides no enumeration API.
func (s *systemKeyringStore) List() ([]string, error) {
	return nil, errors.Join(errUtils.ErrCredentialStore, errUtils.ErrNotSupported)
}
