// Package credentials implements the cached-credential stores. Backends share
// a JSON envelope format so a profile can be switched between storage modes
// without invalidating the record shape.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"

	errUtils "github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/errors"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/auth/types"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/schema"
)

const (
	// KeyringUser is the account name under which records are stored in the
	// OS keyring.
	KeyringUser = "ccwb-auth"

	// aliasPrefix namespaces our keyring entries away from other tools.
	aliasPrefix = "ccwb-"

	envelopeTypeCached = "cached_credentials"
	// envelopeTypeCleared marks a record that was logically deleted but kept
	// in place. Overwriting instead of deleting preserves the macOS keychain
	// ACL on the entry, so the next write does not re-prompt the user.
	envelopeTypeCleared = "cleared"
)

// credentialEnvelope wraps a typed payload for storage.
type credentialEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// NewCredentialStore creates the store backend selected by the profile.
func NewCredentialStore(profile *schema.Profile) (types.CredentialStore, error) {
	switch profile.CredentialStorage {
	case schema.StorageKeyring:
		return newSystemKeyringStore()
	case schema.StorageFile:
		return newFileKeyringStore(profile.Keyring)
	case schema.StorageSession, "":
		return newSessionFileStore("")
	case schema.StorageMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown credential_storage %q",
			errUtils.ErrInvalidProviderConfig, profile.CredentialStorage)
	}
}

func storageAlias(alias string) string {
	return aliasPrefix + alias
}

func marshalRecord(record *types.CachedCredentials) ([]byte, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, errors.Join(errUtils.ErrCredentialStore, fmt.Errorf("marshaling credentials: %w", err))
	}
	env := credentialEnvelope{Type: envelopeTypeCached, Data: raw}
	data, err := json.Marshal(&env)
	if err != nil {
		return nil, errors.Join(errUtils.ErrCredentialStore, fmt.Errorf("marshaling envelope: %w", err))
	}
	return data, nil
}

// unmarshalRecord decodes an envelope. Corrupt or cleared records come back
// as ErrCredentialsNotFound so callers treat them as a cache miss.
func unmarshalRecord(data []byte) (*types.CachedCredentials, error) {
	var env credentialEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", errUtils.ErrCredentialsNotFound, errUtils.ErrCacheCorruption)
	}
	switch env.Type {
	case envelopeTypeCached:
		var record types.CachedCredentials
		if err := json.Unmarshal(env.Data, &record); err != nil {
			return nil, fmt.Errorf("%w: %w", errUtils.ErrCredentialsNotFound, errUtils.ErrCacheCorruption)
		}
		if record.Credentials == nil {
			return nil, fmt.Errorf("%w: %w", errUtils.ErrCredentialsNotFound, errUtils.ErrCacheCorruption)
		}
		return &record, nil
	case envelopeTypeCleared:
		return nil, errUtils.ErrCredentialsNotFound
	default:
		return nil, fmt.Errorf("%w: %w", errUtils.ErrCredentialsNotFound, errUtils.ErrCacheCorruption)
	}
}

func clearedEnvelope() []byte {
	data, _ := json.Marshal(&credentialEnvelope{Type: envelopeTypeCleared, Data: json.RawMessage(`{}`)})
	return data
}
