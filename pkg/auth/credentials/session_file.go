package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	errUtils "github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/errors"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/auth/types"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/logger"
)

// CacheFilePermissions restricts cache files to the owner.
const CacheFilePermissions = 0o600

// sessionFileStore stores records as plain JSON files with owner-only
// permissions. This is the default backend: it needs no OS secure store and
// no password, trading secrecy-at-rest for portability.
type sessionFileStore struct {
	dir string
}

func defaultSessionCacheDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(homeDir, ".ccwb", "cache"), nil
}

func newSessionFileStore(dir string) (*sessionFileStore, error) {
	if dir == "" {
		defaultDir, err := defaultSessionCacheDir()
		if err != nil {
			return nil, errors.Join(errUtils.ErrCredentialStore, err)
		}
		dir = defaultDir
	}
	if err := os.MkdirAll(dir, KeyringDirPermissions); err != nil {
		return nil, errors.Join(errUtils.ErrCredentialStore,
			fmt.Errorf("creating cache directory: %w", err))
	}
	return &sessionFileStore{dir: dir}, nil
}

func (s *sessionFileStore) filePath(alias string) string {
	return filepath.Join(s.dir, storageAlias(alias)+".json")
}

// Store writes the record atomically: a temp file in the same directory is
// renamed over the target so a concurrent reader never sees a partial write.
func (s *sessionFileStore) Store(alias string, record *types.CachedCredentials) error {
	data, err := marshalRecord(record)
	if err != nil {
		return err
	}

	target := s.filePath(alias)
	tmp, err := os.CreateTemp(s.dir, storageAlias(alias)+".*.tmp")
	if err != nil {
		return errors.Join(errUtils.ErrCredentialStore,
			fmt.Errorf("creating temp cache file: %w", err))
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(CacheFilePermissions); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Join(errUtils.ErrCredentialStore,
			fmt.Errorf("setting cache file permissions: %w", err))
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Join(errUtils.ErrCredentialStore,
			fmt.Errorf("writing cache file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Join(errUtils.ErrCredentialStore,
			fmt.Errorf("closing cache file: %w", err))
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return errors.Join(errUtils.ErrCredentialStore,
			fmt.Errorf("committing cache file: %w", err))
	}
	return nil
}

// Retrieve returns the record for the given alias. Corrupt files are removed
// and reported as a cache miss.
func (s *sessionFileStore) Retrieve(alias string) (*types.CachedCredentials, error) {
	data, err := os.ReadFile(s.filePath(alias))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errUtils.ErrCredentialsNotFound
		}
		return nil, errors.Join(errUtils.ErrCredentialStore,
			fmt.Errorf("reading cache file: %w", err))
	}

	record, err := unmarshalRecord(data)
	if err != nil {
		if errors.Is(err, errUtils.ErrCacheCorruption) {
			logger.Debug("Removing corrupt cache file", "alias", alias)
			os.Remove(s.filePath(alias))
		}
		return nil, err
	}
	return record, nil
}

// Delete removes the record for the given alias.
func (s *sessionFileStore) Delete(alias string) error {
	if err := os.Remove(s.filePath(alias)); err != nil && !os.IsNotExist(err) {
		return errors.Join(errUtils.ErrCredentialStore,
			fmt.Errorf("deleting cache file: %w", err))
	}
	return nil
}

// List returns the aliases with stored records.
func (s *sessionFileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Join(errUtils.ErrCredentialStore,
			fmt.Errorf("listing cache directory: %w", err))
	}
	var aliases []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, aliasPrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		aliases = append(aliases, strings.TrimSuffix(strings.TrimPrefix(name, aliasPrefix), ".json"))
	}
	return aliases, nil
}
