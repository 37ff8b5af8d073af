package credentials

import (
	"sync"

	errUtils "github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/errors"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/auth/types"
)

// memoryStore keeps records in process memory. Nothing survives the process;
// used in tests and as a last-resort fallback.
type memoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemoryStore creates an in-memory credential store.
func NewMemoryStore() types.CredentialStore {
	return &memoryStore{records: make(map[string][]byte)}
}

func (s *memoryStore) Store(alias string, record *types.CachedCredentials) error {
	data, err := marshalRecord(record)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[alias] = data
	return nil
}

func (s *memoryStore) Retrieve(alias string) (*types.CachedCredentials, error) {
	s.mu.RLock()
	data, ok := s.records[alias]
	s.mu.RUnlock()
	if !ok {
		return nil, errUtils.ErrCredentialsNotFound
	}
	return unmarshalRecord(data)
}

func (s *memoryStore) Delete(alias string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, alias)
	return nil
}

func (s *memoryStore) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	aliases := make([]string, 0, len(s.records))
	for alias := range s.records {
		aliases = append(aliases, alias)
	}
	return aliases, nil
}
