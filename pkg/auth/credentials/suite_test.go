package credentials

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errUtils "github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/errors"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/auth/types"
)

// StoreFactory creates a credential store for testing.
type StoreFactory func(t *testing.T) types.CredentialStore

// RunCredentialStoreTests runs the store test suite against any implementation.
func RunCredentialStoreTests(t *testing.T, factory StoreFactory) {
	t.Run("StoreAndRetrieve", func(t *testing.T) {
		testStoreAndRetrieve(t, factory)
	})

	t.Run("Overwrite", func(t *testing.T) {
		testOverwrite(t, factory)
	})

	t.Run("Delete", func(t *testing.T) {
		testDelete(t, factory)
	})

	t.Run("MissingAlias", func(t *testing.T) {
		testMissingAlias(t, factory)
	})
}

func testRecord(exp time.Time) *types.CachedCredentials {
	return &types.CachedCredentials{
		Credentials: &types.AWSCredentials{
			AccessKeyID:     "AKIA123",
			SecretAccessKey: "SECRET",
			SessionToken:    "TOKEN",
			Region:          "us-east-1",
			Expiration:      exp.UTC().Format(time.RFC3339),
		},
		IDToken:        "eyJ.header.payload",
		LastQuotaCheck: time.Now().UTC().Truncate(time.Second),
	}
}

func testStoreAndRetrieve(t *testing.T, factory StoreFactory) {
	store := factory(t)

	record := testRecord(time.Now().Add(time.Hour))
	require.NoError(t, store.Store("test-aws", record))

	retrieved, err := store.Retrieve("test-aws")
	require.NoError(t, err)
	require.NotNil(t, retrieved.Credentials)
	assert.Equal(t, record.Credentials.AccessKeyID, retrieved.Credentials.AccessKeyID)
	assert.Equal(t, record.Credentials.SecretAccessKey, retrieved.Credentials.SecretAccessKey)
	assert.Equal(t, record.Credentials.Expiration, retrieved.Credentials.Expiration)
	assert.Equal(t, record.IDToken, retrieved.IDToken)
	assert.True(t, retrieved.IsValid())
}

func testOverwrite(t *testing.T, factory StoreFactory) {
	store := factory(t)

	require.NoError(t, store.Store("ow", testRecord(time.Now().Add(-time.Hour))))
	fresh := testRecord(time.Now().Add(time.Hour))
	fresh.Credentials.AccessKeyID = "AKIA456"
	require.NoError(t, store.Store("ow", fresh))

	retrieved, err := store.Retrieve("ow")
	require.NoError(t, err)
	assert.Equal(t, "AKIA456", retrieved.Credentials.AccessKeyID)
	assert.True(t, retrieved.IsValid())
}

func testDelete(t *testing.T, factory StoreFactory) {
	store := factory(t)

	require.NoError(t, store.Store("test-delete", testRecord(time.Now().Add(time.Hour))))
	require.NoError(t, store.Delete("test-delete"))

	_, err := store.Retrieve("test-delete")
	assert.ErrorIs(t, err, errUtils.ErrCredentialsNotFound)

	// Deleting an absent alias is idempotent.
	assert.NoError(t, store.Delete("non-existent"))
}

func testMissingAlias(t *testing.T, factory StoreFactory) {
	store := factory(t)

	_, err := store.Retrieve("never-stored")
	assert.ErrorIs(t, err, errUtils.ErrCredentialsNotFound)
}
