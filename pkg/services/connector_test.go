package services

import (
	"context"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/syaikhipin/aidatasharing-sub001/pkg/apperrors"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/crypto"
)

func newConnectorFixture(t *testing.T) (ConnectorService, *mockConnectorRepo, *crypto.CredentialEncryptor) {
	t.Helper()
	encryptor, err := crypto.NewCredentialEncryptor(staticProvider("connector-test-passphrase"))
	require.NoError(t, err)
	repo := newMockConnectorRepo()
	return NewConnectorService(repo, encryptor, zap.NewNop()), repo, encryptor
}

func TestCreateConnector(t *testing.T) {
	svc, _, encryptor := newConnectorFixture(t)

	c, err := svc.Create(context.Background(), uuid.New(), "user-1", &CreateConnectorRequest{
		Name:          "orders-db",
		ConnectorType: "stub",
		AllowedOps:    []string{"get", "Post"},
		Config:        map[string]any{"host": "db.internal", "port": 5432},
		Credentials:   map[string]any{"password": "secret"},
	})
	require.NoError(t, err)

	assert.Equal(t, "stub", c.ConnectorType)
	assert.Equal(t, "/api/proxy/stub/orders-db", c.ProxyURL)
	assert.NotEmpty(t, c.ProxyID)
	assert.True(t, c.IsActive)
	assert.Equal(t, []string{"GET", "POST"}, c.AllowedOps)

	// Stored payloads are ciphertext that decrypts back to the originals.
	assert.NotContains(t, c.EncryptedConfig, "db.internal")
	assert.NotContains(t, c.EncryptedCredentials, "secret")

	cfg, err := encryptor.DecryptJSON(c.EncryptedConfig)
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg["host"])

	creds, err := encryptor.DecryptJSON(c.EncryptedCredentials)
	require.NoError(t, err)
	assert.Equal(t, "secret", creds["password"])
}

func TestCreateConnectorValidation(t *testing.T) {
	svc, _, _ := newConnectorFixture(t)

	t.Run("empty name", func(t *testing.T) {
		_, err := svc.Create(context.Background(), uuid.New(), "user-1", &CreateConnectorRequest{
			Name:          "   ",
			ConnectorType: "stub",
		})
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("unsupported type", func(t *testing.T) {
		_, err := svc.Create(context.Background(), uuid.New(), "user-1", &CreateConnectorRequest{
			Name:          "orders",
			ConnectorType: "oracle",
		})
		assert.ErrorIs(t, err, apperrors.ErrUnsupportedType)
	})

	t.Run("type aliases are normalized", func(t *testing.T) {
		// "stub" has no alias; registry aliases are covered in the adapters
		// package. Verify normalization at least lowercases.
		c, err := svc.Create(context.Background(), uuid.New(), "user-1", &CreateConnectorRequest{
			Name:          "orders",
			ConnectorType: "STUB",
		})
		require.NoError(t, err)
		assert.Equal(t, "stub", c.ConnectorType)
	})
}

func TestUpdateConnectorKeepsSecretsWhenOmitted(t *testing.T) {
	svc, _, _ := newConnectorFixture(t)

	created, err := svc.Create(context.Background(), uuid.New(), "user-1", &CreateConnectorRequest{
		Name:          "orders",
		ConnectorType: "stub",
		Config:        map[string]any{"host": "db.internal"},
		Credentials:   map[string]any{"password": "secret"},
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, &UpdateConnectorRequest{
		Description: "order history backend",
	})
	require.NoError(t, err)
	assert.Equal(t, "order history backend", updated.Description)
	// Empty encrypted fields tell the repository to keep the stored values.
	assert.Empty(t, updated.EncryptedConfig)
}

func TestAvailableTypesSorted(t *testing.T) {
	svc, _, _ := newConnectorFixture(t)

	types := svc.AvailableTypes()
	require.NotEmpty(t, types)
	assert.True(t, sort.SliceIsSorted(types, func(i, j int) bool {
		return types[i].Type < types[j].Type
	}))

	found := false
	for _, info := range types {
		if info.Type == "stub" {
			found = true
		}
	}
	assert.True(t, found)
}
