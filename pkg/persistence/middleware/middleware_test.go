package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/vigil/pkg/adapters/memory"
	"github.com/aretw0/vigil/pkg/domain"
	"github.com/aretw0/vigil/pkg/persistence/middleware"
	"github.com/aretw0/vigil/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func TestMiddleware_Contract(t *testing.T) {
	pii, err := middleware.NewPIIMiddleware([]string{"(?i)password"})
	require.NoError(t, err)
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	t.Run("PII", func(t *testing.T) {
		ports.RunReportStoreContract(t, pii(memory.NewStore()))
	})
	t.Run("Encryption", func(t *testing.T) {
		ports.RunReportStoreContract(t, enc(memory.NewStore()))
	})
	t.Run("Chain", func(t *testing.T) {
		ports.RunReportStoreContract(t, middleware.Wrap(memory.NewStore(), pii, enc))
	})
}

func TestChain_MasksBeforeEncrypting(t *testing.T) {
	pii, err := middleware.NewPIIMiddleware([]string{"password"})
	require.NoError(t, err)
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	store := middleware.Wrap(memory.NewStore(), pii, enc)
	ctx := context.Background()

	report := domain.NewReport("signup")
	report.Document = map[string]any{"password": "hunter2"}
	require.NoError(t, store.Save(ctx, report))

	loaded, err := store.Load(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, loaded.Document["password"])
}
