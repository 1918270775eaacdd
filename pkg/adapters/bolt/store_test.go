package bolt_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/vigil/pkg/adapters/bolt"
	"github.com/aretw0/vigil/pkg/domain"
	"github.com/aretw0/vigil/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoltStore_Contract(t *testing.T) {
	store, err := bolt.Open(filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)
	defer store.Close()

	ports.RunReportStoreContract(t, store)
}

func TestBoltStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.db")
	ctx := context.Background()

	store, err := bolt.Open(path, bolt.WithBucket("audit"))
	require.NoError(t, err)
	report := domain.NewReport("order")
	report.Messages["id"] = "required"
	require.NoError(t, store.Save(ctx, report))
	require.NoError(t, store.Close())

	reopened, err := bolt.Open(path, bolt.WithBucket("audit"))
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, "required", loaded.Messages["id"])
}

func TestBoltStore_CanceledContext(t *testing.T) {
	store, err := bolt.Open(filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, store.Save(ctx, domain.NewReport("x")), context.Canceled)
}
