package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/vigil/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunReportStoreContract runs a suite of tests to verify that a ReportStore implementation
// adheres to the defined interface contract.
func RunReportStoreContract(t *testing.T, store ReportStore) {
	ctx := context.Background()

	t.Run("Save and Load", func(t *testing.T) {
		report := domain.NewReport("order")
		report.Valid = false
		report.Messages["id"] = "required"
		report.Messages["items.0.qty"] = "minNumber"
		report.Fields = []string{"id", "items"}
		report.Document = map[string]any{"note": "hello"}
		report.Duration = 3 * time.Millisecond

		err := store.Save(ctx, report)
		require.NoError(t, err, "Save should not return error")
		defer func() { _ = store.Delete(ctx, report.ID) }()

		loaded, err := store.Load(ctx, report.ID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, report.ID, loaded.ID)
		assert.Equal(t, "order", loaded.Schema)
		assert.False(t, loaded.Valid)
		assert.Equal(t, report.Messages, loaded.Messages)
		assert.Equal(t, report.Fields, loaded.Fields)
		assert.Equal(t, report.Duration, loaded.Duration)
		assert.True(t, report.CreatedAt.Equal(loaded.CreatedAt))
		// Document values may change representation through serialization.
		assert.NotNil(t, loaded.Document["note"])
	})

	t.Run("Load Returns A Copy", func(t *testing.T) {
		report := domain.NewReport("order")
		require.NoError(t, store.Save(ctx, report))
		defer func() { _ = store.Delete(ctx, report.ID) }()

		report.Messages["late"] = "mutation"
		loaded, err := store.Load(ctx, report.ID)
		require.NoError(t, err)
		assert.Empty(t, loaded.Messages, "stored report must not alias the caller's maps")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+time.Now().Format("150405.000"))
		assert.ErrorIs(t, err, domain.ErrReportNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		report := domain.NewReport("order")
		require.NoError(t, store.Save(ctx, report))

		err := store.Delete(ctx, report.ID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, report.ID)
		assert.ErrorIs(t, err, domain.ErrReportNotFound, "Load after Delete should return ErrReportNotFound")

		assert.NoError(t, store.Delete(ctx, report.ID), "deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		r1 := domain.NewReport("a")
		r2 := domain.NewReport("b")
		require.NoError(t, store.Save(ctx, r1))
		require.NoError(t, store.Save(ctx, r2))
		defer func() {
			_ = store.Delete(ctx, r1.ID)
			_ = store.Delete(ctx, r2.ID)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, r1.ID)
		assert.Contains(t, ids, r2.ID)
	})
}
