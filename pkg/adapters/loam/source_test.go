package loam

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/vigil/internal/testutils"
	"github.com/aretw0/vigil/pkg/catalog"
	"github.com/aretw0/vigil/pkg/ports/tests"
)

func TestSource_Contract(t *testing.T) {
	_, repo := testutils.SetupTestRepo(t)
	ctx := context.Background()

	setupData := map[string][]byte{
		"customer": []byte("fields:\n  age: integer\n  name:\n    required: true\n    type: string\n"),
		"tag":      []byte("fields:\n  label: string\n"),
	}

	docs := []core.Document{
		{
			ID: "customer.md",
			Content: `---
fields:
  name:
    type: string
    required: true
  age: integer
---`,
		},
		{
			ID: "tag.md",
			Content: `---
fields:
  label: string
---`,
		},
	}
	for _, doc := range docs {
		require.NoError(t, repo.Save(ctx, doc))
	}

	source := New(loam.NewTypedRepository[SchemaMetadata](repo))
	tests.SchemaSourceContractTest(t, source, setupData)
}

func TestSource_OrderAndDescription(t *testing.T) {
	tmpDir, repo := testutils.SetupTestRepo(t)

	content := `---
order: [zeta, alpha]
fields:
  alpha: string
  mid: number
  zeta: { type: integer, min: 1 }
---
An ordered schema.`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "ordered.md"), []byte(content), 0644))

	source := New(loam.NewTypedRepository[SchemaMetadata](repo))
	data, err := source.GetDefinition("ordered")
	require.NoError(t, err)
	assert.Equal(t, "description: An ordered schema.\nfields:\n  zeta:\n    min: 1\n    type: integer\n  alpha: string\n  mid: number\n", string(data))

	c := catalog.New()
	require.NoError(t, c.Load(source))
	s, err := c.Get("ordered")
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, s.FieldNames())
	assert.Equal(t, "An ordered schema.", c.Description("ordered"))
}

func TestSource_NameFromMetadata(t *testing.T) {
	tmpDir, repo := testutils.SetupTestRepo(t)

	files := map[string]string{
		"customer-v2.md": "---\nname: Customer\nfields:\n  name: string\n---",
		"order.md":       "---\nfields:\n  customer: Customer\n---",
	}
	for filename, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, filename), []byte(content), 0644))
	}

	source := New(loam.NewTypedRepository[SchemaMetadata](repo))
	names, err := source.ListDefinitions()
	require.NoError(t, err)
	assert.Equal(t, []string{"Customer", "order"}, names)

	data, err := source.GetDefinition("Customer")
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: string")

	c := catalog.New()
	require.NoError(t, c.Load(source))
	assert.Equal(t, []string{"Customer", "order"}, c.Names())
}

func TestSource_DetectsCollisions(t *testing.T) {
	tmpDir, repo := testutils.SetupTestRepo(t)

	files := map[string]string{
		"foo.md": "---\nfields:\n  a: string\n---",
		"bar.md": "---\nname: foo\nfields:\n  b: string\n---",
	}
	for filename, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, filename), []byte(content), 0644))
	}

	source := New(loam.NewTypedRepository[SchemaMetadata](repo))
	_, err := source.ListDefinitions()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collision detected")
	assert.Contains(t, err.Error(), "foo")
}

func TestSource_MissingFields(t *testing.T) {
	tmpDir, repo := testutils.SetupTestRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "empty.md"), []byte("---\ndescription: nothing\n---"), 0644))

	source := New(loam.NewTypedRepository[SchemaMetadata](repo))
	_, err := source.GetDefinition("empty")
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, map[string]any{"min": int64(1), "max": 2.5, "list": []any{int64(3)}},
		normalize(map[string]any{"min": json.Number("1"), "max": json.Number("2.5"), "list": []any{json.Number("3")}}))
}
