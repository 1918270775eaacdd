package memory_test

import (
	"testing"

	"github.com/aretw0/vigil/pkg/adapters/memory"
	contract "github.com/aretw0/vigil/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySource_Contract(t *testing.T) {
	data := map[string]string{
		"user":  "fields:\n  name: string\n",
		"order": "fields:\n  id: string\n",
	}

	// The harness compares raw bytes.
	bytesData := make(map[string][]byte)
	for k, v := range data {
		bytesData[k] = []byte(v)
	}

	contract.SchemaSourceContractTest(t, memory.NewSource(data), bytesData)
}

func TestNewFromValues(t *testing.T) {
	src, err := memory.NewFromValues(map[string]any{
		"user": map[string]any{"fields": map[string]any{"name": "string"}},
	})
	require.NoError(t, err)

	raw, err := src.GetDefinition("user")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "name: string")

	_, err = memory.NewFromValues(map[string]any{"": 1})
	assert.Error(t, err)
}
