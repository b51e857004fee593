package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry()

	id1, ing := r.Resolve("lime", "fruit")
	require.NotNil(t, ing)
	assert.Equal(t, id1, ing.ID)
	assert.Equal(t, "lime", ing.Name)
	assert.Equal(t, "fruit", ing.Category)

	id2, ing := r.Resolve("lime", "citrus")
	assert.Nil(t, ing, "repeat sight creates nothing")
	assert.Equal(t, id1, id2)

	id3, ing := r.Resolve("Lime", "fruit")
	assert.NotNil(t, ing, "names are compared exactly")
	assert.NotEqual(t, id1, id3)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_Seed(t *testing.T) {
	r := NewRegistry()
	r.Seed(map[string]string{"lime": "existing-id"})

	id, ing := r.Resolve("lime", "fruit")
	assert.Nil(t, ing)
	assert.Equal(t, "existing-id", id)
}
