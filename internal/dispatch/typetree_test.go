package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeTree_Register(t *testing.T) {
	tree := NewTypeTree("any")

	require.NoError(t, tree.Register("number", "any"))
	require.NoError(t, tree.Register("int", "number"))

	// Same parent again: no-op.
	require.NoError(t, tree.Register("int", "number"))

	// Re-parenting is rejected.
	err := tree.Register("int", "any")
	assert.Error(t, err)

	// Unknown parent is rejected.
	err = tree.Register("float", "decimal")
	assert.Error(t, err)
}

func TestTypeTree_Chain(t *testing.T) {
	tree := NewTypeTree("any")
	require.NoError(t, tree.Register("number", "any"))
	require.NoError(t, tree.Register("int", "number"))

	assert.Equal(t, []string{"int", "number", "any"}, tree.Chain("int"))
	assert.Equal(t, []string{"any"}, tree.Chain("any"))
	assert.Nil(t, tree.Chain("unknown"))
}

func TestTypeTree_Derives(t *testing.T) {
	tree := NewTypeTree("any")
	require.NoError(t, tree.Register("number", "any"))
	require.NoError(t, tree.Register("int", "number"))
	require.NoError(t, tree.Register("string", "any"))

	assert.True(t, tree.Derives("int", "number"))
	assert.True(t, tree.Derives("int", "any"))
	assert.True(t, tree.Derives("int", "int"))
	assert.False(t, tree.Derives("number", "int"))
	assert.False(t, tree.Derives("string", "number"))
	assert.False(t, tree.Derives("unknown", "any"))
}

func TestTypeTree_KnownAndRoot(t *testing.T) {
	tree := NewTypeTree("any")
	require.NoError(t, tree.Register("number", "any"))

	assert.Equal(t, "any", tree.Root())
	assert.True(t, tree.Known("any"))
	assert.True(t, tree.Known("number"))
	assert.False(t, tree.Known("int"))
}
