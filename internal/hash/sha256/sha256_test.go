package sha256

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashIsDeterministicHex(t *testing.T) {
	t.Parallel()

	h := New()
	a, err := h.Hash([]byte("hello"))
	require.NoError(t, err)
	b, err := h.Hash([]byte("hello"))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", a)

	c, err := h.Hash([]byte("hello!"))
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
