package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutObjectRoundTrip(t *testing.T) {
	t.Parallel()

	store := New()
	uri, err := store.PutObject(context.Background(), "pages/static/abc.html", "text/html", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "memory://pages/static/abc.html", uri)

	data, ok := store.Get("pages/static/abc.html")
	require.True(t, ok)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, 1, store.Len())

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestPutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := New()
	payload := []byte("original")
	_, err := store.PutObject(context.Background(), "p", "text/plain", payload)
	require.NoError(t, err)

	payload[0] = 'X'
	data, ok := store.Get("p")
	require.True(t, ok)
	assert.Equal(t, "original", string(data))
}

func TestPutObjectRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := New().PutObject(context.Background(), "", "text/plain", []byte("x"))
	require.Error(t, err)
}
