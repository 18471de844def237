package storage

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir(), "http://localhost:4050")
	require.NoError(t, err)
	return store
}

func TestLocalStorePutOpenDelete(t *testing.T) {
	store := newTestStore(t)

	url, err := store.Put("user-1/doc-1.pdf", []byte("hello"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4050/files/user-1/doc-1.pdf", url)

	f, err := store.Open("user-1/doc-1.pdf")
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	f.Close()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, store.Delete("user-1/doc-1.pdf"))
	_, err = store.Open("user-1/doc-1.pdf")
	assert.Error(t, err)

	// Deleting again is a no-op.
	assert.NoError(t, store.Delete("user-1/doc-1.pdf"))
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store := newTestStore(t)

	// Cleaning pins the key under the base directory regardless of dots.
	url, err := store.Put("../../etc/passwd", []byte("x"), "text/plain")
	require.NoError(t, err)
	assert.Contains(t, url, "/files/")

	f, err := store.Open("etc/passwd")
	require.NoError(t, err)
	f.Close()
}

func TestLocalStoreURLEscaping(t *testing.T) {
	store := newTestStore(t)
	assert.Equal(t,
		"http://localhost:4050/files/user-1/my%20report.pdf",
		store.URL("user-1/my report.pdf"))
}
