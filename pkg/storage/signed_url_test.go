package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	token, expiresAt, err := signer.Generate("doc-1", "user-1/doc-1.pdf")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	docID, key, _, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", docID)
	assert.Equal(t, "user-1/doc-1.pdf", key)
}

func TestSignedURLTamperDetection(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	token, _, err := signer.Generate("doc-1", "user-1/doc-1.pdf")
	require.NoError(t, err)

	// Swap the document id for another one.
	parts := strings.SplitN(token, ".", 2)
	forged := "doc-2." + parts[1]
	_, _, _, err = signer.Parse(forged)
	assert.Error(t, err)
}

func TestSignedURLWrongSecret(t *testing.T) {
	token, _, err := NewSignedURLSigner("secret-a", time.Minute).Generate("doc-1", "k")
	require.NoError(t, err)

	_, _, _, err = NewSignedURLSigner("secret-b", time.Minute).Parse(token)
	assert.Error(t, err)
}

func TestSignedURLExpiry(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	signer.ttl = -time.Minute

	token, _, err := signer.Generate("doc-1", "k")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token)
	assert.ErrorContains(t, err, "expired")
}

func TestSignedURLGarbage(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	for _, token := range []string{"", "a.b", "a.b.c.d.e", "doc.notanumber.a2V5.sig"} {
		_, _, _, err := signer.Parse(token)
		assert.Error(t, err, "token=%q", token)
	}
}
