// ABOUTME: Tests for identity generation and persistence.
// ABOUTME: Covers reserved prefixes, sign/verify, and save/load round-trips.

package identity

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	id, err := Generate()
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.NotEqual(t, byte(0x00), id.PubKey[0])
	assert.NotEqual(t, byte(0xFF), id.PubKey[0])
}

func TestSignVerify(t *testing.T) {
	id, err := Generate()
	require.NoError(t, err)

	msg := []byte("advert payload")
	sig := id.Sign(msg)
	assert.True(t, Verify(id.PubKey, msg, sig))
	assert.False(t, Verify(id.PubKey, []byte("tampered"), sig))

	other, err := Generate()
	require.NoError(t, err)
	assert.False(t, Verify(other.PubKey, msg, sig))
}

func TestStore_SaveLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	store := NewStore(dir)

	_, err := store.Load("_main")
	assert.Error(t, err, "unprovisioned store has no identity")

	id, err := Generate()
	require.NoError(t, err)
	require.NoError(t, store.Save("_main", id))

	got, err := store.Load("_main")
	require.NoError(t, err)
	assert.Equal(t, id.PubKey, got.PubKey)

	// The loaded private key still signs compatibly.
	msg := []byte("x")
	assert.True(t, Verify(id.PubKey, msg, got.Sign(msg)))
}
