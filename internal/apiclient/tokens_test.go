package apiclient

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestFileTokenStore(t *testing.T) {
	t.Run("should round trip tokens with private permissions", func(t *testing.T) {
		// Arrange
		path := filepath.Join(t.TempDir(), "nested", "session.json")
		store := NewFileTokenStore(path)

		// Act
		require.NoError(t, store.SetToken(&oauth2.Token{AccessToken: "a", RefreshToken: "r"}))
		tok, err := store.Token()

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "a", tok.AccessToken)
		assert.Equal(t, "r", tok.RefreshToken)
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})

	t.Run("should return nil when no file exists", func(t *testing.T) {
		store := NewFileTokenStore(filepath.Join(t.TempDir(), "session.json"))

		tok, err := store.Token()

		assert.NoError(t, err)
		assert.Nil(t, tok)
	})

	t.Run("should clear tokens", func(t *testing.T) {
		store := NewFileTokenStore(filepath.Join(t.TempDir(), "session.json"))
		require.NoError(t, store.SetToken(&oauth2.Token{AccessToken: "a"}))

		require.NoError(t, store.Clear())
		tok, err := store.Token()

		assert.NoError(t, err)
		assert.Nil(t, tok)
	})
}

func TestMemoryTokenStore_CopiesTokens(t *testing.T) {
	store := NewMemoryTokenStore()
	tok := &oauth2.Token{AccessToken: "a"}
	require.NoError(t, store.SetToken(tok))

	tok.AccessToken = "mutated"
	got, _ := store.Token()

	assert.Equal(t, "a", got.AccessToken)
}
