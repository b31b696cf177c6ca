package handlers

import (
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebuildervaibhav/transcript-console/internal/storage"
)

func TestPreferencesHandler(t *testing.T) {
	db, err := storage.NewPreferencesDB(filepath.Join(t.TempDir(), "console.db"), 2)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	env := newTestEnv(t, func(d *Deps) { d.Preferences = db })

	t.Run("should 404 an unset preference", func(t *testing.T) {
		resp, _ := doJSON(t, env, http.MethodGet, "/preferences/theme", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("should store and read a preference", func(t *testing.T) {
		resp, _ := doJSON(t, env, http.MethodPut, "/preferences/theme", PreferenceRequest{Value: "dark"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		_, body := doJSON(t, env, http.MethodGet, "/preferences/theme", nil)
		assert.Equal(t, "dark", body["value"])
	})

	t.Run("should keep the latest searches", func(t *testing.T) {
		for _, q := range []string{"one", "two", "three"} {
			doJSON(t, env, http.MethodPost, "/searches", SearchRequest{Query: q})
		}

		_, body := doJSON(t, env, http.MethodGet, "/searches", nil)

		assert.Equal(t, []interface{}{"three", "two"}, body["searches"])
	})
}
