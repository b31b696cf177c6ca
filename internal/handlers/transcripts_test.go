package handlers

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebuildervaibhav/transcript-console/internal/storage"
)

func itemIDs(body map[string]interface{}) []string {
	var out []string
	items, _ := body["items"].([]interface{})
	for _, it := range items {
		out = append(out, it.(map[string]interface{})["id"].(string))
	}
	return out
}

func TestTranscriptsHandler_List(t *testing.T) {
	t.Run("should page the list newest first by viewport", func(t *testing.T) {
		env := newTestEnv(t, nil)

		resp, body := doJSON(t, env, http.MethodGet, "/transcripts?viewport=100&page=2", nil)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, []string{"t3"}, itemIDs(body))
		assert.Equal(t, float64(2), body["page_size"])
		assert.Equal(t, float64(2), body["pages"])
		assert.Equal(t, float64(3), body["total"])
	})

	t.Run("should filter by date range", func(t *testing.T) {
		env := newTestEnv(t, nil)

		_, body := doJSON(t, env, http.MethodGet, "/transcripts?from=2024-04-30&to=2024-04-30", nil)

		assert.Equal(t, []string{"t2"}, itemIDs(body))
	})

	t.Run("should reject malformed dates", func(t *testing.T) {
		env := newTestEnv(t, nil)

		resp, body := doJSON(t, env, http.MethodGet, "/transcripts?from=yesterday", nil)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "ERR_INVALID_DATE", body["code"])
	})

	t.Run("should filter by name and remember the search", func(t *testing.T) {
		db, err := storage.NewPreferencesDB(filepath.Join(t.TempDir(), "console.db"), 0)
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		env := newTestEnv(t, func(d *Deps) { d.Preferences = db })

		_, body := doJSON(t, env, http.MethodGet, "/transcripts?q=board", nil)

		assert.Equal(t, []string{"t2"}, itemIDs(body))
		searches, err := db.RecentSearches(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"board"}, searches)
	})
}

func TestTranscriptsHandler_Rename(t *testing.T) {
	t.Run("should send the rename on commit", func(t *testing.T) {
		env := newTestEnv(t, nil)
		doJSON(t, env, http.MethodGet, "/transcripts", nil)

		resp, body := doJSON(t, env, http.MethodPut, "/transcripts/t1", RenameRequest{Name: "Renamed", Commit: true})

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, false, body["pending"])
		tr, err := env.backend.GetTranscript(context.Background(), "t1")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", tr.Name)
	})

	t.Run("should reject an empty name", func(t *testing.T) {
		env := newTestEnv(t, nil)
		doJSON(t, env, http.MethodGet, "/transcripts", nil)

		resp, body := doJSON(t, env, http.MethodPut, "/transcripts/t1", RenameRequest{Name: " "})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "ERR_VALIDATION", body["code"])
	})
}

func TestTranscriptsHandler_Delete(t *testing.T) {
	t.Run("should navigate away when the active transcript is deleted", func(t *testing.T) {
		// Arrange
		env := newTestEnv(t, nil)
		doJSON(t, env, http.MethodGet, "/transcripts", nil)
		_, opened := doJSON(t, env, http.MethodPost, "/sessions", OpenRequest{TranscriptID: "t1"})
		sessionID := opened["session_id"].(string)

		// Act
		resp, body := doJSON(t, env, http.MethodDelete, "/transcripts/t1", nil)

		// Assert
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["navigate_away"])
		assert.Equal(t, float64(1), body["sessions_closed"])
		_, list := doJSON(t, env, http.MethodGet, "/transcripts", nil)
		assert.Equal(t, []string{"t2", "t3"}, itemIDs(list))
		assert.Equal(t, "", list["active"])

		resp, _ = doJSON(t, env, http.MethodGet, "/sessions/"+sessionID, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("should report partial bulk failures", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.backend.deleteFail["t2"] = true
		doJSON(t, env, http.MethodGet, "/transcripts", nil)

		resp, body := doJSON(t, env, http.MethodPost, "/transcripts/delete", BulkDeleteRequest{IDs: []string{"t1", "t2"}})

		assert.Equal(t, http.StatusMultiStatus, resp.StatusCode)
		assert.Equal(t, []interface{}{"t1"}, body["deleted"])
		assert.Equal(t, []interface{}{"t2"}, body["failed"])
		assert.Equal(t, "ERR_PARTIAL_FAILURE", body["code"])
	})

	t.Run("should require ids for a bulk delete", func(t *testing.T) {
		env := newTestEnv(t, nil)

		resp, _ := doJSON(t, env, http.MethodPost, "/transcripts/delete", BulkDeleteRequest{})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
