package library

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebuildervaibhav/transcript-console/internal/types"
)

type fakeAPI struct {
	mu        sync.Mutex
	items     []*types.Transcript
	renames   map[string]string
	deleted   []string
	failIDs   map[string]bool
	renameErr error
}

func newFakeAPI(items ...*types.Transcript) *fakeAPI {
	return &fakeAPI{items: items, renames: map[string]string{}, failIDs: map[string]bool{}}
}

func (f *fakeAPI) ListTranscripts(ctx context.Context) ([]*types.Transcript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*types.Transcript, len(f.items))
	for i, tr := range f.items {
		out[i] = tr.Clone()
	}
	return out, nil
}

func (f *fakeAPI) RenameTranscript(ctx context.Context, id, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.renameErr != nil {
		return f.renameErr
	}
	f.renames[id] = name
	return nil
}

func (f *fakeAPI) DeleteTranscript(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIDs[id] {
		return errors.New("backend refused")
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeAPI) renamed(id string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.renames[id]
	return name, ok
}

func transcript(id, name string, created time.Time) *types.Transcript {
	return &types.Transcript{ID: id, Name: name, CreatedAt: created}
}

var base = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func loaded(t *testing.T, api *fakeAPI, debounce time.Duration) *Library {
	t.Helper()
	lib := New(context.Background(), api, debounce, nil)
	require.NoError(t, lib.Load(context.Background()))
	t.Cleanup(lib.Close)
	return lib
}

func ids(items []*types.Transcript) []string {
	out := make([]string, len(items))
	for i, tr := range items {
		out[i] = tr.ID
	}
	return out
}

func TestLibrary_Load(t *testing.T) {
	t.Run("should sort transcripts newest first", func(t *testing.T) {
		api := newFakeAPI(
			transcript("old", "Old", base.Add(-48*time.Hour)),
			transcript("new", "New", base),
			transcript("mid", "Mid", base.Add(-24*time.Hour)),
		)
		lib := loaded(t, api, time.Hour)

		assert.Equal(t, []string{"new", "mid", "old"}, ids(lib.Items()))
		assert.False(t, lib.LoadedAt().IsZero())
	})
}

func TestLibrary_Rename(t *testing.T) {
	t.Run("should update locally and send on blur", func(t *testing.T) {
		api := newFakeAPI(transcript("t1", "Interview", base))
		lib := loaded(t, api, time.Hour)

		require.NoError(t, lib.Rename("t1", "  Interview v2 "))
		assert.Equal(t, "Interview v2", lib.Items()[0].Name)
		_, sent := api.renamed("t1")
		assert.False(t, sent, "rename should wait for the debounce")

		assert.True(t, lib.Blur("t1"))
		name, sent := api.renamed("t1")
		assert.True(t, sent)
		assert.Equal(t, "Interview v2", name)
		assert.False(t, lib.Blur("t1"))
	})

	t.Run("should send after the debounce", func(t *testing.T) {
		api := newFakeAPI(transcript("t1", "Interview", base))
		lib := loaded(t, api, 10*time.Millisecond)

		require.NoError(t, lib.Rename("t1", "A"))
		require.NoError(t, lib.Rename("t1", "AB"))

		assert.Eventually(t, func() bool {
			name, ok := api.renamed("t1")
			return ok && name == "AB"
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("should reject empty names and unknown ids", func(t *testing.T) {
		lib := loaded(t, newFakeAPI(transcript("t1", "Interview", base)), time.Hour)

		var verr *types.ValidationError
		assert.ErrorAs(t, lib.Rename("t1", "   "), &verr)
		assert.ErrorIs(t, lib.Rename("nope", "x"), ErrUnknownTranscript)
	})

	t.Run("should report backend failures through the hook", func(t *testing.T) {
		api := newFakeAPI(transcript("t1", "Interview", base))
		api.renameErr = errors.New("boom")
		lib := loaded(t, api, time.Hour)

		var failed string
		lib.OnRenameError = func(id string, err error) { failed = id }
		require.NoError(t, lib.Rename("t1", "New"))
		lib.Blur("t1")

		assert.Equal(t, "t1", failed)
	})
}

func TestLibrary_Delete(t *testing.T) {
	t.Run("should navigate away when deleting the active transcript", func(t *testing.T) {
		// Arrange
		api := newFakeAPI(transcript("t1", "A", base), transcript("t2", "B", base.Add(-time.Hour)))
		lib := loaded(t, api, time.Hour)
		lib.SetActive("t1")

		// Act
		away, err := lib.Delete(context.Background(), "t1")

		// Assert
		require.NoError(t, err)
		assert.True(t, away)
		assert.Empty(t, lib.Active())
		assert.Equal(t, []string{"t2"}, ids(lib.Items()))
	})

	t.Run("should stay when deleting another transcript", func(t *testing.T) {
		api := newFakeAPI(transcript("t1", "A", base), transcript("t2", "B", base.Add(-time.Hour)))
		lib := loaded(t, api, time.Hour)
		lib.SetActive("t1")

		away, err := lib.Delete(context.Background(), "t2")

		require.NoError(t, err)
		assert.False(t, away)
		assert.Equal(t, "t1", lib.Active())
	})

	t.Run("should drop a pending rename of the deleted transcript", func(t *testing.T) {
		api := newFakeAPI(transcript("t1", "A", base))
		lib := loaded(t, api, time.Hour)
		require.NoError(t, lib.Rename("t1", "B"))

		_, err := lib.Delete(context.Background(), "t1")
		require.NoError(t, err)

		assert.False(t, lib.Blur("t1"))
		_, sent := api.renamed("t1")
		assert.False(t, sent)
	})

	t.Run("should keep a pending rename when the delete fails", func(t *testing.T) {
		// Arrange
		api := newFakeAPI(transcript("t1", "A", base))
		api.failIDs["t1"] = true
		lib := loaded(t, api, time.Hour)
		require.NoError(t, lib.Rename("t1", "B"))

		// Act
		_, err := lib.Delete(context.Background(), "t1")

		// Assert
		require.Error(t, err)
		assert.True(t, lib.Blur("t1"))
		name, sent := api.renamed("t1")
		assert.True(t, sent)
		assert.Equal(t, "B", name)
	})

	t.Run("should report partial failures of a bulk delete", func(t *testing.T) {
		api := newFakeAPI(
			transcript("t1", "A", base),
			transcript("t2", "B", base.Add(-time.Hour)),
			transcript("t3", "C", base.Add(-2*time.Hour)),
		)
		api.failIDs["t2"] = true
		lib := loaded(t, api, time.Hour)

		_, err := lib.DeleteMany(context.Background(), []string{"t1", "t2", "t3"})

		var perr *PartialFailureError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, []string{"t2"}, perr.Failed)
		assert.Equal(t, 3, perr.Total)
		assert.Equal(t, []string{"t2"}, ids(lib.Items()))
	})
}
