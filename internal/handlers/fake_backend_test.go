package handlers

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/codebuildervaibhav/transcript-console/internal/apiclient"
	"github.com/codebuildervaibhav/transcript-console/internal/editor"
	"github.com/codebuildervaibhav/transcript-console/internal/library"
	"github.com/codebuildervaibhav/transcript-console/internal/types"
)

// fakeBackend stands in for the auth and transcription services.
type fakeBackend struct {
	mu          sync.Mutex
	loggedIn    bool
	loginErr    error
	transcripts map[string]*types.Transcript
	textCalls   []apiclient.TextChanges
	speakerReqs []apiclient.SpeakerRename
	deleteFail  map[string]bool
}

func newFakeBackend(transcripts ...*types.Transcript) *fakeBackend {
	f := &fakeBackend{
		loggedIn:    true,
		transcripts: map[string]*types.Transcript{},
		deleteFail:  map[string]bool{},
	}
	for _, tr := range transcripts {
		f.transcripts[tr.ID] = tr
	}
	return f
}

func (f *fakeBackend) Login(ctx context.Context, username, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loginErr != nil {
		return f.loginErr
	}
	f.loggedIn = true
	return nil
}

func (f *fakeBackend) Logout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loggedIn = false
	return errors.New("backend unreachable")
}

func (f *fakeBackend) LoggedIn() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loggedIn
}

func (f *fakeBackend) ListTranscripts(ctx context.Context) ([]*types.Transcript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*types.Transcript, 0, len(f.transcripts))
	for _, tr := range f.transcripts {
		cp := tr.Clone()
		cp.Segments = nil
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeBackend) GetTranscript(ctx context.Context, id string) (*types.Transcript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tr, ok := f.transcripts[id]
	if !ok {
		return nil, &apiclient.APIError{StatusCode: 404, Path: "/transcriptions/" + id}
	}
	return tr.Clone(), nil
}

func (f *fakeBackend) RenameTranscript(ctx context.Context, id, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tr, ok := f.transcripts[id]; ok {
		tr.Name = name
	}
	return nil
}

func (f *fakeBackend) DeleteTranscript(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteFail[id] {
		return &apiclient.APIError{StatusCode: 500, Message: "delete failed"}
	}
	delete(f.transcripts, id)
	return nil
}

func (f *fakeBackend) RenameTranscribedText(ctx context.Context, transcriptID string, changes apiclient.TextChanges) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textCalls = append(f.textCalls, changes)
	return nil
}

func (f *fakeBackend) RenameSegmentSpeaker(ctx context.Context, transcriptID string, r apiclient.SpeakerRename) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.speakerReqs = append(f.speakerReqs, r)
	return nil
}

var created = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func sampleTranscripts() []*types.Transcript {
	return []*types.Transcript{
		{
			ID: "t1", Name: "Interview", CreatedAt: created,
			Segments: []types.Segment{{ID: "s1", Speaker: "A", Start: 0, End: 1, Text: "hello"}},
		},
		{
			ID: "t2", Name: "Board meeting", CreatedAt: created.Add(-24 * time.Hour),
			Segments: []types.Segment{
				{ID: "a", Speaker: "A", Start: 0, End: 1, Text: "one"},
				{ID: "b", Speaker: "C", Start: 1, End: 2, Text: "two"},
				{ID: "c", Speaker: "A", Start: 2, End: 3, Text: "three"},
			},
		},
		{ID: "t3", Name: "Standup", CreatedAt: created.Add(-48 * time.Hour)},
	}
}

type testEnv struct {
	app      *fiber.App
	backend  *fakeBackend
	lib      *library.Library
	sessions *editor.Registry
}

func newTestEnv(t *testing.T, mutate func(*Deps)) *testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	backend := newFakeBackend(sampleTranscripts()...)
	lib := library.New(ctx, backend, time.Hour, nil)
	sessions := editor.NewRegistry(ctx, backend, editor.Options{
		AutosaveInterval:  time.Hour,
		SavedDisplayDelay: time.Hour,
	})
	t.Cleanup(func() {
		sessions.CloseAll()
		lib.Close()
		cancel()
	})

	deps := Deps{
		Auth:      backend,
		Library:   lib,
		Sessions:  sessions,
		Layout:    ListLayout{RowHeight: 50, ViewportHeight: 500},
		AccessLog: io.Discard,
	}
	if mutate != nil {
		mutate(&deps)
	}
	require.NotNil(t, deps.Library)
	return &testEnv{app: NewApp(deps), backend: backend, lib: lib, sessions: sessions}
}

