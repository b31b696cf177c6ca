package editor

import (
	"context"
	"sync"

	"github.com/codebuildervaibhav/transcript-console/internal/apiclient"
	"github.com/codebuildervaibhav/transcript-console/internal/types"
)

// fakeAPI records every backend call an editing session makes.
type fakeAPI struct {
	mu          sync.Mutex
	transcripts map[string]*types.Transcript
	textCalls   []textCall
	renameCalls []apiclient.SpeakerRename
	textErr     error
	renameErr   map[string]error
	// block, when set, holds text saves until it is closed or ctx ends.
	block chan struct{}
	// started receives a value when a text save begins.
	started chan struct{}
}

type textCall struct {
	TranscriptID string
	Changes      apiclient.TextChanges
}

func newFakeAPI(transcripts ...*types.Transcript) *fakeAPI {
	f := &fakeAPI{
		transcripts: make(map[string]*types.Transcript),
		renameErr:   make(map[string]error),
	}
	for _, tr := range transcripts {
		f.transcripts[tr.ID] = tr
	}
	return f
}

func (f *fakeAPI) GetTranscript(ctx context.Context, id string) (*types.Transcript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tr, ok := f.transcripts[id]
	if !ok {
		return nil, apiclient.ErrNotFound
	}
	return tr.Clone(), nil
}

func (f *fakeAPI) RenameTranscribedText(ctx context.Context, transcriptID string, changes apiclient.TextChanges) error {
	f.mu.Lock()
	f.textCalls = append(f.textCalls, textCall{TranscriptID: transcriptID, Changes: changes})
	block, started, err := f.block, f.started, f.textErr
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeAPI) RenameSegmentSpeaker(ctx context.Context, transcriptID string, r apiclient.SpeakerRename) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renameCalls = append(f.renameCalls, r)
	return f.renameErr[r.SegmentID]
}

func (f *fakeAPI) textCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.textCalls)
}

func (f *fakeAPI) lastTextCall() textCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.textCalls[len(f.textCalls)-1]
}

func (f *fakeAPI) renames() []apiclient.SpeakerRename {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]apiclient.SpeakerRename(nil), f.renameCalls...)
}

func sampleTranscript() *types.Transcript {
	return &types.Transcript{
		ID:   "t1",
		Name: "standup",
		Segments: []types.Segment{
			{ID: "s1", Speaker: "SPK1", Start: 0, End: 2, Text: "hello"},
		},
	}
}

func threeSpeakerTranscript() *types.Transcript {
	return &types.Transcript{
		ID:   "t2",
		Name: "panel",
		Segments: []types.Segment{
			{ID: "a", Speaker: "A", Start: 0, End: 1, Text: "one"},
			{ID: "b", Speaker: "C", Start: 1, End: 2, Text: "two"},
			{ID: "c", Speaker: "A", Start: 2, End: 3, Text: "three"},
		},
	}
}
