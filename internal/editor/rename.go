package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/codebuildervaibhav/transcript-console/internal/apiclient"
	"github.com/codebuildervaibhav/transcript-console/internal/types"
)

var ErrSpeakerMismatch = errors.New("editor: segment speaker does not match")

// RenameError aggregates the per-segment rename calls that failed.
type RenameError struct {
	Failed []string
	Total  int
	Err    error
}

func (e *RenameError) Error() string {
	return fmt.Sprintf("editor: %d of %d speaker renames failed: %v", len(e.Failed), e.Total, e.Err)
}

func (e *RenameError) Unwrap() error { return e.Err }

// SpeakerRenamer is the backend call used to persist one segment's speaker.
type SpeakerRenamer interface {
	RenameSegmentSpeaker(ctx context.Context, transcriptID string, r apiclient.SpeakerRename) error
}

// Propagator applies speaker renames to the in-memory transcript and queues one
// backend call per renamed segment. Not safe for concurrent use.
type Propagator struct {
	transcript *types.Transcript
	pending    []apiclient.SpeakerRename
}

func NewPropagator(transcript *types.Transcript) *Propagator {
	return &Propagator{transcript: transcript}
}

// RenameSpeaker relabels every segment spoken by oldName and returns their ids.
func (p *Propagator) RenameSpeaker(oldName, newName string) ([]string, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, &types.ValidationError{Field: "speaker", Message: "new name must not be empty"}
	}
	if oldName == newName {
		return nil, nil
	}
	var renamed []string
	for i := range p.transcript.Segments {
		seg := &p.transcript.Segments[i]
		if seg.Speaker != oldName {
			continue
		}
		seg.Speaker = newName
		renamed = append(renamed, seg.ID)
		p.pending = append(p.pending, apiclient.SpeakerRename{SegmentID: seg.ID, OldName: oldName, NewName: newName})
	}
	return renamed, nil
}

// RenameSegment relabels a single segment whose speaker is oldName.
func (p *Propagator) RenameSegment(segmentID, oldName, newName string) (bool, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return false, &types.ValidationError{Field: "speaker", Message: "new name must not be empty"}
	}
	seg, ok := p.transcript.Segment(segmentID)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrSegmentNotFound, segmentID)
	}
	if seg.Speaker != oldName {
		return false, fmt.Errorf("%w: %s is %q, not %q", ErrSpeakerMismatch, segmentID, seg.Speaker, oldName)
	}
	if oldName == newName {
		return false, nil
	}
	seg.Speaker = newName
	p.pending = append(p.pending, apiclient.SpeakerRename{SegmentID: segmentID, OldName: oldName, NewName: newName})
	return true, nil
}

// Speakers is the de-duplicated speaker list after all local renames.
func (p *Propagator) Speakers() []string {
	return p.transcript.Speakers()
}

// HasPending reports whether renames await persistence.
func (p *Propagator) HasPending() bool {
	return len(p.pending) > 0
}

// TakePending hands over the queued renames and clears the queue.
func (p *Propagator) TakePending() []apiclient.SpeakerRename {
	out := p.pending
	p.pending = nil
	return out
}

// Requeue puts renames that were taken but not persisted back at the head of
// the queue, ahead of renames queued since.
func (p *Propagator) Requeue(renames []apiclient.SpeakerRename) {
	if len(renames) == 0 {
		return
	}
	p.pending = append(append([]apiclient.SpeakerRename(nil), renames...), p.pending...)
}

// Flush sends one rename call per segment and returns the renames that did not
// reach the backend: the failed ones, plus every rename not yet attempted when
// ctx ends. Local state is never rolled back; failures are reported as a
// single RenameError.
func Flush(ctx context.Context, api SpeakerRenamer, transcriptID string, renames []apiclient.SpeakerRename) ([]apiclient.SpeakerRename, error) {
	var (
		unsent   []apiclient.SpeakerRename
		failed   []string
		firstErr error
	)
	for i, r := range renames {
		if err := api.RenameSegmentSpeaker(ctx, transcriptID, r); err != nil {
			if ctx.Err() != nil {
				return append(unsent, renames[i:]...), ctx.Err()
			}
			unsent = append(unsent, r)
			failed = append(failed, r.SegmentID)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if len(failed) > 0 {
		return unsent, &RenameError{Failed: failed, Total: len(renames), Err: firstErr}
	}
	return nil, nil
}
