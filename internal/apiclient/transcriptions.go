package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/codebuildervaibhav/transcript-console/internal/types"
)

// ListTranscripts fetches every transcript the user can see, without segments.
func (c *Client) ListTranscripts(ctx context.Context) ([]*types.Transcript, error) {
	var dtos []transcriptDTO
	if err := c.doJSON(ctx, http.MethodGet, "/transcriptions", nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]*types.Transcript, 0, len(dtos))
	for _, d := range dtos {
		d.Segments = nil
		tr, err := d.toTranscript()
		if err != nil {
			return nil, fmt.Errorf("apiclient: transcript list: %w", err)
		}
		out = append(out, tr)
	}
	return out, nil
}

// GetTranscript fetches one transcript with its segments.
func (c *Client) GetTranscript(ctx context.Context, id string) (*types.Transcript, error) {
	if id == "" {
		return nil, errors.New("apiclient: transcript id is required")
	}
	var dto transcriptDTO
	if err := c.doJSON(ctx, http.MethodGet, "/transcriptions/"+url.PathEscape(id), nil, &dto); err != nil {
		return nil, err
	}
	tr, err := dto.toTranscript()
	if err != nil {
		return nil, fmt.Errorf("apiclient: transcript %s: %w", id, err)
	}
	return tr, nil
}

// RenameTranscript changes a transcript's display name.
func (c *Client) RenameTranscript(ctx context.Context, id, name string) error {
	return c.doJSON(ctx, http.MethodPut, "/transcriptions/"+url.PathEscape(id), map[string]string{"name": name}, nil)
}

// DeleteTranscript removes a transcript on the backend.
func (c *Client) DeleteTranscript(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/transcriptions/"+url.PathEscape(id), nil, nil)
}

// SpeakerRename renames the speaker of one segment.
type SpeakerRename struct {
	SegmentID string `json:"segment_id"`
	OldName   string `json:"old_name"`
	NewName   string `json:"new_name"`
}

// RenameSegmentSpeaker sends one per-segment speaker rename.
func (c *Client) RenameSegmentSpeaker(ctx context.Context, transcriptID string, r SpeakerRename) error {
	return c.doJSON(ctx, http.MethodPost, "/rename_segments/"+url.PathEscape(transcriptID), r, nil)
}

// TextChanges is the bulk text-change payload: parallel arrays, one entry per
// dirty segment.
type TextChanges struct {
	SegmentIDs []string `json:"segment_ids"`
	OldTexts   []string `json:"old_texts"`
	NewTexts   []string `json:"new_texts"`
}

// Len is the number of segments in the change set.
func (t TextChanges) Len() int { return len(t.SegmentIDs) }

// RenameTranscribedText submits every dirty segment's new text in one request.
func (c *Client) RenameTranscribedText(ctx context.Context, transcriptID string, changes TextChanges) error {
	if len(changes.OldTexts) != changes.Len() || len(changes.NewTexts) != changes.Len() {
		return errors.New("apiclient: text change arrays must have equal length")
	}
	return c.doJSON(ctx, http.MethodPost, "/rename_transcribed_text/"+url.PathEscape(transcriptID), changes, nil)
}
