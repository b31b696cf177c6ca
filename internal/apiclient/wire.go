package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/codebuildervaibhav/transcript-console/internal/types"
)

// wireID accepts ids sent either as JSON strings or numbers.
type wireID string

func (w *wireID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*w = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*w = wireID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*w = wireID(n.String())
	return nil
}

// wireTime accepts the timestamp layouts the backends emit, including Flask's
// default RFC 1123 rendering.
type wireTime struct {
	time.Time
}

var wireTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	time.RFC1123,
	time.RFC1123Z,
	"2006-01-02",
}

func (w *wireTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		w.Time = time.Time{}
		return nil
	}
	for _, layout := range wireTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			w.Time = t
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}

type segmentDTO struct {
	ID      wireID  `json:"id"`
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
}

type transcriptDTO struct {
	ID        wireID       `json:"id"`
	Name      string       `json:"name"`
	CreatedAt wireTime     `json:"created_at"`
	Segments  []segmentDTO `json:"segments"`
}

// toTranscript validates the payload into a domain Transcript.
func (d transcriptDTO) toTranscript() (*types.Transcript, error) {
	segments := make([]types.Segment, 0, len(d.Segments))
	for _, s := range d.Segments {
		seg, err := types.NewSegment(string(s.ID), s.Speaker, s.Start, s.End, s.Text)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return types.NewTranscript(string(d.ID), d.Name, d.CreatedAt.Time, segments)
}
