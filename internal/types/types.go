package types

import (
	"fmt"
	"strings"
	"time"
)

// Job status constants
const (
	StatusQueued     = "QUEUED"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// SaveState is the persistence status of an editing session.
type SaveState string

const (
	StateNoChanges   SaveState = "no changes made"
	StateNeedsSaving SaveState = "needs saving"
	StateSaved       SaveState = "saved"
	StateSaveFailed  SaveState = "save failed"
)

// ValidationError reports a malformed field in a backend payload or request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Segment represents a timestamped, speaker-attributed span of a transcript
type Segment struct {
	ID      string  `json:"id"`
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
}

// NewSegment builds a Segment, rejecting empty ids and inverted or negative time ranges.
func NewSegment(id, speaker string, start, end float64, text string) (Segment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Segment{}, &ValidationError{Field: "segment.id", Message: "must not be empty"}
	}
	if start < 0 {
		return Segment{}, &ValidationError{Field: "segment.start", Message: fmt.Sprintf("negative offset %.3f in %s", start, id)}
	}
	if end < start {
		return Segment{}, &ValidationError{Field: "segment.end", Message: fmt.Sprintf("end %.3f before start %.3f in %s", end, start, id)}
	}
	return Segment{
		ID:      id,
		Speaker: speaker,
		Start:   start,
		End:     end,
		Text:    text,
	}, nil
}

// Transcript is the console's cached copy of a backend transcription
type Transcript struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Segments  []Segment `json:"segments,omitempty"`
}

// NewTranscript builds a Transcript. Segment ids must be unique.
func NewTranscript(id, name string, createdAt time.Time, segments []Segment) (*Transcript, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &ValidationError{Field: "transcript.id", Message: "must not be empty"}
	}
	seen := make(map[string]struct{}, len(segments))
	for _, seg := range segments {
		if _, dup := seen[seg.ID]; dup {
			return nil, &ValidationError{Field: "transcript.segments", Message: fmt.Sprintf("duplicate segment id %s", seg.ID)}
		}
		seen[seg.ID] = struct{}{}
	}
	return &Transcript{
		ID:        id,
		Name:      name,
		CreatedAt: createdAt,
		Segments:  segments,
	}, nil
}

// Segment returns a pointer to the segment with the given id.
func (t *Transcript) Segment(id string) (*Segment, bool) {
	for i := range t.Segments {
		if t.Segments[i].ID == id {
			return &t.Segments[i], true
		}
	}
	return nil, false
}

// Speakers lists the distinct speaker labels in first-appearance order.
func (t *Transcript) Speakers() []string {
	seen := make(map[string]struct{})
	var speakers []string
	for _, seg := range t.Segments {
		if _, ok := seen[seg.Speaker]; ok {
			continue
		}
		seen[seg.Speaker] = struct{}{}
		speakers = append(speakers, seg.Speaker)
	}
	return speakers
}

// Text joins segment texts with newlines, prefixed by speaker when one is set.
func (t *Transcript) Text() string {
	var b strings.Builder
	for i, seg := range t.Segments {
		if i > 0 {
			b.WriteByte('\n')
		}
		if seg.Speaker != "" {
			b.WriteString(seg.Speaker)
			b.WriteString(": ")
		}
		b.WriteString(seg.Text)
	}
	return b.String()
}

// Duration is the end offset of the last segment.
func (t *Transcript) Duration() float64 {
	if len(t.Segments) == 0 {
		return 0
	}
	return t.Segments[len(t.Segments)-1].End
}

// Clone returns a deep copy safe to hand outside the owning session.
func (t *Transcript) Clone() *Transcript {
	out := *t
	out.Segments = append([]Segment(nil), t.Segments...)
	return &out
}

// ProcessingStatus mirrors the diarization backend's task status
type ProcessingStatus struct {
	TaskID          string  `json:"task_id"`
	Status          string  `json:"status"`
	Progress        float64 `json:"progress"`
	TranscriptionID string  `json:"transcription_id,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// Done reports whether the backend finished the task, successfully or not.
func (s ProcessingStatus) Done() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}
