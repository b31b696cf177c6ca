package editor

import (
	"errors"
	"fmt"
)

// ErrNotFocused is returned for input on a segment that never received focus.
var ErrNotFocused = errors.New("editor: segment has no change record")

// ChangeRecord tracks one segment's text since it was loaded or last saved.
type ChangeRecord struct {
	SegmentID   string `json:"segment_id"`
	InitialText string `json:"initial_text"`
	CurrentText string `json:"current_text"`
}

// Dirty reports whether the text diverged from its last saved value.
func (r ChangeRecord) Dirty() bool {
	return r.CurrentText != r.InitialText
}

// Tracker holds the change records of one editing session. It is not safe for
// concurrent use; Session serializes access.
type Tracker struct {
	records map[string]*ChangeRecord
	order   []string
}

func NewTracker() *Tracker {
	return &Tracker{records: make(map[string]*ChangeRecord)}
}

// Focus creates a record for the segment with its rendered text, unless one exists.
func (t *Tracker) Focus(segmentID, rendered string) {
	if _, ok := t.records[segmentID]; ok {
		return
	}
	t.records[segmentID] = &ChangeRecord{
		SegmentID:   segmentID,
		InitialText: rendered,
		CurrentText: rendered,
	}
	t.order = append(t.order, segmentID)
}

// Input updates the segment's current text and reports whether it is dirty.
func (t *Tracker) Input(segmentID, text string) (bool, error) {
	rec, ok := t.records[segmentID]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNotFocused, segmentID)
	}
	rec.CurrentText = text
	return rec.Dirty(), nil
}

// Record returns a copy of the segment's record.
func (t *Tracker) Record(segmentID string) (ChangeRecord, bool) {
	rec, ok := t.records[segmentID]
	if !ok {
		return ChangeRecord{}, false
	}
	return *rec, true
}

// Dirty returns copies of every dirty record in focus order.
func (t *Tracker) Dirty() []ChangeRecord {
	var out []ChangeRecord
	for _, id := range t.order {
		if rec := t.records[id]; rec.Dirty() {
			out = append(out, *rec)
		}
	}
	return out
}

// HasChanges reports whether any record is dirty.
func (t *Tracker) HasChanges() bool {
	for _, rec := range t.records {
		if rec.Dirty() {
			return true
		}
	}
	return false
}

// Commit marks the sent texts as saved. Records edited after the snapshot was
// taken stay dirty against the newly saved text.
func (t *Tracker) Commit(sent []ChangeRecord) {
	for _, s := range sent {
		if rec, ok := t.records[s.SegmentID]; ok {
			rec.InitialText = s.CurrentText
		}
	}
}

// Discard drops every record.
func (t *Tracker) Discard() {
	t.records = make(map[string]*ChangeRecord)
	t.order = nil
}
