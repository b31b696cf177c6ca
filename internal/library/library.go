package library

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/codebuildervaibhav/transcript-console/internal/editor"
	"github.com/codebuildervaibhav/transcript-console/internal/types"
)

var ErrUnknownTranscript = errors.New("library: transcript not in list")

// API is the slice of the backend the transcript list needs.
type API interface {
	ListTranscripts(ctx context.Context) ([]*types.Transcript, error)
	RenameTranscript(ctx context.Context, id, name string) error
	DeleteTranscript(ctx context.Context, id string) error
}

// PartialFailureError reports a bulk operation where some items failed.
type PartialFailureError struct {
	Failed []string
	Total  int
	Err    error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("library: %d of %d transcripts could not be deleted: %v", len(e.Failed), e.Total, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

// Library is the cached transcript list of the console. Every Load replaces
// the cache with a full fetch.
type Library struct {
	ctx     context.Context
	api     API
	logger  *zap.Logger
	renames *editor.Debouncer

	mu       sync.Mutex
	items    []*types.Transcript
	active   string
	loadedAt time.Time

	// OnRenameError is called when a debounced rename fails on the backend.
	OnRenameError func(id string, err error)
}

// New creates a Library. Debounced renames are sent with ctx.
func New(ctx context.Context, api API, renameDebounce time.Duration, logger *zap.Logger) *Library {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Library{
		ctx:     ctx,
		api:     api,
		logger:  logger,
		renames: editor.NewDebouncer(renameDebounce),
	}
}

// Load fetches the full list and sorts it newest first.
func (l *Library) Load(ctx context.Context) error {
	items, err := l.api.ListTranscripts(ctx)
	if err != nil {
		return fmt.Errorf("library: load transcripts: %w", err)
	}
	SortNewestFirst(items)

	l.mu.Lock()
	l.items = items
	l.loadedAt = time.Now()
	l.mu.Unlock()
	l.logger.Debug("transcript list loaded", zap.Int("count", len(items)))
	return nil
}

// Items returns a copy of the cached list.
func (l *Library) Items() []*types.Transcript {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*types.Transcript, len(l.items))
	for i, tr := range l.items {
		out[i] = tr.Clone()
	}
	return out
}

// LoadedAt is the time of the last successful Load.
func (l *Library) LoadedAt() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadedAt
}

// SetActive marks the transcript currently opened in the editor.
func (l *Library) SetActive(id string) {
	l.mu.Lock()
	l.active = id
	l.mu.Unlock()
}

// Active returns the transcript currently opened, or "".
func (l *Library) Active() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Rename updates the name locally and schedules the backend call; Blur sends
// it immediately.
func (l *Library) Rename(id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &types.ValidationError{Field: "name", Message: "must not be empty"}
	}
	l.mu.Lock()
	tr := l.find(id)
	if tr == nil {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownTranscript, id)
	}
	tr.Name = name
	l.mu.Unlock()

	l.renames.Trigger(id, func() {
		if err := l.api.RenameTranscript(l.ctx, id, name); err != nil {
			l.logger.Warn("rename failed",
				zap.String("transcript_id", id),
				zap.Error(err))
			if l.OnRenameError != nil {
				l.OnRenameError(id, err)
			}
		}
	})
	return nil
}

// Blur sends a pending rename for id now. It reports whether one was pending.
func (l *Library) Blur(id string) bool {
	return l.renames.Flush(id)
}

// RenameNow renames on the backend without debouncing and mirrors the result locally.
func (l *Library) RenameNow(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &types.ValidationError{Field: "name", Message: "must not be empty"}
	}
	l.renames.Cancel(id)
	if err := l.api.RenameTranscript(ctx, id, name); err != nil {
		return fmt.Errorf("library: rename %s: %w", id, err)
	}
	l.mu.Lock()
	if tr := l.find(id); tr != nil {
		tr.Name = name
	}
	l.mu.Unlock()
	return nil
}

// Delete removes a transcript on the backend and from the list. navigateAway
// is true when the deleted transcript was the active one.
func (l *Library) Delete(ctx context.Context, id string) (navigateAway bool, err error) {
	if err := l.api.DeleteTranscript(ctx, id); err != nil {
		return false, fmt.Errorf("library: delete %s: %w", id, err)
	}
	l.renames.Cancel(id)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.remove(id)
	if l.active == id {
		l.active = ""
		navigateAway = true
	}
	return navigateAway, nil
}

// DeleteMany deletes each transcript, removing the successes locally. Failures
// are reported as one PartialFailureError.
func (l *Library) DeleteMany(ctx context.Context, ids []string) (navigateAway bool, err error) {
	var (
		failed   []string
		firstErr error
	)
	for _, id := range ids {
		away, err := l.Delete(ctx, id)
		if err != nil {
			failed = append(failed, id)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		navigateAway = navigateAway || away
	}
	if len(failed) > 0 {
		return navigateAway, &PartialFailureError{Failed: failed, Total: len(ids), Err: firstErr}
	}
	return navigateAway, nil
}

// Close sends every pending rename.
func (l *Library) Close() {
	l.renames.FlushAll()
}

func (l *Library) find(id string) *types.Transcript {
	for _, tr := range l.items {
		if tr.ID == id {
			return tr
		}
	}
	return nil
}

func (l *Library) remove(id string) {
	kept := l.items[:0]
	for _, tr := range l.items {
		if tr.ID != id {
			kept = append(kept, tr)
		}
	}
	l.items = kept
}

// SortNewestFirst orders transcripts by creation date, newest first; ties
// keep the backend order.
func SortNewestFirst(items []*types.Transcript) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
