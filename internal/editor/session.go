package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codebuildervaibhav/transcript-console/internal/apiclient"
	"github.com/codebuildervaibhav/transcript-console/internal/types"
)

const DefaultAutosaveInterval = 30 * time.Second

var (
	ErrSegmentNotFound = errors.New("editor: segment not found")
	ErrSessionClosed   = errors.New("editor: session closed")
)

// TranscriptAPI is the slice of the backend an editing session needs.
type TranscriptAPI interface {
	SpeakerRenamer
	GetTranscript(ctx context.Context, id string) (*types.Transcript, error)
	RenameTranscribedText(ctx context.Context, transcriptID string, changes apiclient.TextChanges) error
}

// Options tunes session timers.
type Options struct {
	AutosaveInterval  time.Duration
	SavedDisplayDelay time.Duration
	Logger            *zap.Logger
}

// Session is one open transcript: its cached copy, change records, pending
// speaker renames and save state. Closing it cancels any in-flight save.
type Session struct {
	ID string

	api     TranscriptAPI
	logger  *zap.Logger
	machine *Machine

	mu         sync.Mutex
	transcript *types.Transcript
	tracker    *Tracker
	renames    *Propagator

	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	closeOnce  sync.Once
	lastActive atomic.Int64
}

// Open fetches the transcript and starts the session's autosave loop. The
// session lives until Close or until parent is cancelled; ctx only bounds the fetch.
func Open(ctx, parent context.Context, api TranscriptAPI, transcriptID string, opts Options) (*Session, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.AutosaveInterval <= 0 {
		opts.AutosaveInterval = DefaultAutosaveInterval
	}
	tr, err := api.GetTranscript(ctx, transcriptID)
	if err != nil {
		return nil, fmt.Errorf("editor: load transcript %s: %w", transcriptID, err)
	}

	s := newSession(parent, api, tr, opts)
	go s.autosave(opts.AutosaveInterval)
	s.logger.Info("editing session opened", zap.Int("segments", len(tr.Segments)))
	return s, nil
}

func newSession(parent context.Context, api TranscriptAPI, tr *types.Transcript, opts Options) *Session {
	sctx, cancel := context.WithCancel(parent)
	id := uuid.New().String()
	s := &Session{
		ID:         id,
		api:        api,
		logger:     opts.Logger.With(zap.String("session_id", id), zap.String("transcript_id", tr.ID)),
		machine:    NewMachine(opts.SavedDisplayDelay),
		transcript: tr,
		tracker:    NewTracker(),
		renames:    NewPropagator(tr),
		ctx:        sctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	s.touch()
	return s
}

// TranscriptID is the backend id of the open transcript.
func (s *Session) TranscriptID() string {
	return s.transcript.ID
}

// State returns the current save state.
func (s *Session) State() types.SaveState {
	return s.machine.State()
}

// Subscribe registers fn for save-state transitions.
func (s *Session) Subscribe(fn func(Transition)) func() {
	return s.machine.Subscribe(fn)
}

// LastActive is the time of the latest user action on the session.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// Done is closed once the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Focus opens a change record for the segment with its current text.
func (s *Session) Focus(segmentID string) error {
	if err := s.alive(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	seg, ok := s.transcript.Segment(segmentID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSegmentNotFound, segmentID)
	}
	s.tracker.Focus(segmentID, seg.Text)
	s.touch()
	return nil
}

// Input applies an edit to a segment's text. Segments not yet focused are
// focused first with their current text.
func (s *Session) Input(segmentID, text string) error {
	if err := s.alive(); err != nil {
		return err
	}
	s.mu.Lock()
	seg, ok := s.transcript.Segment(segmentID)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSegmentNotFound, segmentID)
	}
	s.tracker.Focus(segmentID, seg.Text)
	dirty, err := s.tracker.Input(segmentID, text)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	seg.Text = text
	s.touch()
	s.mu.Unlock()

	if dirty {
		s.machine.MarkEdited()
	}
	return nil
}

// RenameSpeaker relabels every segment spoken by oldName.
func (s *Session) RenameSpeaker(oldName, newName string) ([]string, error) {
	if err := s.alive(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	renamed, err := s.renames.RenameSpeaker(oldName, newName)
	s.touch()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if len(renamed) > 0 {
		s.machine.MarkEdited()
		s.logger.Debug("speaker renamed",
			zap.String("from", oldName),
			zap.String("to", newName),
			zap.Int("segments", len(renamed)))
	}
	return renamed, nil
}

// RenameSegmentSpeaker relabels one segment. It reports whether the label changed.
func (s *Session) RenameSegmentSpeaker(segmentID, oldName, newName string) (bool, error) {
	if err := s.alive(); err != nil {
		return false, err
	}
	s.mu.Lock()
	changed, err := s.renames.RenameSegment(segmentID, oldName, newName)
	s.touch()
	s.mu.Unlock()
	if err != nil {
		return false, err
	}
	if changed {
		s.machine.MarkEdited()
	}
	return changed, nil
}

// Speakers returns the de-duplicated speaker list.
func (s *Session) Speakers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renames.Speakers()
}

// HandleKey saves when key is the platform save shortcut. It reports whether
// the key was handled.
func (s *Session) HandleKey(ctx context.Context, key, goos string) (bool, error) {
	if !IsSaveShortcut(key, goos) {
		return false, nil
	}
	return true, s.Save(ctx)
}

// Save persists pending edits now. Without pending edits it does nothing.
func (s *Session) Save(ctx context.Context) error {
	if err := s.alive(); err != nil {
		return err
	}
	s.touch()
	return s.save(ctx, true)
}

func (s *Session) save(ctx context.Context, manual bool) error {
	if !s.machine.BeginSave(manual) {
		return nil
	}

	// The attempt ends when either the caller or the session goes away.
	saveCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	s.mu.Lock()
	records := s.tracker.Dirty()
	renames := s.renames.TakePending()
	transcriptID := s.transcript.ID
	s.mu.Unlock()

	unsent, err := s.persist(saveCtx, transcriptID, records, renames)
	if len(unsent) > 0 {
		s.mu.Lock()
		s.renames.Requeue(unsent)
		s.mu.Unlock()
	}
	if err != nil && saveCtx.Err() != nil {
		s.machine.AbortSave()
		if s.ctx.Err() != nil {
			return ErrSessionClosed
		}
		return saveCtx.Err()
	}
	if err != nil {
		s.logger.Warn("save failed", zap.Error(err))
		s.machine.CompleteSave(err)
		return err
	}

	s.mu.Lock()
	s.tracker.Commit(records)
	s.mu.Unlock()
	s.machine.CompleteSave(nil)
	s.logger.Info("transcript saved",
		zap.Int("segments", len(records)),
		zap.Int("speaker_renames", len(renames)))
	return nil
}

// persist sends the text changes, then the speaker renames. It returns the
// renames the backend did not receive.
func (s *Session) persist(ctx context.Context, transcriptID string, records []ChangeRecord, renames []apiclient.SpeakerRename) ([]apiclient.SpeakerRename, error) {
	if len(records) > 0 {
		changes := apiclient.TextChanges{
			SegmentIDs: make([]string, 0, len(records)),
			OldTexts:   make([]string, 0, len(records)),
			NewTexts:   make([]string, 0, len(records)),
		}
		for _, r := range records {
			changes.SegmentIDs = append(changes.SegmentIDs, r.SegmentID)
			changes.OldTexts = append(changes.OldTexts, r.InitialText)
			changes.NewTexts = append(changes.NewTexts, r.CurrentText)
		}
		if err := s.api.RenameTranscribedText(ctx, transcriptID, changes); err != nil {
			return renames, fmt.Errorf("save segment texts: %w", err)
		}
	}
	if len(renames) > 0 {
		return Flush(ctx, s.api, transcriptID, renames)
	}
	return nil, nil
}

func (s *Session) autosave(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.save(s.ctx, false); err != nil && !errors.Is(err, ErrSessionClosed) {
				s.logger.Debug("autosave failed", zap.Error(err))
			}
		case <-s.ctx.Done():
			return
		}
	}
}

// View is a read-only snapshot of a session.
type View struct {
	SessionID  string            `json:"session_id"`
	State      types.SaveState   `json:"state"`
	Saving     bool              `json:"saving"`
	Transcript *types.Transcript `json:"transcript"`
	Speakers   []string          `json:"speakers"`
	Dirty      []ChangeRecord    `json:"dirty"`
}

// Snapshot copies the session's current view.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		SessionID:  s.ID,
		State:      s.machine.State(),
		Saving:     s.machine.Saving(),
		Transcript: s.transcript.Clone(),
		Speakers:   s.renames.Speakers(),
		Dirty:      s.tracker.Dirty(),
	}
}

// Close tears the session down. In-flight saves are cancelled and change
// records are discarded. Close is idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.machine.Stop()
		s.mu.Lock()
		s.tracker.Discard()
		s.mu.Unlock()
		close(s.done)
		s.logger.Info("editing session closed")
	})
}

func (s *Session) alive() error {
	if s.ctx.Err() != nil {
		return ErrSessionClosed
	}
	return nil
}

func (s *Session) touch() {
	s.lastActive.Store(time.Now().UnixNano())
}
