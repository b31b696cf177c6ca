package editor

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("editor: session not found")

// Registry owns the open editing sessions of the console.
type Registry struct {
	ctx    context.Context
	api    TranscriptAPI
	opts   Options
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a registry whose sessions end when ctx is cancelled.
func NewRegistry(ctx context.Context, api TranscriptAPI, opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Registry{
		ctx:      ctx,
		api:      api,
		opts:     opts,
		logger:   opts.Logger,
		sessions: make(map[string]*Session),
	}
}

// Open loads a transcript into a new session.
func (r *Registry) Open(ctx context.Context, transcriptID string) (*Session, error) {
	s, err := Open(ctx, r.ctx, r.api, transcriptID, r.opts)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s, nil
}

// Get returns an open session.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close ends a session and forgets it.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	return nil
}

// CloseTranscript ends every session editing transcriptID, e.g. after it was deleted.
func (r *Registry) CloseTranscript(transcriptID string) int {
	r.mu.Lock()
	var victims []*Session
	for id, s := range r.sessions {
		if s.TranscriptID() == transcriptID {
			victims = append(victims, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()
	for _, s := range victims {
		s.Close()
	}
	return len(victims)
}

// List returns the open sessions, most recently active first.
func (r *Registry) List() []*Session {
	r.mu.Lock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActive().After(out[j].LastActive())
	})
	return out
}

// PruneIdle closes sessions untouched for longer than maxIdle.
func (r *Registry) PruneIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	r.mu.Lock()
	var idle []*Session
	for id, s := range r.sessions {
		if s.LastActive().Before(cutoff) {
			idle = append(idle, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()
	for _, s := range idle {
		r.logger.Info("closing idle editing session",
			zap.String("session_id", s.ID),
			zap.Time("last_active", s.LastActive()))
		s.Close()
	}
	return len(idle)
}

// CloseAll ends every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
