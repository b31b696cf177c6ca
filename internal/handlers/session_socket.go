package handlers

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/codebuildervaibhav/transcript-console/internal/editor"
	"github.com/codebuildervaibhav/transcript-console/internal/types"
)

const sessionLocal = "session"

// SessionSocket pushes save-state transitions of one editing session and
// accepts editor commands over the same connection.
type SessionSocket struct {
	sessions *editor.Registry
	logger   *zap.Logger
}

// NewSessionSocket creates a new session push channel handler
func NewSessionSocket(sessions *editor.Registry, logger *zap.Logger) *SessionSocket {
	return &SessionSocket{sessions: sessions, logger: logger}
}

// socketCommand is one client frame.
type socketCommand struct {
	Type      string `json:"type"`
	SegmentID string `json:"segment_id,omitempty"`
	Text      string `json:"text,omitempty"`
	Key       string `json:"key,omitempty"`
	Platform  string `json:"platform,omitempty"`
	OldName   string `json:"old_name,omitempty"`
	NewName   string `json:"new_name,omitempty"`
}

// socketEvent is one server frame.
type socketEvent struct {
	Type    string          `json:"type"`
	Command string          `json:"command,omitempty"`
	From    types.SaveState `json:"from,omitempty"`
	State   types.SaveState `json:"state,omitempty"`
	At      *time.Time      `json:"at,omitempty"`
	View    *editor.View    `json:"view,omitempty"`
	Changed []string        `json:"changed,omitempty"`
	Handled bool            `json:"handled,omitempty"`
	Error   string          `json:"error,omitempty"`
	Code    string          `json:"code,omitempty"`
}

// Upgrade resolves the session before the WebSocket handshake.
func (h *SessionSocket) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	c.Locals(sessionLocal, s)
	return c.Next()
}

// Handle serves one connection until the client leaves or the session closes.
func (h *SessionSocket) Handle(conn *websocket.Conn) {
	defer conn.Close()
	s, ok := conn.Locals(sessionLocal).(*editor.Session)
	if !ok {
		return
	}
	log := h.logger.With(zap.String("session_id", s.ID))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	send := func(ev socketEvent) {
		mu.Lock()
		defer mu.Unlock()
		if err := conn.WriteJSON(ev); err != nil {
			log.Debug("session socket write failed", zap.Error(err))
		}
	}

	// Hold the write lock across subscribe and snapshot so no transition
	// is lost or delivered ahead of the snapshot.
	mu.Lock()
	unsubscribe := s.Subscribe(func(tr editor.Transition) {
		at := tr.At
		ev := socketEvent{Type: "state", From: tr.From, State: tr.To, At: &at}
		if tr.Err != nil {
			ev.Error = tr.Err.Error()
		}
		send(ev)
	})
	defer unsubscribe()
	view := s.Snapshot()
	if err := conn.WriteJSON(socketEvent{Type: "snapshot", State: view.State, View: &view}); err != nil {
		log.Debug("session socket write failed", zap.Error(err))
	}
	mu.Unlock()

	go func() {
		select {
		case <-s.Done():
			mu.Lock()
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
				time.Now().Add(time.Second))
			mu.Unlock()
			conn.Close()
		case <-ctx.Done():
		}
	}()

	log.Debug("session socket connected")
	for {
		var cmd socketCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("session socket read error", zap.Error(err))
			}
			return
		}
		send(h.dispatch(ctx, s, cmd))
	}
}

func (h *SessionSocket) dispatch(ctx context.Context, s *editor.Session, cmd socketCommand) socketEvent {
	reply := socketEvent{Type: "ack", Command: cmd.Type}
	var err error
	switch cmd.Type {
	case "snapshot":
		view := s.Snapshot()
		reply.View = &view
	case "focus":
		err = s.Focus(cmd.SegmentID)
	case "input":
		err = s.Input(cmd.SegmentID, cmd.Text)
	case "save":
		err = s.Save(ctx)
	case "key":
		platform := cmd.Platform
		if platform == "" {
			platform = runtime.GOOS
		}
		reply.Handled, err = s.HandleKey(ctx, cmd.Key, platform)
	case "rename_speaker":
		if cmd.SegmentID != "" {
			var ok bool
			if ok, err = s.RenameSegmentSpeaker(cmd.SegmentID, cmd.OldName, cmd.NewName); ok {
				reply.Changed = []string{cmd.SegmentID}
			}
		} else {
			reply.Changed, err = s.RenameSpeaker(cmd.OldName, cmd.NewName)
		}
	default:
		return socketEvent{Type: "error", Command: cmd.Type, Error: "unknown command", Code: "ERR_UNKNOWN_COMMAND"}
	}
	if err != nil {
		_, code := errorStatus(err)
		return socketEvent{Type: "error", Command: cmd.Type, Error: err.Error(), Code: code}
	}
	reply.State = s.State()
	return reply
}
