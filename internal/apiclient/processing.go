package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/fasthttp/websocket"
	"go.uber.org/zap"

	"github.com/codebuildervaibhav/transcript-console/internal/types"
)

// ProcessAudio uploads an audio file for diarization and returns the backend task id.
func (c *Client) ProcessAudio(ctx context.Context, filename string, audio io.Reader) (string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return "", fmt.Errorf("apiclient: build upload: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", fmt.Errorf("apiclient: read audio: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("apiclient: build upload: %w", err)
	}

	resp, err := c.Do(ctx, http.MethodPost, "/process-audio/", buf.Bytes(), form.FormDataContentType())
	if err != nil {
		return "", err
	}
	if err := checkResponse(resp); err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		TaskID wireID `json:"task_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("apiclient: decode upload response: %w", err)
	}
	if out.TaskID == "" {
		return "", errors.New("apiclient: upload response has no task id")
	}
	return string(out.TaskID), nil
}

type statusDTO struct {
	TaskID          wireID  `json:"task_id"`
	Status          string  `json:"status"`
	Progress        float64 `json:"progress"`
	TranscriptionID wireID  `json:"transcription_id"`
	Error           string  `json:"error"`
}

func (d statusDTO) toStatus(taskID string) types.ProcessingStatus {
	st := types.ProcessingStatus{
		TaskID:          string(d.TaskID),
		Status:          strings.ToUpper(strings.TrimSpace(d.Status)),
		Progress:        d.Progress,
		TranscriptionID: string(d.TranscriptionID),
		Error:           d.Error,
	}
	if st.TaskID == "" {
		st.TaskID = taskID
	}
	switch st.Status {
	case "DONE", "SUCCESS", "FINISHED":
		st.Status = types.StatusCompleted
	case "ERROR", "FAILURE":
		st.Status = types.StatusFailed
	case "PENDING":
		st.Status = types.StatusQueued
	case "RUNNING", "STARTED":
		st.Status = types.StatusProcessing
	}
	return st
}

// ProcessStatus polls the status of an audio processing task.
func (c *Client) ProcessStatus(ctx context.Context, taskID string) (types.ProcessingStatus, error) {
	var dto statusDTO
	if err := c.doJSON(ctx, http.MethodGet, "/process-status/"+url.PathEscape(taskID), nil, &dto); err != nil {
		return types.ProcessingStatus{}, err
	}
	return dto.toStatus(taskID), nil
}

// StreamAudio copies the source audio of a transcript into w.
func (c *Client) StreamAudio(ctx context.Context, transcriptID string, w io.Writer) (int64, error) {
	resp, err := c.Do(ctx, http.MethodGet, "/stream-audio/"+url.PathEscape(transcriptID), nil, "")
	if err != nil {
		return 0, err
	}
	if err := checkResponse(resp); err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("apiclient: stream audio: %w", err)
	}
	return n, nil
}

// progressMessage is one frame of the backend's progress channel.
type progressMessage struct {
	Event string `json:"event"`
	statusDTO
}

// SubscribeProgress follows the progress channel of a task, calling fn for every
// progress event until the task is done, the server closes the channel, or ctx
// ends. It returns the last status received.
func (c *Client) SubscribeProgress(ctx context.Context, taskID string, fn func(types.ProcessingStatus)) (types.ProcessingStatus, error) {
	conn, err := c.dialProgress(ctx, taskID)
	if err != nil {
		return types.ProcessingStatus{}, err
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-stop:
		}
	}()

	var last types.ProcessingStatus
	for {
		var msg progressMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return last, ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return last, nil
			}
			return last, fmt.Errorf("apiclient: progress channel: %w", err)
		}
		if msg.Event != "" && msg.Event != "progress" {
			continue
		}
		last = msg.toStatus(taskID)
		if fn != nil {
			fn(last)
		}
		if last.Done() {
			return last, nil
		}
	}
}

func (c *Client) dialProgress(ctx context.Context, taskID string) (*websocket.Conn, error) {
	u := *c.baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	target := resolve(&u, "/ws/progress/"+url.PathEscape(taskID))
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	dial := func() (*websocket.Conn, *http.Response, string, error) {
		req, _ := http.NewRequest(http.MethodGet, target, nil)
		used, err := c.session.authorize(req)
		if err != nil {
			return nil, nil, "", err
		}
		conn, resp, err := dialer.DialContext(ctx, target, req.Header)
		return conn, resp, used, err
	}

	conn, resp, used, err := dial()
	if err != nil && resp != nil && resp.StatusCode == http.StatusUnauthorized {
		c.logger.Debug("progress channel unauthorized, renewing token", zap.String("task_id", taskID))
		if _, rerr := c.session.Renew(ctx, used); rerr != nil {
			return nil, rerr
		}
		conn, _, _, err = dial()
	}
	if err != nil {
		return nil, fmt.Errorf("apiclient: dial progress channel: %w", err)
	}
	return conn, nil
}
