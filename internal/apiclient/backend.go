package apiclient

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// BackendConfig names the services the console talks to.
type BackendConfig struct {
	AuthURL        string
	DiarizationURL string
	Timeout        time.Duration
}

// Backend bundles the login session and the transcription service client.
type Backend struct {
	Session     *Session
	Transcripts *Client
}

// NewBackend wires a Session and a transcription Client over a shared http.Client.
func NewBackend(cfg BackendConfig, store TokenStore, logger *zap.Logger) (*Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	httpClient := &http.Client{Timeout: timeout}

	session, err := NewSession(cfg.AuthURL, httpClient, store, logger.Named("session"))
	if err != nil {
		return nil, err
	}
	transcripts, err := NewClient(cfg.DiarizationURL, session, httpClient, logger.Named("transcripts"))
	if err != nil {
		return nil, err
	}
	return &Backend{Session: session, Transcripts: transcripts}, nil
}
