package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrSessionExpired is returned when the refresh token is missing or rejected.
	// The caller must log in again.
	ErrSessionExpired = errors.New("apiclient: session expired")
	// ErrNotAuthenticated is returned when no access token is stored.
	ErrNotAuthenticated = errors.New("apiclient: not logged in")
	ErrNotFound         = errors.New("apiclient: not found")
)

// APIError is a non-2xx response from a backend service.
type APIError struct {
	StatusCode int
	Message    string
	Path       string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("apiclient: %s returned %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("apiclient: %s returned %d: %s", e.Path, e.StatusCode, e.Message)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// checkResponse converts non-2xx responses into an *APIError and closes the body.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    errorMessage(body),
		Path:       resp.Request.URL.Path,
	}
}

// errorMessage extracts the message from the Flask backends' error envelopes
// ({"error": ...}, {"message": ...} or the JWT extension's {"msg": ...}).
func errorMessage(body []byte) string {
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Msg     string `json:"msg"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		for _, m := range []string{envelope.Error, envelope.Message, envelope.Msg} {
			if m != "" {
				return m
			}
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
