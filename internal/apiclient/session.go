package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// Session owns the login state shared by every service client: it attaches the
// bearer token and renews it through a single in-flight /token/refresh call.
type Session struct {
	authURL *url.URL
	http    *http.Client
	store   TokenStore
	logger  *zap.Logger

	refreshes singleflight.Group
	// refreshCount counts refresh calls actually sent to the auth service.
	refreshCount atomic.Int64

	// OnSessionExpired runs after a failed refresh has cleared the stored tokens.
	OnSessionExpired func()
}

// NewSession creates a Session against the auth service at authURL.
func NewSession(authURL string, httpClient *http.Client, store TokenStore, logger *zap.Logger) (*Session, error) {
	base, err := parseBaseURL(authURL)
	if err != nil {
		return nil, fmt.Errorf("apiclient: auth url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if store == nil {
		store = NewMemoryTokenStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		authURL: base,
		http:    httpClient,
		store:   store,
		logger:  logger,
	}, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Login exchanges credentials for a token pair and stores it.
func (s *Session) Login(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return errors.New("apiclient: username and password are required")
	}
	payload, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, resolve(s.authURL, "/login"), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("apiclient: build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("apiclient: login: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return err
	}
	defer resp.Body.Close()

	var out tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("apiclient: decode login response: %w", err)
	}
	if out.AccessToken == "" {
		return errors.New("apiclient: login response has no access token")
	}
	if err := s.store.SetToken(&oauth2.Token{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}); err != nil {
		return fmt.Errorf("apiclient: store tokens: %w", err)
	}
	s.logger.Info("logged in", zap.String("username", username))
	return nil
}

// Logout notifies the auth service and clears the stored tokens. The local
// tokens are cleared even when the backend call fails.
func (s *Session) Logout(ctx context.Context) error {
	tok, err := s.store.Token()
	if err != nil {
		return err
	}
	var callErr error
	if tok != nil && tok.AccessToken != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, resolve(s.authURL, "/logout"), nil)
		if err != nil {
			return fmt.Errorf("apiclient: build logout request: %w", err)
		}
		tok.SetAuthHeader(req)
		resp, err := s.http.Do(req)
		if err != nil {
			callErr = fmt.Errorf("apiclient: logout: %w", err)
		} else if err := checkResponse(resp); err != nil {
			callErr = err
		} else {
			resp.Body.Close()
		}
	}
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("apiclient: clear tokens: %w", err)
	}
	return callErr
}

// LoggedIn reports whether an access token is stored.
func (s *Session) LoggedIn() bool {
	tok, err := s.store.Token()
	return err == nil && tok != nil && tok.AccessToken != ""
}

// authorize sets the bearer header and returns the access token it used.
func (s *Session) authorize(req *http.Request) (string, error) {
	tok, err := s.store.Token()
	if err != nil {
		return "", fmt.Errorf("apiclient: read tokens: %w", err)
	}
	if tok == nil || tok.AccessToken == "" {
		return "", ErrNotAuthenticated
	}
	tok.SetAuthHeader(req)
	return tok.AccessToken, nil
}

// Renew returns a fresh access token after a request sent with stale was
// rejected. When the stored token already differs from stale, another caller
// has refreshed in the meantime and the stored token is returned as is.
// Concurrent callers share a single refresh call.
func (s *Session) Renew(ctx context.Context, stale string) (string, error) {
	tok, err := s.store.Token()
	if err != nil {
		return "", fmt.Errorf("apiclient: read tokens: %w", err)
	}
	if tok != nil && tok.AccessToken != "" && tok.AccessToken != stale {
		return tok.AccessToken, nil
	}

	// The refresh outlives any single caller's cancellation; every waiter depends on it.
	v, err, shared := s.refreshes.Do("refresh", func() (interface{}, error) {
		return s.refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return "", err
	}
	if shared {
		s.logger.Debug("joined in-flight token refresh")
	}
	return v.(string), nil
}

// RefreshCount reports how many refresh calls were sent.
func (s *Session) RefreshCount() int64 {
	return s.refreshCount.Load()
}

func (s *Session) refresh(ctx context.Context) (string, error) {
	tok, err := s.store.Token()
	if err != nil {
		return "", fmt.Errorf("apiclient: read tokens: %w", err)
	}
	if tok == nil || tok.RefreshToken == "" {
		s.expire()
		return "", ErrSessionExpired
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, resolve(s.authURL, "/token/refresh"), nil)
	if err != nil {
		return "", fmt.Errorf("apiclient: build refresh request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok.RefreshToken)

	s.refreshCount.Add(1)
	resp, err := s.http.Do(req)
	if err != nil {
		s.logger.Warn("token refresh failed", zap.Error(err))
		s.expire()
		return "", fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}
	if err := checkResponse(resp); err != nil {
		s.logger.Warn("token refresh rejected", zap.Error(err))
		s.expire()
		return "", fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}
	defer resp.Body.Close()

	var out tokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil || out.AccessToken == "" {
		s.expire()
		return "", fmt.Errorf("%w: malformed refresh response", ErrSessionExpired)
	}

	next := &oauth2.Token{AccessToken: out.AccessToken, RefreshToken: tok.RefreshToken}
	if out.RefreshToken != "" {
		next.RefreshToken = out.RefreshToken
	}
	if err := s.store.SetToken(next); err != nil {
		return "", fmt.Errorf("apiclient: store tokens: %w", err)
	}
	s.logger.Debug("access token refreshed")
	return next.AccessToken, nil
}

func (s *Session) expire() {
	if err := s.store.Clear(); err != nil {
		s.logger.Warn("failed to clear tokens", zap.Error(err))
	}
	if s.OnSessionExpired != nil {
		s.OnSessionExpired()
	}
}
