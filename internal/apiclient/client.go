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
	"time"

	"go.uber.org/zap"
)

const defaultHTTPTimeout = 30 * time.Second

// Client issues authenticated requests against one backend service.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	session *Session
	logger  *zap.Logger
}

// NewClient creates a Client for the service at baseURL sharing session's tokens.
func NewClient(baseURL string, session *Session, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	if session == nil {
		return nil, errors.New("apiclient: session is required")
	}
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, fmt.Errorf("apiclient: base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: base,
		http:    httpClient,
		session: session,
		logger:  logger,
	}, nil
}

// Do sends the request and, on a first 401, renews the access token once and
// replays it. The body is held in memory so the replay can resend it.
func (c *Client) Do(ctx context.Context, method, path string, body []byte, contentType string) (*http.Response, error) {
	resp, used, err := c.send(ctx, method, path, body, contentType)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	c.logger.Debug("request unauthorized, renewing token",
		zap.String("method", method),
		zap.String("path", path))
	if _, err := c.session.Renew(ctx, used); err != nil {
		return nil, err
	}
	resp, _, err = c.send(ctx, method, path, body, contentType)
	return resp, err
}

func (c *Client) send(ctx context.Context, method, path string, body []byte, contentType string) (*http.Response, string, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, resolve(c.baseURL, path), reader)
	if err != nil {
		return nil, "", fmt.Errorf("apiclient: build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	used, err := c.session.authorize(req)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, used, fmt.Errorf("apiclient: %s %s: %w", method, path, err)
	}
	return resp, used, nil
}

// doJSON sends in as JSON (when non-nil) and decodes the response into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body []byte
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("apiclient: encode request: %w", err)
		}
		body = data
		contentType = "application/json"
	}
	resp, err := c.Do(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	if err := checkResponse(resp); err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("apiclient: decode %s response: %w", path, err)
	}
	return nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("empty url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("url %q must be absolute", raw)
	}
	return u, nil
}

// resolve joins path onto base, keeping any path prefix base carries.
// resolve joins an already escaped path onto base.
func resolve(base *url.URL, path string) string {
	u := *base
	raw := strings.TrimRight(base.EscapedPath(), "/") + "/" + strings.TrimLeft(path, "/")
	if strings.HasSuffix(path, "/") && !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	unescaped, err := url.PathUnescape(raw)
	if err != nil {
		unescaped = raw
	}
	u.Path, u.RawPath = unescaped, raw
	return u.String()
}
