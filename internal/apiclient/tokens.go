package apiclient

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"golang.org/x/oauth2"
)

// TokenStore holds the access/refresh token pair of the current login.
// Token returns (nil, nil) when nobody is logged in.
type TokenStore interface {
	Token() (*oauth2.Token, error)
	SetToken(tok *oauth2.Token) error
	Clear() error
}

// MemoryTokenStore keeps tokens for the lifetime of the process.
type MemoryTokenStore struct {
	mu  sync.RWMutex
	tok *oauth2.Token
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (m *MemoryTokenStore) Token() (*oauth2.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.tok == nil {
		return nil, nil
	}
	tok := *m.tok
	return &tok, nil
}

func (m *MemoryTokenStore) SetToken(tok *oauth2.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tok == nil {
		m.tok = nil
		return nil
	}
	cp := *tok
	m.tok = &cp
	return nil
}

func (m *MemoryTokenStore) Clear() error {
	return m.SetToken(nil)
}

// FileTokenStore persists tokens as JSON, guarded by a lock file so concurrent
// CLI invocations never read a half-written token.
type FileTokenStore struct {
	path string
	lock *flock.Flock
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the token file location.
func (f *FileTokenStore) Path() string {
	return f.path
}

func (f *FileTokenStore) Token() (*oauth2.Token, error) {
	if err := f.ensureDir(); err != nil {
		return nil, err
	}
	if err := f.lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock token file: %w", err)
	}
	defer f.lock.Unlock()

	file, err := os.Open(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open token file: %w", err)
	}
	defer file.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(file).Decode(tok); err != nil {
		return nil, fmt.Errorf("decode token file: %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, nil
	}
	return tok, nil
}

func (f *FileTokenStore) SetToken(tok *oauth2.Token) error {
	if tok == nil {
		return f.Clear()
	}
	if err := f.ensureDir(); err != nil {
		return err
	}
	if err := f.lock.Lock(); err != nil {
		return fmt.Errorf("lock token file: %w", err)
	}
	defer f.lock.Unlock()

	file, err := os.OpenFile(f.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	defer file.Close()
	if err := json.NewEncoder(file).Encode(tok); err != nil {
		return fmt.Errorf("encode token file: %w", err)
	}
	return nil
}

func (f *FileTokenStore) Clear() error {
	if err := f.ensureDir(); err != nil {
		return err
	}
	if err := f.lock.Lock(); err != nil {
		return fmt.Errorf("lock token file: %w", err)
	}
	defer f.lock.Unlock()
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

func (f *FileTokenStore) ensureDir() error {
	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create token dir: %w", err)
		}
	}
	return nil
}
