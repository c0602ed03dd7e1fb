// Package session persists per-platform browser cookies so monitoring
// sessions stay logged in across agent restarts.
package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"

	"github.com/privai-labs/privai-agent/internal/platform"
)

// Store keeps captured cookies in a JSON file keyed by platform.
type Store struct {
	mu   sync.Mutex
	path string
}

// StoredCookies is one platform's persisted cookie set.
// TODO: encrypt cookies at rest.
type StoredCookies struct {
	Cookies    []*network.Cookie `json:"cookies"`
	CapturedAt time.Time         `json:"captured_at"`
}

type file map[platform.Platform]StoredCookies

// NewStore creates a cookie store at the given path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Save persists a platform's cookies, keeping only those scoped to the
// platform's domain.
func (s *Store) Save(p platform.Platform, cookies []*network.Cookie) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return err
	}

	var scoped []*network.Cookie
	for _, c := range cookies {
		if strings.Contains(c.Domain, p.Domain()) {
			scoped = append(scoped, c)
		}
	}
	all[p] = StoredCookies{Cookies: scoped, CapturedAt: time.Now()}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// Load returns a platform's stored cookies, dropping any that have
// expired. ok is false when nothing usable is stored.
func (s *Store) Load(p platform.Platform) ([]*network.Cookie, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return nil, false
	}
	stored, ok := all[p]
	if !ok {
		return nil, false
	}

	now := time.Now()
	var valid []*network.Cookie
	for _, c := range stored.Cookies {
		if c.Expires > 0 && time.Unix(int64(c.Expires), 0).Before(now) {
			continue
		}
		valid = append(valid, c)
	}
	if len(valid) == 0 {
		return nil, false
	}
	return valid, true
}

// Clear removes a platform's stored cookies.
func (s *Store) Clear(p platform.Platform) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := all[p]; !ok {
		return nil
	}
	delete(all, p)

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// read loads the whole cookie file; a missing file is an empty store.
func (s *Store) read() (file, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return file{}, nil
		}
		return nil, err
	}
	var all file
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	return all, nil
}
