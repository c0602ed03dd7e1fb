// Package state persists the per-platform connection record and the
// captured activity log in a local SQLite database.
package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/privai-labs/privai-agent/internal/platform"
)

// PlatformState is the persisted connection record for one platform.
type PlatformState struct {
	Connected   bool   `json:"connected"`
	Monitor     bool   `json:"monitor"`
	AccountID   string `json:"accountId"`
	AccountName string `json:"accountName"`
}

// Platforms maps platform name to its persisted state. Unknown keys are
// carried through load/save untouched so newer records survive older
// binaries.
type Platforms map[platform.Platform]PlatformState

// Defaults returns the record every load merges stored state over. Adding a
// platform here is the whole migration story: existing stored records simply
// lack the key and pick up the default.
func Defaults() Platforms {
	out := make(Platforms, len(platform.All()))
	for _, p := range platform.All() {
		out[p] = PlatformState{}
	}
	return out
}

const (
	keyPlatforms         = "platforms"
	keyMonitoringAllowed = "monitoringAllowed"
)

// Store handles all persisted agent state. When the database cannot be
// opened the store degrades rather than failing: loads return defaults and
// saves are skipped with a warning, so callers keep working on in-memory
// state.
type Store struct {
	mu  sync.Mutex
	db  *sql.DB // nil in degraded mode
	log *logrus.Entry
}

// Open creates a store backed by the SQLite file at dbPath. It never
// returns an unusable value: any open or migration failure is logged once
// and yields a degraded store.
func Open(dbPath string, log *logrus.Entry) *Store {
	s := &Store{log: log}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		log.WithError(err).Warn("state storage unavailable; using defaults only")
		return s
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		log.WithError(err).Warn("state storage unavailable; using defaults only")
		return s
	}
	if err := migrate(db); err != nil {
		db.Close()
		log.WithError(err).Warn("state storage unavailable; using defaults only")
		return s
	}

	s.db = db
	return s
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS activity (
		id TEXT PRIMARY KEY,
		platform TEXT NOT NULL,
		kind TEXT NOT NULL,
		text TEXT NOT NULL,
		captured_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_activity_captured_at ON activity(captured_at);
	`
	_, err := db.Exec(schema)
	return err
}

// LoadPlatforms returns the persisted platform record merged over defaults.
// A missing or partially written record falls back key-by-key to defaults.
func (s *Store) LoadPlatforms() Platforms {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadPlatformsLocked()
}

func (s *Store) loadPlatformsLocked() Platforms {
	merged := Defaults()
	if s.db == nil {
		return merged
	}

	var raw string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, keyPlatforms).Scan(&raw)
	if err == sql.ErrNoRows {
		return merged
	}
	if err != nil {
		s.log.WithError(err).Warn("failed to load platform state; using defaults")
		return merged
	}

	var stored Platforms
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.log.WithError(err).Warn("corrupt platform state record; using defaults")
		return merged
	}
	for name, st := range stored {
		merged[name] = st
	}
	return merged
}

// SavePlatforms persists the full platform record. The whole record is
// written in one statement; there is no field-level persistence.
func (s *Store) SavePlatforms(ps Platforms) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.savePlatformsLocked(ps)
}

func (s *Store) savePlatformsLocked(ps Platforms) error {
	if s.db == nil {
		s.log.Warn("state storage unavailable; skipping platform state save")
		return nil
	}
	raw, err := json.Marshal(ps)
	if err != nil {
		return fmt.Errorf("failed to encode platform state: %w", err)
	}
	return s.setKV(keyPlatforms, string(raw))
}

// UpdatePlatform runs a read-modify-write of the full record under the
// store's process-local lock, replacing only the named platform's entry.
// Writes from other processes can still interleave; last writer wins on the
// whole record.
func (s *Store) UpdatePlatform(p platform.Platform, fn func(PlatformState) PlatformState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps := s.loadPlatformsLocked()
	ps[p] = fn(ps[p])
	return s.savePlatformsLocked(ps)
}

// MonitoringAllowed returns the global consent flag. Defaults to false when
// unset or unavailable.
func (s *Store) MonitoringAllowed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return false
	}
	var raw string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, keyMonitoringAllowed).Scan(&raw)
	if err != nil {
		if err != sql.ErrNoRows {
			s.log.WithError(err).Warn("failed to load consent flag; assuming not granted")
		}
		return false
	}
	return raw == "true"
}

// SetMonitoringAllowed persists the global consent flag.
func (s *Store) SetMonitoringAllowed(allowed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		s.log.Warn("state storage unavailable; skipping consent save")
		return nil
	}
	v := "false"
	if allowed {
		v = "true"
	}
	return s.setKV(keyMonitoringAllowed, v)
}

func (s *Store) setKV(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
