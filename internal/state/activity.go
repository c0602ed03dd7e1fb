package state

import (
	"time"

	"github.com/google/uuid"

	"github.com/privai-labs/privai-agent/internal/platform"
)

// ActivityKind classifies a captured interaction.
type ActivityKind string

const (
	ActivityPost    ActivityKind = "post"
	ActivityComment ActivityKind = "comment"
)

// Activity is one captured post/comment snapshot.
type Activity struct {
	ID         string            `json:"id"`
	Platform   platform.Platform `json:"platform"`
	Kind       ActivityKind      `json:"kind"`
	Text       string            `json:"text"`
	CapturedAt time.Time         `json:"captured_at"`
}

// NewActivity builds an activity record stamped with a fresh id and the
// current time.
func NewActivity(p platform.Platform, kind ActivityKind, text string) Activity {
	return Activity{
		ID:         uuid.NewString(),
		Platform:   p,
		Kind:       kind,
		Text:       text,
		CapturedAt: time.Now().UTC(),
	}
}

// InsertActivity persists a captured snapshot. In degraded mode the entry
// is dropped with a warning; capture must never fail the click handler.
func (s *Store) InsertActivity(a Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		s.log.Warn("state storage unavailable; dropping activity entry")
		return nil
	}
	_, err := s.db.Exec(`
		INSERT INTO activity (id, platform, kind, text, captured_at)
		VALUES (?, ?, ?, ?, ?)
	`, a.ID, string(a.Platform), string(a.Kind), a.Text, a.CapturedAt)
	return err
}

// ListActivity returns the most recent entries, newest first.
func (s *Store) ListActivity(limit int) ([]Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, nil
	}
	rows, err := s.db.Query(`
		SELECT id, platform, kind, text, captured_at
		FROM activity
		ORDER BY captured_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		var a Activity
		var p, kind string
		if err := rows.Scan(&a.ID, &p, &kind, &a.Text, &a.CapturedAt); err != nil {
			return nil, err
		}
		a.Platform = platform.Platform(p)
		a.Kind = ActivityKind(kind)
		out = append(out, a)
	}
	return out, rows.Err()
}

// ActivitySince returns entries captured at or after the given time,
// oldest first. The daily exposure report reads its window through this.
func (s *Store) ActivitySince(since time.Time) ([]Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, nil
	}
	rows, err := s.db.Query(`
		SELECT id, platform, kind, text, captured_at
		FROM activity
		WHERE captured_at >= ?
		ORDER BY captured_at ASC
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		var a Activity
		var p, kind string
		if err := rows.Scan(&a.ID, &p, &kind, &a.Text, &a.CapturedAt); err != nil {
			return nil, err
		}
		a.Platform = platform.Platform(p)
		a.Kind = ActivityKind(kind)
		out = append(out, a)
	}
	return out, rows.Err()
}
