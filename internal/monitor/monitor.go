// Package monitor captures posting activity on connected platforms: a
// single capturing click hook per page, label-based post/comment
// classification, and the composer snapshot that goes with it.
package monitor

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/privai-labs/privai-agent/internal/platform"
	"github.com/privai-labs/privai-agent/internal/state"
)

// Click is the raw payload of one intercepted click, as reported by the
// in-page listener: the accessible labeling of the nearest button-like
// ancestor plus the composer snapshot taken at the same instant.
type Click struct {
	AriaLabel       string `json:"ariaLabel"`
	AriaDescription string `json:"ariaDescription"`
	Text            string `json:"text"`

	// Composer is the text of the focused (or last visible) textbox-role
	// element at click time.
	Composer string `json:"composer"`

	// VideoSrc is the source of the first video element on the page, when
	// one exists. Consumed only for post actions.
	VideoSrc string `json:"videoSrc"`
}

// Transcriber receives detected post videos for transcription. The upload
// is fire-and-forget; failures are the implementation's to log.
type Transcriber interface {
	Upload(ctx context.Context, videoSrc string)
}

// Monitor classifies intercepted clicks for one platform and records the
// resulting activity.
type Monitor struct {
	platform    platform.Platform
	store       *state.Store
	transcriber Transcriber
	log         *logrus.Entry

	// onActivity, when set, receives every recorded entry (live dashboard
	// feed).
	onActivity func(state.Activity)
}

// New creates a monitor for a platform. transcriber and onActivity may be
// nil.
func New(p platform.Platform, store *state.Store, transcriber Transcriber, onActivity func(state.Activity), log *logrus.Entry) *Monitor {
	return &Monitor{
		platform:    p,
		store:       store,
		transcriber: transcriber,
		log:         log.WithField("platform", p),
		onActivity:  onActivity,
	}
}

// Platform returns the platform this monitor watches.
func (m *Monitor) Platform() platform.Platform { return m.platform }

// HandleClick classifies one intercepted click and records any post or
// comment action it signals. Unclassified clicks are dropped silently; a
// feed page produces far more clicks than compositions.
func (m *Monitor) HandleClick(ctx context.Context, c Click) {
	label := NormalizeLabel(c)
	kind, ok := Classify(m.platform, label)
	if !ok {
		return
	}

	entry := state.NewActivity(m.platform, kind, strings.TrimSpace(c.Composer))
	m.log.WithFields(logrus.Fields{
		"kind": kind,
		"text": entry.Text,
	}).Info("captured activity")

	if err := m.store.InsertActivity(entry); err != nil {
		m.log.WithError(err).Warn("failed to persist activity entry")
	}
	if m.onActivity != nil {
		m.onActivity(entry)
	}

	if kind == state.ActivityPost && c.VideoSrc != "" && m.transcriber != nil {
		m.transcriber.Upload(ctx, c.VideoSrc)
	}
}

// NormalizeLabel derives the comparable label of a clicked control: first
// of aria-label, aria description, visible text; lower-cased and trimmed.
func NormalizeLabel(c Click) string {
	label := c.AriaLabel
	if label == "" {
		label = c.AriaDescription
	}
	if label == "" {
		label = c.Text
	}
	return strings.ToLower(strings.TrimSpace(label))
}

// postKeywords mark a control as a post/publish action. Checked before
// comment keywords: a "reply" on Twitter publishes a tweet, not a comment
// thread entry.
var postKeywords = map[platform.Platform][]string{
	platform.LinkedIn:  {"post", "share", "start a post", "publish", "send"},
	platform.Facebook:  {"post", "share", "publish", "send"},
	platform.Instagram: {"share", "post", "send"},
	platform.Twitter:   {"tweet", "post", "reply", "send"},
}

// commentKeywords mark a control as a comment action.
var commentKeywords = map[platform.Platform][]string{
	platform.LinkedIn:  {"comment", "reply"},
	platform.Facebook:  {"comment", "reply"},
	platform.Instagram: {"comment", "reply"},
	platform.Twitter:   {"comment"},
}

// Classify matches a normalized label against the platform's keyword sets.
// Post classification wins when the sets overlap.
func Classify(p platform.Platform, label string) (state.ActivityKind, bool) {
	if label == "" {
		return "", false
	}
	for _, kw := range postKeywords[p] {
		if strings.Contains(label, kw) {
			return state.ActivityPost, true
		}
	}
	for _, kw := range commentKeywords[p] {
		if strings.Contains(label, kw) {
			return state.ActivityComment, true
		}
	}
	return "", false
}
