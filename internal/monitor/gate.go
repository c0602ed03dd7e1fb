package monitor

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/privai-labs/privai-agent/internal/platform"
	"github.com/privai-labs/privai-agent/internal/state"
)

// PageID identifies one page lifetime. The browser adapter uses the tab's
// DevTools target id and resets it on every main-frame navigation.
type PageID string

// AttachFunc installs the in-page click listener for a platform's page and
// routes its events to the platform's monitor.
type AttachFunc func(ctx context.Context, p platform.Platform) error

// Gate decides, per page load, whether activity monitoring attaches.
// Monitoring is strictly opt-in: it requires a connected account, the
// platform's monitor flag, and a stored account id. Attachment happens at
// most once per page lifetime; two pages of the same platform latch
// independently.
type Gate struct {
	store  *state.Store
	attach AttachFunc
	log    *logrus.Entry

	mu       sync.Mutex
	attached map[PageID]bool
}

// NewGate creates a monitoring gate.
func NewGate(store *state.Store, attach AttachFunc, log *logrus.Entry) *Gate {
	return &Gate{
		store:    store,
		attach:   attach,
		log:      log,
		attached: make(map[PageID]bool),
	}
}

// Activate runs the per-page-load authorization check for a page on the
// given hostname and attaches the activity monitor when it passes. Returns
// the platform and whether monitoring is now attached to this page.
func (g *Gate) Activate(ctx context.Context, page PageID, hostname string) (platform.Platform, bool) {
	siteName := platform.SiteName(hostname)
	p, ok := platform.FromSiteName(siteName)
	if !ok {
		return "", false
	}

	st := g.store.LoadPlatforms()[p]
	if !st.Connected || !st.Monitor || st.AccountID == "" {
		g.log.WithField("platform", p).Debug("not connected or monitoring disabled; skipping")
		return p, false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.attached[page] {
		return p, true
	}
	if err := g.attach(ctx, p); err != nil {
		g.log.WithFields(logrus.Fields{"platform": p, "page": page}).WithError(err).Warn("failed to attach activity monitor")
		return p, false
	}
	g.attached[page] = true
	g.log.WithFields(logrus.Fields{"platform": p, "page": page}).Info("activity monitoring attached")
	return p, true
}

// Reset clears a page's attach latch. The browser adapter calls this when
// the page navigates, starting a fresh page lifetime; other pages of the
// same platform keep theirs.
func (g *Gate) Reset(page PageID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.attached, page)
}
