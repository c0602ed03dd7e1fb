// Package connect owns the account-connection flows: it drives a browser
// tab through a platform's login/redirect maze until the profile page is
// confirmed, then hands off to in-page account extraction.
package connect

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/privai-labs/privai-agent/internal/platform"
	"github.com/privai-labs/privai-agent/internal/state"
)

// TabID identifies a driven browser tab. The chromedp adapter uses the
// DevTools target id.
type TabID string

// TabDriver is the browser surface the state machine drives. All methods
// are expected to fail with an error rather than block indefinitely.
type TabDriver interface {
	// CreateTab opens a new foreground tab at the given URL.
	CreateTab(ctx context.Context, url string) (TabID, error)
	// Navigate redirects an existing tab.
	Navigate(ctx context.Context, id TabID, url string) error
	// RequestAccount asks the tab's page context to run account extraction
	// and deliver any result back through FinishConnect.
	RequestAccount(ctx context.Context, id TabID, p platform.Platform) error
	// MatchingTabs lists open tabs whose URL matches the platform's pages.
	MatchingTabs(ctx context.Context, p platform.Platform) ([]TabID, error)
}

// phase is the lifecycle position of a live connect flow.
type phase int

const (
	// phaseAwaitingLogin: the tab is somewhere in the login/redirect maze.
	phaseAwaitingLogin phase = iota
	// phaseAwaitingProfile: login looks complete; waiting for the profile
	// page to finish loading so the account probe can run.
	phaseAwaitingProfile
)

// flow is one live connect attempt. At most one exists per platform;
// absence from Manager.flows is the idle state.
type flow struct {
	tabID TabID
	phase phase

	// retriedProfile latches after the one allowed navigation back to the
	// profile root, so intermediate pages firing update events can't cause
	// a redirect loop.
	retriedProfile bool
}

// Manager runs the per-platform connect state machines and the completion
// handler. Browser events arrive on listener goroutines; the mutex
// linearizes them.
type Manager struct {
	driver TabDriver
	store  *state.Store
	log    *logrus.Entry

	mu    sync.Mutex
	flows map[platform.Platform]*flow
}

// NewManager creates a connect manager over the given tab driver and state
// store.
func NewManager(driver TabDriver, store *state.Store, log *logrus.Entry) *Manager {
	return &Manager{
		driver: driver,
		store:  store,
		log:    log,
		flows:  make(map[platform.Platform]*flow),
	}
}

// StartConnect begins a connect flow for a platform. For tab-driven
// platforms (LinkedIn) it opens a tab at the profile root and starts
// tracking it; a flow already in progress makes this a no-op. For the
// others it broadcasts an account probe to already open platform tabs.
func (m *Manager) StartConnect(ctx context.Context, p platform.Platform) {
	if !p.HasConnectFlow() {
		m.broadcastProbe(ctx, p)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, live := m.flows[p]; live {
		m.log.WithField("platform", p).Warn("connect already in progress; ignoring duplicate request")
		return
	}

	tabID, err := m.driver.CreateTab(ctx, p.ProfileRootURL())
	if err != nil {
		m.log.WithField("platform", p).WithError(err).Warn("failed to open connect tab")
		return
	}

	m.flows[p] = &flow{tabID: tabID, phase: phaseAwaitingLogin}
	m.log.WithFields(logrus.Fields{"platform": p, "tab": tabID}).Info("connect flow started")
}

// broadcastProbe sends the account probe to every open tab on the
// platform. Used for platforms whose account can be read from a session
// the user already has open.
func (m *Manager) broadcastProbe(ctx context.Context, p platform.Platform) {
	tabs, err := m.driver.MatchingTabs(ctx, p)
	if err != nil {
		m.log.WithField("platform", p).WithError(err).Warn("failed to query platform tabs")
		return
	}
	for _, id := range tabs {
		if err := m.driver.RequestAccount(ctx, id, p); err != nil {
			m.log.WithFields(logrus.Fields{"platform": p, "tab": id}).WithError(err).Warn("failed to probe tab")
		}
	}
}

// HandleTabUpdated feeds a tab navigation event into any flow tracking
// that tab. complete marks the navigation as finished loading; transitions
// that depend on final page state only act on complete events.
func (m *Manager) HandleTabUpdated(ctx context.Context, id TabID, url string, complete bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, f := m.flowForTab(id)
	if f == nil {
		return
	}
	if !p.IsPlatformURL(url) {
		return
	}

	switch f.phase {
	case phaseAwaitingLogin:
		m.awaitingLogin(ctx, p, f, url, complete)
	case phaseAwaitingProfile:
		m.awaitingProfile(ctx, p, f, url, complete)
	}
}

// awaitingLogin handles events while the tab works through login.
func (m *Manager) awaitingLogin(ctx context.Context, p platform.Platform, f *flow, url string, complete bool) {
	// The profile root resolving to the locale landing page means the user
	// is not logged in. Send the tab to the login page and keep waiting.
	if p.IsLandingURL(url) {
		if err := m.driver.Navigate(ctx, f.tabID, p.LoginURL()); err != nil {
			m.log.WithField("platform", p).WithError(err).Warn("failed to redirect connect tab to login")
			m.reset(p)
			return
		}
		f.retriedProfile = false
		return
	}

	// On the login page itself: nothing to do but wait for the user.
	if p.IsLoginURL(url) {
		return
	}

	// The URL moved off login/landing and the page settled: login looks
	// done. Navigate back to the profile root exactly once and start
	// waiting for the profile page.
	if complete {
		f.phase = phaseAwaitingProfile
		if f.retriedProfile {
			return
		}
		f.retriedProfile = true
		if err := m.driver.Navigate(ctx, f.tabID, p.ProfileRootURL()); err != nil {
			m.log.WithField("platform", p).WithError(err).Warn("failed to reopen profile root")
			m.reset(p)
		}
	}
}

// awaitingProfile waits for the profile page and fires the one account
// probe. The flow terminates after the attempt whether or not delivery
// succeeds.
func (m *Manager) awaitingProfile(ctx context.Context, p platform.Platform, f *flow, url string, complete bool) {
	if !p.IsProfileURL(url) || !complete {
		return
	}

	if err := m.driver.RequestAccount(ctx, f.tabID, p); err != nil {
		m.log.WithFields(logrus.Fields{"platform": p, "tab": f.tabID}).WithError(err).Warn("failed to message profile tab")
	}
	m.reset(p)
}

// HandleTabRemoved aborts any flow whose tab was closed, regardless of
// phase. Closing the tab is the user's only cancel gesture.
func (m *Manager) HandleTabRemoved(id TabID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, f := m.flowForTab(id)
	if f == nil {
		return
	}
	m.log.WithField("platform", p).Info("connect tab closed; aborting flow")
	m.reset(p)
}

// flowForTab finds the flow tracking a tab. Callers hold the lock.
func (m *Manager) flowForTab(id TabID) (platform.Platform, *flow) {
	for p, f := range m.flows {
		if f.tabID == id {
			return p, f
		}
	}
	return "", nil
}

// reset returns a platform's flow to idle. Callers hold the lock.
func (m *Manager) reset(p platform.Platform) {
	delete(m.flows, p)
}

// InProgress reports whether a connect flow is live for the platform.
func (m *Manager) InProgress(p platform.Platform) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, live := m.flows[p]
	return live
}

// FinishConnect is the connection completion handler: it merges an
// extracted account into the platform's persisted record and marks it
// connected and monitored. Missing platform or account id makes it a
// no-op.
func (m *Manager) FinishConnect(ctx context.Context, p platform.Platform, accountID, accountName string) error {
	if p == "" || accountID == "" {
		m.log.Debug("finishConnect without platform or account id; ignoring")
		return nil
	}

	err := m.store.UpdatePlatform(p, func(st state.PlatformState) state.PlatformState {
		st.Connected = true
		st.Monitor = true
		st.AccountID = accountID
		st.AccountName = accountName
		return st
	})
	if err != nil {
		m.log.WithField("platform", p).WithError(err).Warn("failed to save connected account")
		return err
	}

	m.log.WithFields(logrus.Fields{
		"platform":   p,
		"account_id": accountID,
		"account":    accountName,
	}).Info("connected account saved")
	return nil
}
