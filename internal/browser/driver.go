package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/privai-labs/privai-agent/internal/connect"
	"github.com/privai-labs/privai-agent/internal/extract"
	"github.com/privai-labs/privai-agent/internal/monitor"
	"github.com/privai-labs/privai-agent/internal/platform"
	"github.com/privai-labs/privai-agent/internal/session"
	"github.com/privai-labs/privai-agent/internal/state"
)

// Events receives tab lifecycle events and probe results. *connect.Manager
// satisfies it; the indirection keeps this package's import direction one
// way.
type Events interface {
	HandleTabUpdated(ctx context.Context, id connect.TabID, url string, complete bool)
	HandleTabRemoved(id connect.TabID)
	FinishConnect(ctx context.Context, p platform.Platform, accountID, accountName string) error
}

// tab is one driven browser tab. lastURL tracks the main frame so load
// events, which carry no URL of their own, can be attributed. id is empty
// until the target exists; the only events before that are the initial
// about:blank ones.
type tab struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	id      connect.TabID
	lastURL string
}

func (t *tab) setID(id connect.TabID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.id = id
}

func (t *tab) tabID() connect.TabID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.id
}

func (t *tab) setURL(u string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastURL = u
}

func (t *tab) url() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastURL
}

// Driver runs a Chrome instance over the DevTools protocol and implements
// connect.TabDriver for it. Tab events are forwarded to the bound Events
// sink on fresh goroutines; chromedp listener callbacks must never block.
type Driver struct {
	rootCtx     context.Context
	rootCancel  context.CancelFunc
	allocCancel context.CancelFunc
	log         *logrus.Entry

	sessions *session.Store
	store    *state.Store

	events   Events
	gate     *monitor.Gate
	monitors map[platform.Platform]*monitor.Monitor

	mu   sync.Mutex
	tabs map[connect.TabID]*tab
}

// NewDriver launches the browser. The returned driver is inert until Bind
// is called.
func NewDriver(ctx context.Context, headless bool, sessions *session.Store, store *state.Store, log *logrus.Entry) (*Driver, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, Options(headless)...)
	rootCtx, rootCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(rootCtx); err != nil {
		rootCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	d := &Driver{
		rootCtx:     rootCtx,
		rootCancel:  rootCancel,
		allocCancel: allocCancel,
		log:         log,
		sessions:    sessions,
		store:       store,
		tabs:        make(map[connect.TabID]*tab),
	}

	chromedp.ListenBrowser(rootCtx, d.onBrowserEvent)
	return d, nil
}

// Bind attaches the event sink and the monitoring hooks. Call once, before
// any tab is created.
func (d *Driver) Bind(events Events, gate *monitor.Gate, monitors map[platform.Platform]*monitor.Monitor) {
	d.events = events
	d.gate = gate
	d.monitors = monitors
}

// Close shuts the browser down.
func (d *Driver) Close() {
	d.mu.Lock()
	for _, t := range d.tabs {
		t.cancel()
	}
	d.tabs = make(map[connect.TabID]*tab)
	d.mu.Unlock()

	d.rootCancel()
	d.allocCancel()
}

// CreateTab opens a new tab and starts tracking its navigation events.
func (d *Driver) CreateTab(ctx context.Context, pageURL string) (connect.TabID, error) {
	tabCtx, cancel := chromedp.NewContext(d.rootCtx)
	t := &tab{ctx: tabCtx, cancel: cancel, lastURL: pageURL}

	// The listener must exist before anything navigates: an early server
	// redirect firing between the navigate response and listener
	// registration would otherwise vanish, leaving lastURL stale.
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		d.onTargetEvent(t, ev)
	})

	// First Run creates the target, still at about:blank.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return "", fmt.Errorf("failed to open tab: %w", err)
	}

	id := connect.TabID(chromedp.FromContext(tabCtx).Target.TargetID)
	t.setID(id)
	d.mu.Lock()
	d.tabs[id] = t
	d.mu.Unlock()

	// Kick off navigation without waiting for the load; the state machine
	// reacts to the resulting events.
	err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(cctx context.Context) error {
		_, _, _, _, err := page.Navigate(pageURL).Do(cctx)
		return err
	}))
	if err != nil {
		d.mu.Lock()
		delete(d.tabs, id)
		d.mu.Unlock()
		cancel()
		return "", fmt.Errorf("failed to open tab at %s: %w", pageURL, err)
	}

	d.log.WithFields(logrus.Fields{"tab": id, "url": pageURL}).Debug("tab opened")
	return id, nil
}

// Navigate redirects an existing tab without waiting for the load.
func (d *Driver) Navigate(ctx context.Context, id connect.TabID, pageURL string) error {
	t := d.tab(id)
	if t == nil {
		return fmt.Errorf("unknown tab %s", id)
	}
	return chromedp.Run(t.ctx, chromedp.ActionFunc(func(cctx context.Context) error {
		_, _, _, _, err := page.Navigate(pageURL).Do(cctx)
		return err
	}))
}

// RequestAccount runs account extraction against the tab's page and
// delivers any hit through Events.FinishConnect. Extraction happens off
// the caller's goroutine; the returned error only covers reaching the tab.
func (d *Driver) RequestAccount(ctx context.Context, id connect.TabID, p platform.Platform) error {
	t := d.tab(id)
	if t == nil {
		return fmt.Errorf("unknown tab %s", id)
	}
	go d.probeAccount(t, p)
	return nil
}

// MatchingTabs lists tracked tabs currently on the platform's pages.
func (d *Driver) MatchingTabs(ctx context.Context, p platform.Platform) ([]connect.TabID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var ids []connect.TabID
	for id, t := range d.tabs {
		if p.IsPlatformURL(t.url()) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// OpenMonitorTab re-injects the platform's saved session cookies and opens
// a tab at the platform's home page for activity monitoring.
func (d *Driver) OpenMonitorTab(ctx context.Context, p platform.Platform) (connect.TabID, error) {
	if cookies, ok := d.sessions.Load(p); ok {
		if err := d.injectCookies(cookies); err != nil {
			d.log.WithField("platform", p).WithError(err).Warn("failed to restore session cookies")
		}
	}
	return d.CreateTab(ctx, p.HomeURL())
}

// onBrowserEvent watches browser-level target events for tab closes.
func (d *Driver) onBrowserEvent(ev interface{}) {
	destroyed, ok := ev.(*target.EventTargetDestroyed)
	if !ok {
		return
	}

	id := connect.TabID(destroyed.TargetID)
	d.mu.Lock()
	t, tracked := d.tabs[id]
	if tracked {
		delete(d.tabs, id)
	}
	d.mu.Unlock()
	if !tracked {
		return
	}

	t.cancel()
	d.log.WithField("tab", id).Debug("tab closed")
	if d.events != nil {
		go d.events.HandleTabRemoved(id)
	}
}

// onTargetEvent translates per-tab DevTools events into state machine and
// monitor inputs. Handlers run on chromedp's listener goroutine, so all
// forwarding happens on fresh goroutines. Events arriving before the
// target id is known are the about:blank creation ones; nothing tracks
// them.
func (d *Driver) onTargetEvent(t *tab, ev interface{}) {
	id := t.tabID()
	if id == "" {
		return
	}

	switch ev := ev.(type) {
	case *page.EventFrameNavigated:
		if ev.Frame.ParentID != "" {
			return
		}
		t.setURL(ev.Frame.URL)
		// A new main-frame document is a new page lifetime.
		if d.gate != nil {
			d.gate.Reset(monitor.PageID(id))
		}
		if d.events != nil {
			go d.events.HandleTabUpdated(t.ctx, id, ev.Frame.URL, false)
		}

	case *page.EventLoadEventFired:
		u := t.url()
		go func() {
			if d.events != nil {
				d.events.HandleTabUpdated(t.ctx, id, u, true)
			}
			d.maybeAttachMonitor(t, id, u)
		}()

	case *runtime.EventBindingCalled:
		if ev.Name != clickBinding {
			return
		}
		go d.handleClick(t, ev.Payload)
	}
}

// maybeAttachMonitor runs the per-page-load monitoring authorization once
// the page has settled. The global consent flag short-circuits everything.
func (d *Driver) maybeAttachMonitor(t *tab, id connect.TabID, pageURL string) {
	if d.gate == nil || !d.store.MonitoringAllowed() {
		return
	}
	u, err := url.Parse(pageURL)
	if err != nil || u.Hostname() == "" {
		return
	}
	d.gate.Activate(t.ctx, monitor.PageID(id), u.Hostname())
}

// handleClick routes an intercepted click payload to the page's platform
// monitor.
func (d *Driver) handleClick(t *tab, payload string) {
	u, err := url.Parse(t.url())
	if err != nil {
		return
	}
	p, ok := platform.FromSiteName(platform.SiteName(u.Hostname()))
	if !ok {
		return
	}
	m := d.monitors[p]
	if m == nil {
		return
	}

	var c monitor.Click
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		d.log.WithField("platform", p).WithError(err).Warn("malformed click payload")
		return
	}
	m.HandleClick(t.ctx, c)
}

// probeAccount extracts the account from the tab's current page, saves it
// through the completion handler, and captures the session cookies.
func (d *Driver) probeAccount(t *tab, p platform.Platform) {
	var loc string
	if err := chromedp.Run(t.ctx, chromedp.Location(&loc)); err != nil {
		d.log.WithField("platform", p).WithError(err).Warn("failed to read tab location")
		return
	}

	acct, ok := extract.AccountInfo(p, loc, pageDOM{ctx: t.ctx})
	if !ok {
		d.log.WithFields(logrus.Fields{"platform": p, "url": loc}).Info("no account found on page")
		return
	}

	if d.events == nil {
		return
	}
	if err := d.events.FinishConnect(t.ctx, p, acct.ID, acct.Name); err != nil {
		return
	}
	d.captureSession(t.ctx, p)
}

// captureSession persists the platform's cookies so later monitoring
// sessions stay logged in.
func (d *Driver) captureSession(ctx context.Context, p platform.Platform) {
	var cookies []*network.Cookie
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(cctx context.Context) error {
		var err error
		cookies, err = storage.GetCookies().Do(cctx)
		return err
	}))
	if err != nil {
		d.log.WithField("platform", p).WithError(err).Warn("failed to read session cookies")
		return
	}
	if err := d.sessions.Save(p, cookies); err != nil {
		d.log.WithField("platform", p).WithError(err).Warn("failed to save session cookies")
	}
}

// injectCookies sets cookies in the browser before a monitor tab opens.
func (d *Driver) injectCookies(cookies []*network.Cookie) error {
	return chromedp.Run(d.rootCtx, chromedp.ActionFunc(func(cctx context.Context) error {
		for _, c := range cookies {
			err := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly).
				WithSameSite(c.SameSite).
				Do(cctx)
			if err != nil {
				return err
			}
		}
		return nil
	}))
}

func (d *Driver) tab(id connect.TabID) *tab {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tabs[id]
}
