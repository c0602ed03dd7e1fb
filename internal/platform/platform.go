// Package platform defines the supported social platforms and the pure URL
// predicates used to track a connect tab through a platform's login flow.
package platform

import "strings"

// Platform identifies a supported social platform.
type Platform string

const (
	LinkedIn  Platform = "linkedin"
	Facebook  Platform = "facebook"
	Instagram Platform = "instagram"
	Twitter   Platform = "twitter"
)

// All lists every supported platform in a stable order.
func All() []Platform {
	return []Platform{LinkedIn, Facebook, Instagram, Twitter}
}

// FromSiteName maps a hostname-derived site name to a Platform.
// "x" is Twitter's post-rebrand hostname.
func FromSiteName(name string) (Platform, bool) {
	switch name {
	case "linkedin":
		return LinkedIn, true
	case "facebook":
		return Facebook, true
	case "instagram":
		return Instagram, true
	case "twitter", "x":
		return Twitter, true
	}
	return "", false
}

// SiteName derives the site name from a hostname: the second-level label
// when more than two labels are present ("www.linkedin.com" → "linkedin"),
// else the first ("instagram.com" → "instagram").
func SiteName(hostname string) string {
	parts := strings.Split(hostname, ".")
	if len(parts) > 2 {
		return parts[1]
	}
	return parts[0]
}

// props holds the navigation shape of a platform. Only LinkedIn has a
// tab-driven connect flow; the others are probed in already open tabs.
type props struct {
	domain      string
	loginPaths  []string // path prefixes that mean "login or checkpoint page"
	legacyLogin string   // legacy login fragment matched anywhere in the path
	profileRoot string   // path segment under which profiles live
	feedRoot    string   // path prefix of the logged-in feed
	loginURL    string
	profileURL  string
	homeURL     string // landing page a monitoring tab opens at
	tabPattern  string // tab query pattern for probe broadcast
}

var platformProps = map[Platform]props{
	LinkedIn: {
		domain:      "linkedin.com",
		loginPaths:  []string{"/login", "/checkpoint/"},
		legacyLogin: "/uas/login",
		profileRoot: "in",
		feedRoot:    "/feed",
		loginURL:    "https://www.linkedin.com/login",
		profileURL:  "https://www.linkedin.com/in/",
		homeURL:     "https://www.linkedin.com/feed/",
		tabPattern:  "*://www.linkedin.com/*",
	},
	Facebook: {
		domain:     "facebook.com",
		loginPaths: []string{"/login"},
		loginURL:   "https://www.facebook.com/login",
		homeURL:    "https://www.facebook.com/",
		tabPattern: "*://www.facebook.com/*",
	},
	Instagram: {
		domain:     "instagram.com",
		loginPaths: []string{"/accounts/login"},
		loginURL:   "https://www.instagram.com/accounts/login/",
		homeURL:    "https://www.instagram.com/",
		tabPattern: "*://www.instagram.com/*",
	},
	Twitter: {
		domain:     "x.com",
		loginPaths: []string{"/login", "/i/flow/login"},
		feedRoot:   "/home",
		loginURL:   "https://x.com/login",
		homeURL:    "https://x.com/home",
		tabPattern: "*://x.com/*",
	},
}

// Domain returns the platform's registrable domain.
func (p Platform) Domain() string { return platformProps[p].domain }

// LoginURL returns the platform's login entry point.
func (p Platform) LoginURL() string { return platformProps[p].loginURL }

// ProfileRootURL returns the profile-root URL a connect flow retries to.
// Empty for platforms without a tab-driven connect flow.
func (p Platform) ProfileRootURL() string { return platformProps[p].profileURL }

// HomeURL returns the logged-in landing page a monitoring tab opens at.
func (p Platform) HomeURL() string { return platformProps[p].homeURL }

// TabPattern returns the tab query pattern matching this platform's pages.
func (p Platform) TabPattern() string { return platformProps[p].tabPattern }

// HasConnectFlow reports whether connecting this platform drives a tab
// through the login/profile flow (vs. probing already open tabs).
func (p Platform) HasConnectFlow() bool { return platformProps[p].profileURL != "" }
