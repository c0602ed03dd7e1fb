package platform

import (
	"net/url"
	"strings"
)

// The predicates below classify a navigation URL for the connect flow.
// They are total: malformed, empty, or off-platform URLs classify as false.

// parse returns the URL when it parses and its host contains the platform's
// registrable domain. Substring matching covers regional subdomains like
// de.linkedin.com.
func (p Platform) parse(rawURL string) (*url.URL, bool) {
	if rawURL == "" {
		return nil, false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, false
	}
	if !strings.Contains(u.Hostname(), p.Domain()) {
		return nil, false
	}
	return u, true
}

// IsPlatformURL reports whether the URL belongs to the platform at all.
func (p Platform) IsPlatformURL(rawURL string) bool {
	_, ok := p.parse(rawURL)
	return ok
}

// IsLoginURL reports whether the URL is the platform's login or checkpoint
// page, including the legacy login path.
func (p Platform) IsLoginURL(rawURL string) bool {
	u, ok := p.parse(rawURL)
	if !ok {
		return false
	}
	pr := platformProps[p]
	for _, prefix := range pr.loginPaths {
		if strings.HasPrefix(u.Path, prefix) {
			return true
		}
	}
	return pr.legacyLogin != "" && strings.Contains(u.Path, pr.legacyLogin)
}

// IsLandingURL reports whether the URL is the locale landing variant of the
// profile root (e.g. /in/?_l=en_US), which the platform serves when the
// profile root is visited unauthenticated. A real profile at
// /in/<accountId>/ does not match.
func (p Platform) IsLandingURL(rawURL string) bool {
	u, ok := p.parse(rawURL)
	if !ok {
		return false
	}
	root := platformProps[p].profileRoot
	if root == "" {
		return false
	}
	parts := pathSegments(u.Path)
	return len(parts) == 1 && parts[0] == root && u.Query().Has("_l")
}

// IsProfileURL reports whether the URL points at a profile page: the
// profile-root segment followed by an account slug.
func (p Platform) IsProfileURL(rawURL string) bool {
	u, ok := p.parse(rawURL)
	if !ok {
		return false
	}
	root := platformProps[p].profileRoot
	if root == "" {
		return false
	}
	parts := pathSegments(u.Path)
	for i, seg := range parts {
		if seg == root {
			return i+1 < len(parts)
		}
	}
	return false
}

// IsFeedURL reports whether the URL is the platform's logged-in feed.
func (p Platform) IsFeedURL(rawURL string) bool {
	u, ok := p.parse(rawURL)
	if !ok {
		return false
	}
	root := platformProps[p].feedRoot
	return root != "" && strings.HasPrefix(u.Path, root)
}

// pathSegments splits a URL path into its non-empty segments.
func pathSegments(path string) []string {
	var parts []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	return parts
}
