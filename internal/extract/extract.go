// Package extract derives a stable account identifier and display name
// from a platform page. Extraction is best-effort: every strategy failure
// is a miss, never an error.
package extract

import (
	"net/url"
	"strings"

	"github.com/privai-labs/privai-agent/internal/platform"
)

// Account is an extracted account identity. Name may be empty; ID never is.
type Account struct {
	ID   string
	Name string
}

// DOM is the minimal page access extraction needs. Implementations return
// "" for missing elements or attributes and never fail.
type DOM interface {
	// QueryText returns the trimmed text content of the first element
	// matching the selector.
	QueryText(selector string) string
	// QueryAttr returns the named attribute of the first element matching
	// the selector.
	QueryAttr(selector, attr string) string
}

// strategy attempts one way of deriving an account from the page. Misses
// return ok=false.
type strategy func(pageURL *url.URL, dom DOM) (Account, bool)

var strategies = map[platform.Platform][]strategy{
	platform.LinkedIn:  {linkedInFromProfileURL, linkedInFromProfileLink},
	platform.Facebook:  {facebookFromURL},
	platform.Instagram: {instagramFromURL},
}

// AccountInfo runs the platform's strategies in order; first success wins.
// Unsupported platforms and malformed URLs yield a miss.
func AccountInfo(p platform.Platform, pageURL string, dom DOM) (Account, bool) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return Account{}, false
	}
	for _, try := range strategies[p] {
		if acct, ok := try(u, dom); ok {
			return acct, true
		}
	}
	return Account{}, false
}

// linkedInFromProfileURL takes the slug from /in/<accountId> when the page
// itself is a profile, then hunts for a display name.
func linkedInFromProfileURL(pageURL *url.URL, dom DOM) (Account, bool) {
	if !strings.Contains(pageURL.Hostname(), platform.LinkedIn.Domain()) {
		return Account{}, false
	}
	slug, ok := slugAfter(pageURL.Path, "in")
	if !ok {
		return Account{}, false
	}

	acct := Account{ID: slug}
	for _, sel := range linkedInNameSelectors {
		if name := dom.QueryText(sel); name != "" {
			acct.Name = name
			break
		}
	}
	return acct, true
}

// linkedInFromProfileLink scans the page for a profile anchor; used on feed
// pages where the URL itself carries no slug.
func linkedInFromProfileLink(pageURL *url.URL, dom DOM) (Account, bool) {
	for _, sel := range linkedInProfileLinkSelectors {
		href := dom.QueryAttr(sel, "href")
		if href == "" {
			continue
		}
		link, err := pageURL.Parse(href)
		if err != nil {
			continue
		}
		slug, ok := slugAfter(link.Path, "in")
		if !ok {
			continue
		}

		name := dom.QueryAttr(sel, "aria-label")
		if name == "" {
			name = dom.QueryText(sel)
		}
		return Account{ID: slug, Name: name}, true
	}
	return Account{}, false
}

// facebookFromURL reads the numeric id from /profile.php?id=... or falls
// back to the vanity first path segment. Facebook pages don't expose a
// reliable name selector, so the name stays empty.
func facebookFromURL(pageURL *url.URL, _ DOM) (Account, bool) {
	if !strings.Contains(pageURL.Hostname(), platform.Facebook.Domain()) {
		return Account{}, false
	}
	if strings.HasPrefix(pageURL.Path, "/profile.php") {
		if id := pageURL.Query().Get("id"); id != "" {
			return Account{ID: id}, true
		}
		return Account{}, false
	}
	parts := segments(pageURL.Path)
	if len(parts) == 0 {
		return Account{}, false
	}
	return Account{ID: parts[0]}, true
}

// instagramFromURL treats the first path segment as the username, rejecting
// reserved app routes like /explore/.
func instagramFromURL(pageURL *url.URL, _ DOM) (Account, bool) {
	if !strings.Contains(pageURL.Hostname(), platform.Instagram.Domain()) {
		return Account{}, false
	}
	parts := segments(pageURL.Path)
	if len(parts) == 0 {
		return Account{}, false
	}
	username := parts[0]
	if instagramReservedSegments[username] {
		return Account{}, false
	}
	return Account{ID: username, Name: username}, true
}

func segments(path string) []string {
	var parts []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	return parts
}

// slugAfter returns the path segment following the given root segment.
func slugAfter(path, root string) (string, bool) {
	parts := segments(path)
	for i, seg := range parts {
		if seg == root && i+1 < len(parts) {
			return parts[i+1], true
		}
	}
	return "", false
}
