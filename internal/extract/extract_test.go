package extract

import (
	"testing"

	"github.com/privai-labs/privai-agent/internal/platform"
)

// fakeDOM answers selector queries from fixed maps.
type fakeDOM struct {
	text  map[string]string
	attrs map[string]map[string]string
}

func (d fakeDOM) QueryText(selector string) string {
	return d.text[selector]
}

func (d fakeDOM) QueryAttr(selector, attr string) string {
	return d.attrs[selector][attr]
}

func TestLinkedInProfileURLStrategy(t *testing.T) {
	dom := fakeDOM{text: map[string]string{
		".text-heading-xlarge": "John Doe",
		"h1":                   "Should not win",
	}}

	acct, ok := AccountInfo(platform.LinkedIn, "https://www.linkedin.com/in/johndoe/", dom)
	if !ok {
		t.Fatal("expected a hit on a profile URL")
	}
	if acct.ID != "johndoe" {
		t.Errorf("id = %q", acct.ID)
	}
	if acct.Name != "John Doe" {
		t.Errorf("name selector priority broken: %q", acct.Name)
	}
}

func TestLinkedInProfileURLWithoutName(t *testing.T) {
	acct, ok := AccountInfo(platform.LinkedIn, "https://www.linkedin.com/in/johndoe/", fakeDOM{})
	if !ok {
		t.Fatal("missing name must not fail extraction")
	}
	if acct.ID != "johndoe" || acct.Name != "" {
		t.Errorf("got %+v", acct)
	}
}

func TestLinkedInFeedFallsBackToProfileLink(t *testing.T) {
	dom := fakeDOM{
		text: map[string]string{`a[href^="/in/"]`: "Jane Roe"},
		attrs: map[string]map[string]string{
			`a[href^="/in/"]`: {"href": "/in/janeroe/"},
		},
	}

	acct, ok := AccountInfo(platform.LinkedIn, "https://www.linkedin.com/feed/", dom)
	if !ok {
		t.Fatal("expected link fallback to hit")
	}
	if acct.ID != "janeroe" || acct.Name != "Jane Roe" {
		t.Errorf("got %+v", acct)
	}
}

func TestLinkedInFallbackPrefersAriaLabel(t *testing.T) {
	sel := `a[href*="linkedin.com/in/"]`
	dom := fakeDOM{
		text: map[string]string{sel: "visible text"},
		attrs: map[string]map[string]string{
			sel: {"href": "https://www.linkedin.com/in/janeroe/", "aria-label": "Jane Roe"},
		},
	}

	acct, ok := AccountInfo(platform.LinkedIn, "https://www.linkedin.com/feed/", dom)
	if !ok {
		t.Fatal("expected link fallback to hit")
	}
	if acct.Name != "Jane Roe" {
		t.Errorf("aria-label should win over text, got %q", acct.Name)
	}
}

func TestLinkedInMissWhenNoSlugAnywhere(t *testing.T) {
	if _, ok := AccountInfo(platform.LinkedIn, "https://www.linkedin.com/feed/", fakeDOM{}); ok {
		t.Error("no URL slug and no profile link must miss")
	}
}

func TestFacebookProfilePHP(t *testing.T) {
	acct, ok := AccountInfo(platform.Facebook, "https://www.facebook.com/profile.php?id=100012345", fakeDOM{})
	if !ok || acct.ID != "100012345" {
		t.Errorf("got %+v, %v", acct, ok)
	}

	if _, ok := AccountInfo(platform.Facebook, "https://www.facebook.com/profile.php", fakeDOM{}); ok {
		t.Error("profile.php without id must miss")
	}
}

func TestFacebookVanityPath(t *testing.T) {
	acct, ok := AccountInfo(platform.Facebook, "https://www.facebook.com/john.doe.54/", fakeDOM{})
	if !ok || acct.ID != "john.doe.54" {
		t.Errorf("got %+v, %v", acct, ok)
	}
	if acct.Name != "" {
		t.Errorf("facebook name should stay empty, got %q", acct.Name)
	}
}

func TestInstagramUsername(t *testing.T) {
	acct, ok := AccountInfo(platform.Instagram, "https://instagram.com/johndoe/", fakeDOM{})
	if !ok || acct.ID != "johndoe" || acct.Name != "johndoe" {
		t.Errorf("got %+v, %v", acct, ok)
	}
}

func TestInstagramReservedSegmentsMiss(t *testing.T) {
	for _, path := range []string{"/explore/", "/reels/", "/direct/", "/p/abc123/", "/accounts/login/"} {
		if _, ok := AccountInfo(platform.Instagram, "https://instagram.com"+path, fakeDOM{}); ok {
			t.Errorf("reserved path %q must miss", path)
		}
	}
}

func TestUnsupportedPlatformAndMalformedURL(t *testing.T) {
	if _, ok := AccountInfo(platform.Twitter, "https://x.com/johndoe", fakeDOM{}); ok {
		t.Error("twitter has no extraction strategy yet")
	}
	if _, ok := AccountInfo(platform.LinkedIn, "::not-a-url", fakeDOM{}); ok {
		t.Error("malformed URL must miss")
	}
	if _, ok := AccountInfo(platform.LinkedIn, "https://example.com/in/impostor/", fakeDOM{}); ok {
		t.Error("off-platform host must miss")
	}
}
