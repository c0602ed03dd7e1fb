package extract

// DOM selectors used by account extraction.
// These are isolated here because the platforms change their DOM frequently.
// Update these when extraction breaks.

// linkedInNameSelectors are tried in order; the first one yielding
// non-empty trimmed text supplies the display name.
var linkedInNameSelectors = []string{
	".pv-text-details__left-panel h1",
	".text-heading-xlarge",
	"header h1",
	"h1",
}

// linkedInProfileLinkSelectors locate a profile anchor on non-profile pages
// (e.g. the feed), tried in order.
var linkedInProfileLinkSelectors = []string{
	`a[href*="linkedin.com/in/"]`,
	`a[href^="/in/"]`,
}

// instagramReservedSegments are path roots that can never be a username.
var instagramReservedSegments = map[string]bool{
	"explore":  true,
	"reels":    true,
	"direct":   true,
	"p":        true,
	"accounts": true,
}
