package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"

	"github.com/privai-labs/privai-agent/internal/extract"
)

// pageDOM implements extract.DOM over a tab's page. Failures read as
// missing elements; extraction treats both the same.
type pageDOM struct {
	ctx context.Context
}

// PageDOM returns the page of a chromedp context as an extraction target.
func PageDOM(ctx context.Context) extract.DOM {
	return pageDOM{ctx: ctx}
}

func (d pageDOM) QueryText(selector string) string {
	js := fmt.Sprintf(
		`(() => { const el = document.querySelector(%q); return el ? (el.textContent || "").trim() : ""; })()`,
		selector)
	return d.eval(js)
}

func (d pageDOM) QueryAttr(selector, attr string) string {
	js := fmt.Sprintf(
		`(() => { const el = document.querySelector(%q); return el ? (el.getAttribute(%q) || "") : ""; })()`,
		selector, attr)
	return d.eval(js)
}

func (d pageDOM) eval(js string) string {
	var out string
	if err := chromedp.Run(d.ctx, chromedp.Evaluate(js, &out)); err != nil {
		return ""
	}
	return out
}
