package browser

import (
	"context"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/privai-labs/privai-agent/internal/platform"
)

// clickBinding is the DevTools binding the in-page listener reports
// through.
const clickBinding = "privaiClick"

// clickListenerJS installs one capturing click listener per page. It walks
// to the nearest button-like ancestor, snapshots the composer text at the
// same instant, and ships everything through the binding as JSON.
const clickListenerJS = `(() => {
	if (window.__privaiHooked) return;
	window.__privaiHooked = true;

	document.addEventListener("click", (e) => {
		const el = e.target instanceof Element ? e.target.closest('button, [role="button"]') : null;
		if (!el) return;

		let composer = "";
		const active = document.activeElement;
		if (active && active.getAttribute && active.getAttribute("role") === "textbox") {
			composer = active.textContent || active.value || "";
		} else {
			const boxes = document.querySelectorAll('[role="textbox"]');
			for (const b of boxes) {
				if (b.offsetParent !== null) composer = b.textContent || "";
			}
		}

		let described = "";
		const describedBy = el.getAttribute("aria-describedby");
		if (describedBy) {
			const ref = document.getElementById(describedBy.split(" ")[0]);
			if (ref) described = ref.textContent || "";
		}

		const video = document.querySelector("video");

		window.privaiClick(JSON.stringify({
			ariaLabel: el.getAttribute("aria-label") || "",
			ariaDescription: described,
			text: el.innerText || "",
			composer: composer,
			videoSrc: video ? (video.currentSrc || video.src || "") : ""
		}));
	}, true);
})()`

// AttachClickHook installs the click listener in the page behind ctx. The
// gate uses it as its attach function; re-running it on a page that
// already carries the hook is a no-op.
func AttachClickHook(ctx context.Context, _ platform.Platform) error {
	return chromedp.Run(ctx,
		chromedp.ActionFunc(func(cctx context.Context) error {
			if err := runtime.AddBinding(clickBinding).Do(cctx); err != nil {
				return err
			}
			_, err := page.AddScriptToEvaluateOnNewDocument(clickListenerJS).Do(cctx)
			return err
		}),
		chromedp.Evaluate(clickListenerJS, nil),
	)
}
