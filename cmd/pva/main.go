// Command pva is a dev CLI for privai-agent maintenance and debugging
// tasks.
package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/pkg/browser"

	browserdrv "github.com/privai-labs/privai-agent/internal/browser"
	"github.com/privai-labs/privai-agent/internal/config"
	"github.com/privai-labs/privai-agent/internal/extract"
	"github.com/privai-labs/privai-agent/internal/platform"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "probe":
		if len(os.Args) < 3 {
			fmt.Println("Usage: pva probe <url>")
			os.Exit(1)
		}
		runProbe(os.Args[2])
	case "open":
		if len(os.Args) < 3 {
			fmt.Println("Usage: pva open <config|data>")
			os.Exit(1)
		}
		runOpen(os.Args[2])
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: pva <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  probe <url>   Run account extraction against a live page")
	fmt.Println("  open config   Open config file in default editor")
	fmt.Println("  open data     Open data directory in file explorer")
}

// runProbe loads a platform page in a visible browser and runs the account
// extraction strategies against it. Useful when a platform changes its
// markup and the selectors need re-checking.
func runProbe(pageURL string) {
	u, err := url.Parse(pageURL)
	if err != nil {
		log.Fatalf("Bad url: %v", err)
	}
	p, ok := platform.FromSiteName(platform.SiteName(u.Hostname()))
	if !ok {
		log.Fatalf("Unsupported platform host: %s", u.Hostname())
	}

	opts := browserdrv.Options(false) // non-headless so you can log in first
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancel()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	ctx, cancel = context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	if err := chromedp.Run(ctx, chromedp.Navigate(pageURL)); err != nil {
		log.Fatalf("Failed to navigate: %v", err)
	}

	fmt.Println("Press Enter once the page (and any login) has settled...")
	fmt.Scanln()

	var loc string
	if err := chromedp.Run(ctx, chromedp.Location(&loc)); err != nil {
		log.Fatalf("Failed to read location: %v", err)
	}

	acct, ok := extract.AccountInfo(p, loc, browserdrv.PageDOM(ctx))
	if !ok {
		log.Fatalf("No account found on %s", loc)
	}
	fmt.Printf("platform: %s\naccount id: %s\naccount name: %s\n", p, acct.ID, acct.Name)
}

func runOpen(target string) {
	var path string
	var err error

	switch target {
	case "config":
		path, err = config.ConfigPath()
	case "data":
		path, err = config.DataDir()
	default:
		fmt.Printf("Unknown target: %s\n", target)
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("Failed to get path: %v", err)
	}

	if err := browser.OpenFile(path); err != nil {
		log.Fatalf("Failed to open: %v", err)
	}
}
