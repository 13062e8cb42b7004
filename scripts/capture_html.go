// capture_html renders the bin calendar form frame in Chrome and saves its
// markup as a test fixture. Run from the module root with: go run ./scripts
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"binday/internal/browser"
	"binday/internal/logger"
)

// capturer is the part of a browser session the script uses.
type capturer interface {
	Capture(ctx context.Context) (string, error)
	Close()
}

var startSession = func(ctx context.Context, cfg browser.Config) (capturer, error) {
	return browser.NewSession(ctx, cfg, nil)
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the exit code so deferred browser teardown happens first.
func run(args []string) int {
	fs := flag.NewFlagSet("capture_html", flag.ContinueOnError)
	out := fs.String("out", "internal/extract/testdata/captured_frame.html", "fixture path")
	headless := fs.Bool("headless", true, "run the browser without a window")
	debug := fs.Bool("debug", false, "enable debug logging")
	target := fs.String("url", browser.DefaultConfig().ServiceURL, "calendar page URL")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger.Init(logger.Options{Debug: *debug})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cfg := browser.DefaultConfig()
	cfg.Headless = *headless
	cfg.ServiceURL = *target
	sess, err := startSession(ctx, cfg)
	if err != nil {
		logger.Error("Failed to start browser", "error", err)
		return 1
	}
	defer sess.Close()

	logger.Info("Navigating to page", "url", cfg.ServiceURL)
	html, err := sess.Capture(ctx)
	if err != nil {
		logger.Error("Failed to capture form frame", "error", err)
		return 1
	}

	if err := os.WriteFile(*out, []byte(html), 0644); err != nil {
		logger.Error("Failed to write fixture", "path", *out, "error", err)
		return 1
	}

	logger.Info("Captured HTML", "path", *out)
	return 0
}
