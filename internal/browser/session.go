package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"

	"binday/internal/logger"
	"binday/internal/schedule"
	"binday/internal/vocab"
)

// Session owns one headless browser for the duration of a lookup. Close
// must be called on every path; it shuts the browser down.
type Session struct {
	config      Config
	rules       *vocab.Ruleset
	browserCtx  context.Context
	cancel      context.CancelFunc
	cancelAlloc context.CancelFunc
}

// NewSession starts a browser. The browser is torn down when ctx is
// cancelled or Close is called.
func NewSession(ctx context.Context, cfg Config, rules *vocab.Ruleset) (*Session, error) {
	if rules == nil {
		rules = vocab.Default()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("no-sandbox", true), // Running as root requires this
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(cfg.Width, cfg.Height),
		chromedp.UserAgent(cfg.UserAgent),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...), "source", "chromedp")
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...), "source", "chromedp")
		}),
	)

	// An empty run starts the browser, so a missing binary fails here.
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	logger.Debug("Browser started", "headless", cfg.Headless, "exec_path", cfg.ExecPath)

	return &Session{
		config:      cfg,
		rules:       rules,
		browserCtx:  browserCtx,
		cancel:      cancel,
		cancelAlloc: cancelAlloc,
	}, nil
}

// Close shuts the browser down.
func (s *Session) Close() {
	s.cancel()
	s.cancelAlloc()
	logger.Debug("Browser closed")
}

// Lookup drives the calendar form for q. Cancelling ctx or reaching its
// deadline stops the lookup. The returned error is always a
// *schedule.LookupError.
func (s *Session) Lookup(ctx context.Context, q schedule.Query) (*schedule.Schedule, error) {
	runCtx, cancel := s.runContext(ctx)
	defer cancel()

	r := newResolver(newChromePage(s.config.FrameID), s.rules, s.config, q)
	return r.run(runCtx)
}

// Capture opens the form frame, waits for it to settle and returns its markup.
func (s *Session) Capture(ctx context.Context) (string, error) {
	runCtx, cancel := s.runContext(ctx)
	defer cancel()

	page := newChromePage(s.config.FrameID)
	if err := page.Open(runCtx, s.config.ServiceURL, s.config.Waits.Frame); err != nil {
		return "", err
	}
	if err := sleep(runCtx, s.config.Waits.FrameSettle); err != nil {
		return "", err
	}
	return page.HTML(runCtx)
}

// runContext derives a browser context that also ends with ctx.
func (s *Session) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if deadline, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(s.browserCtx, deadline)
	} else {
		runCtx, cancel = context.WithCancel(s.browserCtx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}
