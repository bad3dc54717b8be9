// Package browser implements runner.Page on top of Chrome through the
// DevTools protocol (chromedp).
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"uicheck/internal/logging"
	"uicheck/internal/runner"

	"github.com/chromedp/chromedp"
)

// Options controls how Chrome is started or reached.
type Options struct {
	// RemoteURL attaches to a running Chrome (ws:// or http:// DevTools
	// endpoint) instead of launching one.
	RemoteURL string
	Headless  bool
	// ExecPath overrides Chrome discovery.
	ExecPath string
	// NoSandbox is needed when running as root in containers.
	NoSandbox bool
	Width     int
	Height    int
	// ActionTimeout bounds a single browser action when the caller's
	// context carries no earlier deadline.
	ActionTimeout time.Duration
	// FullPage captures the whole scrollable page instead of the viewport.
	FullPage bool
}

// DefaultOptions matches the smoke-test setup: headless Chromium with a
// desktop-sized viewport.
func DefaultOptions() Options {
	return Options{
		Headless:      true,
		NoSandbox:     true,
		Width:         1280,
		Height:        720,
		ActionTimeout: 30 * time.Second,
	}
}

// Browser is one Chrome instance. Pages opened from it are independent tabs.
type Browser struct {
	opts          Options
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	logger        *slog.Logger
}

// Launch starts Chrome (or attaches to RemoteURL) and waits until the
// browser answers.
func Launch(ctx context.Context, opts Options) (*Browser, error) {
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = DefaultOptions().ActionTimeout
	}
	logger := logging.New("browser")

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if opts.RemoteURL != "" {
		logger.Info("connecting to chrome", "url", opts.RemoteURL)
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, opts.RemoteURL)
	} else {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-first-run", true),
		)
		if opts.NoSandbox {
			allocOpts = append(allocOpts, chromedp.NoSandbox)
		}
		if opts.Width > 0 && opts.Height > 0 {
			allocOpts = append(allocOpts, chromedp.WindowSize(opts.Width, opts.Height))
		}
		if opts.ExecPath != "" {
			allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
		}
		logger.Info("launching chrome", "headless", opts.Headless)
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, allocOpts...)
	}

	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Debug("cdp", "msg", fmt.Sprintf(format, args...))
		}),
	)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	return &Browser{
		opts:          opts,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		logger:        logger,
	}, nil
}

// NewPage opens a fresh tab.
func (b *Browser) NewPage(ctx context.Context) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	id := chromedp.FromContext(tabCtx).Target.TargetID
	b.logger.Debug("tab opened", "target", string(id))
	return &Page{
		ctx:      tabCtx,
		cancel:   cancel,
		timeout:  b.opts.ActionTimeout,
		fullPage: b.opts.FullPage,
		logger:   b.logger.With(slog.String("target", string(id))),
	}, nil
}

// OpenPage satisfies suite.PageOpener.
func (b *Browser) OpenPage(ctx context.Context) (runner.Page, error) {
	p, err := b.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Close shuts the browser down (or detaches from a remote one).
func (b *Browser) Close() error {
	b.browserCancel()
	b.allocCancel()
	return nil
}
