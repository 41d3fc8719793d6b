package cdp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"
)

// Options configures tabs opened by a Browser.
type Options struct {
	ViewportWidth     int
	ViewportHeight    int
	NavigationTimeout time.Duration
}

// Browser is a connection to a running Chromium over the DevTools protocol.
type Browser struct {
	opts          Options
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// Open connects to the browser at cdpURL. The URL may be an http debugging
// endpoint or a ws:// browser URL.
func Open(ctx context.Context, cdpURL string, opts Options) (*Browser, error) {
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 30 * time.Second
	}
	if opts.ViewportWidth <= 0 || opts.ViewportHeight <= 0 {
		opts.ViewportWidth, opts.ViewportHeight = 1920, 1080
	}

	slog.Info("connecting to browser", "url", cdpURL)
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(ctx, cdpURL)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("connect to browser at %s: %w", cdpURL, err)
	}

	return &Browser{
		opts:          opts,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// NewTab opens a tab in a fresh browser context, so cookies set on it do
// not leak into other tabs.
func (b *Browser) NewTab(ctx context.Context) (*Tab, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx, chromedp.WithNewBrowserContext())
	t := newTab(tabCtx, tabCancel, b.opts)

	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()
	if err := chromedp.Run(tabCtx, t.setup()...); err != nil {
		tabCancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return t, nil
}

// DocumentHTML loads pageURL in a throwaway tab and returns the rendered
// document markup.
func (b *Browser) DocumentHTML(ctx context.Context, pageURL string) (string, error) {
	tab, err := b.NewTab(ctx)
	if err != nil {
		return "", err
	}
	defer tab.Close()

	if err := tab.Navigate(ctx, pageURL); err != nil {
		return "", err
	}
	return tab.OuterHTML(ctx)
}

// Close disconnects from the browser. It does not stop the browser process.
func (b *Browser) Close() error {
	if b.browserCancel != nil {
		b.browserCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	slog.Info("CDP connection closed")
	return nil
}
