package cdp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	cdproto "github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/security"
	"github.com/chromedp/chromedp"

	"github.com/dgnsrekt/sitedoc/internal/types"
)

// ErrNavigationTimeout is returned when a page does not reach network idle
// within the navigation timeout.
var ErrNavigationTimeout = errors.New("navigation timed out waiting for network idle")

const opTimeout = 60 * time.Second

// Tab is a single page in its own browser context.
type Tab struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   Options

	mu     sync.Mutex
	idle   map[cdproto.LoaderID]bool
	signal chan struct{}
}

func newTab(ctx context.Context, cancel context.CancelFunc, opts Options) *Tab {
	t := &Tab{
		ctx:    ctx,
		cancel: cancel,
		opts:   opts,
		idle:   make(map[cdproto.LoaderID]bool),
		signal: make(chan struct{}, 1),
	}
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		if e, ok := ev.(*page.EventLifecycleEvent); ok && e.Name == "networkIdle" {
			t.markIdle(e.LoaderID)
		}
	})
	return t
}

func (t *Tab) setup() []chromedp.Action {
	return []chromedp.Action{
		network.Enable(),
		page.Enable(),
		page.SetLifecycleEventsEnabled(true),
		security.SetIgnoreCertificateErrors(true),
		chromedp.EmulateViewport(int64(t.opts.ViewportWidth), int64(t.opts.ViewportHeight)),
	}
}

func (t *Tab) markIdle(loader cdproto.LoaderID) {
	t.mu.Lock()
	t.idle[loader] = true
	t.mu.Unlock()
	select {
	case t.signal <- struct{}{}:
	default:
	}
}

func (t *Tab) isIdle(loader cdproto.LoaderID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.idle[loader]
}

// run executes actions against the tab, bounded by timeout and by ctx.
func (t *Tab) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(t.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// SetCookies installs cookies into the tab's browser context in one call.
func (t *Tab) SetCookies(ctx context.Context, cookies []types.Cookie) error {
	params := CookieParams(cookies)
	if len(params) == 0 {
		return nil
	}
	return t.run(ctx, opTimeout, network.SetCookies(params))
}

// CookieParams converts cookies into protocol parameters.
func CookieParams(cookies []types.Cookie) []*network.CookieParam {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		if c.Name == "" {
			continue
		}
		params = append(params, &network.CookieParam{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
		})
	}
	return params
}

// Navigate loads pageURL and waits until the network is idle. The whole
// operation is bounded by the navigation timeout.
func (t *Tab) Navigate(ctx context.Context, pageURL string) error {
	navCtx, cancel := context.WithTimeout(ctx, t.opts.NavigationTimeout)
	defer cancel()

	before, _ := t.currentLoader(navCtx)
	if err := t.run(navCtx, t.opts.NavigationTimeout, chromedp.Navigate(pageURL)); err != nil {
		return t.navError(ctx, navCtx, pageURL, err)
	}
	after, err := t.currentLoader(navCtx)
	if err != nil {
		return t.navError(ctx, navCtx, pageURL, err)
	}
	// Fragment navigation keeps the loader and never reports idle again.
	if after == before {
		return nil
	}

	for !t.isIdle(after) {
		select {
		case <-t.signal:
		case <-navCtx.Done():
			return t.navError(ctx, navCtx, pageURL, navCtx.Err())
		}
	}
	return nil
}

func (t *Tab) navError(parent, navCtx context.Context, pageURL string, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(navCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("navigate %s after %s: %w", pageURL, t.opts.NavigationTimeout, ErrNavigationTimeout)
	}
	return fmt.Errorf("navigate %s: %w", pageURL, err)
}

func (t *Tab) currentLoader(ctx context.Context) (cdproto.LoaderID, error) {
	var loader cdproto.LoaderID
	err := t.run(ctx, opTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		tree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return err
		}
		if tree == nil || tree.Frame == nil {
			return errors.New("page has no main frame")
		}
		loader = tree.Frame.LoaderID
		return nil
	}))
	return loader, err
}

// ScrollMetrics returns the document scroll height and the viewport height.
func (t *Tab) ScrollMetrics(ctx context.Context) (scrollHeight, viewportHeight int, err error) {
	var dims []float64
	err = t.run(ctx, opTimeout, chromedp.Evaluate(
		`[document.documentElement.scrollHeight, window.innerHeight]`, &dims))
	if err != nil {
		return 0, 0, fmt.Errorf("read scroll metrics: %w", err)
	}
	if len(dims) != 2 {
		return 0, 0, fmt.Errorf("read scroll metrics: unexpected result %v", dims)
	}
	return int(dims[0]), int(dims[1]), nil
}

// ScrollTo scrolls the window to vertical offset y.
func (t *Tab) ScrollTo(ctx context.Context, y int) error {
	var ok bool
	if err := t.run(ctx, opTimeout, chromedp.Evaluate(fmt.Sprintf(`window.scrollTo(0, %d), true`, y), &ok)); err != nil {
		return fmt.Errorf("scroll to %d: %w", y, err)
	}
	return nil
}

// Screenshot captures the page as png or jpeg. Quality applies to jpeg only.
func (t *Tab) Screenshot(ctx context.Context, fullPage bool, format string, quality int) ([]byte, error) {
	jpeg := format == "jpeg" || format == "jpg"
	if quality <= 0 || quality > 100 {
		quality = 90
	}

	var buf []byte
	var action chromedp.Action
	switch {
	case fullPage && jpeg:
		// FullScreenshot switches to png at quality 100.
		action = chromedp.FullScreenshot(&buf, min(quality, 99))
	case fullPage:
		action = chromedp.FullScreenshot(&buf, 100)
	default:
		action = chromedp.ActionFunc(func(ctx context.Context) error {
			params := page.CaptureScreenshot().WithFormat(page.CaptureScreenshotFormatPng)
			if jpeg {
				params = page.CaptureScreenshot().
					WithFormat(page.CaptureScreenshotFormatJpeg).
					WithQuality(int64(quality))
			}
			var err error
			buf, err = params.Do(ctx)
			return err
		})
	}

	if err := t.run(ctx, opTimeout, action); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return buf, nil
}

// OuterHTML returns the rendered markup of the document element.
func (t *Tab) OuterHTML(ctx context.Context) (string, error) {
	var html string
	if err := t.run(ctx, opTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read document html: %w", err)
	}
	return html, nil
}

// Close closes the tab and its browser context.
func (t *Tab) Close() error {
	t.cancel()
	return nil
}
