package capture

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgnsrekt/sitedoc/internal/menu"
	"github.com/dgnsrekt/sitedoc/internal/snapshot"
	"github.com/dgnsrekt/sitedoc/internal/storage"
	"github.com/dgnsrekt/sitedoc/internal/types"
)

// ReportFile is the per-run JSONL file recording every capture attempt.
const ReportFile = "capture-report.jsonl"

const settleAfterScroll = 500 * time.Millisecond

// PageDriver drives a single page inside an isolated browsing context.
type PageDriver interface {
	SetCookies(ctx context.Context, cookies []types.Cookie) error
	Navigate(ctx context.Context, url string) error
	ScrollMetrics(ctx context.Context) (scrollHeight, viewportHeight int, err error)
	ScrollTo(ctx context.Context, y int) error
	Screenshot(ctx context.Context, fullPage bool, format string, quality int) ([]byte, error)
	Close() error
}

// SessionOpener opens a fresh browsing context on an already running browser.
type SessionOpener interface {
	OpenSession(ctx context.Context) (PageDriver, error)
}

// Options tunes how pages are loaded and captured.
type Options struct {
	FullPage      bool
	WaitAfterLoad time.Duration
	ScrollDelay   time.Duration
	JPEGQuality   int
}

// Record is one line of the capture report.
type Record struct {
	Ordinal    int       `json:"ordinal"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	File       string    `json:"file,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	Time       time.Time `json:"time"`
}

// Report statuses.
const (
	StatusCaptured = "captured"
	StatusFailed   = "failed"
	StatusSkipped  = "skipped"
)

// Engine captures an ordered list of pages into image files.
type Engine struct {
	opener SessionOpener
	opts   Options
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewEngine creates an engine that opens sessions through opener.
func NewEngine(opener SessionOpener, opts Options) *Engine {
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = 90
	}
	return &Engine{opener: opener, opts: opts, sleep: sleepContext}
}

// Capture visits pages in order and writes one image per successfully
// captured page into outputDir. Failed pages are logged and skipped. The
// browsing context is closed on every return path.
func (e *Engine) Capture(ctx context.Context, pages []types.PageEntry, baseURL, outputDir, imageFormat string, loginCookies []types.Cookie) ([]types.CapturedImage, error) {
	ext, shotFormat, err := NormalizeFormat(imageFormat)
	if err != nil {
		return nil, err
	}

	store, err := snapshot.NewStore(outputDir)
	if err != nil {
		return nil, types.NewError(types.CodeResource, "prepare output directory", err)
	}
	report, err := storage.NewJSONLWriter(outputDir, ReportFile, 10)
	if err != nil {
		return nil, types.NewError(types.CodeResource, "open capture report", err)
	}
	defer func() {
		if err := report.Close(); err != nil {
			slog.Debug("capture report close failed", "error", err)
		}
	}()

	session, err := e.opener.OpenSession(ctx)
	if err != nil {
		return nil, types.NewError(types.CodeResource, "open browsing context", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Debug("browsing context close failed", "error", err)
		}
	}()

	if len(loginCookies) > 0 {
		if err := session.SetCookies(ctx, loginCookies); err != nil {
			return nil, types.NewError(types.CodeResource, "inject login cookies", err)
		}
		slog.Info("login cookies injected", "count", len(loginCookies))
	}

	images := make([]types.CapturedImage, 0, len(pages))
	for i, p := range pages {
		if err := ctx.Err(); err != nil {
			return images, err
		}
		ordinal := i + 1
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("page_%d", ordinal)
		}
		rec := Record{Ordinal: ordinal, Name: name, Time: time.Now().UTC()}

		if p.URL == "" {
			slog.Warn("page has no url, skipping", "name", name)
			rec.Status = StatusSkipped
			rec.Error = "empty url"
			e.writeRecord(report, rec)
			continue
		}

		pageURL := JoinURL(baseURL, p.URL)
		rec.URL = pageURL
		slog.Info("capturing page", "ordinal", ordinal, "total", len(pages), "name", name, "url", pageURL)

		start := time.Now()
		path, err := e.capturePage(ctx, session, store, snapshot.SnapshotMeta{
			Ordinal: ordinal,
			Name:    name,
			URL:     pageURL,
			Format:  ext,
		}, shotFormat)
		rec.DurationMS = time.Since(start).Milliseconds()

		if err != nil {
			if ctx.Err() != nil {
				return images, ctx.Err()
			}
			slog.Error("page capture failed, skipping", "name", name, "url", pageURL, "error", err)
			rec.Status = StatusFailed
			rec.Error = err.Error()
			e.writeRecord(report, rec)
			continue
		}

		rec.Status = StatusCaptured
		rec.File = path
		e.writeRecord(report, rec)
		images = append(images, types.CapturedImage{
			Path:    path,
			Ordinal: ordinal,
			Page:    types.PageEntry{Name: name, URL: pageURL},
		})
	}

	slog.Info("capture finished", "captured", len(images), "total", len(pages))
	return images, nil
}

func (e *Engine) capturePage(ctx context.Context, session PageDriver, store *snapshot.Store, meta snapshot.SnapshotMeta, shotFormat string) (string, error) {
	if err := session.Navigate(ctx, meta.URL); err != nil {
		return "", types.NewError(types.CodeNavigation, "navigate", err)
	}
	if err := e.sleep(ctx, e.opts.WaitAfterLoad); err != nil {
		return "", err
	}

	if e.opts.FullPage {
		if err := e.stabilize(ctx, session); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			slog.Debug("page stabilisation failed", "url", meta.URL, "error", err)
		}
	}

	data, err := session.Screenshot(ctx, e.opts.FullPage, shotFormat, e.opts.JPEGQuality)
	if err != nil {
		return "", err
	}
	return store.Save(meta, data)
}

// stabilize scrolls through the page one viewport at a time so lazy content
// loads, then returns to the top.
func (e *Engine) stabilize(ctx context.Context, session PageDriver) error {
	height, viewport, err := session.ScrollMetrics(ctx)
	if err != nil {
		return err
	}
	if viewport <= 0 {
		return fmt.Errorf("invalid viewport height %d", viewport)
	}
	for y := 0; y < height; y += viewport {
		if err := session.ScrollTo(ctx, y); err != nil {
			return err
		}
		if err := e.sleep(ctx, e.opts.ScrollDelay); err != nil {
			return err
		}
	}
	if err := session.ScrollTo(ctx, 0); err != nil {
		return err
	}
	return e.sleep(ctx, settleAfterScroll)
}

func (e *Engine) writeRecord(report *storage.JSONLWriter, rec Record) {
	if err := report.Write(rec); err != nil {
		slog.Warn("capture report write failed", "path", report.Path(), "error", err)
	}
}

// NormalizeFormat maps a configured image format to a file extension and a
// screenshot format. "jpg" keeps its extension but captures as jpeg.
func NormalizeFormat(format string) (ext, shotFormat string, err error) {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "", "png":
		return "png", "png", nil
	case "jpg", "jpeg":
		return f, "jpeg", nil
	default:
		return "", "", types.NewError(types.CodeConfiguration, fmt.Sprintf("unsupported image format %q (use png or jpeg)", format), nil)
	}
}

// JoinURL makes ref absolute. Rooted paths are joined under the base URL's
// own path, so "/reports" on https://x.test/app becomes
// https://x.test/app/reports.
func JoinURL(baseURL, ref string) string {
	switch {
	case strings.HasPrefix(ref, "http"):
		return ref
	case strings.HasPrefix(ref, "/"):
		return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(ref, "/")
	default:
		return menu.ResolveURL(baseURL, ref)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
