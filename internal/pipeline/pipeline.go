package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/dgnsrekt/sitedoc/internal/browser"
	"github.com/dgnsrekt/sitedoc/internal/capture"
	"github.com/dgnsrekt/sitedoc/internal/cdp"
	"github.com/dgnsrekt/sitedoc/internal/config"
	"github.com/dgnsrekt/sitedoc/internal/document"
	"github.com/dgnsrekt/sitedoc/internal/menu"
	"github.com/dgnsrekt/sitedoc/internal/notify"
	"github.com/dgnsrekt/sitedoc/internal/snapshot"
	"github.com/dgnsrekt/sitedoc/internal/storage"
	"github.com/dgnsrekt/sitedoc/internal/types"
)

const (
	ModeFull            = "full"
	ModeScreenshotsOnly = "screenshots-only"
	ModePDFOnly         = "pdf-only"
)

// Browser is a running browser the pipeline captures pages with.
type Browser interface {
	capture.SessionOpener
	menu.DOMSource
	Close() error
}

// DocumentBuilder assembles images into a document.
type DocumentBuilder interface {
	Build(images []string, outputPath string, pageInfos []types.PageEntry) (string, error)
}

// Deps are the collaborators of a run.
type Deps struct {
	StartBrowser func(ctx context.Context, cfg *config.Config) (Browser, error)
	NewDocument  func(cfg *config.Config) DocumentBuilder
	HTTPClient   *http.Client
	Now          func() time.Time
}

// DefaultDeps drives a real Chromium and writes PDFs with fpdf.
func DefaultDeps() Deps {
	return Deps{
		StartBrowser: StartChrome,
		NewDocument: func(cfg *config.Config) DocumentBuilder {
			return document.NewBuilder(document.FindFont(cfg.Output.FontPath), document.Labels{
				Name: cfg.Output.NameLabel,
				URL:  cfg.Output.URLLabel,
			})
		},
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Now:        time.Now,
	}
}

// Result describes what a run produced.
type Result struct {
	Mode         string
	Pages        int
	Images       []types.CapturedImage
	RunDir       string
	DocumentPath string
}

// Run executes one pipeline mode.
func Run(ctx context.Context, cfg *config.Config, mode string, cookies []types.Cookie, deps Deps) (*Result, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	var (
		res *Result
		err error
	)
	switch mode {
	case ModeFull, ModeScreenshotsOnly:
		res, err = runCapture(ctx, cfg, mode, cookies, deps)
	case ModePDFOnly:
		res, err = runPDFOnly(cfg, deps)
	default:
		return nil, types.NewError(types.CodeConfiguration, fmt.Sprintf("unknown mode %q", mode), nil)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Notify.Endpoint != "" {
		summary := notify.Summary{
			Mode:         res.Mode,
			Pages:        res.Pages,
			Captured:     len(res.Images),
			RunDir:       res.RunDir,
			DocumentPath: res.DocumentPath,
		}
		if err := notify.SendSummary(ctx, deps.HTTPClient, cfg.Notify.Endpoint, summary); err != nil {
			slog.Warn("notification failed", "endpoint", cfg.Notify.Endpoint, "error", err)
		}
	}
	return res, nil
}

func runCapture(ctx context.Context, cfg *config.Config, mode string, cookies []types.Cookie, deps Deps) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	src := cfg.MenuSource()
	now := deps.Now()

	var pages []types.PageEntry
	if !src.NeedsBrowser() {
		var err error
		if pages, err = menu.Resolve(ctx, src, nil); err != nil {
			return nil, err
		}
	}

	br, err := deps.StartBrowser(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := br.Close(); err != nil {
			slog.Warn("browser shutdown failed", "error", err)
		}
	}()

	if src.NeedsBrowser() {
		if pages, err = menu.Resolve(ctx, src, br); err != nil {
			return nil, err
		}
	}
	slog.Info("pages resolved", "count", len(pages))

	runDir := filepath.Join(cfg.Output.Dir, storage.RunDirName(now))
	engine := capture.NewEngine(br, capture.Options{
		FullPage:      cfg.Browser.FullPage,
		WaitAfterLoad: cfg.Browser.WaitAfterLoadDuration(),
		ScrollDelay:   cfg.Browser.ScrollDelayDuration(),
		JPEGQuality:   cfg.Output.JPEGQuality,
	})
	images, err := engine.Capture(ctx, pages, cfg.BaseURL, runDir, cfg.Output.ImageFormat, cookies)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, types.NewError(types.CodeEmptyCapture, fmt.Sprintf("none of %d pages could be captured", len(pages)), nil)
	}

	res := &Result{Mode: mode, Pages: len(pages), Images: images, RunDir: runDir}
	if mode == ModeScreenshotsOnly {
		slog.Info("screenshots written", "dir", runDir, "count", len(images))
		return res, nil
	}

	out := filepath.Join(cfg.Output.Dir, storage.DocumentFileName(cfg.Output.DocName, now))
	docPath, err := deps.NewDocument(cfg).Build(types.ImagePaths(images), out, types.PageInfos(images))
	if err != nil {
		return nil, err
	}
	res.DocumentPath = docPath
	return res, nil
}

// runPDFOnly rebuilds a document from the newest run directory. Captions
// come from the snapshot sidecars; without them the images are used bare.
func runPDFOnly(cfg *config.Config, deps Deps) (*Result, error) {
	runDir, err := storage.LatestRunDir(cfg.Output.Dir)
	if err != nil {
		return nil, types.NewError(types.CodeResource, "scan output directory", err)
	}
	if runDir == "" {
		return nil, types.NewError(types.CodeEmptyInput, fmt.Sprintf("no run_* directory under %s; capture screenshots first", cfg.Output.Dir), nil)
	}
	slog.Info("building document from previous run", "dir", runDir)

	store, err := snapshot.NewStore(runDir)
	if err != nil {
		return nil, types.NewError(types.CodeResource, "open run directory", err)
	}
	metas, err := store.List()
	if err != nil {
		return nil, types.NewError(types.CodeResource, "read snapshot metadata", err)
	}

	var (
		images []string
		infos  []types.PageEntry
	)
	if len(metas) > 0 {
		for _, m := range metas {
			images = append(images, store.Path(m))
			infos = append(infos, m.Page())
		}
	} else {
		slog.Warn("no snapshot metadata found, building without captions", "dir", runDir)
		if images, err = store.Images(); err != nil {
			return nil, types.NewError(types.CodeResource, "list images", err)
		}
	}

	out := filepath.Join(cfg.Output.Dir, storage.DocumentFileName(cfg.Output.DocName, deps.Now()))
	docPath, err := deps.NewDocument(cfg).Build(images, out, infos)
	if err != nil {
		return nil, err
	}
	return &Result{Mode: ModePDFOnly, RunDir: runDir, DocumentPath: docPath}, nil
}

// chrome is a Chromium connection, optionally owning the browser process.
type chrome struct {
	*cdp.Browser
	launcher *browser.Launcher
}

// StartChrome attaches to browser.cdp_url when set, otherwise launches a
// local browser for the run.
func StartChrome(ctx context.Context, cfg *config.Config) (Browser, error) {
	opts := cdp.Options{
		ViewportWidth:     cfg.Browser.ViewportWidth,
		ViewportHeight:    cfg.Browser.ViewportHeight,
		NavigationTimeout: cfg.Browser.NavigationTimeoutDuration(),
	}

	if cfg.Browser.CDPURL != "" {
		b, err := cdp.Open(ctx, cfg.Browser.CDPURL, opts)
		if err != nil {
			return nil, types.NewError(types.CodeResource, "attach to browser", err)
		}
		return &chrome{Browser: b}, nil
	}

	l := browser.NewLauncher(browser.Config{
		Channel:        cfg.Browser.Channel,
		ExecutablePath: cfg.Browser.ExecutablePath,
		Headless:       cfg.Browser.Headless,
		DebugPort:      cfg.Browser.DebugPort,
		WindowWidth:    cfg.Browser.ViewportWidth,
		WindowHeight:   cfg.Browser.ViewportHeight,
	})
	if err := l.Launch(ctx); err != nil {
		return nil, err
	}
	b, err := cdp.Open(ctx, l.CDPURL(), opts)
	if err != nil {
		l.Stop()
		return nil, types.NewError(types.CodeResource, "connect to launched browser", err)
	}
	return &chrome{Browser: b, launcher: l}, nil
}

func (c *chrome) OpenSession(ctx context.Context) (capture.PageDriver, error) {
	tab, err := c.NewTab(ctx)
	if err != nil {
		return nil, err
	}
	return tab, nil
}

func (c *chrome) Close() error {
	err := c.Browser.Close()
	if c.launcher != nil && c.launcher.Running() {
		c.launcher.Stop()
	}
	return err
}
