package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dgnsrekt/sitedoc/internal/config"
	"github.com/dgnsrekt/sitedoc/internal/cookies"
	"github.com/dgnsrekt/sitedoc/internal/pipeline"
	"github.com/dgnsrekt/sitedoc/internal/types"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	mode := flag.String("mode", pipeline.ModeFull, "run mode: full|screenshots-only|pdf-only")
	screenshotsOnly := flag.Bool("screenshots-only", false, "capture screenshots without building the PDF")
	pdfOnly := flag.Bool("pdf-only", false, "build the PDF from the latest run directory")
	noHeadless := flag.Bool("no-headless", false, "show the browser window")
	cookieFlag := flag.String("cookie", "", "cookie string \"a=1; b=2\" or path to a cookies JSON file")
	flag.Parse()

	runMode, err := resolveMode(*mode, *screenshotsOnly, *pdfOnly)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "sitedoc: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "sitedoc: load config: %v\n", err)
		os.Exit(1)
	}
	if *noHeadless {
		cfg.Browser.Headless = false
	}

	if err := setupLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		_, _ = io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n")
		os.Exit(1)
	}

	slog.Info("sitedoc config loaded",
		"config", *configPath,
		"mode", runMode,
		"base_url", cfg.BaseURL,
		"output_dir", cfg.Output.Dir,
		"headless", cfg.Browser.Headless,
		"full_page", cfg.Browser.FullPage,
		"image_format", cfg.Output.ImageFormat,
		"log_level", cfg.Log.Level,
	)

	var loginCookies []types.Cookie
	if runMode != pipeline.ModePDFOnly && cfg.Login.Enabled {
		input := firstNonEmpty(*cookieFlag, cfg.Login.Cookie)
		if input == "" && term.IsTerminal(int(os.Stdin.Fd())) {
			input = promptCookie(os.Stdin, os.Stdout)
		}
		domain := firstNonEmpty(cfg.Login.CookieDomain, cookies.DomainFromURL(cfg.BaseURL))
		loginCookies, err = cookies.Parse(input, domain, cookies.DefaultPath)
		if err != nil {
			slog.Error("invalid cookie input", "error", err)
			os.Exit(1)
		}
		if len(loginCookies) == 0 {
			slog.Info("no login cookies, continuing without a session")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	res, err := pipeline.Run(ctx, cfg, runMode, loginCookies, pipeline.DefaultDeps())
	stop()
	if err != nil {
		logRunError(err)
		os.Exit(1)
	}

	slog.Info("sitedoc finished",
		"mode", res.Mode,
		"pages", res.Pages,
		"captured", len(res.Images),
		"run_dir", res.RunDir,
		"document", res.DocumentPath,
	)
}

// resolveMode folds the shortcut flags into a single mode.
func resolveMode(mode string, screenshotsOnly, pdfOnly bool) (string, error) {
	switch {
	case screenshotsOnly && pdfOnly:
		return "", errors.New("-screenshots-only and -pdf-only are mutually exclusive")
	case screenshotsOnly:
		return pipeline.ModeScreenshotsOnly, nil
	case pdfOnly:
		return pipeline.ModePDFOnly, nil
	}
	switch mode {
	case pipeline.ModeFull, pipeline.ModeScreenshotsOnly, pipeline.ModePDFOnly:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want full, screenshots-only or pdf-only)", mode)
	}
}

func promptCookie(in io.Reader, out io.Writer) string {
	_, _ = fmt.Fprint(out, "Paste the Cookie header for the site (or a cookies JSON file path), empty to skip: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		slog.Warn("cookie prompt failed", "error", err)
		return ""
	}
	return strings.TrimSpace(line)
}

// runErrorHints point the user at the usual cause of a failure class.
var runErrorHints = []struct {
	code string
	hint string
}{
	{types.CodeConfiguration, "check config.yaml: base_url and pages or menu_selector"},
	{types.CodeEmptyCapture, "no page could be captured; check the login cookie and that base_url is reachable"},
	{types.CodeEmptyInput, "no images to assemble; run without -pdf-only first"},
	{types.CodeResource, "check the browser installation or browser.executable_path"},
}

func logRunError(err error) {
	if errors.Is(err, context.Canceled) {
		slog.Error("sitedoc interrupted")
		return
	}
	for _, h := range runErrorHints {
		if types.HasCode(err, h.code) {
			slog.Error("sitedoc failed", "code", h.code, "hint", h.hint, "error", err)
			return
		}
	}
	slog.Error("sitedoc failed", "error", err)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func setupLogger(level, filename string) error {
	if filename == "" {
		filename = "logs/sitedoc.log"
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
