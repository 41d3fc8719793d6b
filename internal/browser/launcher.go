package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/dgnsrekt/sitedoc/internal/netutil"
	"github.com/dgnsrekt/sitedoc/internal/types"
)

// Config holds browser launch configuration.
type Config struct {
	Channel        string
	ExecutablePath string
	Headless       bool
	DebugAddress   string
	DebugPort      int
	WindowWidth    int
	WindowHeight   int
}

// Launcher manages the lifecycle of a browser process started for a run.
type Launcher struct {
	cfg        Config
	cmd        *exec.Cmd
	profileDir string
	port       int
	running    bool
}

// NewLauncher creates a new browser launcher with the given config.
func NewLauncher(cfg Config) *Launcher {
	if cfg.DebugAddress == "" {
		cfg.DebugAddress = "127.0.0.1"
	}
	if cfg.WindowWidth <= 0 || cfg.WindowHeight <= 0 {
		cfg.WindowWidth, cfg.WindowHeight = 1920, 1080
	}
	return &Launcher{cfg: cfg}
}

var (
	lookPath = exec.LookPath
	statFile = os.Stat
)

// channelCandidates lists executable names per channel, in lookup order.
var channelCandidates = map[string][]string{
	"chrome":   {"google-chrome", "google-chrome-stable", "chrome"},
	"msedge":   {"microsoft-edge", "microsoft-edge-stable", "msedge"},
	"chromium": {"chromium-browser", "chromium", "google-chrome"},
}

var darwinPaths = map[string][]string{
	"chrome":   {"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"},
	"msedge":   {"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge"},
	"chromium": {"/Applications/Chromium.app/Contents/MacOS/Chromium"},
}

var windowsPaths = map[string][]string{
	"chrome": {
		`C:\Program Files\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
	},
	"msedge": {
		`C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`,
		`C:\Program Files\Microsoft\Edge\Application\msedge.exe`,
	},
}

// DetectBrowser finds the browser binary for channel. An explicit path wins.
// An empty channel means chromium.
func DetectBrowser(channel, explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := statFile(explicitPath); err != nil {
			return "", types.NewError(types.CodeResource,
				fmt.Sprintf("browser executable %q not found; fix browser.executable_path", explicitPath), err)
		}
		return explicitPath, nil
	}

	channel = strings.ToLower(strings.TrimSpace(channel))
	if channel == "" {
		channel = "chromium"
	}
	names, ok := channelCandidates[channel]
	if !ok {
		return "", types.NewError(types.CodeResource,
			fmt.Sprintf("unknown browser channel %q (use chrome, msedge or chromium)", channel), nil)
	}

	for _, name := range names {
		if path, err := lookPath(name); err == nil {
			return path, nil
		}
	}

	var fixed []string
	switch runtime.GOOS {
	case "darwin":
		fixed = darwinPaths[channel]
	case "windows":
		fixed = windowsPaths[channel]
	}
	for _, path := range fixed {
		if _, err := statFile(path); err == nil {
			return path, nil
		}
	}

	return "", types.NewError(types.CodeResource, fmt.Sprintf(
		"no %s browser found (tried %s). Install Google Chrome, set browser.executable_path, or set browser.channel to chromium",
		channel, strings.Join(names, ", ")), nil)
}

// Args returns the command line used to start the browser.
func (l *Launcher) Args() []string {
	args := []string{
		fmt.Sprintf("--remote-debugging-port=%d", l.port),
		fmt.Sprintf("--remote-debugging-address=%s", l.cfg.DebugAddress),
		fmt.Sprintf("--user-data-dir=%s", l.profileDir),
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-dev-shm-usage",
		"--disable-breakpad",
		"--disable-crash-reporter",
		"--hide-scrollbars",
		"--mute-audio",
		fmt.Sprintf("--window-size=%d,%d", l.cfg.WindowWidth, l.cfg.WindowHeight),
	}
	if l.cfg.Headless {
		args = append(args, "--headless=new")
	}
	return append(args, "about:blank")
}

// Launch starts the browser process and waits for its CDP endpoint.
func (l *Launcher) Launch(ctx context.Context) error {
	browserPath, err := DetectBrowser(l.cfg.Channel, l.cfg.ExecutablePath)
	if err != nil {
		return err
	}
	slog.Info("detected browser", "path", browserPath, "channel", l.cfg.Channel)

	port, err := netutil.SelectPort(l.cfg.DebugAddress, l.cfg.DebugPort, nil)
	if err != nil {
		return types.NewError(types.CodeResource, "select debugging port", err)
	}
	l.port = port

	l.profileDir, err = os.MkdirTemp("", "sitedoc-profile-")
	if err != nil {
		return types.NewError(types.CodeResource, "create profile dir", err)
	}

	l.cmd = exec.Command(browserPath, l.Args()...)
	l.cmd.Stdout = os.Stdout
	l.cmd.Stderr = os.Stderr

	if err := l.cmd.Start(); err != nil {
		_ = os.RemoveAll(l.profileDir)
		return types.NewError(types.CodeResource,
			fmt.Sprintf("start browser %s; check that it runs on this machine", browserPath), err)
	}
	l.running = true
	slog.Info("browser process started", "pid", l.cmd.Process.Pid, "headless", l.cfg.Headless)

	if err := l.waitForCDP(ctx); err != nil {
		l.Stop()
		return types.NewError(types.CodeResource, "waiting for CDP", err)
	}
	slog.Info("CDP endpoint ready", "url", l.CDPURL())

	return nil
}

// CDPURL returns the HTTP debugging endpoint of the launched browser.
func (l *Launcher) CDPURL() string {
	return fmt.Sprintf("http://%s:%d", l.cfg.DebugAddress, l.port)
}

// waitForCDP polls the CDP /json/version endpoint until it responds.
func (l *Launcher) waitForCDP(ctx context.Context) error {
	url := l.CDPURL() + "/json/version"
	deadline := time.After(15 * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	client := &http.Client{Timeout: time.Second}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("CDP did not become ready within 15s at %s", url)
		case <-ticker.C:
			resp, err := client.Get(url)
			if err != nil {
				continue
			}
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
	}
}

// Running reports whether this launcher has a live browser process.
func (l *Launcher) Running() bool {
	return l.running
}

// Stop terminates the browser process with SIGTERM, falling back to SIGKILL,
// and removes the temporary profile.
func (l *Launcher) Stop() {
	defer func() {
		if l.profileDir != "" {
			if err := os.RemoveAll(l.profileDir); err != nil {
				slog.Debug("profile cleanup failed", "dir", l.profileDir, "error", err)
			}
			l.profileDir = ""
		}
	}()
	if l.cmd == nil || l.cmd.Process == nil || !l.running {
		return
	}
	slog.Info("stopping browser", "pid", l.cmd.Process.Pid)
	_ = l.cmd.Process.Signal(syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		_ = l.cmd.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("browser stopped gracefully")
	case <-time.After(5 * time.Second):
		slog.Warn("browser did not exit, sending SIGKILL")
		_ = l.cmd.Process.Kill()
		<-done
	}
	l.running = false
}
