package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dgnsrekt/sitedoc/internal/menu"
	"github.com/dgnsrekt/sitedoc/internal/types"
)

// ExampleFile is used when the requested config file does not exist.
const ExampleFile = "config.example.yaml"

// Config holds all configuration for a capture run.
type Config struct {
	BaseURL       string      `yaml:"base_url"`
	Pages         []menu.Node `yaml:"pages"`
	MenuSelector  string      `yaml:"menu_selector"`
	MenuContainer string      `yaml:"menu_container"`

	Browser BrowserConfig `yaml:"browser"`
	Output  OutputConfig  `yaml:"output"`
	Login   LoginConfig   `yaml:"login"`
	Log     LogConfig     `yaml:"log"`
	Notify  NotifyConfig  `yaml:"notify"`
}

// BrowserConfig controls how the browser is started and how pages are
// captured. Durations are given in seconds.
type BrowserConfig struct {
	Headless          bool    `yaml:"headless"`
	ViewportWidth     int     `yaml:"viewport_width"`
	ViewportHeight    int     `yaml:"viewport_height"`
	FullPage          bool    `yaml:"full_page"`
	WaitAfterLoad     float64 `yaml:"wait_after_load"`
	ScrollDelay       float64 `yaml:"scroll_delay"`
	NavigationTimeout float64 `yaml:"navigation_timeout"`
	Channel           string  `yaml:"channel"`
	ExecutablePath    string  `yaml:"executable_path"`
	CDPURL            string  `yaml:"cdp_url"`
	DebugPort         int     `yaml:"debug_port"`
}

// OutputConfig controls where images and the document are written.
type OutputConfig struct {
	Dir         string `yaml:"dir"`
	DocName     string `yaml:"doc_name"`
	ImageFormat string `yaml:"image_format"`
	JPEGQuality int    `yaml:"jpeg_quality"`
	FontPath    string `yaml:"font_path"`
	NameLabel   string `yaml:"name_label"`
	URLLabel    string `yaml:"url_label"`
}

// LoginConfig controls cookie based login.
type LoginConfig struct {
	Enabled      bool   `yaml:"enabled"`
	CookieDomain string `yaml:"cookie_domain"`
	Cookie       string `yaml:"cookie"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// NotifyConfig controls the completion notification.
type NotifyConfig struct {
	Endpoint string `yaml:"endpoint"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:          true,
			ViewportWidth:     1920,
			ViewportHeight:    1080,
			FullPage:          true,
			WaitAfterLoad:     2,
			ScrollDelay:       0.5,
			NavigationTimeout: 30,
			Channel:           "chrome",
			DebugPort:         9222,
		},
		Output: OutputConfig{
			Dir:         "./output",
			DocName:     "Site pages",
			ImageFormat: "png",
			JPEGQuality: 90,
			NameLabel:   "Page name:",
			URLLabel:    "Address:",
		},
		Login: LoginConfig{Enabled: true},
		Log: LogConfig{
			Level: "info",
			File:  "logs/sitedoc.log",
		},
	}
}

// Load reads the YAML file at path, falling back to ExampleFile when path
// does not exist, then applies .env and environment overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if _, exErr := os.Stat(ExampleFile); exErr == nil {
			slog.Warn("config file not found, using example config", "path", path, "example", ExampleFile)
			path = ExampleFile
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewError(types.CodeConfiguration, "read config file", err)
	}
	return Parse(data)
}

// Parse decodes YAML data over the defaults and applies environment
// overrides.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, types.NewError(types.CodeConfiguration, "parse config file", err)
	}
	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.BaseURL = getEnvOrDefault("SITEDOC_BASE_URL", c.BaseURL)
	c.Output.Dir = getEnvOrDefault("SITEDOC_OUTPUT_DIR", c.Output.Dir)
	c.Browser.Headless = getEnvBoolOrDefault("SITEDOC_HEADLESS", c.Browser.Headless)
	c.Browser.ExecutablePath = getEnvOrDefault("SITEDOC_CHROME_PATH", c.Browser.ExecutablePath)
	c.Browser.CDPURL = getEnvOrDefault("SITEDOC_CDP_URL", c.Browser.CDPURL)
	c.Browser.DebugPort = getEnvIntOrDefault("SITEDOC_DEBUG_PORT", c.Browser.DebugPort)
	c.Login.Cookie = getEnvOrDefault("SITEDOC_COOKIE", c.Login.Cookie)
	c.Log.Level = getEnvOrDefault("SITEDOC_LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnvOrDefault("SITEDOC_LOG_FILE", c.Log.File)
	c.Notify.Endpoint = getEnvOrDefault("SITEDOC_NOTIFY_ENDPOINT", c.Notify.Endpoint)
}

func (c *Config) normalize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.Output.ImageFormat = strings.ToLower(strings.TrimSpace(c.Output.ImageFormat))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Browser.Channel = strings.ToLower(strings.TrimSpace(c.Browser.Channel))
}

// Validate reports configuration errors that must stop a run before any
// browser work starts.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return types.NewError(types.CodeConfiguration, "base_url is required", nil)
	}
	switch c.Output.ImageFormat {
	case "png", "jpeg", "jpg":
	default:
		return types.NewError(types.CodeConfiguration, fmt.Sprintf("unsupported image_format %q (want png or jpeg)", c.Output.ImageFormat), nil)
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return types.NewError(types.CodeConfiguration, "viewport_width and viewport_height must be positive", nil)
	}
	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		return types.NewError(types.CodeConfiguration, "jpeg_quality must be between 1 and 100", nil)
	}
	return nil
}

// MenuSource returns the page list description held by c.
func (c *Config) MenuSource() menu.Source {
	return menu.Source{
		BaseURL:       c.BaseURL,
		Pages:         c.Pages,
		MenuSelector:  c.MenuSelector,
		MenuContainer: c.MenuContainer,
	}
}

// WaitAfterLoadDuration returns the settle delay applied after navigation.
func (b BrowserConfig) WaitAfterLoadDuration() time.Duration {
	return seconds(b.WaitAfterLoad)
}

// ScrollDelayDuration returns the pause between scroll steps.
func (b BrowserConfig) ScrollDelayDuration() time.Duration {
	return seconds(b.ScrollDelay)
}

// NavigationTimeoutDuration returns the upper bound for one navigation.
func (b BrowserConfig) NavigationTimeoutDuration() time.Duration {
	if b.NavigationTimeout <= 0 {
		return 30 * time.Second
	}
	return seconds(b.NavigationTimeout)
}

func seconds(v float64) time.Duration {
	if v <= 0 {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
