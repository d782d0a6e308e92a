package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ironsheep/inertia-heatmap/internal/analysis"
	"github.com/ironsheep/inertia-heatmap/internal/logging"
	"github.com/ironsheep/inertia-heatmap/internal/render"
)

// Environment variable names
const (
	EnvAPIURL       = "INERTIA_API_URL"
	EnvHTTPTimeout  = "INERTIA_HTTP_TIMEOUT"
	EnvLogLevel     = "INERTIA_LOG_LEVEL"
	EnvListenAddr   = "INERTIA_LISTEN_ADDR"
	EnvDisplayWidth = "INERTIA_DISPLAY_WIDTH"
	EnvRadius       = "INERTIA_RADIUS"
	EnvMaxOpacity   = "INERTIA_MAX_OPACITY"
	EnvMinOpacity   = "INERTIA_MIN_OPACITY"
	EnvBlur         = "INERTIA_BLUR"
)

// Config holds runtime settings shared by every command.
type Config struct {
	APIURL       string
	HTTPTimeout  time.Duration
	LogLevel     string
	ListenAddr   string
	DisplayWidth int // 0 keeps the natural image width
	Render       render.Config
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		APIURL:      analysis.DefaultEndpoint,
		HTTPTimeout: 60 * time.Second,
		LogLevel:    "info",
		ListenAddr:  ":8080",
		Render:      render.DefaultConfig(),
	}
}

// Load reads settings from the environment on top of Default.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads settings through getenv, which makes Load testable.
func LoadFrom(getenv func(string) string) (*Config, error) {
	cfg := Default()

	if v := getenv(EnvAPIURL); v != "" {
		cfg.APIURL = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv(EnvListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := getenv(EnvHTTPTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("%s: invalid duration %q", EnvHTTPTimeout, v)
		}
		cfg.HTTPTimeout = d
	}

	var err error
	if cfg.DisplayWidth, err = intEnv(getenv, EnvDisplayWidth, cfg.DisplayWidth); err != nil {
		return nil, err
	}
	if cfg.Render.Radius, err = intEnv(getenv, EnvRadius, cfg.Render.Radius); err != nil {
		return nil, err
	}
	if cfg.Render.MaxOpacity, err = floatEnv(getenv, EnvMaxOpacity, cfg.Render.MaxOpacity); err != nil {
		return nil, err
	}
	if cfg.Render.MinOpacity, err = floatEnv(getenv, EnvMinOpacity, cfg.Render.MinOpacity); err != nil {
		return nil, err
	}
	if cfg.Render.Blur, err = floatEnv(getenv, EnvBlur, cfg.Render.Blur); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be caught while parsing.
func (c *Config) Validate() error {
	if c.DisplayWidth < 0 {
		return fmt.Errorf("display width must not be negative, got %d", c.DisplayWidth)
	}
	if !logging.IsLevel(c.LogLevel) {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return c.Render.Validate()
}

func intEnv(getenv func(string) string, key string, def int) (int, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

func floatEnv(getenv func(string) string, key string, def float64) (float64, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", key, v)
	}
	return f, nil
}
