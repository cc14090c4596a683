// Package config loads Hermes run configuration from YAML, with
// environment-variable overrides and an optional hot-reload watcher.
//
// Grounded on original_source/server/config/settings.py (field set and
// defaults) and the retrieved corpus's internal/config/config.go
// (YAML-tagged struct + DefaultConfig() idiom, fsnotify watch pattern).
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// RetryConfig controls retry count and backoff shape.
type RetryConfig struct {
	MaxRetries     int  `yaml:"max_retries"`
	BackoffBaseMs  int  `yaml:"backoff_base_ms"`
	BackoffMaxMs   int  `yaml:"backoff_max_ms"`
	Jitter         bool `yaml:"jitter"`
}

// TimeoutConfig holds the per-phase and global timeout budgets.
type TimeoutConfig struct {
	GlobalTimeoutS      int `yaml:"global_timeout_s"`
	PageLoadTimeoutS    int `yaml:"page_load_timeout_s"`
	InteractionTimeoutS int `yaml:"interaction_timeout_s"`
	AITimeoutS          int `yaml:"ai_timeout_s"`
	ExtractionTimeoutS  int `yaml:"extraction_timeout_s"`
}

// BrowserConfig controls the headless browser layer.
type BrowserConfig struct {
	Headless       bool   `yaml:"headless"`
	ViewportWidth  int    `yaml:"viewport_width"`
	ViewportHeight int    `yaml:"viewport_height"`
	UserAgent      string `yaml:"user_agent"`
	Locale         string `yaml:"locale"`
}

// PipelineConfig controls the data pipeline manager.
type PipelineConfig struct {
	DataDir                string  `yaml:"data_dir"`
	DebugMode              bool    `yaml:"debug_mode"`
	MinConfidenceThreshold float64 `yaml:"min_confidence_threshold"`
}

// URLPolicyConfig controls SSRF-prevention checks on the target URL.
type URLPolicyConfig struct {
	AllowedSchemes      []string `yaml:"allowed_schemes"`
	BlockLocalHostnames bool     `yaml:"block_local_hostnames"`
	BlockPrivateIPs     bool     `yaml:"block_private_ips"`
}

// ProviderConfig names the AI Engine provider and its credentials.
type ProviderConfig struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
}

// Config is the root configuration for a Hermes run.
type Config struct {
	TargetURL        string            `yaml:"target_url"`
	ExtractionSchema map[string]string `yaml:"extraction_schema"`
	HeuristicSelectors map[string]string `yaml:"heuristic_selectors"`
	ContainerSelector string           `yaml:"container_selector"`
	ExtractionMode   string            `yaml:"extraction_mode"`
	AllowCrossOrigin bool              `yaml:"allow_cross_origin"`

	AI         ProviderConfig  `yaml:"ai"`
	Retry      RetryConfig     `yaml:"retry"`
	Timeouts   TimeoutConfig   `yaml:"timeouts"`
	Browser    BrowserConfig   `yaml:"browser"`
	Pipeline   PipelineConfig  `yaml:"pipeline"`
	URLPolicy  URLPolicyConfig `yaml:"url_policy"`

	LogLevel string `yaml:"log_level"`
}

// Default returns a Config with the same defaults as the Python
// predecessor's settings module.
func Default() *Config {
	return &Config{
		ExtractionMode: "heuristic",
		AI: ProviderConfig{
			Provider: "gemini",
			Model:    "gemini-2.5-flash",
		},
		Retry: RetryConfig{
			MaxRetries:    3,
			BackoffBaseMs: 1000,
			BackoffMaxMs:  30000,
			Jitter:        true,
		},
		Timeouts: TimeoutConfig{
			GlobalTimeoutS:      300,
			PageLoadTimeoutS:    30,
			InteractionTimeoutS: 10,
			AITimeoutS:          60,
			ExtractionTimeoutS:  60,
		},
		Browser: BrowserConfig{
			Headless:       true,
			ViewportWidth:  1280,
			ViewportHeight: 720,
			Locale:         "en-US",
		},
		Pipeline: PipelineConfig{
			DataDir:                envOr("HERMES_DATA_DIR", "./data"),
			MinConfidenceThreshold: 0.5,
		},
		URLPolicy: URLPolicyConfig{
			AllowedSchemes:      []string{"http", "https"},
			BlockLocalHostnames: true,
			BlockPrivateIPs:     true,
		},
		LogLevel: envOr("HERMES_LOG_LEVEL", "INFO"),
	}
}

// Load reads a YAML config file over the defaults. A missing file is not
// an error — Default() is returned as-is.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Watch installs an fsnotify watcher on path, invoking onChange with a
// freshly reloaded Config whenever the file is written. It never reloads
// mid-run — callers are expected to apply the new config only between
// runs. The returned stop function closes the watcher.
func Watch(path string, onChange func(*Config)) (stop func() error, err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					if cfg, err := Load(path); err == nil {
						onChange(cfg)
					}
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return watcher.Close, nil
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func envOrInt(name string, fallback int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
