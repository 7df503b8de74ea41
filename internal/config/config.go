package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all steam-client-custom-toasts configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// SteamUIDir is the Steam client's steamui directory containing the
	// minified library bundle. Overridable with --dir or STEAM_TOASTS_DIR.
	SteamUIDir string `yaml:"steamui_dir"`

	// Target files, relative to SteamUIDir.
	ScriptFile     string `yaml:"script_file"`
	StylesheetFile string `yaml:"stylesheet_file"`

	// Marker is the extra class appended to the toast's class attribute
	// while a non-identity scale is applied. It doubles as the stylesheet
	// rule selector, so it must be a single CSS class name.
	Marker string `yaml:"marker"`

	// Revision pins the bundle revision this tool knows how to patch.
	Revision RevisionConfig `yaml:"revision"`

	// Reload configures the Steam CEF debugger round-trip.
	Reload ReloadConfig `yaml:"reload"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns the configuration for the pinned bundle revision.
func DefaultConfig() *Config {
	return &Config{
		Name:    "steam-client-custom-toasts",
		Version: "1.2.0",

		SteamUIDir:     defaultSteamUIDir(),
		ScriptFile:     "library.js",
		StylesheetFile: "css/library.css",

		Marker: "lovely-custom-toasts",

		Revision: DefaultRevision(),

		Reload: ReloadConfig{
			DiscoveryURL:    "http://localhost:8080/json",
			ContextTitle:    "SharedJSContext",
			Expression:      "SteamClient.Browser.RestartJSContext()",
			ResponseTimeout: "10s",
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
// Missing files are not an error: defaults are returned so the tool works
// out of the box against a stock Steam install.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("STEAM_TOASTS_DIR"); dir != "" {
		c.SteamUIDir = dir
	}
	if url := os.Getenv("STEAM_TOASTS_DISCOVERY_URL"); url != "" {
		c.Reload.DiscoveryURL = url
	}
	if v := os.Getenv("STEAM_TOASTS_DEBUG"); v == "1" || strings.EqualFold(v, "true") {
		c.Logging.DebugMode = true
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.SteamUIDir == "" {
		return fmt.Errorf("steamui_dir is required")
	}
	if c.ScriptFile == "" || c.StylesheetFile == "" {
		return fmt.Errorf("script_file and stylesheet_file are required")
	}
	if c.Marker == "" {
		return fmt.Errorf("marker is required")
	}
	if strings.ContainsAny(c.Marker, " .\"{}") {
		return fmt.Errorf("marker %q is not a valid CSS class name", c.Marker)
	}
	if err := c.Revision.validate(); err != nil {
		return fmt.Errorf("revision: %w", err)
	}
	if c.Reload.Expression == "" {
		return fmt.Errorf("reload.expression is required")
	}
	return nil
}

// ScriptPath returns the absolute path of the script bundle target.
func (c *Config) ScriptPath() string {
	return filepath.Join(c.SteamUIDir, c.ScriptFile)
}

// StylesheetPath returns the absolute path of the stylesheet target.
func (c *Config) StylesheetPath() string {
	return filepath.Join(c.SteamUIDir, c.StylesheetFile)
}

// DefaultConfigPath returns the user-level config file location.
func DefaultConfigPath() string {
	return filepath.Join(BaseDir(), "config.yaml")
}

// BaseDir returns the tool's dot directory (config, logs).
func BaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".steam-client-custom-toasts"
	}
	return filepath.Join(home, ".steam-client-custom-toasts")
}

// defaultSteamUIDir guesses the stock Steam install location. The guess is
// only a convenience; --dir and STEAM_TOASTS_DIR take precedence.
func defaultSteamUIDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	candidates := []string{
		filepath.Join(home, ".local", "share", "Steam", "steamui"),
		filepath.Join(home, ".steam", "steam", "steamui"),
	}
	for _, dir := range candidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	return candidates[0]
}
