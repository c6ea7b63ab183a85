package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/xsyncd/internal/core/dispatcher"
	"github.com/zeusync/xsyncd/internal/core/fontwatch"
	"github.com/zeusync/xsyncd/internal/core/observability/log"
)

// Config holds daemon configuration
type Config struct {
	// X display name, empty for $DISPLAY
	Display string `yaml:"display"`

	// Settings store file
	SettingsPath string `yaml:"settings_path"`

	Log LogConfig `yaml:"log"`

	// Fontconfig
	FontDirs     []string      `yaml:"font_dirs"`
	FontDebounce time.Duration `yaml:"font_debounce"`

	// Processes restarted when the window scale changes
	WindowManagerCommand []string `yaml:"window_manager_command"`
	PanelCommand         []string `yaml:"panel_command"`

	FallbackIconTheme string `yaml:"fallback_icon_theme"`

	// Event loop queue length
	QueueSize int `yaml:"queue_size"`
}

type LogConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

// DefaultConfigPath is where the daemon looks for its configuration file.
const DefaultConfigPath = "~/.config/xsyncd/config.yaml"

// DefaultConfig returns default daemon configuration
func DefaultConfig() Config {
	return Config{
		SettingsPath: "~/.config/xsyncd/settings.yaml",
		Log: LogConfig{
			Level:    "info",
			Encoding: "console",
		},
		FontDirs: []string{
			"/usr/share/fonts",
			"/usr/local/share/fonts",
			"~/.local/share/fonts",
			"~/.fonts",
			"/var/cache/fontconfig",
			userFontconfigCache(),
		},
		FontDebounce:         fontwatch.DefaultDebounce,
		WindowManagerCommand: []string{"marco", "--replace"},
		PanelCommand:         []string{"mate-panel", "--replace"},
		FallbackIconTheme:    dispatcher.DefaultFallbackIconTheme,
		QueueSize:            64,
	}
}

// LoadConfig reads path over DefaultConfig. A missing file yields the
// defaults when allowMissing is set.
func LoadConfig(path string, allowMissing bool) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, cfg.normalize()
	}

	data, err := os.ReadFile(expandHome(path))
	switch {
	case err == nil:
	case os.IsNotExist(err) && allowMissing:
		return cfg, cfg.normalize()
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.normalize()
}

// normalize expands ~ in paths and validates the result.
func (c *Config) normalize() error {
	c.SettingsPath = expandHome(c.SettingsPath)
	for i, dir := range c.FontDirs {
		c.FontDirs[i] = expandHome(dir)
	}
	return c.Validate()
}

func (c Config) Validate() error {
	if c.SettingsPath == "" {
		return fmt.Errorf("%w: settings_path is empty", ErrInvalidConfig)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	switch c.Log.Encoding {
	case "", "json", "console":
	default:
		return fmt.Errorf("%w: log encoding %q", ErrInvalidConfig, c.Log.Encoding)
	}
	if c.FontDebounce < 0 {
		return fmt.Errorf("%w: negative font_debounce", ErrInvalidConfig)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("%w: negative queue_size", ErrInvalidConfig)
	}
	return nil
}

// userFontconfigCache is where fc-cache writes per-user caches, honouring
// $XDG_CACHE_HOME.
func userFontconfigCache() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "~/.cache/fontconfig"
	}
	return filepath.Join(dir, "fontconfig")
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
