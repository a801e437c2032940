package wsi

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gogpu/gputypes"
	"gopkg.in/yaml.v3"
)

// Config describes a swapchain setup in file form.
//
// Example:
//
//	platform: headless
//	allocator: memfd
//	image_count: 3
//	width: 1280
//	height: 720
//	format: bgra8unorm-srgb
//	present_mode: fifo
//	log_level: info
type Config struct {
	// Platform is the registered platform backend name (see package platform).
	Platform string `yaml:"platform"`

	// Allocator is the registered allocator name (see package alloc).
	// Empty selects the best available allocator.
	Allocator string `yaml:"allocator"`

	// ImageCount is the requested number of swapchain images.
	ImageCount int `yaml:"image_count"`

	// Width and Height are the image extent in pixels.
	Width  uint32 `yaml:"width"`
	Height uint32 `yaml:"height"`

	// Format is one of the names accepted by ParseFormat.
	Format string `yaml:"format"`

	// PresentMode is "fifo", "fifo-relaxed", "immediate" or "mailbox".
	// Only the FIFO modes are accepted by the swapchain; the others parse
	// so that the swapchain can report ErrInitializationFailed.
	PresentMode string `yaml:"present_mode"`

	// LogLevel is "debug", "info", "warn" or "error".
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns a triple-buffered FIFO configuration on the
// headless platform.
func DefaultConfig() Config {
	return Config{
		Platform:    "headless",
		ImageCount:  3,
		Width:       800,
		Height:      600,
		Format:      "bgra8unorm",
		PresentMode: "fifo",
		LogLevel:    "info",
	}
}

// LoadConfig reads a YAML config file. Fields missing from the file keep
// their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("wsi: read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates a YAML config.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that every field holds a usable value.
func (c *Config) Validate() error {
	if c.Platform == "" {
		return fmt.Errorf("%w: platform is empty", ErrInvalidConfig)
	}
	if c.ImageCount < 1 {
		return fmt.Errorf("%w: image_count %d < 1", ErrInvalidConfig, c.ImageCount)
	}
	if c.Width == 0 || c.Height == 0 {
		return fmt.Errorf("%w: extent %dx%d has zero area", ErrInvalidConfig, c.Width, c.Height)
	}
	if _, err := ParseFormat(c.Format); err != nil {
		return err
	}
	if _, err := ParsePresentMode(c.PresentMode); err != nil {
		return err
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Extent returns the configured image size as a single-layer extent.
func (c *Config) Extent() gputypes.Extent3D {
	return gputypes.NewExtent2D(c.Width, c.Height)
}

var formatNames = map[string]gputypes.TextureFormat{
	"bgra8unorm":      gputypes.TextureFormatBGRA8Unorm,
	"bgra8unorm-srgb": gputypes.TextureFormatBGRA8UnormSrgb,
	"rgba8unorm":      gputypes.TextureFormatRGBA8Unorm,
	"rgba8unorm-srgb": gputypes.TextureFormatRGBA8UnormSrgb,
	"rgb10a2unorm":    gputypes.TextureFormatRGB10A2Unorm,
	"rgba16float":     gputypes.TextureFormatRGBA16Float,
}

// ParseFormat maps a lower-case format name to a texture format.
func ParseFormat(name string) (gputypes.TextureFormat, error) {
	f, ok := formatNames[strings.ToLower(name)]
	if !ok {
		return gputypes.TextureFormatUndefined, fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, name)
	}
	return f, nil
}

// ParsePresentMode maps a present mode name to its gputypes value.
func ParsePresentMode(name string) (gputypes.PresentMode, error) {
	switch strings.ToLower(name) {
	case "fifo":
		return gputypes.PresentModeFifo, nil
	case "fifo-relaxed", "fifo_relaxed":
		return gputypes.PresentModeFifoRelaxed, nil
	case "immediate":
		return gputypes.PresentModeImmediate, nil
	case "mailbox":
		return gputypes.PresentModeMailbox, nil
	default:
		return gputypes.PresentModeUndefined, fmt.Errorf("%w: unknown present mode %q", ErrInvalidConfig, name)
	}
}

// ParseLogLevel maps a level name to a slog level. Empty means info.
func ParseLogLevel(name string) (slog.Level, error) {
	var l slog.Level
	if name == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return l, nil
}
