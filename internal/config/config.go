// Package config provides configuration management for nodecanvas.
//
// Config file locations (priority order):
//  1. $NODECANVAS_CONFIG
//  2. ./nodecanvas.yaml
//  3. $XDG_CONFIG_HOME/nodecanvas/config.yaml
//  4. ~/.config/nodecanvas/config.yaml
//  5. /etc/nodecanvas/config.yaml
//
// Missing values are filled with defaults, so an empty file is a valid config.
package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"nodecanvas/internal/domain"
	"nodecanvas/internal/errors"
	"nodecanvas/internal/render"
	"nodecanvas/internal/render/term"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, errors.Wrap(err, "read config")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, errors.Wrap(err, "parse config")
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return errors.Wrap(err, "create config dir")
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":3000"
	}
	if c.Server.KeepAlive == 0 {
		c.Server.KeepAlive = Duration(30 * time.Second)
	}
	if c.Graph.Debounce == 0 {
		c.Graph.Debounce = Duration(500 * time.Millisecond)
	}
	if c.Surface.Scale == 0 {
		c.Surface.Scale = 1
	}
	if c.Surface.Router == "" {
		c.Surface.Router = "straight"
	}
	if c.Surface.MinZoom == 0 {
		c.Surface.MinZoom = 0.1
	}
	if c.Surface.MaxZoom == 0 {
		c.Surface.MaxZoom = 8
	}
	if c.Surface.ZoomStep == 0 {
		c.Surface.ZoomStep = 1.1
	}
	if c.Surface.PanStep == 0 {
		c.Surface.PanStep = 16
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Terminal.CellWidth == 0 {
		c.Terminal.CellWidth = term.DefaultCellSize().Width
	}
	if c.Terminal.CellHeight == 0 {
		c.Terminal.CellHeight = term.DefaultCellSize().Height
	}
	if c.Terminal.DragThreshold == 0 {
		c.Terminal.DragThreshold = 1
	}
}

// Validate checks values that defaults cannot repair
func (c *Config) Validate() error {
	positive := map[string]float64{
		"surface.scale":        c.Surface.Scale,
		"surface.min_zoom":     c.Surface.MinZoom,
		"surface.max_zoom":     c.Surface.MaxZoom,
		"terminal.cell_width":  c.Terminal.CellWidth,
		"terminal.cell_height": c.Terminal.CellHeight,
	}
	for name, v := range positive {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Newf("config: %s must be a positive number, got %v", name, v)
		}
	}
	if c.Surface.MinZoom > c.Surface.MaxZoom {
		return errors.Newf("config: surface.min_zoom %v exceeds max_zoom %v", c.Surface.MinZoom, c.Surface.MaxZoom)
	}
	if c.Surface.ZoomStep <= 1 {
		return errors.Newf("config: surface.zoom_step must be greater than 1, got %v", c.Surface.ZoomStep)
	}
	if _, err := c.Palette(); err != nil {
		return errors.Wrap(err, "config: theme")
	}
	return nil
}

// Sizing returns the node sizing rule scaled by surface.scale
func (c *Config) Sizing() domain.Sizing {
	return domain.DefaultSizing().Scale(c.Surface.Scale)
}

// Router returns the configured edge router
func (c *Config) Router() domain.Router {
	return domain.ParseRouter(c.Surface.Router)
}

// Palette returns the theme with configured colors applied
func (c *Config) Palette() (render.Palette, error) {
	return render.ParsePalette(c.Theme.Foreground, c.Theme.Border, c.Theme.Background, c.Theme.Accent)
}

// CellSize returns the terminal cell size
func (c *Config) CellSize() term.CellSize {
	return term.CellSize{Width: c.Terminal.CellWidth, Height: c.Terminal.CellHeight}
}

// ClampZoom limits a zoom to the configured range. Hosts clamp before
// handing a zoom to the surface, which rejects rather than clamps.
func (c *Config) ClampZoom(zoom float64) float64 {
	return math.Max(c.Surface.MinZoom, math.Min(c.Surface.MaxZoom, zoom))
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	summary := fmt.Sprintf("Server: %s, Database: %s\n", c.Server.Addr, displayPath(c.Database.Path))
	summary += fmt.Sprintf("Seed: %s (watch: %v)\n", displayPath(c.Graph.Seed), c.Graph.Watch)
	summary += fmt.Sprintf("Surface: scale %g, router %s, zoom %g..%g",
		c.Surface.Scale, c.Router().Name(), c.Surface.MinZoom, c.Surface.MaxZoom)
	return summary
}

func displayPath(p string) string {
	if p == "" {
		return "none"
	}
	return p
}
