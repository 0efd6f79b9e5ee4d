package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version  int            `yaml:"version"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Graph    GraphConfig    `yaml:"graph"`
	Surface  SurfaceConfig  `yaml:"surface"`
	Theme    ThemeConfig    `yaml:"theme"`
	Logging  LoggingConfig  `yaml:"logging"`
	Terminal TerminalConfig `yaml:"terminal"`
}

// ServerConfig holds HTTP settings
type ServerConfig struct {
	Addr      string   `yaml:"addr"`
	KeepAlive Duration `yaml:"keepalive"` // SSE keepalive interval
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `yaml:"path"` // empty disables persistence
}

// GraphConfig selects the seed document loaded at startup
type GraphConfig struct {
	Seed     string   `yaml:"seed,omitempty"` // .json or .yaml graph fragment
	Watch    bool     `yaml:"watch"`          // reload the seed when it changes
	Debounce Duration `yaml:"debounce"`
}

// SurfaceConfig holds sizing, routing and view limits
type SurfaceConfig struct {
	Scale    float64 `yaml:"scale"`  // multiplies every sizing constant
	Router   string  `yaml:"router"` // straight, orthogonal
	MinZoom  float64 `yaml:"min_zoom"`
	MaxZoom  float64 `yaml:"max_zoom"`
	ZoomStep float64 `yaml:"zoom_step"` // factor per wheel notch
	PanStep  float64 `yaml:"pan_step"`  // pixels per arrow key
}

// ThemeConfig holds hex colors; empty keeps the built-in palette
type ThemeConfig struct {
	Foreground string `yaml:"foreground,omitempty"`
	Border     string `yaml:"border,omitempty"`
	Background string `yaml:"background,omitempty"`
	Accent     string `yaml:"accent,omitempty"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	JSON  bool   `yaml:"json"`
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"` // terminal host only
}

// TerminalConfig maps terminal cells to container pixels
type TerminalConfig struct {
	CellWidth     float64 `yaml:"cell_width"`
	CellHeight    float64 `yaml:"cell_height"`
	DragThreshold int     `yaml:"drag_threshold"` // cells moved before a press becomes a drag
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
