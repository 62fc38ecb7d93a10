// Package app hosts the ebiten-driven presentation layer: window
// configuration, the game loop adapter, and CLI-facing helpers.
package app

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// WindowConfig controls the ebiten window's size and scaling.
type WindowConfig struct {
	Scale      int  `json:"scale"`
	Fullscreen bool `json:"fullscreen"`
	VSync      bool `json:"vsync"`
}

// InputConfig names the keys bound to controller 1.
type InputConfig struct {
	Up     string `json:"up"`
	Down   string `json:"down"`
	Left   string `json:"left"`
	Right  string `json:"right"`
	A      string `json:"a"`
	B      string `json:"b"`
	Start  string `json:"start"`
	Select string `json:"select"`
}

// DebugConfig toggles developer-facing instrumentation.
type DebugConfig struct {
	Enabled     bool `json:"enabled"`
	ShowOverlay bool `json:"show_overlay"`
}

// Config is the full set of user-tunable settings, persisted as JSON.
type Config struct {
	Window WindowConfig `json:"window"`
	Input  InputConfig  `json:"input"`
	Debug  DebugConfig  `json:"debug"`
}

const (
	defaultScale   = 3
	baseWidth      = 256
	baseHeight     = 240
	configFileName = "nesgo.json"
)

// NewConfig returns the default configuration.
func NewConfig() *Config {
	return &Config{
		Window: WindowConfig{Scale: defaultScale, Fullscreen: false, VSync: true},
		Input: InputConfig{
			Up: "Up", Down: "Down", Left: "Left", Right: "Right",
			A: "KeyZ", B: "KeyX", Start: "Enter", Select: "ShiftLeft",
		},
		Debug: DebugConfig{Enabled: false, ShowOverlay: false},
	}
}

// GetDefaultConfigPath returns where the config file is expected to live
// next to the executable's working directory.
func GetDefaultConfigPath() string {
	return filepath.Join(".", "config", configFileName)
}

// LoadConfig reads a JSON config file, falling back to defaults if it does
// not exist.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as JSON to path, creating parent directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// WindowResolution returns the scaled pixel dimensions for the ebiten window.
func (c *Config) WindowResolution() (width, height int) {
	return baseWidth * c.Window.Scale, baseHeight * c.Window.Scale
}
