// Package config loads the pixeldrive YAML configuration. The config file
// is optional; any field left at its zero value falls back to the defaults
// that match the pixel firmware.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"pixeldrive/protocol"
)

// RGB is an 8-bit color in the config file.
type RGB struct {
	R uint8 `yaml:"r"`
	G uint8 `yaml:"g"`
	B uint8 `yaml:"b"`
}

// Binding maps one key code to one pixel. A nil color uses the global
// default color.
type Binding struct {
	Key   uint16 `yaml:"key"`
	Index uint16 `yaml:"index"`
	Color *RGB   `yaml:"color,omitempty"`
}

type Config struct {
	Port     string `yaml:"port"`     // serial device; "" = autodetect
	Baud     int    `yaml:"baud"`     // ignored by USB CDC devices
	Keyboard string `yaml:"keyboard"` // input device; "" = autodetect

	LEDs int `yaml:"leds"`
	FPS  int `yaml:"fps"`

	// Brightness and FadeMs are pointers so that an explicit zero in the
	// file (brightness off, fade disabled) is distinguishable from the key
	// being omitted, which falls back to the default.
	Brightness *uint8 `yaml:"brightness,omitempty"` // global device brightness
	FadeMs     *int   `yaml:"fade_ms,omitempty"`    // 0 = no fade decay

	DebounceMs int `yaml:"debounce_ms"` // 0 = disabled

	Color RGB `yaml:"color"` // default key color

	PreviewAddr string `yaml:"preview_addr"` // "" = preview disabled

	Mapping []Binding `yaml:"mapping,omitempty"`
}

// Default returns the configuration matching the stock firmware setup.
func Default() *Config {
	brightness := uint8(64)
	fadeMs := 1000
	return &Config{
		Baud:       1_000_000,
		LEDs:       288,
		FPS:        50,
		Brightness: &brightness,
		FadeMs:     &fadeMs,
		Color:      RGB{R: 128, G: 128, B: 128},
	}
}

// Load reads a YAML config file and fills unset fields with defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	applyDefaults(&c)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Save writes the configuration back as YAML.
func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// applyDefaults fills in missing configuration values with the firmware
// defaults.
func applyDefaults(c *Config) {
	d := Default()
	if c.Baud == 0 {
		c.Baud = d.Baud
	}
	if c.LEDs == 0 {
		c.LEDs = d.LEDs
	}
	if c.FPS == 0 {
		c.FPS = d.FPS
	}
	if c.Brightness == nil {
		c.Brightness = d.Brightness
	}
	if c.FadeMs == nil {
		c.FadeMs = d.FadeMs
	}
	if c.Color == (RGB{}) {
		c.Color = d.Color
	}
}

// Validate rejects configurations the protocol cannot express.
func (c *Config) Validate() error {
	if c.LEDs <= 0 || c.LEDs > protocol.MaxPixelsPerFrame {
		return fmt.Errorf("leds must be in 1..%d, got %d", protocol.MaxPixelsPerFrame, c.LEDs)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", c.FPS)
	}
	if c.DebounceMs < 0 {
		return fmt.Errorf("debounce_ms cannot be negative, got %d", c.DebounceMs)
	}
	if c.FadeMs != nil && *c.FadeMs < 0 {
		return fmt.Errorf("fade_ms cannot be negative, got %d", *c.FadeMs)
	}
	for _, b := range c.Mapping {
		if int(b.Index) >= c.LEDs {
			return fmt.Errorf("mapping for key %d points past the array: index %d >= %d", b.Key, b.Index, c.LEDs)
		}
	}
	return nil
}
