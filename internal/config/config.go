// Package config loads gcview settings from a YAML or JSON file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/leftmike/toolpath"
	"github.com/leftmike/toolpath/internal/logging"
)

type Point struct {
	X float64 `mapstructure:"x"`
	Y float64 `mapstructure:"y"`
}

type Config struct {
	DisplayZ   float64 `mapstructure:"display_z"`
	DrawTravel bool    `mapstructure:"draw_travel"`
	Zoom       float64 `mapstructure:"zoom"`
	Translate  Point   `mapstructure:"translate"`

	// Canvas size in pixels
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`

	// MaxChord is the longest chord, in pixels, used to draw arcs.
	MaxChord float64 `mapstructure:"max_chord"`

	LogLevel string `mapstructure:"log_level"`
	Addr     string `mapstructure:"addr"`
}

func Default() Config {
	return Config{
		Zoom:     1.0,
		Width:    600,
		Height:   600,
		MaxChord: 2.0,
		LogLevel: "info",
		Addr:     ":8080",
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	raw := map[string]interface{}{}
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		err = json.Unmarshal(data, &raw)
	} else {
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return cfg, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	err = Decode(raw, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Decode sets the fields of cfg named in raw. Values may be strings, so "2.5" is accepted for
// a number.
func Decode(raw map[string]interface{}, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

func (cfg Config) Validate() error {
	var errs []error
	if err := cfg.View().Validate(); err != nil {
		errs = append(errs, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		errs = append(errs, fmt.Errorf("canvas size must be positive: %dx%d", cfg.Width,
			cfg.Height))
	}
	if cfg.MaxChord <= 0 {
		errs = append(errs, fmt.Errorf("max_chord must be positive: %v", cfg.MaxChord))
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (cfg Config) View() toolpath.ViewTransform {
	return toolpath.ViewTransform{
		Zoom:      cfg.Zoom,
		Translate: toolpath.Point{X: cfg.Translate.X, Y: cfg.Translate.Y},
	}
}
