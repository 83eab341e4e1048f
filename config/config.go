// Package config loads the settings of the ellipse explorer from TOML.
//
// Every field has a default, so a missing file is not an error and a file only
// needs the keys it wants to change:
//
//	resolution = 20000
//
//	[sliders.rotation]
//	max = 360.0
//
//	[snapshot]
//	dir = "/tmp/ellipses"
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/teranos/ellipse"
	"github.com/teranos/ellipse/trip"
)

// Range describes one slider.
type Range struct {
	Min    float64 `toml:"min"`
	Max    float64 `toml:"max"`
	Step   float64 `toml:"step"`
	Format string  `toml:"format"` // readout format, e.g. "%.3f"
}

// Sliders holds the range of every adjustable parameter.
type Sliders struct {
	SemiMajor Range `toml:"semi_major"`
	SemiMinor Range `toml:"semi_minor"`
	Rotation  Range `toml:"rotation"`
	CenterX   Range `toml:"center_x"`
	CenterY   Range `toml:"center_y"`
}

// Initial holds the starting ellipse.
type Initial struct {
	SemiMajor float64 `toml:"semi_major"`
	SemiMinor float64 `toml:"semi_minor"`
	Rotation  float64 `toml:"rotation"` // degrees
	CenterX   float64 `toml:"center_x"`
	CenterY   float64 `toml:"center_y"`
}

// Snapshot configures PNG output.
type Snapshot struct {
	Dir    string `toml:"dir"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

// Log configures the log file. The terminal belongs to the UI, so logs never
// go to stdout.
type Log struct {
	File  string `toml:"file"`  // empty disables logging
	Level string `toml:"level"` // debug, info, warn or error
}

// SlogLevel returns the configured level, falling back to info.
func (l Log) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Config is the complete application configuration.
type Config struct {
	Resolution int      `toml:"resolution"`
	PlotLimit  float64  `toml:"plot_limit"`
	Sliders    Sliders  `toml:"sliders"`
	Initial    Initial  `toml:"initial"`
	Snapshot   Snapshot `toml:"snapshot"`
	Log        Log      `toml:"log"`
}

// Default returns the stock configuration: 100000 samples, a
// +/-50 window, a and b in [0.1, 30.01] with 0.001 steps, rotation in
// [0, 180] degrees and the center anywhere in the window.
func Default() Config {
	axis := Range{Min: 0.1, Max: 30.01, Step: 0.001, Format: "%.3f"}
	center := Range{Min: -50, Max: 50, Step: 0.1, Format: "%.1f"}

	return Config{
		Resolution: ellipse.DefaultResolution,
		PlotLimit:  50,
		Sliders: Sliders{
			SemiMajor: axis,
			SemiMinor: axis,
			Rotation:  Range{Min: 0, Max: 180, Step: 0.1, Format: "%.1f"},
			CenterX:   center,
			CenterY:   center,
		},
		Initial: Initial{
			SemiMajor: ellipse.DefaultSemiMajor,
			SemiMinor: ellipse.DefaultSemiMinor,
			Rotation:  ellipse.DefaultRotation,
			CenterX:   ellipse.DefaultCenterX,
			CenterY:   ellipse.DefaultCenterY,
		},
		Snapshot: Snapshot{
			Dir:    "snapshots",
			Width:  500,
			Height: 560,
		},
		Log: Log{
			Level: "info",
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := Parse(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML into cfg, keeping fields the document does not set,
// and validates the result. Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return trip.NewFall(trip.Config, "unknown configuration keys", trip.Context{
				"details": strict.String(),
			})
		}
		return trip.NewFall(trip.Config, err.Error(), nil)
	}
	return cfg.Validate()
}

// Encode renders cfg as TOML.
func Encode(cfg Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

// Validate checks ranges, the initial ellipse and the log level.
func (c Config) Validate() error {
	var problems []string

	if c.Resolution < 2 {
		problems = append(problems, fmt.Sprintf("resolution must be at least 2, got %d", c.Resolution))
	}
	if c.PlotLimit <= 0 {
		problems = append(problems, fmt.Sprintf("plot_limit must be positive, got %g", c.PlotLimit))
	}

	for name, r := range map[string]Range{
		"semi_major": c.Sliders.SemiMajor,
		"semi_minor": c.Sliders.SemiMinor,
		"rotation":   c.Sliders.Rotation,
		"center_x":   c.Sliders.CenterX,
		"center_y":   c.Sliders.CenterY,
	} {
		if r.Max <= r.Min {
			problems = append(problems, fmt.Sprintf("sliders.%s: max %g must exceed min %g", name, r.Max, r.Min))
		}
		if r.Step <= 0 {
			problems = append(problems, fmt.Sprintf("sliders.%s: step must be positive", name))
		}
	}
	if c.Sliders.SemiMajor.Min <= 0 || c.Sliders.SemiMinor.Min <= 0 {
		problems = append(problems, "axis sliders must stay above zero")
	}

	if initial := c.InitialParams(); !initial.Valid() {
		problems = append(problems, fmt.Sprintf("initial ellipse must satisfy 0 < b <= a: %s", initial.Label()))
	}

	if c.Snapshot.Width <= 0 || c.Snapshot.Height <= 0 {
		problems = append(problems, "snapshot size must be positive")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return trip.NewFall(trip.Config, strings.Join(problems, "; "), trip.Context{
			"problems": len(problems),
		})
	}
	return nil
}

// InitialParams returns the starting ellipse as model parameters.
func (c Config) InitialParams() ellipse.Params {
	return ellipse.Params{
		A:     c.Initial.SemiMajor,
		B:     c.Initial.SemiMinor,
		Angle: ellipse.Radians(c.Initial.Rotation),
		X:     c.Initial.CenterX,
		Y:     c.Initial.CenterY,
	}
}
