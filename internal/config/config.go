// Package config loads the application settings of the scanqc command from
// defaults, an optional YAML file, SCANQC_* environment variables and bound
// command-line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/cwbudde/algo-scanqc/mapping/grid"
	"github.com/cwbudde/algo-scanqc/noise/onef"
	"github.com/cwbudde/algo-scanqc/pipeline"
	"github.com/cwbudde/algo-scanqc/spectrum/nullsim"
)

// FileName is the config file looked up in the working and home
// directories when no explicit file is given.
const FileName = ".scanqc"

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "SCANQC"

var (
	// ErrUnknownField is returned when the selected field is not configured.
	ErrUnknownField = errors.New("config: unknown field")
	// ErrInvalid is returned for values outside their valid range.
	ErrInvalid = errors.New("config: invalid value")
)

// Config holds the resolved settings.
type Config struct {
	Field        string       `mapstructure:"field"`
	Fields       []grid.Field `mapstructure:"fields"`
	Feeds        int          `mapstructure:"feeds"`
	Sidebands    int          `mapstructure:"sidebands"`
	Channels     int          `mapstructure:"channels"`
	Samples      int          `mapstructure:"samples"`
	Scans        int          `mapstructure:"scans"`
	SampleRate   float64      `mapstructure:"sample-rate"`
	Workers      int          `mapstructure:"workers"`
	Realizations int          `mapstructure:"realizations"`
	Seed         int64        `mapstructure:"seed"`
	LogLevel     string       `mapstructure:"log-level"`
	Output       string       `mapstructure:"output"`
}

// DefaultFields are the three survey fields.
func DefaultFields() []grid.Field {
	return []grid.Field{
		{Name: "co2", CenterRA: 25.435, CenterDec: 0, RadiusDeg: grid.DefaultRadiusDeg, PixelArcmin: grid.DefaultPixelArcmin},
		{Name: "co6", CenterRA: 226, CenterDec: 55, RadiusDeg: grid.DefaultRadiusDeg, PixelArcmin: grid.DefaultPixelArcmin},
		{Name: "co7", CenterRA: 170, CenterDec: 52.5, RadiusDeg: grid.DefaultRadiusDeg, PixelArcmin: grid.DefaultPixelArcmin},
	}
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("field", "co7")
	v.SetDefault("fields", DefaultFields())
	v.SetDefault("feeds", 2)
	v.SetDefault("sidebands", 4)
	v.SetDefault("channels", 64)
	v.SetDefault("samples", 3000)
	v.SetDefault("scans", 2)
	v.SetDefault("sample-rate", onef.DefaultSampleRate)
	v.SetDefault("workers", pipeline.DefaultWorkers)
	v.SetDefault("realizations", nullsim.DefaultRealizations)
	v.SetDefault("seed", 0)
	v.SetDefault("log-level", "info")
	v.SetDefault("output", "")
}

// Load resolves the settings held by v. An explicit file must exist; the
// default file is optional.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks ranges and that the selected field exists.
func (c *Config) Validate() error {
	switch {
	case c.Feeds < 1 || c.Sidebands < 1 || c.Channels < 1:
		return fmt.Errorf("%w: layout %d feeds, %d sidebands, %d channels", ErrInvalid, c.Feeds, c.Sidebands, c.Channels)
	case c.Samples < 1 || c.Scans < 1:
		return fmt.Errorf("%w: %d samples, %d scans", ErrInvalid, c.Samples, c.Scans)
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate %v", ErrInvalid, c.SampleRate)
	case c.Workers < 1:
		return fmt.Errorf("%w: %d workers", ErrInvalid, c.Workers)
	case c.Realizations < 2:
		return fmt.Errorf("%w: %d realizations", ErrInvalid, c.Realizations)
	}

	if _, err := c.Level(); err != nil {
		return err
	}

	_, err := c.SelectedField()

	return err
}

// SelectedField returns the field named by Field.
func (c *Config) SelectedField() (grid.Field, error) {
	for _, f := range c.Fields {
		if f.Name == c.Field {
			return f, nil
		}
	}

	return grid.Field{}, fmt.Errorf("%w: %q", ErrUnknownField, c.Field)
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalid, c.LogLevel)
	}

	return l, nil
}

// RunnerOptions translates the settings into pipeline options. A zero seed
// leaves the runner unseeded.
func (c *Config) RunnerOptions(logger *slog.Logger) []pipeline.Option {
	opts := []pipeline.Option{
		pipeline.WithWorkers(c.Workers),
		pipeline.WithRealizations(c.Realizations),
		pipeline.WithSampleRate(c.SampleRate),
		pipeline.WithLogger(logger),
	}
	if c.Seed != 0 {
		opts = append(opts, pipeline.WithSeed(c.Seed))
	}

	return opts
}
