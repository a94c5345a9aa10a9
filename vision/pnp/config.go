package pnp

import (
	"math"

	"github.com/go-viper/mapstructure/v2"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

const (
	// DefaultMaxIterations is the fixed RANSAC budget.
	DefaultMaxIterations = 50
	// DefaultPixelTolerance gives the inlier threshold 1 − cos(atan(√2·0.5/800)) at an 800 px
	// focal length.
	DefaultPixelTolerance = 1.0
	// DefaultSeed seeds sampling when no seed is configured.
	DefaultSeed = 1
)

// Config holds the estimator settings.
type Config struct {
	// MaxIterations is the number of minimal samples drawn.
	MaxIterations int `json:"max_iterations"`
	// PixelTolerance is the reprojection tolerance in pixels that defines an inlier.
	PixelTolerance float64 `json:"pixel_tolerance"`
	// Confidence in (0, 1) enables early termination once an all-inlier sample has been drawn
	// with this probability. Zero keeps the fixed budget.
	Confidence float64 `json:"confidence"`
	Seed       int64   `json:"seed"`
	// Workers splits the budget into that many deterministic shards.
	Workers int `json:"workers"`
}

// NewDefaultConfig returns the default settings.
func NewDefaultConfig() *Config {
	return &Config{
		MaxIterations:  DefaultMaxIterations,
		PixelTolerance: DefaultPixelTolerance,
		Seed:           DefaultSeed,
		Workers:        1,
	}
}

// NewConfigFromAttributes decodes a loosely typed attribute map over the defaults and validates
// the result.
func NewConfigFromAttributes(attributes map[string]interface{}) (*Config, error) {
	conf := NewDefaultConfig()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      conf,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, err
	}
	if err := conf.Validate("attributes"); err != nil {
		return nil, err
	}
	return conf, nil
}

// ConfigSchema returns the JSON schema of the attributes accepted by NewConfigFromAttributes.
func ConfigSchema() *jsonschema.Schema {
	return jsonschema.Reflect(&Config{})
}

// Validate reports every invalid field of the config. path names the config in error messages.
func (conf *Config) Validate(path string) error {
	if conf == nil {
		return errors.Errorf("%s: config is missing", path)
	}
	var err error
	if conf.MaxIterations <= 0 {
		err = multierr.Append(err, fieldError(path, "max_iterations", "must be positive, got %d", conf.MaxIterations))
	}
	if conf.PixelTolerance <= 0 || math.IsNaN(conf.PixelTolerance) || math.IsInf(conf.PixelTolerance, 0) {
		err = multierr.Append(err, fieldError(path, "pixel_tolerance", "must be a positive number, got %v", conf.PixelTolerance))
	}
	if conf.Confidence < 0 || conf.Confidence >= 1 || math.IsNaN(conf.Confidence) {
		err = multierr.Append(err, fieldError(path, "confidence", "must be in [0, 1), got %v", conf.Confidence))
	}
	if conf.Workers < 1 {
		err = multierr.Append(err, fieldError(path, "workers", "must be at least 1, got %d", conf.Workers))
	}
	return err
}

func fieldError(path, field, format string, args ...interface{}) error {
	return errors.Wrapf(errors.Errorf(format, args...), "%s.%s", path, field)
}
