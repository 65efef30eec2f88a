package bvh

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/bvh/logging"
)

// Config describes how to build a tree.
type Config struct {
	// Type is "aabb" or "obb".
	Type            string `json:"type"`
	MaxLeafElements int    `json:"max_leaf_elements,omitempty"`
	// Margin is the bound inflation; nil derives it from the size of the elements.
	Margin    *float64 `json:"margin,omitempty"`
	OBBMethod string   `json:"obb_method,omitempty"`
}

// DecodeConfig converts a raw attribute map, e.g. parsed from JSON, into a Config.
func DecodeConfig(attributes map[string]interface{}) (*Config, error) {
	var conf Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "json", Result: &conf})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, errors.Wrap(err, "decoding tree config")
	}
	return &conf, nil
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	var errs error
	switch cfg.Type {
	case "":
		errs = multierr.Append(errs, goutils.NewConfigValidationFieldRequiredError(path, "type"))
	case KindAABB.String(), KindOBB.String():
	default:
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path, errors.Errorf("unknown tree type %q", cfg.Type)))
	}
	if cfg.MaxLeafElements < 0 {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path,
			errors.Errorf("max_leaf_elements must be positive, got %d", cfg.MaxLeafElements)))
	}
	if cfg.Margin != nil && *cfg.Margin < 0 {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path,
			errors.Errorf("margin must be non-negative, got %v", *cfg.Margin)))
	}
	if _, err := OBBMethodFromString(cfg.OBBMethod); err != nil {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path, err))
	}
	return errs
}

// Options returns the tree options the config describes.
func (cfg *Config) Options(logger logging.Logger) ([]Option, error) {
	method, err := OBBMethodFromString(cfg.OBBMethod)
	if err != nil {
		return nil, err
	}
	opts := []Option{WithOBBMethod(method)}
	if cfg.MaxLeafElements > 0 {
		opts = append(opts, WithMaxLeafElements(cfg.MaxLeafElements))
	}
	if cfg.Margin != nil {
		opts = append(opts, WithMargin(*cfg.Margin))
	}
	if logger != nil {
		opts = append(opts, WithLogger(logger))
	}
	return opts, nil
}

// NewTree validates the config and builds the tree it describes over elements.
func (cfg *Config) NewTree(elements []Boundable, logger logging.Logger) (*Tree, error) {
	if err := cfg.Validate("tree"); err != nil {
		return nil, err
	}
	opts, err := cfg.Options(logger)
	if err != nil {
		return nil, err
	}
	if cfg.Type == KindOBB.String() {
		return NewOBBTree(elements, opts...)
	}
	return NewAABBTree(elements, opts...)
}
