package application

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-stiffness/internal/domain"
	"github.com/ahrav/go-stiffness/internal/ports"
)

// Package-level validator instance for configuration validation.
var validate = validator.New()

// CalculatorConfig is the YAML schema for defining a calculator. Layer
// entries use the configuration tokens of the aggregation methods, e.g.
//
//	stiffness_type: cff
//	layers: [flatten, median, sum, sum]
//	allow_sect_to_self: true
type CalculatorConfig struct {
	// StiffnessType selects the physical quantity to aggregate.
	StiffnessType string `yaml:"stiffness_type" validate:"required,oneof=cff sigma tau"`
	// Layers lists the aggregation methods, outermost last. The final
	// layer must be a terminal method.
	Layers []string `yaml:"layers" validate:"required,min=1,max=4,dive,min=1"`
	// AllowSectToSelf includes same-section source/receiver pairs.
	AllowSectToSelf bool `yaml:"allow_sect_to_self"`
}

// ParseCalculatorConfig decodes and validates a YAML calculator definition.
func ParseCalculatorConfig(data []byte) (CalculatorConfig, error) {
	var cfg CalculatorConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse calculator config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("validate calculator config: %w", err)
	}
	return cfg, nil
}

// NewCalculatorFromConfig resolves the configured tokens and builds a
// calculator against the given model.
func NewCalculatorFromConfig(cfg CalculatorConfig, model ports.StiffnessModel) (*Calculator, error) {
	typ, err := domain.ParseStiffnessType(cfg.StiffnessType)
	if err != nil {
		return nil, err
	}
	layers := make([]domain.AggregationMethod, len(cfg.Layers))
	for i, token := range cfg.Layers {
		method, err := domain.ParseAggregationMethod(token)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		layers[i] = method
	}
	return NewCalculator(typ, model, cfg.AllowSectToSelf, layers...)
}
