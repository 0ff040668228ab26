// Package template loads pipeline templates used to seed new desks.
package template

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed default_pipeline.yaml
var defaultPipeline []byte

// State is one state of a template.
type State struct {
	Name        string  `yaml:"name"`
	DisplayName string  `yaml:"display_name"`
	Color       string  `yaml:"color"`
	Icon        *string `yaml:"icon"`
	Initial     bool    `yaml:"initial"`
	Final       bool    `yaml:"final"`
	Hidden      bool    `yaml:"hidden"`
}

// Edge is a template transition between states referenced by name.
type Edge struct {
	From               string  `yaml:"from"`
	To                 string  `yaml:"to"`
	RequiredPermission *string `yaml:"required_permission"`
}

// Pipeline is a full desk pipeline.
type Pipeline struct {
	States      []State `yaml:"states"`
	Transitions []Edge  `yaml:"transitions"`
}

// Default returns the built-in pipeline.
func Default() (Pipeline, error) {
	return Parse(defaultPipeline)
}

// Parse decodes and checks a YAML pipeline.
func Parse(raw []byte) (Pipeline, error) {
	var p Pipeline
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Pipeline{}, fmt.Errorf("decode pipeline template: %w", err)
	}
	if len(p.States) == 0 {
		return Pipeline{}, errors.New("pipeline template has no states")
	}

	names := make(map[string]struct{}, len(p.States))
	initial := 0
	for _, s := range p.States {
		if s.Name == "" {
			return Pipeline{}, errors.New("pipeline template state without name")
		}
		names[s.Name] = struct{}{}
		if s.Initial {
			initial++
		}
	}
	if initial > 1 {
		return Pipeline{}, errors.New("pipeline template has more than one initial state")
	}
	for _, e := range p.Transitions {
		if _, ok := names[e.From]; !ok {
			return Pipeline{}, fmt.Errorf("pipeline template edge from unknown state %q", e.From)
		}
		if _, ok := names[e.To]; !ok {
			return Pipeline{}, fmt.Errorf("pipeline template edge to unknown state %q", e.To)
		}
	}
	return p, nil
}
