// pkg/model/linear.go

package model

import (
	"context"
	"encoding/json"
	"math"
	"os"

	"riego/pkg/errors"
	"riego/pkg/features"
)

const (
	OutputLogit       = "logit"
	OutputProbability = "probability"
)

// Linear is a pre-trained logistic model stored as JSON:
//
//	{"intercept": -1.2, "weights": {"soil_moisture": -0.08}, "output": "probability"}
//
// Weights for unknown feature names are rejected.
type Linear struct {
	Intercept float64            `json:"intercept"`
	Weights   map[string]float64 `json:"weights"`
	Output    string             `json:"output"`
}

func LoadLinear(path string) (*Linear, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(err).Category(errors.CategoryConfiguration).Component("model").
			Context("path", path).Build()
	}
	var l Linear
	if err := json.Unmarshal(b, &l); err != nil {
		return nil, errors.New(err).Category(errors.CategoryConfiguration).Component("model").
			Context("path", path).Build()
	}
	if err := l.validate(); err != nil {
		return nil, errors.New(err).Category(errors.CategoryConfiguration).Component("model").
			Context("path", path).Build()
	}
	return &l, nil
}

func (l *Linear) validate() error {
	if l.Output == "" {
		l.Output = OutputProbability
	}
	if l.Output != OutputProbability && l.Output != OutputLogit {
		return errors.Newf("unknown output %q", l.Output).Build()
	}
	known := make(map[string]struct{}, len(features.FeatureNames))
	for _, n := range features.FeatureNames {
		known[n] = struct{}{}
	}
	for n := range l.Weights {
		if _, ok := known[n]; !ok {
			return errors.Newf("unknown feature %q", n).Build()
		}
	}
	return nil
}

// Score returns the raw logit or its sigmoid, depending on Output.
func (l *Linear) Score(_ context.Context, v features.FeatureVector) (float64, error) {
	z := l.Intercept
	for name, x := range v.Map() {
		z += l.Weights[name] * x
	}
	if l.Output == OutputLogit {
		return z, nil
	}
	return 1 / (1 + math.Exp(-z)), nil
}
