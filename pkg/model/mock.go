// pkg/model/mock.go

package model

import (
	"context"
	"math"

	"riego/pkg/features"
)

type mockScorer struct{}

// NewMock returns a deterministic scorer for development. It yields a
// probability that rises as the soil dries and the air warms.
func NewMock() Scorer { return mockScorer{} }

func (mockScorer) Score(_ context.Context, v features.FeatureVector) (float64, error) {
	z := 0.15*(30-v.SoilMoisture) + 0.08*(v.Temperature-25) - 0.03*v.Precipitation
	if v.CropStage == 3 {
		z += 0.5
	}
	return 1 / (1 + math.Exp(-z)), nil
}
