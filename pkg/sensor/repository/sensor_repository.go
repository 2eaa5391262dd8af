package repository

import (
	"context"

	"riego/entities"
)

type SensorRepository interface {
	Create(ctx context.Context, s *entities.Sensor) error
	List(ctx context.Context) ([]entities.Sensor, error)
	FindByID(ctx context.Context, id uint) (*entities.Sensor, error)
	// IDs returns every registered sensor id in ascending order.
	IDs(ctx context.Context) ([]uint, error)
	Delete(ctx context.Context, id uint) error
}
