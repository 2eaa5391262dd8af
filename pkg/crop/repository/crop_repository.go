package repository

import (
	"context"

	"riego/entities"
)

type CropRepository interface {
	Create(ctx context.Context, c *entities.Crop) error
	List(ctx context.Context) ([]entities.Crop, error)
	FindByID(ctx context.Context, id uint) (*entities.Crop, error)
	// Delete fails with a conflict while readings reference the crop.
	Delete(ctx context.Context, id uint) error
}
