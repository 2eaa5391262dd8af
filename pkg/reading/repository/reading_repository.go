package repository

import (
	"context"

	"riego/entities"
)

// GeoFilter narrows the geo listing. Zero values mean "any".
type GeoFilter struct {
	Year   int
	Month  int
	CropID uint
}

// ListQuery pages the plain listing, newest first.
type ListQuery struct {
	Limit  int
	Offset int
	CropID uint
}

type ReadingRepository interface {
	Create(ctx context.Context, r *entities.Reading) error
	// CreateBatch persists rs in one transaction; either all rows commit or none.
	CreateBatch(ctx context.Context, rs []entities.Reading) error
	FindByID(ctx context.Context, id uint) (*entities.Reading, error)
	List(ctx context.Context, q ListQuery) ([]entities.Reading, error)
	Recent(ctx context.Context, limit int) ([]entities.Reading, error)
	LatestPerCrop(ctx context.Context) ([]entities.Reading, error)
	// EachLabelled walks readings with a stored irrigation label in pages of size.
	EachLabelled(ctx context.Context, size int, fn func([]entities.Reading) error) error
	Geo(ctx context.Context, f GeoFilter) ([]entities.Reading, error)
	Delete(ctx context.Context, id uint) error
}
