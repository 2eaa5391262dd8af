package repositoryImp

import (
	"context"

	"gorm.io/gorm"

	"riego/entities"
	"riego/pkg/crop/repository"
	"riego/pkg/errors"
)

type cropRepo struct{ db *gorm.DB }

func New(db *gorm.DB) repository.CropRepository { return &cropRepo{db} }

func dbError(err error, op string) error {
	cat := errors.CategoryDatabase
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cat = errors.CategoryNotFound
	}
	return errors.New(err).Category(cat).Component("crop").Context("op", op).Build()
}

func (r *cropRepo) Create(ctx context.Context, c *entities.Crop) error {
	var dup int64
	if err := r.db.WithContext(ctx).Model(&entities.Crop{}).Where("name = ?", c.Name).Count(&dup).Error; err != nil {
		return dbError(err, "create")
	}
	if dup > 0 {
		return errors.Newf("crop %q already exists", c.Name).
			Category(errors.CategoryConflict).Component("crop").Build()
	}
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return dbError(err, "create")
	}
	return nil
}

func (r *cropRepo) List(ctx context.Context) ([]entities.Crop, error) {
	var out []entities.Crop
	if err := r.db.WithContext(ctx).Order("id").Find(&out).Error; err != nil {
		return nil, dbError(err, "list")
	}
	return out, nil
}

func (r *cropRepo) FindByID(ctx context.Context, id uint) (*entities.Crop, error) {
	var out entities.Crop
	if err := r.db.WithContext(ctx).First(&out, id).Error; err != nil {
		return nil, dbError(err, "find")
	}
	return &out, nil
}

func (r *cropRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var refs int64
		if err := tx.Model(&entities.Reading{}).Where("crop_id = ?", id).Count(&refs).Error; err != nil {
			return dbError(err, "delete")
		}
		if refs > 0 {
			return errors.Newf("crop %d is referenced by %d readings", id, refs).
				Category(errors.CategoryConflict).Component("crop").Context("crop_id", id).Build()
		}
		res := tx.Delete(&entities.Crop{}, id)
		if res.Error != nil {
			return dbError(res.Error, "delete")
		}
		if res.RowsAffected == 0 {
			return dbError(gorm.ErrRecordNotFound, "delete")
		}
		return nil
	})
}
