package repositoryImp

import (
	"context"

	"gorm.io/gorm"

	"riego/entities"
	"riego/pkg/errors"
	"riego/pkg/sensor/repository"
)

type sensorRepo struct{ db *gorm.DB }

func New(db *gorm.DB) repository.SensorRepository { return &sensorRepo{db} }

func dbError(err error, op string) error {
	cat := errors.CategoryDatabase
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cat = errors.CategoryNotFound
	}
	return errors.New(err).Category(cat).Component("sensor").Context("op", op).Build()
}

func (r *sensorRepo) Create(ctx context.Context, s *entities.Sensor) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return dbError(err, "create")
	}
	return nil
}

func (r *sensorRepo) List(ctx context.Context) ([]entities.Sensor, error) {
	var out []entities.Sensor
	if err := r.db.WithContext(ctx).Order("id").Find(&out).Error; err != nil {
		return nil, dbError(err, "list")
	}
	return out, nil
}

func (r *sensorRepo) FindByID(ctx context.Context, id uint) (*entities.Sensor, error) {
	var out entities.Sensor
	if err := r.db.WithContext(ctx).First(&out, id).Error; err != nil {
		return nil, dbError(err, "find")
	}
	return &out, nil
}

func (r *sensorRepo) IDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&entities.Sensor{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, dbError(err, "ids")
	}
	return ids, nil
}

// Delete refuses while readings still point at the sensor.
func (r *sensorRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var refs int64
		if err := tx.Model(&entities.Reading{}).Where("sensor_id = ?", id).Count(&refs).Error; err != nil {
			return dbError(err, "delete")
		}
		if refs > 0 {
			return errors.Newf("sensor %d has %d readings", id, refs).
				Category(errors.CategoryConflict).Component("sensor").Build()
		}
		res := tx.Delete(&entities.Sensor{}, id)
		if res.Error != nil {
			return dbError(res.Error, "delete")
		}
		if res.RowsAffected == 0 {
			return dbError(gorm.ErrRecordNotFound, "delete")
		}
		return nil
	})
}
