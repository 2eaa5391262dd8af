package repositoryImp

import (
	"context"
	"time"

	"gorm.io/gorm"

	"riego/entities"
	"riego/pkg/errors"
	"riego/pkg/reading/repository"
)

// insertChunk keeps a single INSERT under SQLite's bound-parameter limit.
const insertChunk = 500

type readingRepo struct{ db *gorm.DB }

func New(db *gorm.DB) repository.ReadingRepository { return &readingRepo{db} }

func dbError(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.New(err).Category(errors.CategoryNotFound).Component("reading").Context("op", op).Build()
	}
	return errors.New(err).Category(errors.CategoryDatabase).Component("reading").Context("op", op).Build()
}

func (r *readingRepo) Create(ctx context.Context, m *entities.Reading) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return dbError(err, "create")
	}
	return nil
}

func (r *readingRepo) CreateBatch(ctx context.Context, rs []entities.Reading) error {
	if len(rs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Sensor", "Crop").CreateInBatches(&rs, insertChunk).Error
	})
	if err != nil {
		return dbError(err, "create_batch")
	}
	return nil
}

func (r *readingRepo) FindByID(ctx context.Context, id uint) (*entities.Reading, error) {
	var out entities.Reading
	if err := r.db.WithContext(ctx).Preload("Crop").First(&out, id).Error; err != nil {
		return nil, dbError(err, "find")
	}
	return &out, nil
}

func (r *readingRepo) List(ctx context.Context, q repository.ListQuery) ([]entities.Reading, error) {
	if q.Limit <= 0 || q.Limit > 1000 {
		q.Limit = 100
	}
	tx := r.db.WithContext(ctx).Preload("Crop").Order("date DESC, id DESC").Limit(q.Limit).Offset(q.Offset)
	if q.CropID != 0 {
		tx = tx.Where("crop_id = ?", q.CropID)
	}
	var out []entities.Reading
	if err := tx.Find(&out).Error; err != nil {
		return nil, dbError(err, "list")
	}
	return out, nil
}

func (r *readingRepo) Recent(ctx context.Context, limit int) ([]entities.Reading, error) {
	var out []entities.Reading
	err := r.db.WithContext(ctx).Preload("Crop").
		Order("date DESC, id DESC").Limit(limit).Find(&out).Error
	if err != nil {
		return nil, dbError(err, "recent")
	}
	return out, nil
}

func (r *readingRepo) LatestPerCrop(ctx context.Context) ([]entities.Reading, error) {
	var cropIDs []uint
	db := r.db.WithContext(ctx)
	if err := db.Model(&entities.Reading{}).Distinct("crop_id").Order("crop_id").Pluck("crop_id", &cropIDs).Error; err != nil {
		return nil, dbError(err, "latest_crops")
	}
	out := make([]entities.Reading, 0, len(cropIDs))
	for _, id := range cropIDs {
		var rd entities.Reading
		err := db.Preload("Crop").Where("crop_id = ?", id).Order("date DESC, id DESC").First(&rd).Error
		if err != nil {
			return nil, dbError(err, "latest")
		}
		out = append(out, rd)
	}
	return out, nil
}

func (r *readingRepo) EachLabelled(ctx context.Context, size int, fn func([]entities.Reading) error) error {
	if size <= 0 {
		size = 1000
	}
	var page []entities.Reading
	var fnErr error
	res := r.db.WithContext(ctx).Preload("Crop").
		Where("needs_irrigation IS NOT NULL").
		FindInBatches(&page, size, func(_ *gorm.DB, _ int) error {
			if err := fn(page); err != nil {
				fnErr = err
				return err
			}
			return nil
		})
	if fnErr != nil {
		return fnErr
	}
	if res.Error != nil {
		return dbError(res.Error, "labelled")
	}
	return nil
}

func (r *readingRepo) Geo(ctx context.Context, f repository.GeoFilter) ([]entities.Reading, error) {
	tx := r.db.WithContext(ctx).Preload("Crop").
		Where("lat IS NOT NULL AND lng IS NOT NULL AND lat <> 0 AND lng <> 0")
	if f.CropID != 0 {
		tx = tx.Where("crop_id = ?", f.CropID)
	}
	if f.Year > 0 {
		from, to := yearWindow(f.Year, f.Month)
		tx = tx.Where("date >= ? AND date < ?", from, to)
	}
	var out []entities.Reading
	if err := tx.Order("date DESC, id DESC").Find(&out).Error; err != nil {
		return nil, dbError(err, "geo")
	}
	if f.Year == 0 && f.Month > 0 {
		// month across all years: filtered here, date functions differ per driver
		kept := out[:0]
		for _, rd := range out {
			if int(rd.Date.Month()) == f.Month {
				kept = append(kept, rd)
			}
		}
		out = kept
	}
	return out, nil
}

func yearWindow(year, month int) (time.Time, time.Time) {
	if month >= 1 && month <= 12 {
		from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(0, 1, 0)
	}
	from := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(1, 0, 0)
}

func (r *readingRepo) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&entities.Reading{}, id)
	if res.Error != nil {
		return dbError(res.Error, "delete")
	}
	if res.RowsAffected == 0 {
		return dbError(gorm.ErrRecordNotFound, "delete")
	}
	return nil
}
