// database/bootstrap.go
package database

import (
	"log/slog"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite" // CGO-free driver
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"riego/entities"
	"riego/pkg/errors"
	"riego/pkg/features"
	"riego/pkg/logger"
)

type Options struct {
	Driver string // sqlite|mysql
	Path   string
	DSN    string
	Log    *slog.Logger
}

// Open connects with the configured driver. ":memory:" keeps a single
// connection so every query sees the same database.
func Open(opts Options) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(opts.Driver) {
	case "mysql":
		if opts.DSN == "" {
			return nil, errors.Newf("DB_DSN is required for mysql").
				Category(errors.CategoryConfiguration).Component("database").Build()
		}
		dialector = mysql.Open(opts.DSN)
	case "", "sqlite":
		path := opts.Path
		if path == "" {
			path = "riego.db"
		}
		if path != ":memory:" {
			path += sqlitePragmas(path)
		}
		dialector = sqlite.Open(path)
	default:
		return nil, errors.Newf("unsupported DB_DRIVER %q", opts.Driver).
			Category(errors.CategoryConfiguration).Component("database").Build()
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormAdapter(opts.Log, 200*time.Millisecond),
	})
	if err != nil {
		return nil, errors.New(err).Category(errors.CategoryDatabase).Component("database").
			Context("driver", opts.Driver).Build()
	}
	if opts.Path == ":memory:" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, err
		}
	}
	return db, nil
}

func sqlitePragmas(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Migrate creates or updates every entity table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(entities.AllModels()...); err != nil {
		return errors.New(err).Category(errors.CategoryDatabase).Component("database").
			Context("migration", "automigrate").Build()
	}
	return nil
}

// SeedCrops inserts catalog crops that are not stored yet. Existing rows win.
func SeedCrops(db *gorm.DB, crops []features.Crop) error {
	if len(crops) == 0 {
		return nil
	}
	rows := make([]entities.Crop, 0, len(crops))
	for _, c := range crops {
		rows = append(rows, entities.Crop{ID: c.ID, Name: c.Name})
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return errors.New(err).Category(errors.CategoryDatabase).Component("database").
			Context("seed", "crops").Build()
	}
	return nil
}
