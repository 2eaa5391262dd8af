package main

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"riego/config"
	"riego/database"
	"riego/pkg/decision"
	"riego/pkg/features"
	"riego/pkg/ingest"
	"riego/pkg/logger"
	"riego/pkg/metrics"
	"riego/pkg/model"
	"riego/pkg/timeseries"

	readingRepoImp "riego/pkg/reading/repositoryImp"
	sensorRepoImp "riego/pkg/sensor/repositoryImp"
)

// app holds the wired services shared by the serve and import commands.
type app struct {
	cfg      config.AppConfig
	log      *slog.Logger
	db       *gorm.DB
	catalog  *features.Catalog
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	mirror   timeseries.Mirror
	picker   ingest.Picker
	importer *ingest.Importer
	scorer   model.Scorer
	scorerID string
	engine   *decision.Engine
}

func buildApp(cfg config.AppConfig) (*app, error) {
	log := logger.Module("app")
	a := &app{cfg: cfg, log: log}

	catalog, err := features.LoadCatalog(cfg.CropCatalog)
	if err != nil {
		return nil, err
	}
	a.catalog = catalog

	// 1) DB + migrate + crop seed
	a.db, err = database.Open(database.Options{
		Driver: cfg.DBDriver,
		Path:   cfg.DBPath,
		DSN:    cfg.DBDSN,
		Log:    logger.Module("datastore"),
	})
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(a.db); err != nil {
		return nil, err
	}
	if err := database.SeedCrops(a.db, catalog.Crops()); err != nil {
		return nil, err
	}

	// 2) Metrics
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if a.metrics, err = metrics.New(a.registry); err != nil {
		return nil, err
	}

	// 3) Influx mirror (optional)
	a.mirror = timeseries.Nop{}
	if cfg.InfluxURL != "" {
		a.mirror = timeseries.NewInflux(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket)
		log.Info("influx mirror enabled", "url", cfg.InfluxURL, "bucket", cfg.InfluxBucket)
	}

	// 4) Importer
	a.picker = ingest.NewPicker(cfg.ImportSeed)
	a.importer = ingest.New(readingRepoImp.New(a.db), sensorRepoImp.New(a.db), catalog, ingest.Options{
		BatchSize: cfg.ImportBatchSize,
		Picker:    a.picker,
		Mirror:    a.mirror,
		Metrics:   a.metrics,
		Log:       logger.Module("ingest"),
	})

	// 5) Scorer: remote, local weights, or mock
	if err := a.buildScorer(); err != nil {
		return nil, err
	}

	// 6) Decision engine
	thresholds := decision.NewThresholdSource(cfg.ModelConfig, cfg.ThresholdTTL, logger.Module("decision"))
	a.engine = decision.New(readingRepoImp.New(a.db), catalog, a.scorer, thresholds, decision.Options{
		CostPerM3:      cfg.CostPerM3,
		ConsumptionMin: cfg.ConsumptionMin,
		ConsumptionMax: cfg.ConsumptionMax,
		Metrics:        a.metrics,
		Log:            logger.Module("decision"),
	})
	return a, nil
}

func (a *app) buildScorer() error {
	var local model.Scorer
	if a.cfg.ModelWeights != "" {
		l, err := model.LoadLinear(a.cfg.ModelWeights)
		if err != nil {
			return err
		}
		local = l
	}
	switch {
	case a.cfg.ModelEndpoint != "":
		a.scorer = model.WithFallback(model.NewRemote(a.cfg.ModelEndpoint, a.cfg.ModelTimeout), local, logger.Module("model"))
		a.scorerID = "remote"
	case local != nil:
		a.scorer, a.scorerID = local, "linear"
	default:
		a.scorer, a.scorerID = model.NewMock(), "mock"
		a.log.Warn("no model configured, using mock scorer")
	}
	return nil
}

func (a *app) Close() {
	a.mirror.Close()
	if sqlDB, err := a.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			a.log.Warn("closing database", "error", err)
		}
	}
}
