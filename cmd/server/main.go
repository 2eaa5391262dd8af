package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"riego/config"
	"riego/pkg/alert"
	"riego/pkg/errors"
	"riego/pkg/logger"
	"riego/pkg/timeseries"
	"riego/router"

	alertCtrlImp "riego/pkg/alert/controllerImp"
	authCtrlImp "riego/pkg/auth/controllerImp"
	cropCtrlImp "riego/pkg/crop/controllerImp"
	cropRepoImp "riego/pkg/crop/repositoryImp"
	decisionCtrlImp "riego/pkg/decision/controllerImp"
	healthCtrlImp "riego/pkg/health/controllerImp"
	uploadCtrlImp "riego/pkg/ingest/controllerImp"
	readingCtrlImp "riego/pkg/reading/controllerImp"
	readingRepoImp "riego/pkg/reading/repositoryImp"
	sensorCtrlImp "riego/pkg/sensor/controllerImp"
	sensorRepoImp "riego/pkg/sensor/repositoryImp"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "riego",
		Short:         "Sensor reading ingestion and irrigation recommendations",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import a semicolon separated readings file and print the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return importFile(cmd.Context(), args[0], cmd.OutOrStdout())
		},
	})
	return root
}

func setup() (*app, error) {
	cfg := config.Load()
	logger.Setup(cfg.LogLevel, cfg.LogFormat)
	logger.Module("config").Info("configuration loaded", "config", cfg.Redacted())
	return buildApp(cfg)
}

func serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()
	log := logger.Module("http")

	readingRepo := readingRepoImp.New(a.db)
	sensorRepo := sensorRepoImp.New(a.db)

	checks := map[string]healthCtrlImp.Check{}
	if im, ok := a.mirror.(*timeseries.InfluxMirror); ok {
		checks["influx"] = im.Ping
	}
	info := map[string]any{"scorer": a.scorerID, "crops": len(a.catalog.Crops())}

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Recover())

	router.New(e, router.Controllers{
		Auth:     authCtrlImp.NewAuthController(),
		Health:   healthCtrlImp.NewHealthCtrl(a.db, checks, info),
		Sensors:  sensorCtrlImp.New(sensorRepo, logger.Module("sensor")),
		Crops:    cropCtrlImp.New(cropRepoImp.New(a.db), logger.Module("crop")),
		Readings: readingCtrlImp.New(readingRepo, sensorRepo, a.picker, a.catalog, logger.Module("reading")),
		Upload:   uploadCtrlImp.New(a.importer, logger.Module("ingest")),
		Alerts:   alertCtrlImp.New(alert.NewService(readingRepo, a.catalog, logger.Module("alert")), logger.Module("alert")),
		Decision: decisionCtrlImp.New(a.engine, logger.Module("decision")),
		Metrics:  promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
	}, router.Options{JWTSecret: a.cfg.JWTSecret, MaxUploadMB: a.cfg.MaxUploadMB})

	if a.cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET not set, dev login enabled")
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "port", a.cfg.Port)
		errc <- e.Start(":" + a.cfg.Port)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func importFile(parent context.Context, path string, out io.Writer) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rep, importErr := a.importer.Import(ctx, f)
	if rep != nil {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return err
		}
	}
	return importErr
}
