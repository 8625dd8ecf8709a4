package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/NoJuanNobody/home-health-aid-app/internal/config"
	"github.com/NoJuanNobody/home-health-aid-app/internal/database"
	"github.com/NoJuanNobody/home-health-aid-app/internal/geocoding"
	httpapi "github.com/NoJuanNobody/home-health-aid-app/internal/http"
	applog "github.com/NoJuanNobody/home-health-aid-app/internal/logger"
	"github.com/NoJuanNobody/home-health-aid-app/internal/redisutil"
	"github.com/NoJuanNobody/home-health-aid-app/internal/repository"
	"github.com/NoJuanNobody/home-health-aid-app/internal/service"
	"github.com/NoJuanNobody/home-health-aid-app/internal/store"
)

func main() {
	cfg := config.Load()

	logger, err := applog.NewLogger(cfg.Log.Level, cfg.Log.Format, "home-health-aid")
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	redisClient := redisutil.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	kv := store.NewRedisKV(redisClient)
	audit := service.NewRedisAuditSink(redisClient, logger)

	providers := []geocoding.Provider{
		geocoding.NewNominatimProvider(cfg.Geocoding.NominatimURL, cfg.Geocoding.UserAgent, logger),
		geocoding.NewArcGISProvider(cfg.Geocoding.ArcGISURL, cfg.Geocoding.UserAgent, logger),
		geocoding.NewPhotonProvider(cfg.Geocoding.PhotonURL, cfg.Geocoding.UserAgent, logger),
	}
	geocoder := geocoding.NewService(providers, logger,
		geocoding.WithDefaults(cfg.Geocoding.Timeout, cfg.Geocoding.MaxRetries))

	var (
		db             *sql.DB
		geofencesRepo  repository.GeofencesRepo
		locationsRepo  repository.LocationsRepo
		timesheetsRepo repository.TimesheetsRepo
		clientsRepo    repository.ClientsRepo
		usersRepo      repository.UsersRepo
	)
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			logger.Info("DB enabled for home-health-aid")
		} else {
			logger.Warn("DB enabled but connection failed, falling back to memory repos", zap.Error(err))
		}
	}
	if db != nil {
		geofencesRepo = repository.NewPostgresGeofencesRepo(db)
		locationsRepo = repository.NewPostgresLocationsRepo(db)
		timesheetsRepo = repository.NewPostgresTimesheetsRepo(db)
		clientsRepo = repository.NewPostgresClientsRepo(db)
		usersRepo = repository.NewPostgresUsersRepo(db)
	} else {
		// DB 未就绪：使用内存 repo 支持联测
		geofencesRepo = repository.NewMemoryGeofencesRepo()
		locationsRepo = repository.NewMemoryLocationsRepo()
		timesheetsRepo = repository.NewMemoryTimesheetsRepo()
		clientsRepo = repository.NewMemoryClientsRepo()
		usersRepo = repository.NewMemoryUsersRepo()
	}

	geofenceSvc := service.NewGeofenceService(geofencesRepo, geocoder, audit, logger)
	locationSvc := service.NewLocationService(locationsRepo, geofencesRepo, usersRepo, geocoder, kv, audit, logger)
	timesheetSvc := service.NewTimesheetService(timesheetsRepo, geofenceSvc, usersRepo, audit, logger)
	clientSvc := service.NewClientService(clientsRepo, geofenceSvc, audit, logger)

	router := httpapi.NewRouter(logger)
	router.RegisterHealthRoutes()
	router.RegisterLocationRoutes(httpapi.NewLocationHandler(locationSvc, logger))
	router.RegisterGeofenceRoutes(httpapi.NewGeofenceHandler(geofenceSvc, logger))
	router.RegisterGeocodeRoutes(httpapi.NewGeocodeHandler(geocoder, logger))
	router.RegisterTimesheetRoutes(httpapi.NewTimesheetHandler(timesheetSvc, logger))
	router.RegisterClientRoutes(httpapi.NewClientHandler(clientSvc, logger))

	srv := service.NewServer(cfg.HTTP.Addr, router, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case <-errCh:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	_ = redisClient.Close()
	if db != nil {
		_ = database.Close(db)
	}
}
