package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"route-planner-service/internal/adapters/cache"
	"route-planner-service/internal/adapters/nominatim"
	"route-planner-service/internal/adapters/ors"
	"route-planner-service/internal/adapters/osrm"
	"route-planner-service/internal/adapters/repositories"
	"route-planner-service/internal/api"
	"route-planner-service/internal/config"
	"route-planner-service/internal/platform/db"
	"route-planner-service/internal/platform/metrics"
	"route-planner-service/internal/ports"
	"route-planner-service/internal/services"
)

// main is the application composition root.
// It wires concrete adapters (database, Nominatim, OSRM, caches) behind ports
// and runs the HTTP server until SIGINT or SIGTERM.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	conn, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		return err
	}
	defer conn.Close()

	// SQLite runs are local: create the schema and load demo bookings on startup.
	// Postgres is prepared with cmd/dbtool.
	if cfg.DBDriver == db.DriverSQLite {
		if err := initAndSeed(conn, cfg.SeedPath); err != nil {
			return err
		}
	}

	checks := map[string]func(context.Context) error{"db": conn.PingContext}

	bookings, geocodeCache, legCache := sqlAdapters(cfg.DBDriver, conn)

	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisGeocodeCacheFromURL(cfg.RedisURL, cfg.GeocodeCacheTTL)
		if err != nil {
			return err
		}
		defer redisCache.Close()

		geocodeCache = redisCache
		checks["redis"] = redisCache.Ping
	}

	geocodeClient, err := nominatim.NewClient(nominatim.Options{
		BaseURL:      cfg.NominatimURL,
		UserAgent:    cfg.NominatimUserAgent,
		Email:        cfg.NominatimEmail,
		CountryCodes: cfg.NominatimCountryCodes,
		MinInterval:  cfg.GeocodeMinInterval,
	})
	if err != nil {
		return err
	}
	geocoder := cache.NewCachingGeocoder(geocodeClient, geocodeCache)

	roadRouter, err := newRoadRouter(cfg)
	if err != nil {
		return err
	}
	router := cache.NewCachingRoadRouter(roadRouter, legCache)

	planner := services.NewPlanner(bookings, geocoder, router, cfg.DefaultInstallMinutes)
	manager := services.NewManager(planner, cfg.SessionRetention)

	handler := api.NewRouter(bookings, manager, api.Options{
		DefaultStartAddress: cfg.DepotAddress,
		Location:            time.Local,
		HealthChecks:        checks,
	})

	// WriteTimeout stays zero: event streams are long-lived.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Server listening addr=:%s driver=%s", cfg.Port, cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return manager.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newRoadRouter(cfg config.Config) (ports.RoadRouter, error) {
	if cfg.RoutingProvider == "ors" {
		return ors.NewRouter(cfg.ORSURL, cfg.ORSAPIKey, cfg.ORSProfile)
	}
	return osrm.NewRouter(cfg.OSRMURL, cfg.OSRMProfile, cfg.NominatimUserAgent), nil
}

// sqlAdapters returns the booking source and the persistent caches for the
// configured driver.
func sqlAdapters(driver string, conn *sql.DB) (ports.BookingSource, ports.GeocodeCache, ports.LegCache) {
	if driver == db.DriverPostgres {
		return repositories.NewPostgresBookingRepository(conn),
			cache.NewSQLGeocodeCache(conn),
			cache.NewSQLDistanceCache(conn)
	}
	return repositories.NewSqliteBookingRepository(conn),
		cache.NewSqliteGeocodeCache(conn),
		cache.NewSqliteDistanceCache(conn)
}

func initAndSeed(conn *sql.DB, seedPath string) error {
	if err := repositories.InitSchema(conn); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	if _, err := os.Stat(seedPath); errors.Is(err, os.ErrNotExist) {
		log.Printf("seed file not found, skipping: path=%s", seedPath)
		return nil
	}
	if err := repositories.SeedFromJSON(conn, seedPath, "?"); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	return nil
}
