// Package config reads service settings from the environment.
// A .env file, when present, is loaded by the cmd entry points via godotenv
// before Load is called.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every setting the service reads at startup.
type Config struct {
	Port string

	DBDriver    string
	DBPath      string
	DatabaseURL string
	SeedPath    string

	DepotAddress          string
	DefaultInstallMinutes int

	NominatimURL          string
	NominatimUserAgent    string
	NominatimEmail        string
	NominatimCountryCodes string
	GeocodeMinInterval    time.Duration

	RoutingProvider string
	OSRMURL         string
	OSRMProfile     string
	ORSURL          string
	ORSAPIKey       string
	ORSProfile      string

	RedisURL        string
	GeocodeCacheTTL time.Duration

	SessionRetention time.Duration
}

// Load builds a Config from the environment, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:                  Get("PORT", "8080"),
		DBDriver:              Get("DB_DRIVER", "sqlite"),
		DBPath:                Get("DB_PATH", "data/app.db"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		SeedPath:              Get("SEED_PATH", "data/seeds/bookings.json"),
		DepotAddress:          os.Getenv("DEPOT_ADDRESS"),
		NominatimURL:          Get("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		NominatimUserAgent:    os.Getenv("NOMINATIM_USER_AGENT"),
		NominatimEmail:        os.Getenv("NOMINATIM_EMAIL"),
		NominatimCountryCodes: os.Getenv("NOMINATIM_COUNTRY_CODES"),
		RoutingProvider:       Get("ROUTING_PROVIDER", "osrm"),
		OSRMURL:               Get("OSRM_URL", "https://router.project-osrm.org"),
		OSRMProfile:           Get("OSRM_PROFILE", "driving"),
		ORSURL:                Get("ORS_URL", "https://api.openrouteservice.org"),
		ORSAPIKey:             os.Getenv("ORS_API_KEY"),
		ORSProfile:            Get("ORS_PROFILE", "driving-car"),
		RedisURL:              os.Getenv("REDIS_URL"),
	}

	var err error
	if cfg.DefaultInstallMinutes, err = GetInt("DEFAULT_INSTALL_MINUTES", 30); err != nil {
		return Config{}, err
	}
	if cfg.GeocodeMinInterval, err = GetDuration("GEOCODE_MIN_INTERVAL", time.Second); err != nil {
		return Config{}, err
	}
	if cfg.GeocodeCacheTTL, err = GetDuration("GEOCODE_CACHE_TTL", 30*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.SessionRetention, err = GetDuration("SESSION_RETENTION", 30*time.Minute); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that have no usable default.
func (c Config) Validate() error {
	if strings.TrimSpace(c.NominatimUserAgent) == "" {
		return fmt.Errorf("config: NOMINATIM_USER_AGENT is required by the geocoding provider policy")
	}

	switch c.DBDriver {
	case "sqlite":
		if strings.TrimSpace(c.DBPath) == "" {
			return fmt.Errorf("config: DB_PATH is required for the sqlite driver")
		}
	case "pgx":
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("config: DATABASE_URL is required for the pgx driver")
		}
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.DBDriver)
	}

	switch c.RoutingProvider {
	case "osrm":
	case "ors":
		if strings.TrimSpace(c.ORSAPIKey) == "" {
			return fmt.Errorf("config: ORS_API_KEY is required for the ors routing provider")
		}
	default:
		return fmt.Errorf("config: unsupported ROUTING_PROVIDER %q", c.RoutingProvider)
	}

	if c.GeocodeMinInterval < 0 {
		return fmt.Errorf("config: GEOCODE_MIN_INTERVAL must not be negative")
	}
	return nil
}

// DSN returns the data source name for the configured driver.
func (c Config) DSN() string {
	if c.DBDriver == "pgx" {
		return c.DatabaseURL
	}
	return c.DBPath
}

// Get returns the environment value for key, or fallback when unset or empty.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func GetInt(key string, fallback int) (int, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func GetDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
