package main

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"route-planner-service/internal/adapters/repositories"
	"route-planner-service/internal/config"
	"route-planner-service/internal/platform/db"
)

var (
	driver   string
	seedPath string
)

var rootCmd = &cobra.Command{
	Use:           "dbtool",
	Short:         "Prepare the booking database",
	SilenceUsage:  true,
	SilenceErrors: false,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the bookings table and the geocode/distance caches",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(conn *sql.DB) error {
			log.Println("Initializing database schema...")
			if err := repositories.InitSchema(conn); err != nil {
				return err
			}
			log.Println("Schema ready.")
			return nil
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the schema if needed and load bookings from a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(conn *sql.DB) error {
			if err := repositories.InitSchema(conn); err != nil {
				return err
			}

			log.Printf("Seeding database... path=%s", seedPath)
			if err := repositories.SeedFromJSON(conn, seedPath, placeholderFor(driver)); err != nil {
				return err
			}
			log.Println("Seeding complete.")
			return nil
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&driver, "driver", "d", config.Get("DB_DRIVER", db.DriverSQLite), "database driver (sqlite or pgx)")
	seedCmd.Flags().StringVarP(&seedPath, "file", "f", config.Get("SEED_PATH", "data/seeds/bookings.json"), "bookings seed file")

	rootCmd.AddCommand(initCmd, seedCmd)
}

func withDB(fn func(conn *sql.DB) error) error {
	dsn, err := dsnFor(driver)
	if err != nil {
		return err
	}

	conn, err := db.Open(driver, dsn)
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(conn)
}

func dsnFor(driver string) (string, error) {
	switch driver {
	case db.DriverSQLite:
		return config.Get("DB_PATH", "data/app.db"), nil
	case db.DriverPostgres:
		dsn := config.Get("DATABASE_URL", "")
		if dsn == "" {
			return "", fmt.Errorf("dbtool: DATABASE_URL is required for the %s driver", driver)
		}
		return dsn, nil
	default:
		return "", fmt.Errorf("dbtool: unsupported driver %q", driver)
	}
}

// placeholderFor returns the bind style SeedFromJSON expects for driver.
func placeholderFor(driver string) string {
	if driver == db.DriverPostgres {
		return "$"
	}
	return "?"
}
