package main

import (
	"context"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"datalyst/adapters/postgres"
	"datalyst/internal"
	"datalyst/internal/config"
	"datalyst/internal/errors"
	"datalyst/ports"
	"datalyst/ui"
)

// initDatabase initializes the PostgreSQL profile store connection
func initDatabase(appConfig *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	// Create the runs table if this is a fresh database
	if err := postgres.Bootstrap(context.Background(), db); err != nil {
		return nil, errors.Wrap(err, "database bootstrap failed")
	}

	return db, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load application configuration
	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.NewDefaultLogger()

	// The store is optional: without DATABASE_URL the API still serves
	// health checks, and store-backed routes answer 503.
	var store ports.ProfileStore
	if appConfig.Database.URL != "" {
		db, err := initDatabase(appConfig)
		if err != nil {
			log.Fatal("Failed to initialize database:", err)
		}
		defer db.Close()
		store = postgres.NewProfileStore(db)
	} else {
		logger.Warn("DATABASE_URL not set; profile routes will return 503")
	}

	// Start the server
	server := ui.NewServer(store, logger)
	log.Printf("🚀 Starting datalyst API server on port %s", appConfig.Server.Port)
	log.Fatal(server.Start(":" + appConfig.Server.Port))
}
