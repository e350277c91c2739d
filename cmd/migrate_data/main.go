package main

import (
	"context"
	"flag"
	"os"

	"sms-gateway/internal/config"
	"sms-gateway/internal/database"
	"sms-gateway/internal/logging"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
)

// migrate_data copies templates and message records from a SQLite file into
// the PostgreSQL database described by the DB_* settings.
func main() {
	cfg := config.Read()
	log := logging.New(cfg.LogLevel, cfg.LogJSON)

	from := flag.String("from", cfg.DBPath, "source SQLite database file")
	flag.Parse()

	if cfg.DBHost == "" || cfg.DBName == "" {
		log.Fatal().Msg("DB_HOST and DB_NAME must point at the PostgreSQL destination")
	}
	if _, err := os.Stat(*from); err != nil {
		log.Fatal().Err(err).Str("path", *from).Msg("source database not readable")
	}

	// 1. Connect to SQLite (Source)
	sqliteDB, err := database.Open(sqlite.Open(*from), log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to SQLite")
	}
	defer database.Close(sqliteDB)
	log.Info().Str("path", *from).Msg("connected to SQLite")

	// 2. Connect to PostgreSQL (Destination)
	pgDB, err := database.Open(postgres.Open(database.PostgresDSN(cfg)), log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
	}
	defer database.Close(pgDB)

	log.Info().Msg("starting data migration")
	report, err := database.Copy(context.Background(), sqliteDB, pgDB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	log.Info().
		Int64("templates", report.Templates).
		Int64("messages", report.Messages).
		Msg("migration completed")
}
