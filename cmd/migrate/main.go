// Command migrate applies or rolls back the Postgres schema of the state store.
package main

import (
	"database/sql"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"musicfree/internal/logging"
	"musicfree/internal/store"
)

func main() {
	logging.SetGlobalLogger(logging.New(logging.Config{Level: "info", Format: "text"}))

	if len(os.Args) != 2 || (os.Args[1] != string(store.Up) && os.Args[1] != string(store.Down)) {
		log.Fatal().Msg("usage: migrate [up|down]")
	}
	_ = godotenv.Load("config/local.env")

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := store.Migrate(db, store.Direction(os.Args[1])); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
}
