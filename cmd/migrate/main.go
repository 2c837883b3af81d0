package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/migrations"
	"github.com/jwalitptl/clinic-api/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: migrate [-config path] up|down|version|force <version>\n")
	}
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.NewLogger(&logger.Config{Level: logger.ParseLevel(cfg.Log.Level), Format: cfg.Log.Format}).SetGlobal()

	db, err := sqlx.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	dbDriver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create database driver")
	}
	srcDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create source driver")
	}
	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create migrator")
	}
	defer func() { _, _ = m.Close() }()

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "up"
	}

	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	case "version":
		version, dirty, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			log.Fatal().Err(verr).Msg("failed to read version")
		}
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("schema version")
		return
	case "force":
		var version int
		if _, serr := fmt.Sscanf(flag.Arg(1), "%d", &version); serr != nil {
			log.Fatal().Err(serr).Msg("force needs a numeric version")
		}
		err = m.Force(version)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal().Err(err).Str("command", cmd).Msg("migration failed")
	}
	log.Info().Str("command", cmd).Msg("migrations complete")
}
