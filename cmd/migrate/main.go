// migrate applies or rolls back the embedded schema migrations.
//
// Usage:
//
//	go run ./cmd/migrate up
//	go run ./cmd/migrate down [steps]
//	go run ./cmd/migrate version
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/config"
	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := config.NewLogger(cfg.LogLevel)
	dbURL := cfg.Database.ConnString()

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "up":
		version, err := db.MigrateUp(dbURL)
		if err != nil {
			logger.WithError(err).Fatal("migrate up")
		}
		logger.WithField("version", version).Info("schema is up to date")

	case "down":
		steps := 1
		if len(os.Args) > 2 {
			if steps, err = strconv.Atoi(os.Args[2]); err != nil {
				log.Fatalf("invalid steps %q", os.Args[2])
			}
		}
		if err := db.MigrateDown(dbURL, steps); err != nil {
			logger.WithError(err).Fatal("migrate down")
		}
		logger.WithField("steps", steps).Info("rolled back")

	case "version":
		version, dirty, err := db.MigrationVersion(dbURL)
		if err != nil {
			logger.WithError(err).Fatal("migrate version")
		}
		fmt.Printf("version %d dirty=%t\n", version, dirty)
		if dirty {
			os.Exit(1)
		}

	default:
		log.Fatalf("unknown command %q (want up, down or version)", cmd)
	}
}
