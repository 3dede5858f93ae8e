// Command migrate applies the database schema for the backend.
package main

import (
	"flag"
	"fmt"
	"log"

	"codegardener/internal/config"
	"codegardener/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dryRun := flag.Bool("dry-run", false, "connect and report without applying the schema")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	if *dryRun {
		log.Printf("connected to %s/%s, schema not applied", cfg.DBHost, cfg.DBName)
		return nil
	}

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	log.Println("schema applied")
	return nil
}
