// Command seed populates the database with generated development data.
package main

import (
	"flag"
	"fmt"
	"log"

	"codegardener/internal/config"
	"codegardener/internal/database"
	"codegardener/internal/seed"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	numUsers := flag.Int("users", 20, "number of users to create")
	numPosts := flag.Int("posts", 50, "number of posts to create")
	clean := flag.Bool("clean", false, "delete existing data before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.Env == "production" || cfg.Env == "prod" {
		return fmt.Errorf("refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	seeder := seed.NewSeeder(db)
	return seeder.Seed(seed.Options{
		NumUsers:    *numUsers,
		NumPosts:    *numPosts,
		ShouldClean: *clean,
	})
}
