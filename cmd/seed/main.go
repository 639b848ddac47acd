// Command seed fills the development database with demo accounts and papers.
package main

import (
	"flag"
	"log"

	"paperflow/internal/config"
	"paperflow/internal/database"
	"paperflow/internal/seed"
)

func main() {
	var (
		papers  = flag.Int("papers", 12, "number of demo concept papers")
		advance = flag.Bool("advance", true, "randomly advance papers through their stages")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Env == "production" || cfg.Env == "prod" {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.Run(db, seed.Options{Papers: *papers, Advance: *advance}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
