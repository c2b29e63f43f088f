package main

import (
	"context"
	"log"

	"atlas-grc/config"
	"atlas-grc/core/store"
	"atlas-grc/core/utils"
)

// Applies pending migrations and exits. Intended for deploy pipelines that
// migrate before rolling the service.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	logger := utils.NewLogger()
	db, err := store.NewDB(cfg, logger)
	if err != nil {
		logger.Fatalf("db init: %v", err)
	}
	defer db.Close()
	if err := store.ApplyMigrations(context.Background(), db, logger); err != nil {
		logger.Fatalf("migrations: %v", err)
	}
	logger.Printf("migrations applied")
}
