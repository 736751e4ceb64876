package main

import (
	"draw-service/internal/config"
	"draw-service/internal/database"
	"draw-service/internal/logger"
)

func main() {
	cfg := config.Load()
	logger.InitLogger(cfg.LogLevel)

	// Initialize Database
	database.Connect(cfg.DB)

	// Run Migrations
	logger.Info("Running database migrations...")
	database.Migrate()

	logger.Info("Migrations completed successfully!")
}
