package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"

	"draw-service/internal/app"
	"draw-service/internal/config"
	"draw-service/internal/database"
	"draw-service/internal/logger"
	"draw-service/internal/services"
	"draw-service/internal/worker"
)

func main() {
	cfg := config.Load()
	logger.InitLogger(cfg.LogLevel)

	// Connect DB
	database.Connect(cfg.DB)
	db := database.DB

	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		logger.Fatalf("Invalid NODE_ID: %v", err)
	}

	// Redis
	rdb := app.RedisClient(cfg)
	defer rdb.Close()
	asynqClient := asynq.NewClient(app.AsynqRedisOpt(cfg))
	defer asynqClient.Close()

	locks := services.NewRedisLocker(rdb, cfg.Lock.TTL)
	svc := app.NewServices(db, locks, node, worker.NewDispatcher(asynqClient), app.RulesFromConfig(cfg))

	logger.Info("Starting Asynq Worker...")
	worker.StartWorker(app.AsynqRedisOpt(cfg), worker.NewWorker(svc.Draws), 10)
}
