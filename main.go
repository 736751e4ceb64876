package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/rs/cors"

	"draw-service/internal/app"
	"draw-service/internal/config"
	"draw-service/internal/database"
	grpcServer "draw-service/internal/grpc"
	"draw-service/internal/handlers"
	"draw-service/internal/logger"
	"draw-service/internal/services"
	"draw-service/internal/worker"
)

func main() {
	cfg := config.Load()
	logger.InitLogger(cfg.LogLevel)

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	// Initialize Database
	database.Connect(cfg.DB)
	database.Migrate()
	db := database.DB

	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		logger.Fatalf("Invalid NODE_ID: %v", err)
	}

	// Redis/Asynq Client
	rdb := app.RedisClient(cfg)
	defer rdb.Close()
	asynqClient := asynq.NewClient(app.AsynqRedisOpt(cfg))
	defer asynqClient.Close()

	locks := services.NewRedisLocker(rdb, cfg.Lock.TTL)
	dispatcher := worker.NewDispatcher(asynqClient)
	svc := app.NewServices(db, locks, node, dispatcher, app.RulesFromConfig(cfg))

	// Health and scanner
	health := grpcServer.NewHealthServer()
	go grpcServer.StartGRPCServer(cfg.Server.GRPCPort, grpcServer.NewServer(health))

	scanner := services.NewDrawScanner(svc.Draws, dispatcher, cfg.Draw.ScanInterval, cfg.Draw.ScanMaxBackoff)
	scanner.OnHealthChange = grpcServer.ScannerHealthHook(health)
	if err := scanner.Start(); err != nil {
		logger.Fatalf("Failed to start draw scanner: %v", err)
	}
	defer scanner.Stop()

	router := handlers.NewRouter(&handlers.Handler{
		Users:   svc.Users,
		Ledger:  svc.Ledger,
		Entries: svc.Entries,
		Draws:   svc.Draws,
		Claims:  svc.Claims,
		Tasks:   svc.Tasks,
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", handlers.HeaderUserID, handlers.HeaderUserRole},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           corsHandler.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("HTTP Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("HTTP shutdown: %v", err)
	}
}
