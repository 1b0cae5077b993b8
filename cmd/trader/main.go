package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"bitstamp-trade-bot-go/internal/bitstamp"
	"bitstamp-trade-bot-go/internal/config"
	"bitstamp-trade-bot-go/internal/database"
	"bitstamp-trade-bot-go/internal/logger"
	"bitstamp-trade-bot-go/internal/pubsub"
	"bitstamp-trade-bot-go/internal/repository"
	"bitstamp-trade-bot-go/internal/trader"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database
	db, err := database.NewDatabase(&cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	account, err := database.EnsureAccount(db, &cfg.Bitstamp)
	if err != nil {
		log.Fatal("Failed to load trading account", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	// Initialize Bitstamp REST client
	client := bitstamp.NewClient(&cfg.Bitstamp, log)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Change stream + metrics endpoint
	hub := pubsub.NewHub(log)
	go hub.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Info("Serving websocket and metrics", zap.String("addr", cfg.Server.Addr))
		if err := http.ListenAndServe(cfg.Server.Addr, mux); err != nil {
			log.Error("HTTP server stopped", zap.Error(err))
		}
	}()

	// Initialize and run the watchers
	app := trader.NewApp(trader.Deps{
		Logger:  log,
		Cfg:     &cfg,
		Client:  client,
		Repo:    repository.New(db),
		Pub:     hub,
		Account: account,
	})
	if err := app.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("Trader stopped unexpectedly", zap.Error(err))
	}

	log.Info("Bot has been shut down.")
}
