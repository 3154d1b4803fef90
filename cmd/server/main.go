package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wtq-task-mining/internal/bot"
	"wtq-task-mining/internal/core"
	"wtq-task-mining/internal/jobs"
	"wtq-task-mining/internal/store"
	"wtq-task-mining/internal/web"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func main() {
	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err == nil {
		log.Info("Loaded configuration from .env")
	}

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if level, err := log.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		log.SetLevel(level)
	}

	dbPath := getEnv("DB_PATH", "wtq.db")
	port := getEnv("PORT", "8080")

	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		sessionSecret = "dev-secret-change-in-production"
		log.Warn("Using default session secret. Set SESSION_SECRET in production!")
	}

	log.Info("Initializing database...")
	db, err := store.NewStore(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	service := core.NewService(db)

	// Seed the first admin role so the panel is reachable on a fresh
	// database. The account must already exist.
	if adminEmail := os.Getenv("ADMIN_EMAIL"); adminEmail != "" {
		if err := service.EnsureAdmin(adminEmail); err != nil {
			log.Warnf("Failed to seed admin role: %v", err)
		}
	}

	log.Info("Initializing web server...")
	server, err := web.NewServer(service, sessionSecret)
	if err != nil {
		log.Fatalf("Failed to initialize web server: %v", err)
	}

	// Telegram bot is optional
	var telegramBot *bot.Bot
	if botToken := os.Getenv("TELEGRAM_BOT_TOKEN"); botToken != "" {
		telegramBot, err = bot.NewBot(botToken, service, db, os.Getenv("TELEGRAM_ADMIN_KEY"))
		if err != nil {
			log.Warnf("Failed to initialize Telegram bot: %v", err)
			log.Warn("Continuing without Telegram bot...")
			telegramBot = nil
		} else {
			service.SetNotifier(telegramBot)
			go telegramBot.Start()
		}
	} else {
		log.Info("TELEGRAM_BOT_TOKEN not set, Telegram bot will not be started")
	}

	scheduler, err := jobs.NewScheduler(db)
	if err != nil {
		log.Fatalf("Failed to initialize scheduler: %v", err)
	}
	scheduler.Start()

	addr := ":" + port
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("🚀 Server starting on http://localhost:%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Infof("Received signal %v, initiating graceful shutdown...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Error during server shutdown: %v", err)
	}
	scheduler.Stop()
	if telegramBot != nil {
		telegramBot.Stop()
	}

	log.Info("Shutdown complete")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
