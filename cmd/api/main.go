package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"healthtrack/internal/app"
	"healthtrack/internal/config"
	"healthtrack/internal/database"
	"healthtrack/internal/pkg/logger"
	"healthtrack/internal/revocation"
)

const (
	connectAttempts = 5
	shutdownTimeout = 15 * time.Second
)

func main() {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			logrus.WithError(err).Fatal("failed to load .env")
		}
	}

	cfg, err := config.LoadAuthRuntimeConfig()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	log := logger.New(cfg.LogLevel, cfg.IsProduction())
	logrus.SetLevel(log.GetLevel())
	logrus.SetFormatter(log.Formatter)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectWithRetry(ctx, cfg.DatabaseURL, connectAttempts)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	if !database.IsPostgres(cfg.DatabaseURL) {
		// postgres schemas are managed by cmd/migrate
		if err := database.AutoMigrate(db); err != nil {
			log.WithError(err).Fatal("auto migrate failed")
		}
	}

	var rdb *redis.Client
	if cfg.NeedsRedis() {
		rdb, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("redis connection failed")
		}
		defer rdb.Close()
	}

	a, err := app.New(cfg, db, redisClient(rdb), app.Options{Logger: log})
	if err != nil {
		log.WithError(err).Fatal("failed to build application")
	}

	if a.Sweeper != nil {
		if err := a.Sweeper.Start(revocation.DefaultSweepSchedule); err != nil {
			log.WithError(err).Fatal("failed to start revocation sweeper")
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port":               cfg.Port,
			"env":                cfg.AppEnv,
			"revocation_backend": cfg.RevocationBackend,
			"ratelimit_backend":  cfg.RateLimitBackend,
		}).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown failed")
	}
	a.Close(shutdownCtx)

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("server stopped")
}

// redisClient avoids handing app.New a typed nil interface.
func redisClient(c *redis.Client) redis.UniversalClient {
	if c == nil {
		return nil
	}
	return c
}
