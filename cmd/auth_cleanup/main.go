package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"healthtrack/internal/database"
	"healthtrack/internal/repository"
	"healthtrack/internal/revocation"
)

// One-shot purge of revocation records past retention. The redis backend
// expires its keys on its own and needs no cleanup.
func main() {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := database.Connect(databaseURL)
	if err != nil {
		log.WithError(err).Fatal("db connect failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	repo := repository.NewRevokedTokenRepository(db, revocation.Retention)
	removed, err := revocation.NewSweeper(repo, revocation.Retention, log.StandardLogger()).RunOnce(ctx)
	if err != nil {
		log.WithError(err).Fatal("cleanup revoked_tokens failed")
	}

	log.WithField("revoked_tokens", removed).Info("auth cleanup completed")
}
