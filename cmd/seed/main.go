package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"healthtrack/internal/database"
	"healthtrack/internal/domain"
	"healthtrack/internal/repository"
)

type options struct {
	username string
	email    string
	password string
	reset    bool
}

func main() {
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.username, "username", "kavin", "sample username")
	flag.StringVar(&opts.email, "email", "kavin@example.com", "sample email")
	flag.StringVar(&opts.password, "password", "Kavin@123", "sample password")
	flag.BoolVar(&opts.reset, "reset", false, "reset the password of an existing user instead of creating one")
	flag.Parse()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "healthtrack.db"
	}

	db, err := database.Connect(dsn)
	if err != nil {
		log.WithError(err).Fatal("DB connection failed")
	}
	if !database.IsPostgres(dsn) {
		if err := database.AutoMigrate(db); err != nil {
			log.WithError(err).Fatal("AutoMigrate failed")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := run(ctx, repository.NewUserRepository(db), opts, log.StandardLogger()); err != nil {
		log.WithError(err).Fatal("seed failed")
	}
}

// run creates the sample user, or resets its password when opts.reset is set.
// An existing user is left alone on create.
func run(ctx context.Context, users *repository.UserRepository, opts options, logger log.FieldLogger) error {
	existing, err := users.FindByUsername(ctx, opts.username)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("lookup: %w", err)
	}

	if opts.reset {
		if existing == nil {
			return fmt.Errorf("user %q not found", opts.username)
		}
		hash, err := users.HashPassword(opts.password)
		if err != nil {
			return fmt.Errorf("hash: %w", err)
		}
		if err := users.UpdatePassword(ctx, existing.ID, hash); err != nil {
			return fmt.Errorf("password reset: %w", err)
		}
		logger.WithField("username", opts.username).Info("password has been reset")
		return nil
	}

	if existing != nil {
		logger.WithField("username", opts.username).Info("user already exists")
		return nil
	}

	hash, err := users.HashPassword(opts.password)
	if err != nil {
		return fmt.Errorf("hash: %w", err)
	}

	height, weight := 178.0, 72.0
	user := &domain.User{Username: opts.username, Email: opts.email, PasswordHash: hash}
	profile := &domain.Profile{
		FirstName:          "Kavin",
		LastName:           "Sample",
		DateOfBirth:        time.Date(1995, time.June, 15, 0, 0, 0, 0, time.UTC),
		Gender:             domain.GenderMale,
		Height:             &height,
		Weight:             &weight,
		BloodType:          "O+",
		MedicalConditions:  []string{},
		Allergies:          []string{},
		CurrentMedications: []string{},
	}

	if err := users.Create(ctx, user, profile); err != nil {
		return fmt.Errorf("create sample user: %w", err)
	}

	logger.WithFields(log.Fields{
		"username": opts.username,
		"email":    opts.email,
	}).Info("sample user created")
	return nil
}
