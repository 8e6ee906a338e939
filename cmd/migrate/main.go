package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"healthtrack/internal/database"
)

func main() {
	_ = godotenv.Load()

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: migrate [up|down|status|version|redo|reset|up-to N|down-to N]\n")
	}
	flag.Parse()

	command := "up"
	args := flag.Args()
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := database.Connect(dsn)
	if err != nil {
		log.WithError(err).Fatal("db connect failed")
	}

	if err := database.Migrate(context.Background(), db, command, args...); err != nil {
		log.WithError(err).Fatal("migration failed")
	}
	log.WithField("command", command).Info("migration completed")
}
