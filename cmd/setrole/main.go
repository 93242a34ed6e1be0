// Package main provides a CLI tool for setting account roles. With -password
// it also creates the account when missing, which bootstraps the first admin.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/knw/internal/config"
	"github.com/cory-johannsen/knw/internal/observability"
	"github.com/cory-johannsen/knw/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	username := flag.String("username", "", "target account username (required)")
	role := flag.String("role", "", "role to assign: player, gm, or admin (required)")
	password := flag.String("password", "", "create the account with this password when it does not exist")
	flag.Parse()

	if *username == "" || *role == "" {
		flag.Usage()
		os.Exit(1)
	}
	if !postgres.ValidRole(*role) {
		log.Fatalf("invalid role %q: must be one of player, gm, admin", *role)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logging, "setrole")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	defer pool.Close()

	repo := postgres.NewAccountRepository(pool.DB())

	acct, err := repo.GetByUsername(ctx, *username)
	switch {
	case err == nil:
	case errors.Is(err, postgres.ErrAccountNotFound) && *password != "":
		acct, err = repo.Create(ctx, *username, *password)
		if err != nil {
			logger.Fatal("creating account", zap.String("username", *username), zap.Error(err))
		}
		logger.Info("account created", zap.String("username", acct.Username), zap.Int64("id", acct.ID))
	default:
		logger.Fatal("looking up account", zap.String("username", *username), zap.Error(err))
	}

	if err := repo.SetRole(ctx, acct.ID, *role); err != nil {
		logger.Fatal("setting role", zap.Error(err))
	}

	logger.Info("role set",
		zap.String("username", acct.Username),
		zap.Int64("id", acct.ID),
		zap.String("from", acct.Role),
		zap.String("to", *role),
		zap.Duration("elapsed", time.Since(start)),
	)
}
