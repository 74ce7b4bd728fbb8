package main

import (
	"context"

	"storefront-sync/internal/config"
	"storefront-sync/internal/db"
	"storefront-sync/internal/logging"
	"storefront-sync/internal/migrate"
	accountrepo "storefront-sync/internal/repository/account"
	cartitemrepo "storefront-sync/internal/repository/cartitem"
	sessionrepo "storefront-sync/internal/repository/session"
	"storefront-sync/internal/seed"
	"storefront-sync/internal/service/identity"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		logging.New("info", "text").WithError(err).Fatal("load config")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat).WithField("component", "seed")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.WithError(err).Fatal("connect db")
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		logger.WithError(err).Fatal("apply migrations")
	}

	accounts := identity.New(accountrepo.NewPostgres(pool, logger), sessionrepo.NewPostgres(pool), identity.Options{
		Secret:  cfg.JWTSecret,
		Timeout: cfg.RemoteTimeout,
		Logger:  logger,
	})
	if err := seed.Apply(ctx, accounts, cartitemrepo.NewPostgres(pool), seed.DemoAccounts, logger); err != nil {
		logger.WithError(err).Fatal("seed apply")
	}
	logger.Info("seed applied")
}
