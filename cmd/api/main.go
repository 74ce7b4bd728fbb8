package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-sync/internal/catalog"
	"storefront-sync/internal/config"
	"storefront-sync/internal/db"
	"storefront-sync/internal/httpserver"
	"storefront-sync/internal/localcache"
	"storefront-sync/internal/logging"
	"storefront-sync/internal/metrics"
	"storefront-sync/internal/migrate"
	accountrepo "storefront-sync/internal/repository/account"
	addressrepo "storefront-sync/internal/repository/address"
	cartitemrepo "storefront-sync/internal/repository/cartitem"
	orderrepo "storefront-sync/internal/repository/order"
	sessionrepo "storefront-sync/internal/repository/session"
	cartsvc "storefront-sync/internal/service/cart"
	checkoutsvc "storefront-sync/internal/service/checkout"
	"storefront-sync/internal/service/identity"
	ordersvc "storefront-sync/internal/service/order"
	"storefront-sync/internal/service/session"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		logging.New("info", "text").WithError(err).Fatal("load config")
	}
	base := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger := base.WithField("component", "api")

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.WithError(err).Fatal("connect to db")
	}
	defer dbpool.Close()

	if cfg.AutoMigrate {
		if err := migrate.Apply(ctx, dbpool); err != nil {
			logger.WithError(err).Fatal("apply migrations")
		}
	}

	rdb, err := localcache.Connect(ctx, localcache.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.WithError(err).Fatal("connect to redis")
	}
	defer rdb.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	cache := localcache.NewRedis(rdb, cfg.CacheTTL, logger.WithField("component", "localcache"))
	lines := cartitemrepo.NewPostgres(dbpool)
	addresses := addressrepo.NewPostgres(dbpool, logger.WithField("component", "address"))
	orders := orderrepo.NewPostgres(dbpool)

	products, err := catalog.New(catalog.Options{
		BaseURL: cfg.CatalogBaseURL,
		Timeout: cfg.CatalogTimeout,
		Metrics: m,
		Logger:  logger.WithField("component", "catalog"),
	})
	if err != nil {
		logger.WithError(err).Fatal("init catalog client")
	}

	identitySvc := identity.New(
		accountrepo.NewPostgres(dbpool, logger.WithField("component", "account")),
		sessionrepo.NewPostgres(dbpool),
		identity.Options{
			Secret:     cfg.JWTSecret,
			SessionTTL: cfg.SessionTTL,
			Timeout:    cfg.RemoteTimeout,
			Logger:     logger.WithField("component", "identity"),
		},
	)

	sessions := session.NewManager(session.Deps{
		Identity: identitySvc,
		NewCart: func(sessionID string) *cartsvc.Cart {
			cartLog := logger.WithFields(logrus.Fields{"component": "cart", "session": sessionID})
			return cartsvc.New(cartsvc.Deps{
				Lines:     lines,
				Addresses: addresses,
				Local:     localcache.NewMirror(cache, sessionID, cartLog),
				Timeout:   cfg.RemoteTimeout,
				Metrics:   m,
				Logger:    cartLog,
			})
		},
		NewCheckout: func(c *cartsvc.Cart) *checkoutsvc.Orchestrator {
			return checkoutsvc.New(checkoutsvc.Deps{
				Cart:    c,
				Orders:  orders,
				Timeout: cfg.RemoteTimeout,
				Metrics: m,
				Logger:  logger.WithField("component", "checkout"),
			})
		},
		Metrics: m,
		Logger:  logger.WithField("component", "session"),
	})

	srv, err := httpserver.New(cfg.HTTPAddr, logger.WithField("component", "http"), httpserver.Deps{
		Sessions: sessions,
		Catalog:  products,
		Orders:   ordersvc.New(orders, cfg.RemoteTimeout),
		Metrics:  m,
		Gatherer: registry,
		Ready: []httpserver.ReadyCheck{
			{Name: "postgres", Ping: dbpool.Ping},
			{Name: "redis", Ping: cache.Ping},
		},
		CORSOrigins:     cfg.CORSOrigins,
		LoginRatePerMin: cfg.LoginRatePerMin,
	})
	if err != nil {
		logger.WithError(err).Fatal("init server")
	}

	pruneCtx, stopPrune := context.WithCancel(context.Background())
	defer stopPrune()
	go pruneSessions(pruneCtx, sessions, cfg.SessionIdle, logger)

	serverErr := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("starting http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.WithField("signal", sig.String()).Info("shutting down")
	case err := <-serverErr:
		logger.WithError(err).Error("server error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	} else {
		logger.Info("server stopped")
	}
}

// pruneSessions drops idle in-memory session handles until ctx ends.
func pruneSessions(ctx context.Context, sessions *session.Manager, idle time.Duration, logger logrus.FieldLogger) {
	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Prune(idle); n > 0 {
				logger.WithFields(logrus.Fields{"pruned": n, "live": sessions.Len()}).Debug("pruned idle sessions")
			}
		}
	}
}
