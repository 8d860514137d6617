package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/evn/pos_backend/config"
	"github.com/evn/pos_backend/internal/bootstrap"
	"github.com/evn/pos_backend/internal/ledger"
	"github.com/evn/pos_backend/internal/routes"
	"github.com/evn/pos_backend/internal/services/events"
	"github.com/evn/pos_backend/internal/services/lock"
	"github.com/evn/pos_backend/internal/services/sheets"
)

func main() {
	cfg := config.NewConfig()
	config.SetLogLevel(cfg.LogLevel)
	logger := config.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		logger.WithError(err).WithField("driver", cfg.StoreDriver).Fatal("failed to open store")
	}
	defer st.Close()

	if cfg.SkipMigrations {
		logger.Warn("SKIP_MIGRATIONS=true; skipping migrations on startup")
	} else if err := st.Migrate(ctx); err != nil {
		logger.WithError(err).Fatal("migration failed")
	}

	hub := events.NewHub()
	go hub.Run(ctx)

	opts := []ledger.Option{
		ledger.WithLogger(logger),
		ledger.WithHistoryLimit(cfg.HistoryDefaultLimit),
	}

	redisClient := config.NewRedisClient(cfg)
	if redisClient != nil {
		defer redisClient.Close()
		opts = append(opts,
			ledger.WithLocker(lock.NewRedisLocker(redisClient, cfg.OpenLockTTL)),
			ledger.WithPublisher(events.NewRedisPublisher(redisClient)),
		)
		go func() {
			if err := events.Relay(ctx, redisClient, hub); err != nil {
				config.LogError(logger, "main", "Relay", "redis relay stopped", nil, err)
			}
		}()
	} else {
		opts = append(opts, ledger.WithPublisher(hub))
	}

	svc := ledger.NewService(st, opts...)

	router := routes.Setup(cfg, routes.Deps{
		Store:  st,
		Ledger: svc,
		Hub:    hub,
		Sheets: sheets.NewReader(cfg.GoogleCredentialsFile),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"addr":   srv.Addr,
			"driver": cfg.StoreDriver,
			"redis":  redisClient != nil,
		}).Info("server starting")
		serverErrCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("server shutdown")
		}
		logger.Info("server stopped")
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("server failed")
		}
	}
}
