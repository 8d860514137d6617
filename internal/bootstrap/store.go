// Package bootstrap opens the storage backend named by the configuration.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/evn/pos_backend/config"
	"github.com/evn/pos_backend/db"
	"github.com/evn/pos_backend/internal/repositories"
	"github.com/evn/pos_backend/internal/store"
	"github.com/evn/pos_backend/internal/store/memory"
	"github.com/evn/pos_backend/internal/store/mongo"
)

// OpenStore connects to the backend selected by cfg.StoreDriver.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		conn, err := db.InitDB(cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		return repositories.NewStore(conn), nil
	case config.DriverMongo:
		st, err := mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.DriverMemory:
		config.GetLogger().Warn("using in-memory store; data is lost on restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}
