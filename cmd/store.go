package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/forks-fortunes/internal/model"
	"github.com/sells-group/forks-fortunes/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "forks.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func loadRegistry() (*model.CityRegistry, error) {
	return model.LoadCityRegistry(cfg.Analysis.CitiesFile)
}
