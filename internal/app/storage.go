package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-chi/httplog/v2"
	"github.com/vadimbarashkov/url-registry/internal/config"
	"github.com/vadimbarashkov/url-registry/internal/entity"
	"github.com/vadimbarashkov/url-registry/migrations"
	"github.com/vadimbarashkov/url-registry/pkg/mongodb"
	"github.com/vadimbarashkov/url-registry/pkg/postgres"

	mongoRepo "github.com/vadimbarashkov/url-registry/internal/adapter/repository/mongodb"
	postgresRepo "github.com/vadimbarashkov/url-registry/internal/adapter/repository/postgres"
)

type urlRepository interface {
	Save(ctx context.Context, url *entity.URL) (*entity.URL, error)
	FindByShortURL(ctx context.Context, shortURL string) (*entity.URL, error)
	IncrementClicks(ctx context.Context, shortURL string) (*entity.URL, error)
}

type storage struct {
	urlRepo urlRepository
	close   func(ctx context.Context) error
}

// openStorage connects to the configured driver and brings its schema up to date.
func openStorage(ctx context.Context, cfg *config.Config, logger *httplog.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverMongo:
		return openMongo(ctx, cfg.Mongo, logger)
	case config.DriverPostgres:
		return openPostgres(ctx, cfg.Postgres, logger)
	default:
		return nil, fmt.Errorf("app.openStorage: %w: %q", config.ErrUnknownStorageDriver, cfg.Storage.Driver)
	}
}

func openMongo(ctx context.Context, cfg config.Mongo, logger *httplog.Logger) (*storage, error) {
	const op = "app.openMongo"

	client, err := mongodb.New(
		ctx,
		cfg.URI,
		mongodb.WithConnectTimeout(cfg.ConnectTimeout),
		mongodb.WithMaxConnIdleTime(cfg.MaxConnIdleTime),
		mongodb.WithMaxPoolSize(cfg.MaxPoolSize),
		mongodb.WithMinPoolSize(cfg.MinPoolSize),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect to mongo: %w", op, err)
	}

	repo := mongoRepo.NewURLRepository(client.Database(cfg.Database).Collection(cfg.Collection))

	if err := repo.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%s: failed to ensure indexes: %w", op, err)
	}

	logger.Info("mongo storage ready",
		slog.String("database", cfg.Database),
		slog.String("collection", cfg.Collection),
	)

	return &storage{
		urlRepo: repo,
		close:   client.Disconnect,
	}, nil
}

func openPostgres(ctx context.Context, cfg config.Postgres, logger *httplog.Logger) (*storage, error) {
	const op = "app.openPostgres"

	db, err := postgres.New(
		ctx,
		cfg.DSN(),
		postgres.WithConnMaxIdleTime(cfg.ConnMaxIdleTime),
		postgres.WithConnMaxLifetime(cfg.ConnMaxLifetime),
		postgres.WithMaxIdleConns(cfg.MaxIdleConns),
		postgres.WithMaxOpenConns(cfg.MaxOpenConns),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect to postgres: %w", op, err)
	}

	version, err := postgres.Migrate(migrations.FS, cfg.DSN())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	logger.Info("postgres storage ready", slog.Uint64("schema_version", uint64(version)))

	return &storage{
		urlRepo: postgresRepo.NewURLRepository(db),
		close: func(context.Context) error {
			return db.Close()
		},
	}, nil
}
