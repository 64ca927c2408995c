// Package cmd holds the furnishop command line: the API server and its
// maintenance commands.
package cmd

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"furnishop-backend/config"
	"furnishop-backend/database"
	"furnishop-backend/internal/logging"
	"furnishop-backend/internal/services"
)

// NewApp builds the command line application
func NewApp() *cli.App {
	return &cli.App{
		Name:  "furnishop",
		Usage: "FurniShop storefront backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "dotenv file to load before reading the environment",
				Value: ".env",
			},
		},
		// Running without a subcommand starts the server
		Action: runServe,
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			createAdminCommand(),
			seedCommand(),
			checkStorageCommand(),
		},
	}
}

// runtime is what every command needs before it can do work
type runtime struct {
	cfg    *config.Config
	logger *logrus.Logger
	db     *sqlx.DB
}

func (r *runtime) Close() {
	if r.db != nil {
		r.db.Close()
	}
}

// loadConfig reads the dotenv file, then the environment
func loadConfig(c *cli.Context) (*config.Config, *logrus.Logger, error) {
	envFile := c.String("env-file")
	if err := godotenv.Load(envFile); err != nil {
		logrus.WithField("file", envFile).Debug("no env file found, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, errors.Wrap(err, "invalid configuration")
	}

	return cfg, logging.New(cfg.LogLevel, cfg.LogFormat), nil
}

// bootstrap loads configuration and opens a migrated database
func bootstrap(c *cli.Context) (*runtime, error) {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	db, err := database.Initialize(cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &runtime{cfg: cfg, logger: logger, db: db}, nil
}

// openObjectStore connects to GCS when a bucket is configured and falls
// back to an in-process store otherwise
func openObjectStore(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (services.ObjectStore, func(), error) {
	if cfg.GCSBucket == "" {
		logger.Warn("GCS_BUCKET not set, assets are kept in memory and lost on restart")
		return services.NewMemoryStore("local"), func() {}, nil
	}

	store, err := services.NewGCSStore(ctx, services.GCSConfig{
		Bucket:          cfg.GCSBucket,
		PublicBaseURL:   cfg.GCSPublicBaseURL,
		CredentialsFile: cfg.GCSCredentialsFile,
		SignerEmail:     cfg.GCSSignerEmail,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { store.Close() }, nil
}

// openCache connects to Redis when configured. A cache that cannot be
// reached is logged and replaced by no cache at all.
func openCache(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (services.CatalogCache, func()) {
	if cfg.RedisURL == "" {
		return services.NoopCache{}, func() {}
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cache, err := services.NewRedisCache(ctx, cfg.RedisURL, cfg.CacheTTL, logger)
	if err != nil {
		logger.WithError(err).Warn("catalog cache disabled")
		return services.NoopCache{}, func() {}
	}
	return cache, func() { cache.Close() }
}
