// Package app assembles the query pipeline shared by the HTTP API and the
// MCP server from a loaded config.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sqlagent/sqlagent/internal/archive"
	"github.com/sqlagent/sqlagent/internal/catalog"
	"github.com/sqlagent/sqlagent/internal/config"
	"github.com/sqlagent/sqlagent/internal/database"
	"github.com/sqlagent/sqlagent/internal/dialect"
	"github.com/sqlagent/sqlagent/internal/nl2sql"
	"github.com/sqlagent/sqlagent/internal/nlq"
	"github.com/sqlagent/sqlagent/internal/query"
	"github.com/sqlagent/sqlagent/internal/query/sqlengine"
	s3store "github.com/sqlagent/sqlagent/internal/storage/s3"
)

type App struct {
	Pool    *database.Pool
	Query   *query.Service
	Archive *archive.Archiver
	Objects *s3store.Store
}

// Readiness probes the database and, when archiving is enabled, the bucket.
func (a *App) Readiness(ctx context.Context) error {
	if err := a.Pool.HealthCheck(ctx); err != nil {
		return err
	}
	if a.Objects != nil {
		return a.Objects.HealthCheck(ctx)
	}
	return nil
}

func (a *App) Close() error {
	return a.Pool.Close()
}

func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d, err := dialect.Lookup(cfg.Database.Backend)
	if err != nil {
		return nil, err
	}

	translator, err := newTranslator(cfg.AI)
	if err != nil {
		return nil, err
	}
	planner, err := nlq.NewPlanner(PlannerConfig(cfg.Planner), translator, logger)
	if err != nil {
		return nil, err
	}

	var objects *s3store.Store
	var archiver *archive.Archiver
	if cfg.Archive.Enabled {
		objects, err = s3store.New(ctx, s3store.Config{
			Endpoint:         cfg.Archive.Endpoint,
			Region:           cfg.Archive.Region,
			Bucket:           cfg.Archive.Bucket,
			AccessKeyID:      cfg.Archive.AccessKeyID,
			SecretAccessKey:  cfg.Archive.SecretAccessKey,
			UseSSL:           cfg.Archive.UseSSL,
			Prefix:           cfg.Archive.Prefix,
			AutoCreateBucket: cfg.Archive.AutoCreateBucket,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize result archive: %w", err)
		}
		archiver, err = archive.New(objects, logger)
		if err != nil {
			return nil, err
		}
	}

	var cache *catalog.Cache
	if cfg.SchemaCache.Enabled {
		cache = catalog.NewCache(cfg.SchemaCache.SizeBytes, cfg.SchemaCache.TTL)
	}

	db, err := database.Open(ctx, database.DBConfig{
		Dialect: d,
		DSN:     cfg.Database.DSN,
		Params: dialect.ConnParams{
			Host:                   cfg.Database.Host,
			Port:                   cfg.Database.Port,
			Database:               cfg.Database.Name,
			User:                   cfg.Database.User,
			Password:               cfg.Database.Password,
			TrustServerCertificate: cfg.Database.TrustServerCertificate,
			ConnectTimeout:         cfg.Database.ConnectTimeout,
		},
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		PingTimeout:     cfg.Database.ConnectTimeout,
	})
	if err != nil {
		return nil, err
	}
	pool := database.NewPool(db, d)

	svcCfg := query.ServiceConfig{
		Connector:   pool,
		Engine:      sqlengine.NewEngine(cfg.Query.MaxRows),
		Planner:     planner,
		SchemaCache: cache,
		Timeout:     cfg.Query.Timeout,
		Logger:      logger,
	}
	if archiver != nil {
		svcCfg.Archiver = archiver
	}
	svc, err := query.NewService(svcCfg)
	if err != nil {
		_ = pool.Close()
		return nil, err
	}

	logger.Info("query pipeline ready",
		slog.String("backend", d.Name()),
		slog.String("planner_mode", string(planner.Mode())),
		slog.Bool("schema_cache", cache != nil),
		slog.Bool("archive", archiver != nil),
	)
	return &App{Pool: pool, Query: svc, Archive: archiver, Objects: objects}, nil
}

// PlannerConfig maps the planner section of the service config.
func PlannerConfig(cfg config.PlannerConfig) nlq.PlannerConfig {
	return nlq.PlannerConfig{
		Mode:            nlq.Mode(cfg.Mode),
		RestrictOrderBy: cfg.OrderByAllowList,
		SearchColumn:    cfg.SearchColumn,
		SampleData:      cfg.SampleData,
	}
}

func newTranslator(cfg config.AIConfig) (nl2sql.Translator, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	translator, err := nl2sql.NewOpenAITranslator(nl2sql.OpenAIConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize query translator: %w", err)
	}
	return translator, nil
}
