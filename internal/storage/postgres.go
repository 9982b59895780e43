package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/JonMunkholm/talentmetrics/internal/config"
	"github.com/JonMunkholm/talentmetrics/internal/core"
	"github.com/JonMunkholm/talentmetrics/internal/logging"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresGateway stores record sets with the COPY protocol.
type PostgresGateway struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects a pool configured from cfg and verifies it.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig) (*PostgresGateway, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger := logging.FromContext(ctx)
	if u, err := url.Parse(cfg.URL); err == nil {
		logger.Info("connected to database", "driver", DriverPostgres, "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		logger.Info("connected to database", "driver", DriverPostgres)
	}

	return &PostgresGateway{pool: pool}, nil
}

// NewPostgresGateway wraps an existing pool.
func NewPostgresGateway(pool *pgxpool.Pool) *PostgresGateway {
	return &PostgresGateway{pool: pool}
}

// EnsureSchema creates the catalogue tables.
func (g *PostgresGateway) EnsureSchema(ctx context.Context) error {
	return ensureSchema(ctx, execOn(g.pool), Postgres)
}

func execOn(db core.DBTX) func(context.Context, string) error {
	return func(ctx context.Context, stmt string) error {
		_, err := db.Exec(ctx, stmt)
		return err
	}
}

// Save copies each table of rs inside one transaction.
func (g *PostgresGateway) Save(ctx context.Context, rs core.RecordSet) (SaveReport, error) {
	steps := plan(ctx, rs)

	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return SaveReport{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var report SaveReport
	for _, s := range steps {
		def, t := s.def, s.table
		if s.skipped {
			report.Tables = append(report.Tables, TableSave{Entity: def.Info.Key, Skipped: true})
			continue
		}
		n, err := tx.CopyFrom(ctx,
			pgx.Identifier{def.Info.Key},
			def.CopyColumns(),
			pgx.CopyFromSlice(t.Len(), func(row int) ([]any, error) {
				return def.CopyRow(t.Records[row]), nil
			}),
		)
		if err != nil {
			logging.WithFields(ctx, "entity", def.Info.Key).Error("failed to save table, rolling back", "error", err)
			return SaveReport{}, fmt.Errorf("save %s: %w", def.Info.Key, err)
		}
		report.Tables = append(report.Tables, TableSave{Entity: def.Info.Key, Rows: int(n)})
	}

	if err := tx.Commit(ctx); err != nil {
		return SaveReport{}, fmt.Errorf("commit: %w", err)
	}

	logging.FromContext(ctx).Info("clean data saved", "rows", report.Rows())
	return report, nil
}

// Close closes the pool.
func (g *PostgresGateway) Close() error {
	g.pool.Close()
	return nil
}
