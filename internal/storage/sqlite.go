package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/JonMunkholm/talentmetrics/internal/core"
	"github.com/JonMunkholm/talentmetrics/internal/logging"
	_ "modernc.org/sqlite"
)

// SQLGateway stores record sets through database/sql.
type SQLGateway struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLGateway wraps an open database. The caller keeps ownership of
// connection setup; Close closes db.
func NewSQLGateway(db *sql.DB, d Dialect) *SQLGateway {
	return &SQLGateway{db: db, dialect: d}
}

// OpenSQLite opens the SQLite database at dsn with foreign keys enforced.
// The pool is limited to one connection so the pragma and in-memory
// databases apply to every statement.
func OpenSQLite(ctx context.Context, dsn string) (*SQLGateway, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	logging.FromContext(ctx).Info("connected to database", "driver", DriverSQLite, "path", dsn)
	return NewSQLGateway(db, SQLite), nil
}

// DB returns the underlying database handle.
func (g *SQLGateway) DB() *sql.DB {
	return g.db
}

// EnsureSchema creates the catalogue tables.
func (g *SQLGateway) EnsureSchema(ctx context.Context) error {
	return ensureSchema(ctx, func(ctx context.Context, stmt string) error {
		_, err := g.db.ExecContext(ctx, stmt)
		return err
	}, g.dialect)
}

// Save inserts rs with one prepared statement per table.
func (g *SQLGateway) Save(ctx context.Context, rs core.RecordSet) (SaveReport, error) {
	steps := plan(ctx, rs)

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return SaveReport{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var report SaveReport
	for _, s := range steps {
		if s.skipped {
			report.Tables = append(report.Tables, TableSave{Entity: s.def.Info.Key, Skipped: true})
			continue
		}
		n, err := g.insertTable(ctx, tx, s.def, s.table)
		if err != nil {
			logging.WithFields(ctx, "entity", s.def.Info.Key).Error("failed to save table, rolling back", "error", err)
			return SaveReport{}, fmt.Errorf("save %s: %w", s.def.Info.Key, err)
		}
		report.Tables = append(report.Tables, TableSave{Entity: s.def.Info.Key, Rows: n})
	}

	if err := tx.Commit(); err != nil {
		return SaveReport{}, fmt.Errorf("commit: %w", err)
	}

	logging.FromContext(ctx).Info("clean data saved", "rows", report.Rows())
	return report, nil
}

func (g *SQLGateway) insertTable(ctx context.Context, tx *sql.Tx, def core.EntityDefinition, t core.Table) (int, error) {
	stmt, err := tx.PrepareContext(ctx, InsertSQL(def, g.dialect))
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range t.Records {
		if i%core.ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return i, err
			}
		}
		if _, err := stmt.ExecContext(ctx, def.SQLRow(rec)...); err != nil {
			return i, fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	return t.Len(), nil
}

// Close closes the database.
func (g *SQLGateway) Close() error {
	return g.db.Close()
}
