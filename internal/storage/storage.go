// Package storage persists validated record sets into a relational store.
//
// Two gateways share one contract: PostgreSQL through a pgx pool using the
// COPY protocol, and SQLite through database/sql with prepared inserts. The
// DATABASE_URL scheme picks the gateway. Either way a record set is written
// inside a single transaction: all tables land or none do.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/talentmetrics/internal/config"
	"github.com/JonMunkholm/talentmetrics/internal/core"
	"github.com/JonMunkholm/talentmetrics/internal/logging"
)

// Gateway creates the schema and stores record sets.
type Gateway interface {
	// EnsureSchema creates missing tables. Existing tables are left as they are.
	EnsureSchema(ctx context.Context) error

	// Save inserts every non-empty catalogued table of rs in load order, in
	// one transaction. On error nothing is stored.
	Save(ctx context.Context, rs core.RecordSet) (SaveReport, error)

	Close() error
}

// TableSave reports the outcome for one entity.
type TableSave struct {
	Entity  string `json:"entity"`
	Rows    int    `json:"rows"`
	Skipped bool   `json:"skipped,omitempty"`
}

// SaveReport summarizes a Save call.
type SaveReport struct {
	Tables []TableSave `json:"tables"`
}

// Rows returns the total number of rows stored.
func (r SaveReport) Rows() int {
	n := 0
	for _, t := range r.Tables {
		n += t.Rows
	}
	return n
}

// Driver identifies a gateway implementation.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// ParseURL returns the driver for a DATABASE_URL and the DSN to hand it.
// sqlite://path becomes path; file: URIs are passed through unchanged.
func ParseURL(raw string) (Driver, string, error) {
	switch {
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return DriverPostgres, raw, nil
	case strings.HasPrefix(raw, "sqlite://"):
		dsn := strings.TrimPrefix(raw, "sqlite://")
		if dsn == "" {
			return "", "", fmt.Errorf("sqlite url has no path: %q", raw)
		}
		return DriverSQLite, dsn, nil
	case strings.HasPrefix(raw, "file:"):
		return DriverSQLite, raw, nil
	}
	return "", "", fmt.Errorf("unsupported database url scheme")
}

// Open connects to the store named by cfg.URL.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Gateway, error) {
	driver, dsn, err := ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	switch driver {
	case DriverPostgres:
		return OpenPostgres(ctx, cfg)
	default:
		return OpenSQLite(ctx, dsn)
	}
}

// step is one entity of a Save call. Skipped steps have no rows to store.
type step struct {
	def     core.EntityDefinition
	table   core.Table
	skipped bool
}

// plan lists every catalogued entity in load order. Missing and empty
// tables are logged and marked skipped.
func plan(ctx context.Context, rs core.RecordSet) []step {
	defs := core.All()
	steps := make([]step, 0, len(defs))
	for _, def := range defs {
		t, ok := rs.Table(def.Info.Key)
		if !ok || t.Len() == 0 {
			logging.WithFields(ctx, "entity", def.Info.Key).Warn("no data to save")
			steps = append(steps, step{def: def, skipped: true})
			continue
		}
		steps = append(steps, step{def: def, table: t})
	}
	return steps
}

// ensureSchema runs the DDL for every catalogued entity in load order.
func ensureSchema(ctx context.Context, exec func(context.Context, string) error, d Dialect) error {
	for _, def := range core.All() {
		if err := exec(ctx, CreateTableSQL(def, d)); err != nil {
			return fmt.Errorf("create table %s: %w", def.Info.Key, err)
		}
	}
	logging.FromContext(ctx).Info("database schema ready", "tables", core.EntityCount())
	return nil
}
