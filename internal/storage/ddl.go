package storage

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/talentmetrics/internal/core"
)

// Dialect selects SQL syntax for a store.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) columnType(ft core.FieldType) string {
	switch ft {
	case core.FieldInt:
		if d == SQLite {
			return "INTEGER"
		}
		return "BIGINT"
	case core.FieldDecimal:
		return "NUMERIC"
	case core.FieldTimestamp:
		if d == SQLite {
			return "TIMESTAMP"
		}
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}

func (d Dialect) placeholder(n int) string {
	if d == SQLite {
		return "?"
	}
	return fmt.Sprintf("$%d", n)
}

// CreateTableSQL returns the CREATE TABLE IF NOT EXISTS statement for def,
// with its primary key, unique columns and foreign keys.
func CreateTableSQL(def core.EntityDefinition, d Dialect) string {
	var lines []string
	for _, f := range def.FieldSpecs {
		line := quoteIdentifier(f.Name) + " " + d.columnType(f.Type)
		if f.Unique {
			line += " UNIQUE"
		}
		lines = append(lines, line)
	}

	lines = append(lines, fmt.Sprintf("PRIMARY KEY (%s)", quoteIdentifier(def.Info.PrimaryKey)))

	for _, fk := range def.ForeignKeys {
		lines = append(lines, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			quoteIdentifier(fk.Column),
			quoteIdentifier(fk.References),
			quoteIdentifier(referencedKey(fk.References)),
		))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)",
		quoteIdentifier(def.Info.Key), strings.Join(lines, ",\n\t"))
}

// InsertSQL returns a single-row INSERT for def in CopyColumns order.
func InsertSQL(def core.EntityDefinition, d Dialect) string {
	cols := def.CopyColumns()
	quoted := make([]string, len(cols))
	params := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdentifier(c)
		params[i] = d.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdentifier(def.Info.Key), strings.Join(quoted, ", "), strings.Join(params, ", "))
}

func referencedKey(entity string) string {
	if def, ok := core.Get(entity); ok {
		return def.Info.PrimaryKey
	}
	return "id"
}

// quoteIdentifier safely quotes a SQL identifier, escaping embedded quotes.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
