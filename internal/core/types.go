package core

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// FieldType represents the storage type of an entity field.
type FieldType int

const (
	FieldText FieldType = iota
	FieldInt
	FieldDecimal
	FieldTimestamp
)

func (f FieldType) String() string {
	switch f {
	case FieldInt:
		return "int"
	case FieldDecimal:
		return "decimal"
	case FieldTimestamp:
		return "timestamp"
	default:
		return "text"
	}
}

// FieldSpec describes a single entity column.
type FieldSpec struct {
	Name     string    // Column header name, lower case
	Type     FieldType // Storage type, also used to type cells on read
	Required bool      // Rows with a null here are dropped
	Unique   bool      // Enforced by the store
}

// ForeignKey declares that Column must match a key of the References entity.
type ForeignKey struct {
	Column     string
	References string
}

// EntityInfo contains identifying information about an entity.
type EntityInfo struct {
	Key        string   // Entity and table name: "resumes_exhibited"
	Label      string   // Display name: "Resumes Exhibited"
	Order      int      // Load and validation order; referenced entities come first
	Columns    []string // Schema column names
	PrimaryKey string   // "id", or "user_id" for profiles
}

// FileName returns the source file name for the entity.
func (i EntityInfo) FileName() string {
	return i.Key + ".csv"
}

// EntityDefinition contains everything needed to load, validate and store an entity.
type EntityDefinition struct {
	Info        EntityInfo
	FieldSpecs  []FieldSpec
	ForeignKeys []ForeignKey
}

// Field returns the spec for the named column.
func (d EntityDefinition) Field(name string) (FieldSpec, bool) {
	for _, f := range d.FieldSpecs {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// RequiredFields returns the columns that must be non-null.
func (d EntityDefinition) RequiredFields() []string {
	var out []string
	for _, f := range d.FieldSpecs {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// CopyColumns lists database column names in the order CopyRow returns values.
func (d EntityDefinition) CopyColumns() []string {
	return d.Info.Columns
}

// CopyRow converts a record to a row for the PostgreSQL COPY protocol.
// Values are pgtype values in CopyColumns order.
func (d EntityDefinition) CopyRow(rec Record) []any {
	row := make([]any, len(d.FieldSpecs))
	for i, f := range d.FieldSpecs {
		v := rec.Get(f.Name)
		switch f.Type {
		case FieldInt:
			row[i] = ToPgInt8(v)
		case FieldDecimal:
			row[i] = ToPgNumeric(v)
		case FieldTimestamp:
			row[i] = ToPgTimestamptz(v)
		default:
			row[i] = ToPgText(v)
		}
	}
	return row
}

// SQLRow converts a record to database/sql arguments in CopyColumns order.
// Cells that do not match the column type are stored as null.
func (d EntityDefinition) SQLRow(rec Record) []any {
	row := make([]any, len(d.FieldSpecs))
	for i, f := range d.FieldSpecs {
		v := rec.Get(f.Name)
		switch f.Type {
		case FieldInt:
			if n, ok := v.AsInt(); ok {
				row[i] = n
			}
		case FieldDecimal:
			if n, ok := v.AsDecimal(); ok {
				row[i] = n.String()
			}
		case FieldTimestamp:
			if t, ok := v.AsTime(); ok {
				row[i] = t
			}
		default:
			row[i] = v.Any()
		}
	}
	return row
}
