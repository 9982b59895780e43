// Package core holds the entity catalogue, the typed record model, the CSV
// loader and the validation stages that turn raw exports into clean tables.
//
// It has no transport or storage dependencies; the pipeline, storage and
// web packages build on it.
//
// # Entity Registry
//
// Entities are registered at init time using [Register]. Each
// [EntityDefinition] carries its fields, foreign keys and load order:
//
//	core.Register(EntityDefinition{
//	    Info: EntityInfo{Key: "votes", Label: "Votes", Order: 5},
//	    FieldSpecs: []FieldSpec{
//	        {Name: "id", Type: FieldInt, Required: true},
//	        {Name: "value", Type: FieldDecimal, Required: true},
//	    },
//	    ForeignKeys: []ForeignKey{{Column: "model_id", References: "flows"}},
//	})
//
// [All] returns definitions in load order, so every referenced entity is
// validated before the entities that point at it.
//
// # Loading
//
// [Loader.Load] reads one <entity>.csv per definition. The reader strips a
// UTF-8 BOM, replaces invalid UTF-8 and types each cell by its field:
//
//	loader := core.NewLoader("data")
//	rs, reports, err := loader.Load(ctx)
//
// A missing file leaves the entity out of the record set. A file that cannot
// be parsed yields an empty table with the schema columns.
//
// # Validation
//
// [ValidateAll] runs four stages per entity, each returning a new table:
//
//  1. Email uniqueness: first occurrence wins.
//  2. Required fields: rows with a null required value are dropped.
//  3. Identity: the latest row per id by created_at wins; ids become ints.
//  4. Foreign keys: rows pointing at unknown parents are dropped.
//
// Every stage reports how many rows it dropped and why in a [StageResult].
//
// # Error Handling
//
// Errors are wrapped with context using fmt.Errorf and %w. [MapError] maps
// technical errors to user-facing messages with codes for the API and CLI.
package core
