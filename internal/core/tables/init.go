// Package tables registers the platform entity catalogue with the core registry.
// Import this package to ensure all entities are registered.
package tables

import "github.com/JonMunkholm/talentmetrics/internal/core"

// This file exists to provide a single import point.
// Each entity file uses init() to register its entities.

// Load order. Referenced entities load and validate before the entities
// that point at them.
const (
	orderFlows = iota + 1
	orderUsers
	orderResumes
	orderResumesExhibited
	orderVotes
	orderShares
	orderViews
	orderProfiles
)

// field declares a required column. Every catalogued column is required:
// rows with a null anywhere in the schema are dropped during validation.
func field(name string, ft core.FieldType) core.FieldSpec {
	return core.FieldSpec{Name: name, Type: ft, Required: true}
}

func text(name string) core.FieldSpec { return field(name, core.FieldText) }

func integer(name string) core.FieldSpec { return field(name, core.FieldInt) }

func timestamp(name string) core.FieldSpec { return field(name, core.FieldTimestamp) }
