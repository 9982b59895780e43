package tables

import "github.com/JonMunkholm/talentmetrics/internal/core"

func init() {
	registerFlows()
	registerUsers()
	registerProfiles()
}

func registerFlows() {
	core.Register(core.EntityDefinition{
		Info: core.EntityInfo{
			Key:   "flows",
			Label: "Flows",
			Order: orderFlows,
		},
		FieldSpecs: []core.FieldSpec{
			integer("id"),
			text("name"),
			text("slug"),
			text("description"),
			text("status"),
			timestamp("created_at"),
			integer("views"),
		},
	})
}

func registerUsers() {
	email := text("email")
	email.Unique = true

	core.Register(core.EntityDefinition{
		Info: core.EntityInfo{
			Key:   "users",
			Label: "Users",
			Order: orderUsers,
		},
		FieldSpecs: []core.FieldSpec{
			integer("id"),
			text("name"),
			email,
			text("slug"),
			text("phone"),
			text("country"),
			text("city"),
			text("gender"),
			timestamp("birth_date"),
			timestamp("created_at"),
		},
	})
}

// Profiles have no id of their own; user_id is both key and reference.
func registerProfiles() {
	core.Register(core.EntityDefinition{
		Info: core.EntityInfo{
			Key:        "profiles",
			Label:      "Profiles",
			Order:      orderProfiles,
			PrimaryKey: "user_id",
		},
		FieldSpecs: []core.FieldSpec{
			integer("user_id"),
			text("skills"),
			text("tools"),
			text("languages"),
			text("dream_brands"),
			text("dream_roles"),
			text("areas_of_interest"),
		},
		ForeignKeys: []core.ForeignKey{
			{Column: "user_id", References: "users"},
		},
	})
}
