package tables

import "github.com/JonMunkholm/talentmetrics/internal/core"

func init() {
	registerResumes()
	registerResumesExhibited()
	registerVotes()
	registerShares()
	registerViews()
}

func registerResumes() {
	core.Register(core.EntityDefinition{
		Info: core.EntityInfo{
			Key:   "resumes",
			Label: "Resumes",
			Order: orderResumes,
		},
		FieldSpecs: []core.FieldSpec{
			integer("id"),
			integer("user_id"),
			text("name"),
			text("slug"),
			text("video"),
			integer("views"),
			text("level_experience"),
			text("status"),
			text("role_name"),
			text("skills"),
			timestamp("created_at"),
		},
		ForeignKeys: []core.ForeignKey{
			{Column: "user_id", References: "users"},
		},
	})
}

// A resume exhibited against a flow is one application.
func registerResumesExhibited() {
	core.Register(core.EntityDefinition{
		Info: core.EntityInfo{
			Key:   "resumes_exhibited",
			Label: "Resumes Exhibited",
			Order: orderResumesExhibited,
		},
		FieldSpecs: []core.FieldSpec{
			integer("id"),
			integer("resume_id"),
			integer("model_id"),
			text("model_type"),
			timestamp("sent_at"),
			timestamp("created_at"),
		},
		ForeignKeys: []core.ForeignKey{
			{Column: "resume_id", References: "resumes"},
			{Column: "model_id", References: "flows"},
		},
	})
}

func registerVotes() {
	core.Register(core.EntityDefinition{
		Info: core.EntityInfo{
			Key:   "votes",
			Label: "Votes",
			Order: orderVotes,
		},
		FieldSpecs: []core.FieldSpec{
			integer("id"),
			integer("model_id"),
			text("model_type"),
			integer("user_id"),
			field("value", core.FieldDecimal),
			timestamp("created_at"),
		},
		ForeignKeys: flowAndUser,
	})
}

func registerShares() {
	core.Register(core.EntityDefinition{
		Info: core.EntityInfo{
			Key:   "shares",
			Label: "Shares",
			Order: orderShares,
		},
		FieldSpecs: []core.FieldSpec{
			integer("id"),
			integer("model_id"),
			text("model_type"),
			integer("user_id"),
			timestamp("created_at"),
		},
		ForeignKeys: flowAndUser,
	})
}

func registerViews() {
	core.Register(core.EntityDefinition{
		Info: core.EntityInfo{
			Key:   "views",
			Label: "Views",
			Order: orderViews,
		},
		FieldSpecs: []core.FieldSpec{
			integer("id"),
			integer("model_id"),
			text("model_type"),
			integer("user_id"),
			text("type"),
			timestamp("created_at"),
		},
		ForeignKeys: flowAndUser,
	})
}

// Engagement entities point at a flow and the acting user.
var flowAndUser = []core.ForeignKey{
	{Column: "model_id", References: "flows"},
	{Column: "user_id", References: "users"},
}
