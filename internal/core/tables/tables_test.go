package tables

import (
	"context"
	"reflect"
	"testing"

	"github.com/JonMunkholm/talentmetrics/internal/core"
)

func TestCatalogue(t *testing.T) {
	want := []string{"flows", "users", "resumes", "resumes_exhibited", "votes", "shares", "views", "profiles"}
	got := core.Keys()
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keys()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

// Every referenced entity must load before the entities pointing at it.
func TestCatalogue_ReferencesLoadFirst(t *testing.T) {
	order := make(map[string]int)
	for _, def := range core.All() {
		order[def.Info.Key] = def.Info.Order
	}

	for _, def := range core.All() {
		for _, fk := range def.ForeignKeys {
			refOrder, ok := order[fk.References]
			if !ok {
				t.Errorf("%s.%s references unknown entity %s", def.Info.Key, fk.Column, fk.References)
				continue
			}
			if refOrder >= def.Info.Order {
				t.Errorf("%s (order %d) references %s (order %d)", def.Info.Key, def.Info.Order, fk.References, refOrder)
			}
			if _, ok := def.Field(fk.Column); !ok {
				t.Errorf("%s has no field %s", def.Info.Key, fk.Column)
			}
		}
	}
}

func TestCatalogue_Keys(t *testing.T) {
	profiles, err := core.Lookup("profiles")
	if err != nil {
		t.Fatal(err)
	}
	if profiles.Info.PrimaryKey != "user_id" {
		t.Errorf("profiles PrimaryKey = %q, want user_id", profiles.Info.PrimaryKey)
	}

	users, _ := core.Lookup("users")
	email, ok := users.Field("email")
	if !ok || !email.Unique {
		t.Error("users.email should be unique")
	}
	if got, want := len(users.RequiredFields()), len(users.FieldSpecs); got != want {
		t.Errorf("users required fields = %d, want all %d", got, want)
	}
}

func row(def core.EntityDefinition, values map[string]core.Value) core.Record {
	rec := make(core.Record, len(def.FieldSpecs))
	for _, f := range def.FieldSpecs {
		switch f.Type {
		case core.FieldInt:
			rec[f.Name] = core.Int(1)
		case core.FieldTimestamp:
			rec[f.Name] = core.ParseCell("2024-01-01", core.FieldTimestamp)
		case core.FieldDecimal:
			rec[f.Name] = core.ParseCell("1", core.FieldDecimal)
		default:
			rec[f.Name] = core.Text(f.Name)
		}
	}
	for k, v := range values {
		rec[k] = v
	}
	return rec
}

func table(t *testing.T, key string, rows ...map[string]core.Value) core.Table {
	t.Helper()
	def, err := core.Lookup(key)
	if err != nil {
		t.Fatal(err)
	}
	tbl := core.NewTable(key, def.Info.Columns)
	for _, r := range rows {
		tbl.Records = append(tbl.Records, row(def, r))
	}
	return tbl
}

func TestValidateAll_Catalogue(t *testing.T) {
	i := core.Int

	rs := core.NewRecordSet(
		table(t, "flows", map[string]core.Value{"id": i(100)}, map[string]core.Value{"id": i(200)}),
		table(t, "users",
			map[string]core.Value{"id": i(1), "email": core.Text("a@x.io")},
			map[string]core.Value{"id": i(2), "email": core.Text("b@x.io")},
			map[string]core.Value{"id": i(9), "email": core.Text("c@x.io")},
		),
		table(t, "resumes",
			map[string]core.Value{"id": i(10), "user_id": i(1)},
			map[string]core.Value{"id": i(11), "user_id": i(5)},
			map[string]core.Value{"id": i(12), "user_id": i(20)},
			map[string]core.Value{"id": i(13), "user_id": i(9)},
		),
		table(t, "resumes_exhibited",
			map[string]core.Value{"id": i(1), "resume_id": i(10), "model_id": i(100)},
			map[string]core.Value{"id": i(2), "resume_id": i(11), "model_id": i(100)},
			map[string]core.Value{"id": i(3), "resume_id": i(13), "model_id": i(300)},
		),
		table(t, "votes", map[string]core.Value{"id": i(1), "model_id": i(200), "user_id": i(2)}),
		table(t, "shares", map[string]core.Value{"id": i(1), "model_id": i(100), "user_id": i(3)}),
		table(t, "views", map[string]core.Value{"id": i(1), "model_id": i(100), "user_id": i(1)}),
		table(t, "profiles",
			map[string]core.Value{"user_id": i(1)},
			map[string]core.Value{"user_id": core.Null()},
		),
	)

	got, reports, err := core.ValidateAll(context.Background(), rs)
	if err != nil {
		t.Fatalf("ValidateAll() error = %v", err)
	}
	if len(reports) != 8 {
		t.Errorf("len(reports) = %d, want 8", len(reports))
	}

	wantLen := map[string]int{
		"flows":             2,
		"users":             3,
		"resumes":           2, // user_id 5 and 20 do not exist
		"resumes_exhibited": 1, // resume 11 was dropped, flow 300 does not exist
		"votes":             1,
		"shares":            0, // user 3 does not exist
		"views":             1,
		"profiles":          1,
	}
	for name, want := range wantLen {
		if got := got.Get(name).Len(); got != want {
			t.Errorf("%s Len() = %d, want %d", name, got, want)
		}
	}
}

func TestValidateAll_Idempotent(t *testing.T) {
	i := core.Int
	ts := func(s string) core.Value { return core.ParseCell(s, core.FieldTimestamp) }

	rs := core.NewRecordSet(
		table(t, "flows",
			map[string]core.Value{"id": i(100), "created_at": ts("2024-01-01")},
			map[string]core.Value{"id": i(100), "created_at": ts("2024-02-01")},
			map[string]core.Value{"id": i(200)},
		),
		table(t, "users",
			map[string]core.Value{"id": i(1), "email": core.Text("a@x.io")},
			map[string]core.Value{"id": i(2), "email": core.Text("a@x.io")},
			map[string]core.Value{"id": i(3), "email": core.Text("c@x.io")},
		),
		table(t, "resumes",
			map[string]core.Value{"id": i(10), "user_id": i(1), "created_at": ts("2024-01-01")},
			map[string]core.Value{"id": i(10), "user_id": i(7), "created_at": ts("2024-03-01")},
			map[string]core.Value{"id": i(11), "user_id": i(3)},
		),
		table(t, "resumes_exhibited",
			map[string]core.Value{"id": i(1), "resume_id": i(10), "model_id": i(100)},
			map[string]core.Value{"id": i(2), "resume_id": i(11), "model_id": i(200)},
		),
		table(t, "votes", map[string]core.Value{"id": i(1), "model_id": i(200), "user_id": i(3)}),
		table(t, "shares", map[string]core.Value{"id": i(1), "model_id": i(100), "user_id": i(1)}),
		table(t, "views", map[string]core.Value{"id": i(1), "model_id": i(100), "user_id": i(2)}),
		table(t, "profiles",
			map[string]core.Value{"user_id": i(1)},
			map[string]core.Value{"user_id": i(1)},
		),
	)

	once, _, err := core.ValidateAll(context.Background(), rs)
	if err != nil {
		t.Fatalf("first ValidateAll() error = %v", err)
	}
	twice, _, err := core.ValidateAll(context.Background(), once)
	if err != nil {
		t.Fatalf("second ValidateAll() error = %v", err)
	}

	for _, key := range core.Keys() {
		if !reflect.DeepEqual(twice.Get(key).Records, once.Get(key).Records) {
			t.Errorf("%s changed on re-validation:\n got %v\nwant %v", key, twice.Get(key).Records, once.Get(key).Records)
		}
	}
	// resume 10's latest row points at a missing user, so it is gone after one pass
	if got := once.Get("resumes").Len(); got != 1 {
		t.Errorf("resumes Len() = %d, want 1", got)
	}
}

func TestValidateAll_MissingUsersIsFatal(t *testing.T) {
	rs := core.NewRecordSet(
		table(t, "resumes", map[string]core.Value{"id": core.Int(10), "user_id": core.Int(1)}),
	)

	_, _, err := core.ValidateAll(context.Background(), rs)
	if err == nil {
		t.Fatal("ValidateAll() error = nil, want missing reference")
	}
}
