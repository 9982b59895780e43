package core

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func ts(s string) Value {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return Timestamp(t)
}

func ids(t Table, col string) []string {
	out := make([]string, len(t.Records))
	for i, rec := range t.Records {
		out[i] = rec.Get(col).Key()
	}
	return out
}

// registerTestEntities installs a two-entity catalogue for the duration of a test.
func registerTestEntities(t *testing.T) {
	t.Helper()
	Clear()
	t.Cleanup(Clear)

	Register(EntityDefinition{
		Info: EntityInfo{Key: "users", Order: 1},
		FieldSpecs: []FieldSpec{
			{Name: "id", Type: FieldInt, Required: true},
			{Name: "email", Type: FieldText, Required: true, Unique: true},
			{Name: "created_at", Type: FieldTimestamp, Required: true},
		},
	})
	Register(EntityDefinition{
		Info: EntityInfo{Key: "resumes", Order: 2},
		FieldSpecs: []FieldSpec{
			{Name: "id", Type: FieldInt, Required: true},
			{Name: "user_id", Type: FieldInt, Required: true},
			{Name: "created_at", Type: FieldTimestamp, Required: true},
		},
		ForeignKeys: []ForeignKey{{Column: "user_id", References: "users"}},
	})
}

func TestDedupEmails(t *testing.T) {
	users := NewTable("users", []string{"id", "email"},
		Record{"id": Int(1), "email": Text("a@x.io")},
		Record{"id": Int(2), "email": Text("b@x.io")},
		Record{"id": Int(3), "email": Text("a@x.io")},
		Record{"id": Int(4), "email": Null()},
		Record{"id": Int(5), "email": Null()},
	)

	got, res := DedupEmails(users)

	if want := []string{"1", "2", "4"}; !reflect.DeepEqual(ids(got, "id"), want) {
		t.Errorf("kept ids = %v, want %v", ids(got, "id"), want)
	}
	if res.Dropped() != 2 {
		t.Errorf("Dropped() = %d, want 2", res.Dropped())
	}
	if res.Reasons["duplicate_email"] != 2 {
		t.Errorf("Reasons[duplicate_email] = %d, want 2", res.Reasons["duplicate_email"])
	}
	if users.Len() != 5 {
		t.Errorf("input modified: Len() = %d, want 5", users.Len())
	}
}

func TestDedupEmails_NoColumn(t *testing.T) {
	flows := NewTable("flows", []string{"id"}, Record{"id": Int(1)}, Record{"id": Int(1)})

	got, res := DedupEmails(flows)

	if !res.Skipped {
		t.Error("Skipped = false, want true")
	}
	if got.Len() != 2 {
		t.Errorf("Len() = %d, want 2", got.Len())
	}
}

func TestFilterRequired(t *testing.T) {
	tests := []struct {
		name     string
		table    Table
		required []string
		wantLen  int
		wantNote bool
	}{
		{
			name: "drops rows with a null required field",
			table: NewTable("users", []string{"id", "email"},
				Record{"id": Int(1), "email": Text("a@x.io")},
				Record{"id": Int(2), "email": Null()},
				Record{"id": Null(), "email": Text("c@x.io")},
			),
			required: []string{"id", "email"},
			wantLen:  1,
		},
		{
			name: "missing required column drops every row",
			table: NewTable("users", []string{"id"},
				Record{"id": Int(1)},
				Record{"id": Int(2)},
			),
			required: []string{"id", "email"},
			wantLen:  0,
			wantNote: true,
		},
		{
			name:     "empty table passes",
			table:    NewTable("users", []string{"id"}),
			required: []string{"id"},
			wantLen:  0,
		},
		{
			name:     "no required fields",
			table:    NewTable("users", []string{"id"}, Record{"id": Null()}),
			required: nil,
			wantLen:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, res := FilterRequired(tt.table, tt.required)
			if got.Len() != tt.wantLen {
				t.Errorf("Len() = %d, want %d", got.Len(), tt.wantLen)
			}
			if (len(res.Notes) > 0) != tt.wantNote {
				t.Errorf("Notes = %v, want note: %v", res.Notes, tt.wantNote)
			}
			if got.Len() > tt.table.Len() {
				t.Errorf("row count grew from %d to %d", tt.table.Len(), got.Len())
			}
		})
	}
}

func TestValidateIdentity_KeepsLatestPerID(t *testing.T) {
	resumes := NewTable("resumes", []string{"id", "user_id", "created_at"},
		Record{"id": Int(1), "user_id": Int(3), "created_at": ts("2024-01-02")},
		Record{"id": Int(1), "user_id": Int(5), "created_at": ts("2024-03-01")},
		Record{"id": Int(2), "user_id": Int(8), "created_at": ts("2024-02-01")},
		Record{"id": Null(), "user_id": Int(9), "created_at": ts("2024-04-01")},
	)

	got, res := ValidateIdentity(resumes)

	if got.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", got.Len())
	}
	want := map[string]string{"1": "5", "2": "8"}
	for _, rec := range got.Records {
		id := rec.Get("id").Key()
		if rec.Get("user_id").Key() != want[id] {
			t.Errorf("id %s user_id = %s, want %s", id, rec.Get("user_id").Key(), want[id])
		}
	}
	// Sorted by created_at: id 2 (Feb) then id 1 (Mar).
	if order := ids(got, "id"); !reflect.DeepEqual(order, []string{"2", "1"}) {
		t.Errorf("order = %v, want [2 1]", order)
	}
	if res.Reasons["null_id"] != 1 || res.Reasons["duplicate_id"] != 1 {
		t.Errorf("Reasons = %v, want null_id=1 duplicate_id=1", res.Reasons)
	}
}

func TestValidateIdentity_TieKeepsLaterRow(t *testing.T) {
	resumes := NewTable("resumes", []string{"id", "user_id", "created_at"},
		Record{"id": Int(7), "user_id": Int(1), "created_at": ts("2024-01-01")},
		Record{"id": Int(7), "user_id": Int(2), "created_at": ts("2024-01-01")},
	)

	got, _ := ValidateIdentity(resumes)

	if got.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", got.Len())
	}
	if uid := got.Records[0].Get("user_id").Key(); uid != "2" {
		t.Errorf("user_id = %s, want 2", uid)
	}
}

func TestValidateIdentity_NullCreatedSortsLast(t *testing.T) {
	resumes := NewTable("resumes", []string{"id", "user_id", "created_at"},
		Record{"id": Int(1), "user_id": Int(1), "created_at": Null()},
		Record{"id": Int(1), "user_id": Int(2), "created_at": ts("2024-06-01")},
		Record{"id": Int(1), "user_id": Int(3), "created_at": Text("not a date")},
	)

	got, _ := ValidateIdentity(resumes)

	if got.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", got.Len())
	}
	if uid := got.Records[0].Get("user_id").Key(); uid != "1" {
		t.Errorf("user_id = %s, want 1 (null created_at sorts last)", uid)
	}
}

func TestValidateIdentity_CastsIDs(t *testing.T) {
	flows := NewTable("flows", []string{"id"},
		Record{"id": Text("12")},
		Record{"id": Text("abc")},
		Record{"id": Text("  ")},
	)

	got, res := ValidateIdentity(flows)

	if got.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", got.Len())
	}
	id := got.Records[0].Get("id")
	if id.Kind() != KindInt {
		t.Errorf("id kind = %v, want int", id.Kind())
	}
	if n, _ := id.AsInt(); n != 12 {
		t.Errorf("id = %d, want 12", n)
	}
	if res.Reasons["uncastable_id"] != 1 || res.Reasons["null_id"] != 1 {
		t.Errorf("Reasons = %v, want uncastable_id=1 null_id=1", res.Reasons)
	}
	if flows.Records[0].Get("id").Kind() != KindText {
		t.Error("input record modified")
	}
}

func TestValidateIdentity_NoIDColumn(t *testing.T) {
	profiles := NewTable("profiles", []string{"user_id"}, Record{"user_id": Int(1)})

	got, res := ValidateIdentity(profiles)

	if !res.Skipped {
		t.Error("Skipped = false, want true")
	}
	if got.Len() != 1 {
		t.Errorf("Len() = %d, want 1", got.Len())
	}
}

func TestValidateIdentity_Idempotent(t *testing.T) {
	resumes := NewTable("resumes", []string{"id", "created_at"},
		Record{"id": Int(3), "created_at": ts("2024-01-03")},
		Record{"id": Int(1), "created_at": ts("2024-01-01")},
		Record{"id": Int(3), "created_at": ts("2024-01-05")},
	)

	once, _ := ValidateIdentity(resumes)
	twice, res := ValidateIdentity(once)

	if !reflect.DeepEqual(ids(once, "id"), ids(twice, "id")) {
		t.Errorf("second pass = %v, want %v", ids(twice, "id"), ids(once, "id"))
	}
	if res.Dropped() != 0 {
		t.Errorf("second pass Dropped() = %d, want 0", res.Dropped())
	}
}

func TestValidateForeignKeys(t *testing.T) {
	users := NewTable("users", []string{"id"},
		Record{"id": Int(1)}, Record{"id": Int(2)}, Record{"id": Int(9)},
	)
	resumes := NewTable("resumes", []string{"id", "user_id"},
		Record{"id": Int(10), "user_id": Int(1)},
		Record{"id": Int(11), "user_id": Int(5)},
		Record{"id": Int(12), "user_id": Int(20)},
		Record{"id": Int(13), "user_id": Int(9)},
		Record{"id": Int(14), "user_id": Null()},
	)
	rs := NewRecordSet(users)

	got, res, err := ValidateForeignKeys(resumes, []ForeignKey{{Column: "user_id", References: "users"}}, rs)
	if err != nil {
		t.Fatalf("ValidateForeignKeys() error = %v", err)
	}

	if want := []string{"1", "9"}; !reflect.DeepEqual(ids(got, "user_id"), want) {
		t.Errorf("kept user_ids = %v, want %v", ids(got, "user_id"), want)
	}
	if res.Dropped() != 3 {
		t.Errorf("Dropped() = %d, want 3", res.Dropped())
	}
}

func TestValidateForeignKeys_ReferencedByUserID(t *testing.T) {
	profiles := NewTable("profiles", []string{"user_id"},
		Record{"user_id": Int(1)}, Record{"user_id": Int(4)},
	)
	notes := NewTable("notes", []string{"id", "author"},
		Record{"id": Int(1), "author": Int(4)},
		Record{"id": Int(2), "author": Int(2)},
	)

	got, _, err := ValidateForeignKeys(notes, []ForeignKey{{Column: "author", References: "profiles"}}, NewRecordSet(profiles))
	if err != nil {
		t.Fatalf("ValidateForeignKeys() error = %v", err)
	}
	if want := []string{"1"}; !reflect.DeepEqual(ids(got, "id"), want) {
		t.Errorf("kept ids = %v, want %v", ids(got, "id"), want)
	}
}

func TestValidateForeignKeys_MissingColumn(t *testing.T) {
	resumes := NewTable("resumes", []string{"id"}, Record{"id": Int(1)})

	got, res, err := ValidateForeignKeys(resumes, []ForeignKey{{Column: "user_id", References: "users"}}, NewRecordSet())
	if err != nil {
		t.Fatalf("ValidateForeignKeys() error = %v", err)
	}
	if got.Len() != 1 {
		t.Errorf("Len() = %d, want 1", got.Len())
	}
	if len(res.Notes) != 1 {
		t.Errorf("Notes = %v, want one note", res.Notes)
	}
}

func TestValidateForeignKeys_ReferenceNotLoaded(t *testing.T) {
	resumes := NewTable("resumes", []string{"id", "user_id"}, Record{"id": Int(1), "user_id": Int(1)})

	_, _, err := ValidateForeignKeys(resumes, []ForeignKey{{Column: "user_id", References: "users"}}, NewRecordSet())
	if !errors.Is(err, ErrReferenceNotLoaded) {
		t.Errorf("error = %v, want ErrReferenceNotLoaded", err)
	}
}

func TestValidateAll(t *testing.T) {
	registerTestEntities(t)

	rs := NewRecordSet(
		NewTable("users", []string{"id", "email", "created_at"},
			Record{"id": Int(1), "email": Text("a@x.io"), "created_at": ts("2024-01-01")},
			Record{"id": Int(2), "email": Text("a@x.io"), "created_at": ts("2024-01-02")},
			Record{"id": Int(3), "email": Text("c@x.io"), "created_at": Null()},
		),
		NewTable("resumes", []string{"id", "user_id", "created_at"},
			Record{"id": Int(10), "user_id": Int(1), "created_at": ts("2024-02-01")},
			Record{"id": Int(11), "user_id": Int(2), "created_at": ts("2024-02-01")},
			Record{"id": Int(12), "user_id": Int(3), "created_at": ts("2024-02-01")},
		),
	)

	got, reports, err := ValidateAll(context.Background(), rs)
	if err != nil {
		t.Fatalf("ValidateAll() error = %v", err)
	}

	if len(reports) != 2 {
		t.Fatalf("len(reports) = %d, want 2", len(reports))
	}
	if reports[0].Entity != "users" || reports[1].Entity != "resumes" {
		t.Errorf("report order = %s, %s; want users, resumes", reports[0].Entity, reports[1].Entity)
	}
	// user 2 loses the email dedup, user 3 has a null created_at.
	if kept := ids(got.Get("users"), "id"); !reflect.DeepEqual(kept, []string{"1"}) {
		t.Errorf("users = %v, want [1]", kept)
	}
	// resumes are checked against the validated users.
	if kept := ids(got.Get("resumes"), "id"); !reflect.DeepEqual(kept, []string{"10"}) {
		t.Errorf("resumes = %v, want [10]", kept)
	}
	if rs.Get("users").Len() != 3 {
		t.Error("input record set modified")
	}
	if reports[1].Dropped() != 2 {
		t.Errorf("resumes Dropped() = %d, want 2", reports[1].Dropped())
	}
}

func TestValidateAll_MissingReference(t *testing.T) {
	registerTestEntities(t)

	rs := NewRecordSet(NewTable("resumes", []string{"id", "user_id", "created_at"},
		Record{"id": Int(10), "user_id": Int(1), "created_at": ts("2024-02-01")},
	))

	_, _, err := ValidateAll(context.Background(), rs)
	if !errors.Is(err, ErrReferenceNotLoaded) {
		t.Errorf("error = %v, want ErrReferenceNotLoaded", err)
	}
}

func TestValidateAll_EmptyTables(t *testing.T) {
	registerTestEntities(t)

	rs := NewRecordSet(
		NewTable("users", []string{"id", "email", "created_at"}),
		NewTable("resumes", []string{"id", "user_id", "created_at"}),
	)

	got, _, err := ValidateAll(context.Background(), rs)
	if err != nil {
		t.Fatalf("ValidateAll() error = %v", err)
	}
	if got.Get("resumes").Len() != 0 {
		t.Errorf("resumes Len() = %d, want 0", got.Get("resumes").Len())
	}
}

func TestValidateAll_Cancelled(t *testing.T) {
	registerTestEntities(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := ValidateAll(ctx, NewRecordSet())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
