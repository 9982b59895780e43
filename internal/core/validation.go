package core

// validation.go narrows loaded tables to the records that satisfy the
// catalogue's integrity rules.
//
// Each table passes four stages, always in this order:
//  1. Email uniqueness: first occurrence of each email wins
//  2. Required fields: rows with a null required field are dropped
//  3. Identity: null ids dropped, stable sort by created_at, last row per id
//     wins, ids cast to integers
//  4. Foreign keys: rows whose reference is not a key of the already
//     validated referenced table are dropped
//
// Stages only remove rows. Data-quality problems are logged and counted,
// never returned; the only error is a foreign key whose referenced table is
// absent from the record set.

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/JonMunkholm/talentmetrics/internal/logging"
)

// Stage names a validation stage.
type Stage string

const (
	StageEmailUnique Stage = "email_unique"
	StageRequired    Stage = "required_fields"
	StageIdentity    Stage = "identity"
	StageForeignKeys Stage = "foreign_keys"
)

// StageResult records what one stage did to a table.
type StageResult struct {
	Stage   Stage          `json:"stage"`
	Before  int            `json:"before"`
	After   int            `json:"after"`
	Skipped bool           `json:"skipped,omitempty"`
	Reasons map[string]int `json:"reasons,omitempty"` // dropped rows by reason
	Notes   []string       `json:"notes,omitempty"`
}

// Dropped returns the number of rows the stage removed.
func (s StageResult) Dropped() int {
	return s.Before - s.After
}

func (s *StageResult) count(reason string, n int) {
	if n == 0 {
		return
	}
	if s.Reasons == nil {
		s.Reasons = make(map[string]int)
	}
	s.Reasons[reason] += n
}

// ValidationReport summarizes validation of one entity.
type ValidationReport struct {
	Entity string        `json:"entity"`
	Input  int           `json:"input"`
	Output int           `json:"output"`
	Stages []StageResult `json:"stages"`
}

// Dropped returns the total number of rows removed.
func (r ValidationReport) Dropped() int {
	return r.Input - r.Output
}

// DedupEmails keeps the first record for each email value in input order.
// Null emails share one key. Tables without an email column pass unchanged.
func DedupEmails(t Table) (Table, StageResult) {
	res := StageResult{Stage: StageEmailUnique, Before: t.Len()}
	if !t.HasColumn("email") {
		res.Skipped = true
		res.After = t.Len()
		return t, res
	}

	seen := make(map[string]bool, t.Len())
	var dupes []string
	out := t.Filter(func(rec Record) bool {
		v := rec.Get("email")
		key := v.Key()
		if seen[key] {
			dupes = append(dupes, v.String())
			return false
		}
		seen[key] = true
		return true
	})

	res.After = out.Len()
	res.count("duplicate_email", res.Dropped())
	if len(dupes) > 0 {
		res.Notes = append(res.Notes, "duplicate emails: "+strings.Join(uniqueStrings(dupes), ", "))
	}
	return out, res
}

// FilterRequired drops records with a null in any required column.
// A required column missing from the table counts as null for every row.
func FilterRequired(t Table, required []string) (Table, StageResult) {
	res := StageResult{Stage: StageRequired, Before: t.Len()}
	if len(required) == 0 {
		res.Skipped = true
		res.After = t.Len()
		return t, res
	}

	for _, col := range required {
		if !t.HasColumn(col) {
			res.Notes = append(res.Notes, "missing required column: "+col)
		}
	}

	out := t.Filter(func(rec Record) bool {
		for _, col := range required {
			if rec.Get(col).IsNull() {
				return false
			}
		}
		return true
	})

	res.After = out.Len()
	res.count("null_required_field", res.Dropped())
	return out, res
}

// ValidateIdentity enforces a unique integer id.
//
// Records with a null or blank id are dropped. The rest are stably sorted by
// created_at (timestamps ascending, unparseable values after them, nulls
// last) and the last record per id is kept, so the most recent version wins
// and ties fall to the later input row. Surviving ids are cast to integers;
// ids that cannot be cast are dropped. Tables without an id column pass
// unchanged.
func ValidateIdentity(t Table) (Table, StageResult) {
	res := StageResult{Stage: StageIdentity, Before: t.Len()}
	if !t.HasColumn("id") {
		res.Skipped = true
		res.After = t.Len()
		res.Notes = append(res.Notes, "no id column")
		return t, res
	}

	present := t.Filter(func(rec Record) bool {
		v := rec.Get("id")
		return !v.IsNull() && !(v.Kind() == KindText && strings.TrimSpace(v.String()) == "")
	})
	res.count("null_id", t.Len()-present.Len())

	sorted := make([]Record, len(present.Records))
	copy(sorted, present.Records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return compareCreated(sorted[i].Get("created_at"), sorted[j].Get("created_at")) < 0
	})

	last := make(map[string]int, len(sorted))
	for i, rec := range sorted {
		last[rec.Get("id").Key()] = i
	}
	res.count("duplicate_id", len(sorted)-len(last))

	out := Table{Name: t.Name, Columns: t.Columns, Records: make([]Record, 0, len(last))}
	uncastable := 0
	for i, rec := range sorted {
		id := rec.Get("id")
		if last[id.Key()] != i {
			continue
		}
		n, ok := id.AsInt()
		if !ok {
			uncastable++
			continue
		}
		if id.Kind() != KindInt {
			rec = rec.Clone()
			rec["id"] = Int(n)
		}
		out.Records = append(out.Records, rec)
	}
	res.count("uncastable_id", uncastable)

	res.After = out.Len()
	return out, res
}

// ValidateForeignKeys drops records whose foreign key values are not keys of
// the referenced table in rs. The referenced key column is id when present,
// otherwise user_id. A foreign key column missing from t is skipped with a
// note; a referenced table missing from rs returns ErrReferenceNotLoaded.
func ValidateForeignKeys(t Table, fks []ForeignKey, rs RecordSet) (Table, StageResult, error) {
	res := StageResult{Stage: StageForeignKeys, Before: t.Len()}
	if len(fks) == 0 {
		res.Skipped = true
		res.After = t.Len()
		return t, res, nil
	}

	for _, fk := range fks {
		if !t.HasColumn(fk.Column) {
			res.Notes = append(res.Notes, fmt.Sprintf("column %s does not exist", fk.Column))
			continue
		}

		ref, ok := rs.Table(fk.References)
		if !ok {
			res.After = t.Len()
			return t, res, fmt.Errorf("%w: %s.%s references %s",
				ErrReferenceNotLoaded, t.Name, fk.Column, fk.References)
		}

		keyCol := "id"
		if !ref.HasColumn("id") {
			keyCol = "user_id"
		}
		keys := ref.KeySet(keyCol)

		before := t.Len()
		t = t.Filter(func(rec Record) bool {
			v := rec.Get(fk.Column)
			if v.IsNull() {
				return false
			}
			_, ok := keys[v.Key()]
			return ok
		})
		res.count(fmt.Sprintf("invalid_fk:%s->%s.%s", fk.Column, fk.References, keyCol), before-t.Len())
	}

	res.After = t.Len()
	return t, res, nil
}

// ValidateTable runs the four stages over t. rs supplies referenced tables
// and must already hold their validated versions.
func ValidateTable(ctx context.Context, def EntityDefinition, t Table, rs RecordSet) (Table, ValidationReport, error) {
	report := ValidationReport{Entity: def.Info.Key, Input: t.Len()}
	logger := logging.WithFields(ctx, "entity", def.Info.Key)

	record := func(res StageResult) {
		report.Stages = append(report.Stages, res)
		stageLogger := logger.With("stage", string(res.Stage))
		for _, note := range res.Notes {
			stageLogger.Warn(note)
		}
		if res.Dropped() > 0 {
			stageLogger.Warn("rows dropped", "dropped", res.Dropped(), "reasons", res.Reasons)
		}
	}

	var res StageResult

	t, res = DedupEmails(t)
	record(res)

	t, res = FilterRequired(t, def.RequiredFields())
	record(res)

	t, res = ValidateIdentity(t)
	record(res)

	t, res, err := ValidateForeignKeys(t, def.ForeignKeys, rs)
	record(res)
	if err != nil {
		return t, report, fmt.Errorf("validate %s: %w", def.Info.Key, err)
	}

	report.Output = t.Len()
	logger.Info("entity validated", "input", report.Input, "output", report.Output)
	return t, report, nil
}

// ValidateAll validates every registered entity present in rs, in load order.
// Each validated table replaces its raw version before the next entity runs,
// so foreign keys are checked against validated references. The returned
// record set is a new value; rs is not modified.
func ValidateAll(ctx context.Context, rs RecordSet) (RecordSet, []ValidationReport, error) {
	var reports []ValidationReport

	for _, def := range All() {
		if err := ctx.Err(); err != nil {
			return rs, reports, err
		}

		t, ok := rs.Table(def.Info.Key)
		if !ok {
			continue
		}

		validated, report, err := ValidateTable(ctx, def, t, rs)
		reports = append(reports, report)
		if err != nil {
			return rs, reports, err
		}
		rs = rs.With(validated)
	}

	return rs, reports, nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
