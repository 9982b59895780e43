package core

import (
	"sort"
)

// Record maps column names to cell values. Missing columns read as null.
type Record map[string]Value

// Get returns the value of col, or null when the record has no such column.
func (r Record) Get(col string) Value {
	return r[col]
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is an ordered sequence of records for one entity.
// Columns lists the schema columns present in the source, in schema order.
type Table struct {
	Name    string
	Columns []string
	Records []Record
}

// NewTable builds a table from the given records.
func NewTable(name string, columns []string, records ...Record) Table {
	return Table{Name: name, Columns: columns, Records: records}
}

// Len returns the number of records.
func (t Table) Len() int {
	return len(t.Records)
}

// HasColumn reports whether col is part of the table.
func (t Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Filter returns a new table holding the records for which keep returns true.
// Record order is preserved and records are shared, not copied.
func (t Table) Filter(keep func(Record) bool) Table {
	out := Table{Name: t.Name, Columns: t.Columns, Records: make([]Record, 0, len(t.Records))}
	for _, rec := range t.Records {
		if keep(rec) {
			out.Records = append(out.Records, rec)
		}
	}
	return out
}

// KeySet returns the canonical keys of the non-null values in col.
func (t Table) KeySet(col string) map[string]struct{} {
	set := make(map[string]struct{}, len(t.Records))
	for _, rec := range t.Records {
		v := rec.Get(col)
		if v.IsNull() {
			continue
		}
		set[v.Key()] = struct{}{}
	}
	return set
}

// RecordSet maps entity names to tables. It is a value: With returns a new
// set and never modifies the receiver, so earlier snapshots stay valid.
type RecordSet struct {
	tables map[string]Table
}

// NewRecordSet builds a record set from tables. Later tables replace earlier
// ones with the same name.
func NewRecordSet(tables ...Table) RecordSet {
	rs := RecordSet{tables: make(map[string]Table, len(tables))}
	for _, t := range tables {
		rs.tables[t.Name] = t
	}
	return rs
}

// Table returns the named table and whether it was loaded.
func (rs RecordSet) Table(name string) (Table, bool) {
	t, ok := rs.tables[name]
	return t, ok
}

// Get returns the named table, or an empty table when it was not loaded.
func (rs RecordSet) Get(name string) Table {
	if t, ok := rs.tables[name]; ok {
		return t
	}
	return Table{Name: name}
}

// With returns a copy of rs in which t replaces the table of the same name.
func (rs RecordSet) With(t Table) RecordSet {
	out := RecordSet{tables: make(map[string]Table, len(rs.tables)+1)}
	for k, v := range rs.tables {
		out.tables[k] = v
	}
	out.tables[t.Name] = t
	return out
}

// Len returns the number of tables in the set.
func (rs RecordSet) Len() int {
	return len(rs.tables)
}

// Names returns table names in entity load order. Names that are not
// registered entities sort last, alphabetically.
func (rs RecordSet) Names() []string {
	names := make([]string, 0, len(rs.tables))
	for name := range rs.tables {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		oi, oj := entityOrder(names[i]), entityOrder(names[j])
		if oi != oj {
			return oi < oj
		}
		return names[i] < names[j]
	})
	return names
}
