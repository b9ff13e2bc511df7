package model

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

// ColumnType is the declared semantic type of a RecordSet column.
type ColumnType string

const (
	ColumnString ColumnType = "string"
	ColumnNumber ColumnType = "number"
	ColumnTime   ColumnType = "time"
	ColumnMixed  ColumnType = "mixed"
)

// Column describes one column of a RecordSet.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// RecordSet is an ordered, schema-flexible table of nullable values.
// Rows are positional: rows[i][j] is the value of columns[j] for record i.
type RecordSet struct {
	columns []Column
	index   map[string]int
	rows    [][]Value
}

// NewRecordSet creates an empty RecordSet with the given column names. All
// columns start as ColumnString until InferTypes or SetColumn declares otherwise.
func NewRecordSet(names ...string) *RecordSet {
	rs := &RecordSet{index: make(map[string]int, len(names))}
	for _, n := range names {
		rs.addColumn(n, ColumnString)
	}
	return rs
}

func (rs *RecordSet) addColumn(name string, typ ColumnType) int {
	if j, ok := rs.index[name]; ok {
		return j
	}
	rs.columns = append(rs.columns, Column{Name: name, Type: typ})
	j := len(rs.columns) - 1
	rs.index[name] = j
	for i := range rs.rows {
		rs.rows[i] = append(rs.rows[i], Missing())
	}
	return j
}

// Len returns the number of records.
func (rs *RecordSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rows)
}

// Columns returns a copy of the column list in order.
func (rs *RecordSet) Columns() []Column {
	out := make([]Column, len(rs.columns))
	copy(out, rs.columns)
	return out
}

// ColumnNames returns the column names in order.
func (rs *RecordSet) ColumnNames() []string {
	out := make([]string, len(rs.columns))
	for i, c := range rs.columns {
		out[i] = c.Name
	}
	return out
}

// NumColumns returns the number of columns.
func (rs *RecordSet) NumColumns() int { return len(rs.columns) }

// HasColumn reports whether name is a column.
func (rs *RecordSet) HasColumn(name string) bool {
	_, ok := rs.index[name]
	return ok
}

// ColumnType returns the declared type of name.
func (rs *RecordSet) ColumnType(name string) (ColumnType, bool) {
	j, ok := rs.index[name]
	if !ok {
		return "", false
	}
	return rs.columns[j].Type, true
}

// Append adds a record. Keys that are not yet columns are appended to the
// column list, in the given order first and then in unspecified order for
// keys order does not name. Columns absent from values are missing.
func (rs *RecordSet) Append(values map[string]Value, order ...string) {
	row := make([]Value, len(rs.columns))
	rs.rows = append(rs.rows, row)
	i := len(rs.rows) - 1
	for _, k := range order {
		v, ok := values[k]
		if !ok {
			continue
		}
		j := rs.addColumn(k, ColumnString)
		rs.rows[i][j] = v
	}
	for k, v := range values {
		j := rs.addColumn(k, ColumnString)
		rs.rows[i][j] = v
	}
}

// AppendRow adds a positional record; row must have one value per column.
func (rs *RecordSet) AppendRow(row []Value) error {
	if len(row) != len(rs.columns) {
		return eris.Errorf("recordset: row has %d values, want %d", len(row), len(rs.columns))
	}
	cp := make([]Value, len(row))
	copy(cp, row)
	rs.rows = append(rs.rows, cp)
	return nil
}

// Get returns the value of column name for record i. Unknown columns are missing.
func (rs *RecordSet) Get(i int, name string) Value {
	j, ok := rs.index[name]
	if !ok {
		return Missing()
	}
	return rs.rows[i][j]
}

// Row returns the values of record i in column order.
func (rs *RecordSet) Row(i int) []Value {
	out := make([]Value, len(rs.rows[i]))
	copy(out, rs.rows[i])
	return out
}

// Column returns all values of column name, or nil if it does not exist.
func (rs *RecordSet) Column(name string) []Value {
	j, ok := rs.index[name]
	if !ok {
		return nil
	}
	out := make([]Value, len(rs.rows))
	for i, row := range rs.rows {
		out[i] = row[j]
	}
	return out
}

// SetColumn replaces (or adds) column name with the given values and type.
// len(values) must equal Len().
func (rs *RecordSet) SetColumn(name string, typ ColumnType, values []Value) error {
	if len(values) != len(rs.rows) {
		return eris.Errorf("recordset: column %q has %d values, want %d", name, len(values), len(rs.rows))
	}
	j := rs.addColumn(name, typ)
	rs.columns[j].Type = typ
	for i := range rs.rows {
		rs.rows[i][j] = values[i]
	}
	return nil
}

// MissingInRow counts missing cells of record i across all columns.
func (rs *RecordSet) MissingInRow(i int) int {
	n := 0
	for _, v := range rs.rows[i] {
		if v.IsMissing() {
			n++
		}
	}
	return n
}

// Filter returns a new RecordSet holding the records for which keep is true.
// Columns and types are preserved.
func (rs *RecordSet) Filter(keep func(i int) bool) *RecordSet {
	out := &RecordSet{
		columns: rs.Columns(),
		index:   make(map[string]int, len(rs.index)),
	}
	for k, v := range rs.index {
		out.index[k] = v
	}
	for i, row := range rs.rows {
		if keep(i) {
			cp := make([]Value, len(row))
			copy(cp, row)
			out.rows = append(out.rows, cp)
		}
	}
	return out
}

// InferTypes declares each column's type from the kinds of its non-missing
// values. A column with no values is ColumnString.
func (rs *RecordSet) InferTypes() {
	for j := range rs.columns {
		var seen Kind
		typ := ColumnString
		mixed := false
		for _, row := range rs.rows {
			k := row[j].Kind()
			if k == KindMissing {
				continue
			}
			if seen == KindMissing {
				seen = k
				continue
			}
			if k != seen {
				mixed = true
				break
			}
		}
		switch {
		case mixed:
			typ = ColumnMixed
		case seen == KindNumber:
			typ = ColumnNumber
		case seen == KindTime:
			typ = ColumnTime
		}
		rs.columns[j].Type = typ
	}
}

// TimeRange returns the earliest and latest timestamps of column name.
func (rs *RecordSet) TimeRange(name string) (time.Time, time.Time, bool) {
	var lo, hi time.Time
	found := false
	for _, v := range rs.Column(name) {
		t, ok := v.Timestamp()
		if !ok {
			continue
		}
		if !found || t.Before(lo) {
			lo = t
		}
		if !found || t.After(hi) {
			hi = t
		}
		found = true
	}
	return lo, hi, found
}

type recordSetJSON struct {
	Columns []Column `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// MarshalJSON encodes the RecordSet as typed columns plus positional rows.
// Timestamps are RFC 3339 strings; the column type restores them on decode.
func (rs *RecordSet) MarshalJSON() ([]byte, error) {
	doc := recordSetJSON{Columns: rs.columns, Rows: make([][]any, len(rs.rows))}
	if doc.Columns == nil {
		doc.Columns = []Column{}
	}
	for i, row := range rs.rows {
		out := make([]any, len(row))
		for j, v := range row {
			switch v.Kind() {
			case KindString:
				out[j] = v.s
			case KindNumber:
				out[j] = v.n
			case KindTime:
				out[j] = v.t.Format(time.RFC3339Nano)
			default:
				out[j] = nil
			}
		}
		doc.Rows[i] = out
	}
	return json.Marshal(doc)
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (rs *RecordSet) UnmarshalJSON(data []byte) error {
	var doc recordSetJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return eris.Wrap(err, "recordset: decode")
	}
	*rs = RecordSet{index: make(map[string]int, len(doc.Columns))}
	for _, c := range doc.Columns {
		rs.addColumn(c.Name, c.Type)
	}
	for i, raw := range doc.Rows {
		if len(raw) != len(rs.columns) {
			return eris.Errorf("recordset: row %d has %d values, want %d", i, len(raw), len(rs.columns))
		}
		row := make([]Value, len(raw))
		for j, cell := range raw {
			switch c := cell.(type) {
			case nil:
				row[j] = Missing()
			case float64:
				row[j] = Number(c)
			case string:
				if rs.columns[j].Type == ColumnTime {
					t, err := time.Parse(time.RFC3339Nano, c)
					if err != nil {
						return eris.Wrapf(err, "recordset: row %d column %q", i, rs.columns[j].Name)
					}
					row[j] = Time(t)
					continue
				}
				row[j] = String(c)
			default:
				return eris.Errorf("recordset: row %d column %q: unsupported cell %T", i, rs.columns[j].Name, cell)
			}
		}
		rs.rows = append(rs.rows, row)
	}
	return nil
}
