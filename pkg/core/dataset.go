package core

import "sort"

// DataSetRow maps normalised column names to typed values.
// Column order is owned by the DataSet the row belongs to.
type DataSetRow struct {
	values map[string]Value
}

// NewDataSetRow builds a row positionally against header. Header entries that
// are blank after normalisation are skipped without shifting later cells.
// Cells beyond the header are ignored; missing cells are left unset.
func NewDataSetRow(header []string, cells []Value) DataSetRow {
	row := DataSetRow{values: make(map[string]Value, len(header))}
	for i, col := range header {
		name := Normalize(col)
		if name == "" || i >= len(cells) {
			continue
		}
		row.values[name] = cells[i]
	}
	return row
}

// RowFromMap builds a row from already-normalised keys.
func RowFromMap(values map[string]Value) DataSetRow {
	row := DataSetRow{values: make(map[string]Value, len(values))}
	for k, v := range values {
		if name := Normalize(k); name != "" {
			row.values[name] = v
		}
	}
	return row
}

// Get returns the value stored for column.
func (r DataSetRow) Get(column string) (Value, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Set stores value under the normalised column name.
func (r *DataSetRow) Set(column string, value Value) {
	name := Normalize(column)
	if name == "" {
		return
	}
	if r.values == nil {
		r.values = make(map[string]Value)
	}
	r.values[name] = value
}

// Len returns the number of populated cells.
func (r DataSetRow) Len() int { return len(r.values) }

// Keys returns the populated column names in sorted order.
// Use DataSet.Columns for header order.
func (r DataSetRow) Keys() []string {
	keys := make([]string, 0, len(r.values))
	for k := range r.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DataSet is the tabular result of parsing a Markdown table or CSV content.
type DataSet struct {
	Columns []string
	Rows    []DataSetRow

	// header keeps the raw positional header, including blank entries,
	// so rows can be built against the original cell positions.
	header []string
}

// NewDataSet creates an empty DataSet for the given raw header cells.
// Columns holds the normalised, non-blank, de-duplicated names in order.
func NewDataSet(header []string) *DataSet {
	ds := &DataSet{header: header}
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		name := Normalize(h)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		ds.Columns = append(ds.Columns, name)
	}
	return ds
}

// AppendCells builds a row from positional cells and appends it.
func (ds *DataSet) AppendCells(cells []Value) {
	ds.Rows = append(ds.Rows, NewDataSetRow(ds.header, cells))
}

// Append adds a row built elsewhere. Columns the dataset does not know yet
// are added to Columns in the order given by order, then any remaining keys
// in sorted order.
func (ds *DataSet) Append(row DataSetRow, order ...string) {
	known := make(map[string]bool, len(ds.Columns))
	for _, c := range ds.Columns {
		known[c] = true
	}
	for _, c := range append(order, row.Keys()...) {
		name := Normalize(c)
		if _, ok := row.values[name]; !ok || known[name] {
			continue
		}
		known[name] = true
		ds.Columns = append(ds.Columns, name)
	}
	ds.Rows = append(ds.Rows, row)
}

// Len returns the number of rows.
func (ds *DataSet) Len() int { return len(ds.Rows) }

// DataSetCollection maps normalised table names to datasets.
// A later Put with the same name replaces the earlier dataset.
type DataSetCollection struct {
	sets  map[string]*DataSet
	order []string
}

// NewDataSetCollection returns an empty collection.
func NewDataSetCollection() *DataSetCollection {
	return &DataSetCollection{sets: make(map[string]*DataSet)}
}

// Put stores ds under the normalised name.
func (c *DataSetCollection) Put(name string, ds *DataSet) {
	key := Normalize(name)
	if _, exists := c.sets[key]; !exists {
		c.order = append(c.order, key)
	}
	c.sets[key] = ds
}

// Get returns the dataset stored under name (normalised before lookup).
func (c *DataSetCollection) Get(name string) (*DataSet, bool) {
	ds, ok := c.sets[Normalize(name)]
	return ds, ok
}

// Names returns dataset names in first-definition order.
func (c *DataSetCollection) Names() []string {
	return append([]string(nil), c.order...)
}

// Len returns the number of datasets.
func (c *DataSetCollection) Len() int { return len(c.sets) }
