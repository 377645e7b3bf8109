package starlark

import (
	"fmt"
	"strings"

	"go.starlark.net/starlark"

	"github.com/leapstack-labs/meldbuild/pkg/core"
)

// DataSet exposes a *core.DataSet to scripts: columns, rows, len(),
// indexing, iteration and append(dict).
type DataSet struct {
	ds *core.DataSet
}

var (
	_ starlark.HasAttrs  = (*DataSet)(nil)
	_ starlark.Indexable = (*DataSet)(nil)
	_ starlark.Sequence  = (*DataSet)(nil)
)

// NewDataSet wraps ds. Appends made by scripts mutate ds.
func NewDataSet(ds *core.DataSet) *DataSet {
	if ds == nil {
		ds = core.NewDataSet(nil)
	}
	return &DataSet{ds: ds}
}

// Unwrap returns the underlying dataset.
func (d *DataSet) Unwrap() *core.DataSet { return d.ds }

func (d *DataSet) String() string {
	return fmt.Sprintf("dataset(columns=[%s], rows=%d)", strings.Join(d.ds.Columns, ", "), d.ds.Len())
}
func (d *DataSet) Type() string          { return "dataset" }
func (d *DataSet) Freeze()               {}
func (d *DataSet) Truth() starlark.Bool  { return d.ds.Len() > 0 }
func (d *DataSet) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: dataset") }
func (d *DataSet) Len() int              { return d.ds.Len() }

func (d *DataSet) Index(i int) starlark.Value {
	return &Row{row: d.ds.Rows[i], columns: d.ds.Columns}
}

func (d *DataSet) Iterate() starlark.Iterator {
	rows := make([]starlark.Value, d.ds.Len())
	for i := range rows {
		rows[i] = d.Index(i)
	}
	return &sliceIterator{values: rows}
}

func (d *DataSet) AttrNames() []string { return []string{"append", "columns", "rows"} }

func (d *DataSet) Attr(name string) (starlark.Value, error) {
	switch name {
	case "columns":
		cols := make([]starlark.Value, len(d.ds.Columns))
		for i, c := range d.ds.Columns {
			cols[i] = starlark.String(c)
		}
		return starlark.NewList(cols), nil
	case "rows":
		var rows []starlark.Value
		iter := d.Iterate()
		defer iter.Done()
		var row starlark.Value
		for iter.Next(&row) {
			rows = append(rows, row)
		}
		return starlark.NewList(rows), nil
	case "append":
		return starlark.NewBuiltin("append", d.append), nil
	}
	return nil, nil
}

func (d *DataSet) append(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var values starlark.IterableMapping
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &values); err != nil {
		return nil, err
	}

	cells := make(map[string]core.Value)
	var order []string
	for _, item := range values.Items() {
		key, ok := starlark.AsString(item[0])
		if !ok {
			return nil, fmt.Errorf("%s: column names must be strings, got %s", b.Name(), item[0].Type())
		}
		cells[key] = StarlarkToValue(item[1])
		order = append(order, key)
	}
	d.ds.Append(core.RowFromMap(cells), order...)
	return starlark.None, nil
}

// Row is one dataset row. Columns are reachable as attributes and by key;
// keys() lists the dataset columns and get(name, default=None) reads one.
type Row struct {
	row     core.DataSetRow
	columns []string
}

var (
	_ starlark.HasAttrs = (*Row)(nil)
	_ starlark.Mapping  = (*Row)(nil)
)

func (r *Row) String() string {
	var b strings.Builder
	b.WriteString("row(")
	for i, c := range r.columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c)
		b.WriteString("=")
		b.WriteString(r.cell(c).String())
	}
	b.WriteString(")")
	return b.String()
}
func (r *Row) Type() string          { return "row" }
func (r *Row) Freeze()               {}
func (r *Row) Truth() starlark.Bool  { return r.row.Len() > 0 }
func (r *Row) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: row") }

func (r *Row) cell(name string) starlark.Value {
	if v, ok := r.row.Get(name); ok {
		return ValueToStarlark(v)
	}
	return starlark.None
}

func (r *Row) hasColumn(name string) bool {
	if _, ok := r.row.Get(name); ok {
		return true
	}
	for _, c := range r.columns {
		if c == name {
			return true
		}
	}
	return false
}

func (r *Row) AttrNames() []string {
	return append([]string{"get", "keys"}, r.columns...)
}

// Attr resolves methods before columns; a column named like a method is
// still reachable through row["name"].
func (r *Row) Attr(name string) (starlark.Value, error) {
	switch name {
	case "keys":
		return starlark.NewBuiltin("keys", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
				return nil, err
			}
			keys := make([]starlark.Value, len(r.columns))
			for i, c := range r.columns {
				keys[i] = starlark.String(c)
			}
			return starlark.NewList(keys), nil
		}), nil
	case "get":
		return starlark.NewBuiltin("get", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var (
				key string
				def starlark.Value = starlark.None
			)
			if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &key, &def); err != nil {
				return nil, err
			}
			if v, ok := r.row.Get(core.Normalize(key)); ok {
				return ValueToStarlark(v), nil
			}
			return def, nil
		}), nil
	}
	if r.hasColumn(name) {
		return r.cell(name), nil
	}
	return nil, nil
}

func (r *Row) Get(k starlark.Value) (starlark.Value, bool, error) {
	key, ok := starlark.AsString(k)
	if !ok {
		return nil, false, fmt.Errorf("row keys must be strings, got %s", k.Type())
	}
	key = core.Normalize(key)
	if !r.hasColumn(key) {
		return nil, false, nil
	}
	return r.cell(key), true, nil
}

// Collection exposes the live dataset collection: ctx.data.people,
// ctx.data["people"], keys() and iteration over names.
type Collection struct {
	c *core.DataSetCollection
}

var (
	_ starlark.HasAttrs = (*Collection)(nil)
	_ starlark.Mapping  = (*Collection)(nil)
	_ starlark.Iterable = (*Collection)(nil)
)

// NewCollection wraps c. Datasets registered later are visible immediately.
func NewCollection(c *core.DataSetCollection) *Collection {
	return &Collection{c: c}
}

func (c *Collection) String() string {
	return fmt.Sprintf("data([%s])", strings.Join(c.c.Names(), ", "))
}
func (c *Collection) Type() string          { return "data" }
func (c *Collection) Freeze()               {}
func (c *Collection) Truth() starlark.Bool  { return c.c.Len() > 0 }
func (c *Collection) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: data") }
func (c *Collection) Len() int              { return c.c.Len() }

func (c *Collection) Iterate() starlark.Iterator {
	names := c.c.Names()
	values := make([]starlark.Value, len(names))
	for i, n := range names {
		values[i] = starlark.String(n)
	}
	return &sliceIterator{values: values}
}

func (c *Collection) AttrNames() []string {
	return append([]string{"keys"}, c.c.Names()...)
}

func (c *Collection) Attr(name string) (starlark.Value, error) {
	if name == "keys" {
		return starlark.NewBuiltin("keys", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
				return nil, err
			}
			var names []starlark.Value
			iter := c.Iterate()
			defer iter.Done()
			var n starlark.Value
			for iter.Next(&n) {
				names = append(names, n)
			}
			return starlark.NewList(names), nil
		}), nil
	}
	if ds, ok := c.c.Get(name); ok {
		return NewDataSet(ds), nil
	}
	return nil, nil
}

func (c *Collection) Get(k starlark.Value) (starlark.Value, bool, error) {
	key, ok := starlark.AsString(k)
	if !ok {
		return nil, false, fmt.Errorf("dataset names must be strings, got %s", k.Type())
	}
	ds, ok := c.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	return NewDataSet(ds), true, nil
}

type sliceIterator struct {
	values []starlark.Value
	i      int
}

func (it *sliceIterator) Next(p *starlark.Value) bool {
	if it.i >= len(it.values) {
		return false
	}
	*p = it.values[it.i]
	it.i++
	return true
}

func (it *sliceIterator) Done() {}
