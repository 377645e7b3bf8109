// Package starlark bridges meldbuild data into the Starlark interpreter: value
// conversion, the dataset and code block types scripts see, the sandboxed
// script runner and the execution context used by template expressions.
package starlark

import (
	"fmt"
	"math"
	"sort"
	"time"

	starlarktime "go.starlark.net/lib/time"
	"go.starlark.net/starlark"

	"github.com/leapstack-labs/meldbuild/pkg/core"
)

// ValueToStarlark converts a typed cell. Integral numbers become Int so they
// print without a fraction.
func ValueToStarlark(v core.Value) starlark.Value {
	switch v.Kind() {
	case core.KindNumber:
		n := v.Num()
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return starlark.MakeInt64(int64(n))
		}
		return starlark.Float(n)
	case core.KindTimestamp:
		return starlarktime.Time(v.Time())
	default:
		return starlark.String(v.Str())
	}
}

// StarlarkToValue converts a Starlark value into a typed cell. Values that are
// not numbers, strings or times are stored by their string form.
func StarlarkToValue(v starlark.Value) core.Value {
	switch val := v.(type) {
	case starlark.String:
		return core.StringValue(string(val))
	case starlark.Int:
		f, _ := starlark.AsFloat(val)
		return core.NumberValue(f)
	case starlark.Float:
		return core.NumberValue(float64(val))
	case starlarktime.Time:
		return core.TimestampValue(time.Time(val))
	case starlark.NoneType:
		return core.StringValue("")
	default:
		return core.StringValue(v.String())
	}
}

// GoToStarlark converts a Go value to a Starlark value.
// Supported types: string, bool, the int and float kinds, time.Time,
// core.Value, *core.DataSet, []string, []any, map[string]any and
// map[string]string.
func GoToStarlark(v any) (starlark.Value, error) {
	if v == nil {
		return starlark.None, nil
	}

	switch val := v.(type) {
	case starlark.Value:
		return val, nil

	case string:
		return starlark.String(val), nil

	case int:
		return starlark.MakeInt(val), nil

	case int64:
		return starlark.MakeInt64(val), nil

	case uint64:
		return starlark.MakeUint64(val), nil

	case float64:
		return starlark.Float(val), nil

	case bool:
		return starlark.Bool(val), nil

	case time.Time:
		return starlarktime.Time(val), nil

	case core.Value:
		return ValueToStarlark(val), nil

	case *core.DataSet:
		return NewDataSet(val), nil

	case []string:
		list := make([]starlark.Value, len(val))
		for i, s := range val {
			list[i] = starlark.String(s)
		}
		return starlark.NewList(list), nil

	case []any:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := GoToStarlark(item)
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil

	case map[string]string:
		dict := starlark.NewDict(len(val))
		for _, k := range sortedKeys(val) {
			if err := dict.SetKey(starlark.String(k), starlark.String(val[k])); err != nil {
				return nil, fmt.Errorf("dict setkey %q: %w", k, err)
			}
		}
		return dict, nil

	case map[string]any:
		dict := starlark.NewDict(len(val))
		for _, k := range sortedKeys(val) {
			sv, err := GoToStarlark(val[k])
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", k, err)
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, fmt.Errorf("dict setkey %q: %w", k, err)
			}
		}
		return dict, nil

	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StarlarkToGo converts a Starlark value back to a Go value.
// Returns: string, int64, float64, bool, time.Time, []any, map[string]any, or nil
func StarlarkToGo(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil

	case starlark.String:
		return string(val), nil

	case starlark.Int:
		i64, ok := val.Int64()
		if !ok {
			// Fallback for very large integers - convert to string
			return val.String(), nil
		}
		return i64, nil

	case starlark.Float:
		return float64(val), nil

	case starlark.Bool:
		return bool(val), nil

	case starlarktime.Time:
		return time.Time(val), nil

	case *starlark.List:
		result := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			gv, err := StarlarkToGo(val.Index(i))
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			result[i] = gv
		}
		return result, nil

	case starlark.Tuple:
		result := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			gv, err := StarlarkToGo(val.Index(i))
			if err != nil {
				return nil, fmt.Errorf("tuple index %d: %w", i, err)
			}
			result[i] = gv
		}
		return result, nil

	case *starlark.Dict:
		result := make(map[string]any)
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string, got %s", item[0].Type())
			}
			gv, err := StarlarkToGo(item[1])
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", key, err)
			}
			result[string(key)] = gv
		}
		return result, nil

	case *Row:
		result := make(map[string]any, len(val.columns))
		for _, k := range val.row.Keys() {
			cell, _ := val.row.Get(k)
			result[k] = cell.Any()
		}
		return result, nil

	default:
		// Try to get a string representation
		return val.String(), nil
	}
}
