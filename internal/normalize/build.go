// Package normalize turns raw survey submissions into a typed RecordSet:
// timestamp coercion, duration conversion, geopoint splitting, and the
// start-date retention filter.
package normalize

import (
	"encoding/json"
	"sort"

	"github.com/spf13/cast"

	"github.com/mzee2025/rdi-dashboard/internal/model"
)

// FromRaw builds a RecordSet from flat key/value records. Columns appear in
// order of first appearance, keys of one record sorted. Column types are
// inferred from the converted values.
func FromRaw(records []map[string]any) *model.RecordSet {
	rs := model.NewRecordSet()
	for _, rec := range records {
		keys := make([]string, 0, len(rec))
		values := make(map[string]model.Value, len(rec))
		for k, raw := range rec {
			keys = append(keys, k)
			values[k] = ToValue(raw)
		}
		sort.Strings(keys)
		rs.Append(values, keys...)
	}
	rs.InferTypes()
	return rs
}

// ToValue converts one decoded JSON cell into a Value. Nested arrays and
// objects are kept as compact JSON text; booleans become "true"/"false".
func ToValue(raw any) model.Value {
	switch v := raw.(type) {
	case nil:
		return model.Missing()
	case string:
		return model.String(v)
	case float64:
		return model.Number(v)
	case float32:
		return model.Number(float64(v))
	case int, int32, int64, uint, uint32, uint64:
		return model.Number(cast.ToFloat64(v))
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return model.String(v.String())
		}
		return model.Number(f)
	case bool:
		return model.String(cast.ToString(v))
	case []any, map[string]any:
		b, err := json.Marshal(v)
		if err != nil {
			return model.Missing()
		}
		return model.String(string(b))
	default:
		s, err := cast.ToStringE(v)
		if err != nil {
			return model.Missing()
		}
		return model.String(s)
	}
}
