package normalize

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cast"

	"github.com/mzee2025/rdi-dashboard/internal/model"
)

// IsTimeColumn reports whether a column name looks temporal.
func IsTimeColumn(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "time") || strings.Contains(lower, "date")
}

// CoerceTimeColumn parses every value of one column into a UTC timestamp.
// Any unparseable value aborts the whole column: the RecordSet is left
// unchanged and the offending value is reported.
func CoerceTimeColumn(rs *model.RecordSet, name string) error {
	values := rs.Column(name)
	if values == nil {
		return eris.Errorf("normalize: column %q not found", name)
	}
	out := make([]model.Value, len(values))
	for i, v := range values {
		switch v.Kind() {
		case model.KindMissing, model.KindTime:
			out[i] = v
		case model.KindString:
			s, _ := v.Str()
			t, err := cast.ToTimeE(strings.TrimSpace(s))
			if err != nil {
				return eris.Wrapf(err, "normalize: column %q row %d", name, i)
			}
			out[i] = model.Time(t)
		default:
			return eris.Errorf("normalize: column %q row %d: cannot parse %s as timestamp", name, i, v.Kind())
		}
	}
	return rs.SetColumn(name, model.ColumnTime, out)
}
