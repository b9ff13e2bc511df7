package model

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Kind identifies the dynamic type held by a Value.
type Kind int

const (
	KindMissing Kind = iota
	KindString
	KindNumber
	KindTime
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindTime:
		return "time"
	default:
		return "missing"
	}
}

// TimeLayout is the textual form used for timestamps in exports and labels.
const TimeLayout = "2006-01-02 15:04:05"

// Value is a single nullable cell of a RecordSet. The zero Value is missing.
type Value struct {
	kind Kind
	s    string
	n    float64
	t    time.Time
}

// Missing returns the missing Value.
func Missing() Value { return Value{} }

// String returns a string Value. Empty or whitespace-only strings are missing.
func String(s string) Value {
	if strings.TrimSpace(s) == "" {
		return Value{}
	}
	return Value{kind: KindString, s: s}
}

// Number returns a numeric Value. NaN and infinities are missing.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{kind: KindNumber, n: f}
}

// Time returns a timestamp Value normalized to UTC wall time.
func Time(t time.Time) Value {
	if t.IsZero() {
		return Value{}
	}
	return Value{kind: KindTime, t: t.UTC()}
}

// Kind reports the dynamic type of v.
func (v Value) Kind() Kind { return v.kind }

// IsMissing reports whether v holds no value.
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// Str returns the string payload if v is a string.
func (v Value) Str() (string, bool) {
	return v.s, v.kind == KindString
}

// Num returns the numeric payload if v is a number.
func (v Value) Num() (float64, bool) {
	return v.n, v.kind == KindNumber
}

// Timestamp returns the time payload if v is a timestamp.
func (v Value) Timestamp() (time.Time, bool) {
	return v.t, v.kind == KindTime
}

// Float returns v as a finite float64. Numbers are returned as is and
// strings are parsed; any other kind reports false. This is the one numeric
// coercion used by normalization and the quality metrics.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.n, true
	case KindString:
		f, err := cast.ToFloat64E(strings.TrimSpace(v.s))
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// String renders v for labels, grouping keys, and exports. Missing renders
// as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return FormatNumber(v.n)
	case KindTime:
		return v.t.Format(TimeLayout)
	default:
		return ""
	}
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindNumber:
		return v.n == o.n
	case KindTime:
		return v.t.Equal(o.t)
	default:
		return true
	}
}

// Compare orders values: numbers, then timestamps, then strings, with
// missing values last.
func Compare(a, b Value) int {
	if a.kind != b.kind {
		return kindRank(a.kind) - kindRank(b.kind)
	}
	switch a.kind {
	case KindNumber:
		switch {
		case a.n < b.n:
			return -1
		case a.n > b.n:
			return 1
		}
		return 0
	case KindTime:
		return a.t.Compare(b.t)
	case KindString:
		return strings.Compare(a.s, b.s)
	default:
		return 0
	}
}

func kindRank(k Kind) int {
	switch k {
	case KindNumber:
		return 0
	case KindTime:
		return 1
	case KindString:
		return 2
	default:
		return 3
	}
}

// FormatNumber renders f with the minimal number of digits, so whole
// numbers print without a decimal point.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
