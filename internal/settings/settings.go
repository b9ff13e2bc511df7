// Package settings loads the quality-check settings used by one refresh
// cycle. Settings live in a JSON or YAML file; anything missing or invalid
// falls back to the documented default with a warning, so loading never
// fails a cycle.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mzee2025/rdi-dashboard/internal/model"
)

// Format is the encoding of a settings file.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf picks the format from a file extension; anything that is not
// .yaml or .yml is read as JSON.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads settings from path. A missing or malformed file yields the
// defaults; invalid individual values fall back to their own default. Each
// fallback is logged as a warning.
func Load(path string) model.Settings {
	log := zap.L().With(zap.String("component", "settings"), zap.String("path", path))

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug("settings: file not found, using defaults")
		} else {
			log.Warn("settings: read failed, using defaults", zap.Error(err))
		}
		return model.DefaultSettings()
	}

	s, warnings, err := Parse(data, FormatOf(path))
	if err != nil {
		log.Warn("settings: malformed file, using defaults", zap.Error(err))
		return model.DefaultSettings()
	}
	for _, w := range warnings {
		log.Warn("settings: invalid value, using default", zap.String("detail", w))
	}
	return s
}

// Parse decodes settings from data. The returned warnings describe values
// that were replaced by their default. An error means the document itself
// could not be decoded.
func Parse(data []byte, format Format) (model.Settings, []string, error) {
	raw := map[string]any{}
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return model.DefaultSettings(), nil, eris.Wrap(err, "settings: decode yaml")
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return model.DefaultSettings(), nil, eris.Wrap(err, "settings: decode json")
		}
	}
	s, warnings := fromMap(raw)
	return s, warnings, nil
}

func fromMap(raw map[string]any) (model.Settings, []string) {
	s := model.DefaultSettings()
	var warnings []string
	warn := func(key string, v any, err error) {
		warnings = append(warnings, fmt.Sprintf("%s=%v: %v", key, v, err))
	}

	minD, maxD := s.MinDuration, s.MaxDuration
	if v, ok := present(raw, "min_duration"); ok {
		f, err := cast.ToFloat64E(v)
		if err != nil || f < 0 {
			warn("min_duration", v, orInvalid(err, "must be a non-negative number"))
		} else {
			minD = f
		}
	}
	if v, ok := present(raw, "max_duration"); ok {
		f, err := cast.ToFloat64E(v)
		if err != nil || f < 0 {
			warn("max_duration", v, orInvalid(err, "must be a non-negative number"))
		} else {
			maxD = f
		}
	}
	if minD > maxD {
		warn("min_duration", minD, eris.Errorf("exceeds max_duration %v", maxD))
	} else {
		s.MinDuration, s.MaxDuration = minD, maxD
	}

	if v, ok := present(raw, "start_date"); ok {
		t, err := parseDate(v)
		if err != nil {
			warn("start_date", v, err)
		} else {
			s.StartDate = t
		}
	}

	if v, ok := present(raw, "required_fields"); ok {
		fields, err := cast.ToStringSliceE(v)
		if err != nil {
			warn("required_fields", v, err)
		} else {
			s.RequiredFields = nonBlank(fields)
		}
	}

	if v, ok := present(raw, "target_boundaries"); ok {
		b, err := parseBounds(v)
		if err != nil {
			warn("target_boundaries", v, err)
		} else {
			s.TargetBoundaries = b
		}
	}

	if v, ok := present(raw, "gps_tolerance"); ok {
		f, err := cast.ToFloat64E(v)
		if err != nil || f <= 0 {
			warn("gps_tolerance", v, orInvalid(err, "must be a positive number"))
		} else {
			s.GPSTolerance = f
		}
	}

	if v, ok := present(raw, "column_mapping"); ok {
		m, err := cast.ToStringMapStringE(v)
		if err != nil {
			warn("column_mapping", v, err)
		} else {
			for role, col := range m {
				if _, known := model.DefaultColumns[role]; !known {
					warn("column_mapping."+role, col, eris.New("unknown role"))
					continue
				}
				if col = strings.TrimSpace(col); col != "" {
					s.ColumnMapping[role] = col
				}
			}
		}
	}

	if v, ok := present(raw, "target_districts"); ok {
		d, err := cast.ToStringSliceE(v)
		if err != nil {
			warn("target_districts", v, err)
		} else {
			s.TargetDistricts = nonBlank(d)
		}
	}

	return s, warnings
}

// present returns raw[key] when the key exists and is not null.
func present(raw map[string]any, key string) (any, bool) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func orInvalid(err error, msg string) error {
	if err != nil {
		return err
	}
	return eris.New(msg)
}

func parseDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
	case string:
		d = strings.TrimSpace(d)
		if t, err := time.Parse(time.DateOnly, d); err == nil {
			return t, nil
		}
		t, err := time.Parse(time.RFC3339, d)
		if err != nil {
			return time.Time{}, eris.Errorf("expected YYYY-MM-DD, got %q", d)
		}
		t = t.UTC()
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	default:
		return time.Time{}, eris.Errorf("expected a date string, got %T", v)
	}
}

// parseBounds reads a bounding box; absent edges default to the whole globe.
func parseBounds(v any) (*model.Bounds, error) {
	m, err := cast.ToStringMapE(v)
	if err != nil {
		return nil, err
	}
	b := &model.Bounds{LatMin: -90, LatMax: 90, LonMin: -180, LonMax: 180}
	edges := []struct {
		key string
		dst *float64
	}{
		{"lat_min", &b.LatMin},
		{"lat_max", &b.LatMax},
		{"lon_min", &b.LonMin},
		{"lon_max", &b.LonMax},
	}
	for _, e := range edges {
		raw, ok := present(m, e.key)
		if !ok {
			continue
		}
		f, err := cast.ToFloat64E(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "%s", e.key)
		}
		*e.dst = f
	}
	if b.LatMin > b.LatMax || b.LonMin > b.LonMax {
		return nil, eris.New("minimum exceeds maximum")
	}
	return b, nil
}

func nonBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
