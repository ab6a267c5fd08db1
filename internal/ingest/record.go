package ingest

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"mls-property-api/internal/mls"
)

// record reads typed values out of a feed record. Every accessor returns
// nil for a missing key or a value it cannot interpret.
type record mls.Record

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func (r record) str(key string) *string {
	v, ok := r[key]
	if !ok || v == nil {
		return nil
	}
	var s string
	switch t := v.(type) {
	case string:
		s = strings.TrimSpace(t)
	case []interface{}:
		s = joinList(t)
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(t)
	case map[string]interface{}:
		b, err := json.Marshal(t)
		if err != nil {
			return nil
		}
		s = string(b)
	default:
		return nil
	}
	if s == "" {
		return nil
	}
	return &s
}

// joinList renders multi-select feed values as "a, b, c".
func joinList(items []interface{}) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		switch t := item.(type) {
		case nil:
		case string:
			if t = strings.TrimSpace(t); t != "" {
				parts = append(parts, t)
			}
		case float64:
			parts = append(parts, strconv.FormatFloat(t, 'f', -1, 64))
		case bool:
			parts = append(parts, strconv.FormatBool(t))
		}
	}
	return strings.Join(parts, ", ")
}

func (r record) float(key string) *float64 {
	v, ok := r[key]
	if !ok || v == nil {
		return nil
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(t, ",", "")), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func (r record) integer(key string) *int {
	f := r.float(key)
	if f == nil || math.Abs(*f) > math.MaxInt32 {
		return nil
	}
	n := int(math.Round(*f))
	return &n
}

func (r record) boolean(key string) *bool {
	v, ok := r[key]
	if !ok || v == nil {
		return nil
	}
	var b bool
	switch t := v.(type) {
	case bool:
		b = t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "1", "y":
			b = true
		}
	case float64:
		b = t != 0
	default:
		return nil
	}
	return &b
}

func (r record) time(key string) *time.Time {
	s := r.str(key)
	if s == nil {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, *s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// media returns the expanded media array, or nil when absent.
func (r record) media() []interface{} {
	items, _ := r["Media"].([]interface{})
	return items
}
