package api

import (
	"sort"
	"strings"
	"time"
)

// unknownColumn returns the first (alphabetically) payload key not in the
// table's column set, mimicking how a real schema cache would reject the
// whole insert over a single stray column.
func unknownColumn(payload map[string]any, columns map[string]struct{}) (string, bool) {
	var unknown []string
	for k := range payload {
		if _, ok := columns[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return "", false
	}
	sort.Strings(unknown)
	return unknown[0], true
}

func stringField(payload map[string]any, key string) string {
	v, _ := payload[key].(string)
	return v
}

func floatField(payload map[string]any, key string) (float64, bool) {
	v, ok := payload[key].(float64)
	return v, ok
}

func boolField(payload map[string]any, key string, def bool) bool {
	if v, ok := payload[key].(bool); ok {
		return v
	}
	return def
}

func stringSliceField(payload map[string]any, key string) []string {
	raw, ok := payload[key].([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func timeField(payload map[string]any, key string, def time.Time) (time.Time, error) {
	s, ok := payload[key].(string)
	if !ok || s == "" {
		return def, nil
	}
	return time.Parse(time.RFC3339, s)
}

// parseEqFilter extracts the value of an "eq.<value>" filter.
func parseEqFilter(raw string) (string, bool) {
	if v, ok := strings.CutPrefix(raw, "eq."); ok && v != "" {
		return v, true
	}
	return "", false
}

// parseInFilter extracts the values of an "in.(a,b,c)" filter.
func parseInFilter(raw string) ([]string, bool) {
	inner, ok := strings.CutPrefix(raw, "in.(")
	if !ok || !strings.HasSuffix(inner, ")") {
		return nil, false
	}
	inner = strings.TrimSuffix(inner, ")")
	if inner == "" {
		return nil, false
	}
	parts := strings.Split(inner, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts, true
}
