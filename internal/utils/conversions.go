package utils

import "encoding/json"

func ToStringSlice(slice []any) []string {
	stringSlice := make([]string, 0)
	for _, v := range slice {
		if s, ok := v.(string); ok {
			stringSlice = append(stringSlice, s)
		}
	}
	return stringSlice
}

// ToStringID normalises a decoded JSON identifier to its string form.
// Servers disagree on whether ids are numbers or strings; both are
// accepted and carried as opaque strings.
func ToStringID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case json.Number:
		return id.String()
	case float64:
		return json.Number(jsonFloat(id)).String()
	}
	return ""
}

func jsonFloat(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}

// CloneSlice returns a copy of s so callers can hand out snapshots
// without sharing backing arrays.
func CloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
