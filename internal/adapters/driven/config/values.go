// Package config holds what the config store adapters share: coercion of
// stored values into the types the settings service reads.
//
// Values reach a store either from Go callers (int, []string) or from a
// decoded TOML file (int64, []any), so each coercion accepts both forms.
package config

// String returns v as a string, or "" when v is not one.
func String(v any) string {
	s, _ := v.(string)
	return s
}

// Int returns v as an int. Floats are truncated.
func Int(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// Float returns v as a float64. Whole numbers are accepted so that
// "high_threshold = 1" reads the same as 1.0.
func Float(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

// Bool returns v as a bool, or false when v is not one.
func Bool(v any) bool {
	b, _ := v.(bool)
	return b
}

// Strings returns v as a string slice. Non-string elements of a decoded
// array are skipped.
func Strings(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}
