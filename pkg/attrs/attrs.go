// Package attrs reads slog-style key/value attribute slices.
package attrs

// Lookup returns the value paired with key in a [k1, v1, k2, v2, ...] slice.
func Lookup(attrs []any, key string) (any, bool) {
	for i := 0; i+1 < len(attrs); i += 2 {
		if k, ok := attrs[i].(string); ok && k == key {
			return attrs[i+1], true
		}
	}
	return nil, false
}

// Has reports whether key is present.
func Has(attrs []any, key string) bool {
	_, ok := Lookup(attrs, key)
	return ok
}

// ExtractString returns the string value for key, or "" when the key is
// missing or its value is not a string.
func ExtractString(attrs []any, key string) string {
	v, ok := Lookup(attrs, key)
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	return ""
}
