// Package attrs reads values back out of slog-style key/value lists.
package attrs

// Lookup returns the value paired with key in a flat [k1, v1, k2, v2, ...]
// list. Later pairs win, matching how slog renders duplicate keys.
func Lookup(kv []any, key string) (any, bool) {
	var (
		found any
		ok    bool
	)
	for i := 0; i+1 < len(kv); i += 2 {
		if k, isString := kv[i].(string); isString && k == key {
			found, ok = kv[i+1], true
		}
	}
	return found, ok
}

// String returns the string value for key, or "" when missing or not a string.
func String(kv []any, key string) string {
	v, _ := Lookup(kv, key)
	s, _ := v.(string)
	return s
}
