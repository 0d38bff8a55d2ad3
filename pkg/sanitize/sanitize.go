// Package sanitize redacts credentials from values before they are logged.
//
// Every function returns a copy and leaves its input untouched. Applying a function to its own
// output returns the same output.
package sanitize

import (
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Redacted replaces sensitive values.
const Redacted = "***REDACTED***"

var sensitiveKeys = map[string]bool{
	"authorization": true,
	"password":      true,
	"devicetoken":   true,
	"token":         true,
	"access_token":  true,
	"refresh_token": true,
	"id_token":      true,
	"client_secret": true,
	"secret":        true,
	"cookie":        true,
	"set-cookie":    true,
}

// IsSensitive reports whether values stored under key must not be logged. Matching is
// case-insensitive.
func IsSensitive(key string) bool {
	return sensitiveKeys[strings.ToLower(key)]
}

// Value recursively copies maps and slices decoded from JSON, redacting sensitive map keys.
func Value(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, item := range t {
			if IsSensitive(k) {
				out[k] = Redacted
			} else {
				out[k] = Value(item)
			}
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, item := range t {
			if IsSensitive(k) {
				out[k] = Redacted
			} else {
				out[k] = item
			}
		}
		return out
	case []interface{}:
		return lo.Map(t, func(item interface{}, _ int) interface{} { return Value(item) })
	}
	return v
}

// Keys returns the sorted top-level keys of m with sensitive keys replaced by [Redacted].
func Keys(m map[string]interface{}) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return lo.Map(keys, func(k string, _ int) string {
		if IsSensitive(k) {
			return Redacted
		}
		return k
	})
}

// Headers returns a copy of h with the values of sensitive headers redacted.
func Headers(h http.Header) http.Header {
	if h == nil {
		return nil
	}
	out := make(http.Header, len(h))
	for k, values := range h {
		if IsSensitive(k) {
			out[k] = []string{Redacted}
			continue
		}
		out[k] = append([]string(nil), values...)
	}
	return out
}

// URL redacts sensitive query parameters in rawURL. Parameter order and unrelated parameters are
// preserved verbatim. Strings that do not parse as URLs are returned unchanged.
func URL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.RawQuery == "" {
		return rawURL
	}
	pairs := strings.Split(u.RawQuery, "&")
	for i, pair := range pairs {
		rawKey, _, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			key = rawKey
		}
		if IsSensitive(key) {
			pairs[i] = rawKey + "=" + url.QueryEscape(Redacted)
		}
	}
	u.RawQuery = strings.Join(pairs, "&")
	return u.String()
}
