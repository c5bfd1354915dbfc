package transport

import (
	"net/http"
	"sort"
	"strings"
)

// ParseCookies parses a raw "k1=v1; k2=v2" cookie string.
// Segments without '=' or with an empty name are skipped; an empty
// string yields an empty map.
func ParseCookies(raw string) map[string]string {
	cookies := make(map[string]string)
	if raw == "" {
		return cookies
	}
	for _, item := range strings.Split(raw, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(item), "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		cookies[name] = value
	}
	return cookies
}

// httpCookies converts the parsed map to jar cookies in name order.
func httpCookies(cookies map[string]string) []*http.Cookie {
	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*http.Cookie, 0, len(names))
	for _, name := range names {
		out = append(out, &http.Cookie{Name: name, Value: cookies[name], Path: "/"})
	}
	return out
}
