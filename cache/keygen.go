package cache

import (
	"sort"
	"strings"
)

// KeyFor builds a stable key from path + sorted params. Params with an empty
// value are left out so an unset filter and a missing filter share an entry.
func KeyFor(path string, params map[string]string) string {
	parts := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)

	if len(parts) == 0 {
		return path
	}
	return path + "?" + strings.Join(parts, "&")
}
