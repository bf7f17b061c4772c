package control

import (
	"strings"

	"github.com/tidwall/match"
)

// matchPath reports whether path fits pattern, where pattern's single "*"
// segment stands for the one path parameter (a fault name or simulation id)
// each of the two parameterized routes carries.
func matchPath(pattern, path string) bool {
	return match.Match(path, pattern)
}

// pathParam extracts the path segment matched by pattern's "*" wildcard,
// which by construction is always the path's second segment.
func pathParam(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
