package envstore

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mikeleppane/envx-sub000/internal/apperr"
)

// wildcardToRegex converts a glob pattern into an anchored regular
// expression. `*` matches any run of characters and `?` a single one;
// every other regex metacharacter is escaped.
func wildcardToRegex(pattern string) string {
	var b strings.Builder
	b.WriteByte('^')
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteByte('.')
		case '.', '+', '^', '$', '(', ')', '[', ']', '{', '}', '|', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('$')
	return b.String()
}

// isWildcard reports whether p uses glob syntax.
func isWildcard(p string) bool {
	return strings.ContainsAny(p, "*?")
}

// MatchPattern reports whether name matches p using the store's
// pattern dispatch: `/…/` regex, glob, or exact.
func MatchPattern(p, name string) (bool, error) {
	match, err := compilePattern(p)
	if err != nil {
		return false, err
	}
	return match(name), nil
}

// compilePattern turns a lookup pattern into a matcher. Dispatch:
// a `/…/` form longer than two characters is a regular expression,
// a pattern containing `*` or `?` is a glob, anything else matches
// exactly.
func compilePattern(p string) (func(string) bool, error) {
	switch {
	case len(p) > 2 && strings.HasPrefix(p, "/") && strings.HasSuffix(p, "/"):
		re, err := regexp.Compile(p[1 : len(p)-1])
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", apperr.ErrInvalidPattern, p, err)
		}
		return re.MatchString, nil
	case isWildcard(p):
		re, err := regexp.Compile(wildcardToRegex(p))
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", apperr.ErrInvalidPattern, p, err)
		}
		return re.MatchString, nil
	default:
		return func(s string) bool { return s == p }, nil
	}
}
