package envstore

import "testing"

func TestWildcardToRegex(t *testing.T) {
	cases := []struct {
		pattern string
		want    string
	}{
		{"API_*", "^API_.*$"},
		{"*_KEY", "^.*_KEY$"},
		{"V?", "^V.$"},
		{"A.B", "^A\\.B$"},
		{"A+B", "^A\\+B$"},
		{"(X)", "^\\(X\\)$"},
	}
	for _, c := range cases {
		if got := wildcardToRegex(c.pattern); got != c.want {
			t.Errorf("wildcardToRegex(%q) = %q, want %q", c.pattern, got, c.want)
		}
	}
}

func TestCompilePatternDispatch(t *testing.T) {
	cases := []struct {
		pattern string
		name    string
		match   bool
	}{
		{"/^A/", "ABC", true},
		{"/^A/", "BAC", false},
		{"A*", "ABC", true},
		{"A?", "AB", true},
		{"A?", "ABC", false},
		{"ABC", "ABC", true},
		{"ABC", "ABCD", false},
		// A bare "/" or "//" is too short for the regex form.
		{"/", "/", true},
	}
	for _, c := range cases {
		match, err := compilePattern(c.pattern)
		if err != nil {
			t.Fatalf("compilePattern(%q): %v", c.pattern, err)
		}
		if got := match(c.name); got != c.match {
			t.Errorf("pattern %q against %q = %v, want %v", c.pattern, c.name, got, c.match)
		}
	}
}
