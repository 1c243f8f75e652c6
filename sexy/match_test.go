package sexy

import (
	"testing"

	"github.com/nalgeon/be"
)

func mustParse(t *testing.T, input string) *Node {
	t.Helper()
	node, err := Parse(input)
	be.Err(t, err, nil)
	return node
}

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		actual  string
		want    bool
	}{
		{"x", "x", true},
		{"x", "y", false},
		{`"x"`, "x", false},
		{"1", "1", true},
		{"1", "2", false},
		{"...", "(anything (at all))", true},
		{"()", "()", true},
		{"(a b)", "(a b)", true},
		{"(a b)", "(a b c)", false},
		{"(a b c)", "(a b)", false},
		{"(a ...)", "(a)", true},
		{"(a ...)", "(a b c)", true},
		{"(a ...)", "(b c)", false},
		{"(... c)", "(a b c)", true},
		{"(... c)", "(a b)", false},
		{"(a ... d)", "(a b c d)", true},
		{"(a ... d)", "(a d)", true},
		{"(a ... b ... c)", "(a x b y c)", true},
		{"(a ... b ... c)", "(a x c y b)", false},
		{"(f (g ...) ...)", "(f (g 1 2) 3)", true},
		{"(f (g ...) ...)", "(f (h 1 2) 3)", false},
		{"(a)", "a", false},
		{"a", "(a)", false},
	}

	for _, test := range tests {
		t.Run(test.pattern+" ~ "+test.actual, func(t *testing.T) {
			got := Match(mustParse(t, test.pattern), mustParse(t, test.actual))
			be.Equal(t, got, test.want)
		})
	}
}

func TestMatchString(t *testing.T) {
	pattern := mustParse(t, `(call "f" ...)`)

	be.Err(t, MatchString(pattern, `(call "f" i32 (integer 1 i32))`), nil)
	be.Err(t, MatchString(pattern, `(call "g" i32)`), "pattern does not match")
	be.Err(t, MatchString(pattern, `(call`), "cannot parse")
}
