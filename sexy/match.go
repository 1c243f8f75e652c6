package sexy

import "fmt"

// Match reports whether actual has the shape of pattern. Atoms must be
// equal. Inside a list, "..." matches any run of zero or more items, so
// (fn "main" ...) matches every fn node named main. A bare "..." matches any
// datum.
func Match(pattern, actual *Node) bool {
	if pattern.Type == NodeEllipsis {
		return true
	}
	if pattern.Type != actual.Type {
		return false
	}
	if pattern.Type != NodeList {
		return pattern.Text == actual.Text
	}
	return matchItems(pattern.Items, actual.Items)
}

func matchItems(patterns, actuals []*Node) bool {
	if len(patterns) == 0 {
		return len(actuals) == 0
	}
	if patterns[0].Type == NodeEllipsis {
		for skip := 0; skip <= len(actuals); skip++ {
			if matchItems(patterns[1:], actuals[skip:]) {
				return true
			}
		}
		return false
	}
	if len(actuals) == 0 || !Match(patterns[0], actuals[0]) {
		return false
	}
	return matchItems(patterns[1:], actuals[1:])
}

// MatchString parses actual and matches it against pattern. The error
// describes a parse failure or the mismatch.
func MatchString(pattern *Node, actual string) error {
	node, err := Parse(actual)
	if err != nil {
		return fmt.Errorf("cannot parse %q: %w", actual, err)
	}
	if !Match(pattern, node) {
		return fmt.Errorf("pattern does not match\npattern: %s\n actual: %s", pattern, node)
	}
	return nil
}
