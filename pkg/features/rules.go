package features

import "fmt"

// DefaultRules returns the built-in catalogue of detectable features, from
// C# 7.1 through 12.0.
func DefaultRules() []Rule {
	var rules []Rule

	for _, group := range [][]Rule{rulesV7(), rulesV8(), rulesV9(), rulesV10(), rulesV11(), rulesV12()} {
		rules = append(rules, group...)
	}

	return rules
}

// DefaultTable builds a table over DefaultRules.
func DefaultTable(opts ...Option) (*Table, error) {
	t, err := NewTable(DefaultRules(), opts...)
	if err != nil {
		return nil, fmt.Errorf("default rule table: %w", err)
	}

	return t, nil
}

// MustDefaultTable is DefaultTable without options; it panics on error.
func MustDefaultTable() *Table {
	t, err := DefaultTable()
	if err != nil {
		panic(err)
	}

	return t
}
