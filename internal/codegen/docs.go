package codegen

import "strings"

// docText collapses a description into one line with single spaces between
// words. Blank lines are dropped.
func docText(desc string) string {
	return strings.Join(strings.Fields(desc), " ")
}
