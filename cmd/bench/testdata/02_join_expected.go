package report

import "strings"

// Tags renders tags as a comma separated list.
func Tags(tags []string) string {
	return strings.Join(tags, ", ")
}
