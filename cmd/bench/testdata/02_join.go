package report

import "strings"

// Tags renders tags as a comma separated list.
func Tags(tags []string) string {
	var sb strings.Builder
	for i, t := range tags {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(t)
	}
	return sb.String()
}
