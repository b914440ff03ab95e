// Package proctitle sets a best-effort process title, with
// platform-specific behavior split into its own //go:build-tagged file.
package proctitle

import "fmt"

// Build formats the title string every worker and mold process reports:
// "<name>: cluster <role> <index>: <master_pid>", with " [<tag>]"
// appended when tag is non-empty.
func Build(name, role string, index, masterPid int, tag string) string {
	title := fmt.Sprintf("%s: cluster %s %d: %d", name, role, index, masterPid)
	if tag != "" {
		title += fmt.Sprintf(" [%s]", tag)
	}
	return title
}
