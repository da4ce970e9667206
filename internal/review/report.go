package review

import (
	"fmt"
	"strings"
)

var pathLabels = []struct {
	path  Path
	label string
}{
	{PathManualSplit, "manual split"},
	{PathManualAccount, "manual account"},
	{PathDefaultRule, "default rule"},
	{PathSuggestedAccount, "suggested account"},
}

// Summary renders the report as a one-line confirmation message.
func (r *Report) Summary() string {
	var parts []string

	for _, pl := range pathLabels {
		if n := r.ByPath[pl.path]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, pl.label))
		}
	}

	msg := fmt.Sprintf("Updated %d transaction%s", r.Updated, plural(r.Updated))
	if len(parts) > 0 {
		msg += " (" + strings.Join(parts, ", ") + ")"
	}

	msg += "."

	if r.Failed > 0 {
		msg += fmt.Sprintf(" %d failed.", r.Failed)
	}

	if r.Skipped > 0 {
		msg += fmt.Sprintf(" %d skipped.", r.Skipped)
	}

	return msg
}

func plural(n int) string {
	if n == 1 {
		return ""
	}

	return "s"
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
