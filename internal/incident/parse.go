package incident

import (
	"regexp"
	"strings"
)

var (
	dagNameRe = regexp.MustCompile(`DAG \*(.*?)\*`)
	runIDRe   = regexp.MustCompile(`Run ID: \*(.*?)\*`)
	runDateRe = regexp.MustCompile(`Run Date: \*(.*?)\*`)
)

// Parse extracts structured incident fields from notification text. It is
// pure and total: fields that are not found stay empty and the status
// defaults to unknown. The raw text is always retained.
func Parse(text string) Incident {
	cleaned := strings.TrimSpace(text)

	in := Incident{
		Status:  classify(cleaned),
		RawText: text,
	}

	if m := dagNameRe.FindStringSubmatch(cleaned); m != nil {
		in.DAGName = m[1]
	}
	if m := runIDRe.FindStringSubmatch(cleaned); m != nil {
		in.RunID = m[1]
	}
	if m := runDateRe.FindStringSubmatch(cleaned); m != nil {
		in.RunDate = m[1]
	}

	return in
}

// classify picks exactly one status from the failure/success keywords.
// "failed" wins when both appear, matching the upstream alert templates
// which never mix them.
func classify(text string) Status {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "failed"):
		return StatusFailed
	case strings.Contains(lower, "success"), strings.Contains(lower, "succeeded"):
		return StatusSucceeded
	default:
		return StatusUnknown
	}
}
