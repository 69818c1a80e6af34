package spawner

import (
	"strings"

	"github.com/swarmforge/swarmcore/internal/jsonrelax"
	"github.com/swarmforge/swarmcore/internal/models"
)

// parseClosureReport extracts the structured closure report from the tail
// of a child's text output (spec.md 4.G "Execution" step 2): a JSON object
// with findings/actionsTaken/failures/remainingWork/suggestedNextSteps.
// Absence is permitted on a completed run — a nil return is not an error.
func parseClosureReport(output string) *models.ClosureReport {
	tail := extractTrailingObject(output)
	if tail == "" {
		return nil
	}

	var report models.ClosureReport
	result, err := jsonrelax.Parse(tail, &report)
	if err != nil {
		return nil
	}
	report.Recovered = result.Recovered

	if report.Findings == nil {
		report.Findings = []string{}
	}
	if report.ActionsTaken == nil {
		report.ActionsTaken = []string{}
	}
	if report.Failures == nil {
		report.Failures = []string{}
	}
	if report.RemainingWork == nil {
		report.RemainingWork = []string{}
	}
	if report.SuggestedNextSteps == nil {
		report.SuggestedNextSteps = []string{}
	}
	return &report
}

// extractTrailingObject finds the last top-level balanced {...} span in s
// by scanning backward from the last '}' and matching brace depth forward
// from the candidate start, skipping quoted strings. Returns "" if no
// balanced object is found, or if what's found does not parse as any kind
// of JSON object at all (a cheap sanity check before handing it to the
// relaxed parser).
func extractTrailingObject(s string) string {
	end := strings.LastIndexByte(s, '}')
	for end >= 0 {
		start := strings.LastIndexByte(s[:end+1], '{')
		for start >= 0 {
			if candidate, ok := matchBraces(s, start, end); ok {
				return candidate
			}
			next := strings.LastIndexByte(s[:start], '{')
			start = next
		}
		end = strings.LastIndexByte(s[:end], '}')
	}
	return ""
}

func matchBraces(s string, start, end int) (string, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i <= end; i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], i == end
			}
			if depth < 0 {
				return "", false
			}
		}
	}
	return "", false
}
