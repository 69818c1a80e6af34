package spawner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClosureReportExtractsTrailingJSON(t *testing.T) {
	output := `Here's a summary of what I did.

{"findings":["the bug was in auth.go"],"actionsTaken":["patched auth.go"],"failures":[],"remainingWork":[],"suggestedNextSteps":["add a regression test"]}`

	report := parseClosureReport(output)
	require.NotNil(t, report)
	assert.Equal(t, []string{"the bug was in auth.go"}, report.Findings)
	assert.Equal(t, []string{"patched auth.go"}, report.ActionsTaken)
	assert.Equal(t, []string{"add a regression test"}, report.SuggestedNextSteps)
	assert.False(t, report.Recovered)
}

func TestParseClosureReportRecoversLenientJSON(t *testing.T) {
	output := `Done.

{findings: ["ok"], actionsTaken: ["did it"], failures: [], remainingWork: [], suggestedNextSteps: [],}`

	report := parseClosureReport(output)
	require.NotNil(t, report)
	assert.True(t, report.Recovered)
	assert.Equal(t, []string{"ok"}, report.Findings)
}

func TestParseClosureReportNilWhenNoTrailingObject(t *testing.T) {
	assert.Nil(t, parseClosureReport("just prose, no structured report here."))
}

func TestParseClosureReportFillsNilSlicesWithEmpty(t *testing.T) {
	output := `{"findings":["x"]}`
	report := parseClosureReport(output)
	require.NotNil(t, report)
	assert.Equal(t, []string{}, report.ActionsTaken)
	assert.Equal(t, []string{}, report.Failures)
	assert.Equal(t, []string{}, report.RemainingWork)
	assert.Equal(t, []string{}, report.SuggestedNextSteps)
}

func TestExtractTrailingObjectIgnoresBracesInsideStrings(t *testing.T) {
	s := `prose { not json } more prose {"a": "value with } inside"}`
	extracted := extractTrailingObject(s)
	assert.Equal(t, `{"a": "value with } inside"}`, extracted)
}

func TestExtractTrailingObjectEmptyWhenUnbalanced(t *testing.T) {
	assert.Equal(t, "", extractTrailingObject("no braces at all"))
}

func TestMatchBracesRequiresCandidateEndAtGivenEnd(t *testing.T) {
	s := `{"a":1} trailing`
	candidate, ok := matchBraces(s, 0, len(s)-1)
	assert.False(t, ok)
	assert.Equal(t, "", candidate)
}
