package cmd

import (
	"time"

	"github.com/briandowns/spinner"
)

// newWaitSpinner builds a spinner for long CLI waits (decomposition calls,
// rate-limit backoff), grounded on the teacher pack's own spinner helper
// (KooshaPari-KaskMan's cmd/cli/utils.NewSpinner).
func newWaitSpinner(message string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Color("cyan")
	return s
}
