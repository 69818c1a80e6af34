package models

import "time"

// Phase is one stage of the exploring -> acting -> verifying lifecycle a
// single agent's inner loop moves through (spec.md 3 "Phase state").
type Phase string

const (
	PhaseExploring Phase = "exploring"
	PhaseActing    Phase = "acting"
	PhaseVerifying Phase = "verifying"
)

// PhaseState tracks the current phase and the signals that drive its
// transitions.
type PhaseState struct {
	Current Phase

	UniqueFilesRead         int
	TestsRun                int
	ConsecutiveTestFailures int
	LastTestPassed          bool
	InTestFixCycle          bool
}

// NewPhaseState returns a fresh state starting in the exploring phase.
func NewPhaseState() PhaseState {
	return PhaseState{Current: PhaseExploring}
}

// ProgressState is the stuckness-detection bookkeeping of spec.md 3
// "Progress state". FilesRead/FilesModified are sets (membership only
// matters); CommandsRun is a count; the last N tool-call fingerprints are
// kept to detect doom loops (spec.md glossary, 3+ identical calls).
type ProgressState struct {
	FilesRead                map[string]struct{}
	FilesModified            map[string]struct{}
	CommandsRun              int
	LastFingerprints         []string // most recent last, capped at FingerprintWindow
	LastMeaningfulProgressTs time.Time
	StuckCount               int
}

// FingerprintWindow is N in "last-N tool-call fingerprints" (spec.md 3).
const FingerprintWindow = 10

// NewProgressState returns an empty progress tracker.
func NewProgressState() *ProgressState {
	return &ProgressState{
		FilesRead:     make(map[string]struct{}),
		FilesModified: make(map[string]struct{}),
	}
}

// RecordFingerprint appends a tool-call fingerprint, trimming to the window,
// and returns the new doom-loop run length: the number of trailing entries
// equal to the one just appended.
func (p *ProgressState) RecordFingerprint(fp string) int {
	p.LastFingerprints = append(p.LastFingerprints, fp)
	if len(p.LastFingerprints) > FingerprintWindow {
		p.LastFingerprints = p.LastFingerprints[len(p.LastFingerprints)-FingerprintWindow:]
	}
	run := 0
	for i := len(p.LastFingerprints) - 1; i >= 0; i-- {
		if p.LastFingerprints[i] != fp {
			break
		}
		run++
	}
	return run
}

// MarkProgress records that meaningful progress happened at ts, resetting
// the idle clock used for stuckness detection.
func (p *ProgressState) MarkProgress(ts time.Time) {
	p.LastMeaningfulProgressTs = ts
	p.StuckCount = 0
}

// IdleFor reports how long it has been since the last meaningful progress,
// as of now.
func (p *ProgressState) IdleFor(now time.Time) time.Duration {
	if p.LastMeaningfulProgressTs.IsZero() {
		return 0
	}
	return now.Sub(p.LastMeaningfulProgressTs)
}
