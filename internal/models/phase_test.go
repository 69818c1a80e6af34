package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewPhaseStateStartsExploring(t *testing.T) {
	p := NewPhaseState()
	assert.Equal(t, PhaseExploring, p.Current)
}

func TestNewProgressStateInitializesSets(t *testing.T) {
	p := NewProgressState()
	assert.NotNil(t, p.FilesRead)
	assert.NotNil(t, p.FilesModified)
	assert.Empty(t, p.LastFingerprints)
}

func TestRecordFingerprintTracksRunLength(t *testing.T) {
	p := NewProgressState()

	assert.Equal(t, 1, p.RecordFingerprint("a"))
	assert.Equal(t, 2, p.RecordFingerprint("a"))
	assert.Equal(t, 1, p.RecordFingerprint("b"))
	assert.Equal(t, 3, p.RecordFingerprint("b"))
	assert.Equal(t, 3, p.RecordFingerprint("b"))
}

func TestRecordFingerprintTrimsToWindow(t *testing.T) {
	p := NewProgressState()
	for i := 0; i < FingerprintWindow+5; i++ {
		p.RecordFingerprint("x")
	}
	assert.Len(t, p.LastFingerprints, FingerprintWindow)
}

func TestMarkProgressResetsStuckCount(t *testing.T) {
	p := NewProgressState()
	p.StuckCount = 5

	now := time.Now()
	p.MarkProgress(now)

	assert.Equal(t, 0, p.StuckCount)
	assert.Equal(t, now, p.LastMeaningfulProgressTs)
}

func TestIdleForZeroBeforeAnyProgress(t *testing.T) {
	p := NewProgressState()
	assert.Equal(t, time.Duration(0), p.IdleFor(time.Now()))
}

func TestIdleForMeasuresSinceLastProgress(t *testing.T) {
	p := NewProgressState()
	start := time.Now()
	p.MarkProgress(start)

	later := start.Add(5 * time.Second)
	assert.Equal(t, 5*time.Second, p.IdleFor(later))
}
