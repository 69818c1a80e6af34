package spawner

import (
	"strings"
	"sync"
	"time"
)

// dedupWindow is the 60-second window per agentName within which a repeat
// spawn is treated as a duplicate (spec.md 4.G).
const dedupWindow = 60 * time.Second

// semanticThreshold is the Jaccard-overlap cutoff above which two task
// descriptions are treated as the same request (spec.md 4.G, 9 "tuned
// empirically; expose as configuration").
const semanticThreshold = 0.75

// normalizedPrefixLen is the length of the normalized task prefix used for
// exact duplicate matching (spec.md 4.G).
const normalizedPrefixLen = 150

// dedupEntry records one prior spawn for duplicate-prevention matching and
// for the synthetic result a duplicate hit returns.
type dedupEntry struct {
	agentName      string
	normalizedTask string
	tokens         map[string]struct{}
	at             time.Time
	resultSummary  string
	queuedChanges  int
}

// DedupHit is what a duplicate match returns: enough information to build
// the synthetic success result spec.md 4.G describes ("quoting the
// original result summary and the count of queued plan changes").
type DedupHit struct {
	ResultSummary string
	QueuedChanges int
	MatchKind     string // "exact" or "semantic"
}

// dedupCache tracks recent spawns per agentName so Spawn can recognize and
// short-circuit a duplicate request rather than re-spawning.
type dedupCache struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[string][]dedupEntry
}

func newDedupCache() *dedupCache {
	return &dedupCache{window: dedupWindow, entries: make(map[string][]dedupEntry)}
}

// Check prunes expired entries for agentName then looks for an exact or
// semantic match against task. Never mutates on a miss.
func (d *dedupCache) Check(agentName, task string) (DedupHit, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	entries := d.pruneLocked(agentName, now)

	normalized := normalizeTaskPrefix(task)
	tokens := tokenize(task)

	for _, e := range entries {
		if e.normalizedTask == normalized {
			return DedupHit{ResultSummary: e.resultSummary, QueuedChanges: e.queuedChanges, MatchKind: "exact"}, true
		}
	}
	for _, e := range entries {
		if jaccard(tokens, e.tokens) >= semanticThreshold {
			return DedupHit{ResultSummary: e.resultSummary, QueuedChanges: e.queuedChanges, MatchKind: "semantic"}, true
		}
	}
	return DedupHit{}, false
}

// Record stores a completed spawn's outcome for future duplicate matching.
func (d *dedupCache) Record(agentName, task, resultSummary string, queuedChanges int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	d.pruneLocked(agentName, now)
	d.entries[agentName] = append(d.entries[agentName], dedupEntry{
		agentName:      agentName,
		normalizedTask: normalizeTaskPrefix(task),
		tokens:         tokenize(task),
		at:             now,
		resultSummary:  resultSummary,
		queuedChanges:  queuedChanges,
	})
}

// pruneLocked drops entries for agentName older than the window and
// returns what remains. Caller must hold d.mu.
func (d *dedupCache) pruneLocked(agentName string, now time.Time) []dedupEntry {
	existing := d.entries[agentName]
	kept := existing[:0:0]
	for _, e := range existing {
		if now.Sub(e.at) <= d.window {
			kept = append(kept, e)
		}
	}
	d.entries[agentName] = kept
	return kept
}

func normalizeTaskPrefix(task string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(task)), " ")
	if len(normalized) > normalizedPrefixLen {
		normalized = normalized[:normalizedPrefixLen]
	}
	return normalized
}

func tokenize(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
