package spawner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupCacheMissWhenEmpty(t *testing.T) {
	d := newDedupCache()
	_, ok := d.Check("agent-1", "fix the login bug")
	assert.False(t, ok)
}

func TestDedupCacheExactMatch(t *testing.T) {
	d := newDedupCache()
	d.Record("agent-1", "Fix the login bug", "fixed it", 2)

	hit, ok := d.Check("agent-1", "fix the login bug")
	require.True(t, ok)
	assert.Equal(t, "exact", hit.MatchKind)
	assert.Equal(t, "fixed it", hit.ResultSummary)
	assert.Equal(t, 2, hit.QueuedChanges)
}

func TestDedupCacheSemanticMatchAboveThreshold(t *testing.T) {
	d := newDedupCache()
	d.Record("agent-1", "investigate the flaky login test and report findings", "done", 0)

	hit, ok := d.Check("agent-1", "investigate the flaky login test and report the findings")
	require.True(t, ok)
	assert.Equal(t, "semantic", hit.MatchKind)
}

func TestDedupCacheNoMatchBelowThreshold(t *testing.T) {
	d := newDedupCache()
	d.Record("agent-1", "investigate the flaky login test", "done", 0)

	_, ok := d.Check("agent-1", "deploy the staging environment")
	assert.False(t, ok)
}

func TestDedupCacheScopedPerAgentName(t *testing.T) {
	d := newDedupCache()
	d.Record("agent-1", "fix the login bug", "done", 0)

	_, ok := d.Check("agent-2", "fix the login bug")
	assert.False(t, ok)
}

func TestDedupCachePruneExpiredEntries(t *testing.T) {
	d := newDedupCache()
	d.window = 10 * time.Millisecond
	d.Record("agent-1", "fix the login bug", "done", 0)

	time.Sleep(30 * time.Millisecond)

	_, ok := d.Check("agent-1", "fix the login bug")
	assert.False(t, ok)
}

func TestNormalizeTaskPrefixCollapsesWhitespaceAndCase(t *testing.T) {
	assert.Equal(t, "fix the login bug", normalizeTaskPrefix("  Fix   the\nLOGIN   bug  "))
}

func TestNormalizeTaskPrefixTruncatesToLimit(t *testing.T) {
	long := ""
	for i := 0; i < 50; i++ {
		long += "word "
	}
	normalized := normalizeTaskPrefix(long)
	assert.LessOrEqual(t, len(normalized), normalizedPrefixLen)
}

func TestJaccardEdgeCases(t *testing.T) {
	assert.Equal(t, 1.0, jaccard(map[string]struct{}{}, map[string]struct{}{}))
	assert.Equal(t, 0.0, jaccard(map[string]struct{}{"a": {}}, map[string]struct{}{}))

	a := tokenize("fix the login bug")
	b := tokenize("fix the login bug")
	assert.Equal(t, 1.0, jaccard(a, b))
}
