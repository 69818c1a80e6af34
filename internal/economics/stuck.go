package economics

import (
	"time"

	"github.com/sony/gobreaker"
)

// stuckRepeatThreshold is the consecutive-identical-tool-call count that
// counts as a doom loop (spec.md 4.C item 5).
const stuckRepeatThreshold = 3

// stuckIdleThreshold/stuckMinIterations are the "no meaningful progress"
// stuckness criterion (spec.md 4.C item 5).
const stuckIdleThreshold = 60 * time.Second
const stuckMinIterations = 5

// stuckCooldown is how long the breaker stays open (continuing to report
// stuck) once it trips, mirroring a rate-limiter cooldown rather than
// resetting the instant the repeat streak breaks.
const stuckCooldown = 30 * time.Second

// stuckDetector wraps a gobreaker.CircuitBreaker to turn "N consecutive
// identical tool-call fingerprints" into a trip/cooldown cycle, the way a
// breaker turns consecutive upstream failures into an open/half-open
// cycle. Grounded on KooshaPari-KaskMan's internal/security/errors.go
// per-resource gobreaker wiring, generalized from HTTP-call failures to
// tool-call-fingerprint repeats.
type stuckDetector struct {
	breaker *gobreaker.CircuitBreaker
}

func newStuckDetector() *stuckDetector {
	settings := gobreaker.Settings{
		Name:        "agent-doom-loop",
		MaxRequests: 1,
		Timeout:     stuckCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= stuckRepeatThreshold
		},
	}
	return &stuckDetector{breaker: gobreaker.NewCircuitBreaker(settings)}
}

// observeFingerprintRun reports a tool-call fingerprint repeat run length
// (as returned by models.ProgressState.RecordFingerprint) to the breaker
// and returns whether the agent should be treated as stuck right now.
func (d *stuckDetector) observeFingerprintRun(run int) bool {
	_, err := d.breaker.Execute(func() (interface{}, error) {
		if run >= stuckRepeatThreshold {
			return nil, errRepeat
		}
		return nil, nil
	})
	return err != nil
}

var errRepeat = repeatError{}

type repeatError struct{}

func (repeatError) Error() string { return "economics: repeated tool-call fingerprint" }

// idleStuck reports the idle-without-progress half of spec.md 4.C item 5:
// no meaningful progress for stuckIdleThreshold with at least
// stuckMinIterations elapsed.
func idleStuck(idleFor time.Duration, iterations int) bool {
	return idleFor >= stuckIdleThreshold && iterations >= stuckMinIterations
}
