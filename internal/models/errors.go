package models

import "errors"

// Budget invariant violations (spec.md 8, invariant #2).
var (
	ErrNonPositiveHardLimit = errors.New("models: hard budget limits must be > 0")
	ErrSoftExceedsHard      = errors.New("models: soft limit exceeds hard limit")
)
