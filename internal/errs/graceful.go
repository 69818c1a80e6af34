package errs

// Warner is the minimal logging surface graceful-degradation call sites
// need. Satisfied by *zap.SugaredLogger and by the teacher's own
// internal/logger.Logger.
type Warner interface {
	Warnf(format string, args ...interface{})
}

// WarnAndContinue logs a PersistenceError (or any other non-fatal error)
// through w if w is non-nil, then returns — the caller proceeds without the
// failed side effect. Generalizes the teacher's
// internal/executor/graceful.go GracefulWarn to the typed errors in this
// package.
func WarnAndContinue(w Warner, err error) {
	if w == nil || err == nil {
		return
	}
	w.Warnf("%v", err)
}
