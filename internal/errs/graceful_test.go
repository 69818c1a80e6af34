package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeWarner struct {
	messages []string
}

func (f *fakeWarner) Warnf(format string, args ...interface{}) {
	f.messages = append(f.messages, format)
}

func TestWarnAndContinueLogsWhenWarnerAndErrorPresent(t *testing.T) {
	w := &fakeWarner{}
	WarnAndContinue(w, errors.New("disk full"))
	assert.Len(t, w.messages, 1)
}

func TestWarnAndContinueNoopWhenNilWarnerOrError(t *testing.T) {
	assert.NotPanics(t, func() {
		WarnAndContinue(nil, errors.New("disk full"))
	})

	w := &fakeWarner{}
	WarnAndContinue(w, nil)
	assert.Empty(t, w.messages)
}
