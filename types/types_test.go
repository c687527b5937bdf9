package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassificationValid(t *testing.T) {
	for _, c := range []Classification{RunAnywhere, NeverRun, ChrootOnly, HostOnly} {
		assert.True(t, c.Valid(), "classification %q should be valid", c)
	}
	assert.False(t, Classification("sometimes").Valid())
	assert.False(t, Classification("").Valid())
}

func TestTestRunFailed(t *testing.T) {
	tests := []struct {
		name    string
		outcome Outcome
		failed  bool
	}{
		{"pass", OutcomePass, false},
		{"skip", OutcomeSkip, false},
		{"fail", OutcomeFail, true},
		{"cancelled", OutcomeCancelled, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := &TestRun{Outcome: tt.outcome}
			assert.Equal(t, tt.failed, run.Failed())
		})
	}
}

func TestTestRunString(t *testing.T) {
	run := &TestRun{
		Spec:    TestSpec{ID: "lib/osutils_unittest"},
		Plan:    Skip("explicitly disabled"),
		Outcome: OutcomeSkip,
	}
	assert.Equal(t, "lib/osutils_unittest: skipped (explicitly disabled)", run.String())

	run = &TestRun{
		Spec:     TestSpec{ID: "lib/gs_unittest"},
		Outcome:  OutcomeFail,
		Duration: 1500 * time.Millisecond,
		TimedOut: true,
	}
	assert.Contains(t, run.String(), "timed out")
}

func TestSkipPlan(t *testing.T) {
	p := Skip("chroot unavailable")
	assert.Equal(t, ActionSkip, p.Action)
	assert.Equal(t, "chroot unavailable", p.Reason)
	assert.Equal(t, "skip", p.Action.String())
}
