package circuitbreaker

import (
	"testing"
	"time"
)

// newTestBreaker swaps the clock so open-duration expiry does not need
// real sleeps.
func newTestBreaker(threshold int, openDuration time.Duration) (*Breaker, *time.Time) {
	b := New(threshold, openDuration)
	now := time.Now()
	b.now = func() time.Time { return now }
	return b, &now
}

func TestAllowWhenClosed(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)
	if !b.Allow("hop") {
		t.Fatal("closed circuit should allow")
	}
}

func TestTripsAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	b.RecordFailure("hop")
	b.RecordFailure("hop")
	if !b.Allow("hop") {
		t.Fatal("should still allow before threshold")
	}

	b.RecordFailure("hop")
	if b.Allow("hop") {
		t.Fatal("should be open after 3 failures")
	}
	if got := b.State("hop"); got != StateOpen {
		t.Fatalf("expected StateOpen, got %v", got)
	}
}

func TestOpenAdmitsOneProbeAfterCoolOff(t *testing.T) {
	b, now := newTestBreaker(2, time.Minute)

	b.RecordFailure("axelar")
	b.RecordFailure("axelar")
	if b.Allow("axelar") {
		t.Fatal("should be open")
	}

	*now = now.Add(time.Minute + time.Second)

	if !b.Allow("axelar") {
		t.Fatal("should admit a probe after the cool-off")
	}
	if got := b.State("axelar"); got != StateHalfOpen {
		t.Fatalf("expected StateHalfOpen, got %v", got)
	}
	if b.Allow("axelar") {
		t.Fatal("only one probe should be in flight")
	}
}

func TestProbeSuccessCloses(t *testing.T) {
	b, now := newTestBreaker(2, time.Minute)

	b.RecordFailure("stargate")
	b.RecordFailure("stargate")
	*now = now.Add(2 * time.Minute)
	b.Allow("stargate")

	b.RecordSuccess("stargate")
	if got := b.State("stargate"); got != StateClosed {
		t.Fatalf("expected StateClosed after probe success, got %v", got)
	}
	if !b.Allow("stargate") {
		t.Fatal("should allow after recovery")
	}
}

func TestProbeFailureReopens(t *testing.T) {
	b, now := newTestBreaker(2, time.Minute)

	b.RecordFailure("stargate")
	b.RecordFailure("stargate")
	*now = now.Add(2 * time.Minute)
	b.Allow("stargate")

	b.RecordFailure("stargate")
	if got := b.State("stargate"); got != StateOpen {
		t.Fatalf("expected StateOpen after probe failure, got %v", got)
	}
	if b.Allow("stargate") {
		t.Fatal("reopened circuit should reject")
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	b.RecordFailure("cbridge")
	b.RecordFailure("cbridge")
	b.RecordSuccess("cbridge")

	b.RecordFailure("cbridge")
	if !b.Allow("cbridge") {
		t.Fatal("counter was reset, circuit should stay closed")
	}
}

func TestBridgesAreIndependent(t *testing.T) {
	b, _ := newTestBreaker(2, time.Minute)

	b.RecordFailure("hop")
	b.RecordFailure("hop")

	if b.Allow("hop") {
		t.Fatal("hop should be open")
	}
	if !b.Allow("across") {
		t.Fatal("across should be unaffected")
	}
}

func TestUnknownBridgeIsClosed(t *testing.T) {
	b, _ := newTestBreaker(2, time.Minute)
	if got := b.State("never-seen"); got != StateClosed {
		t.Fatalf("expected StateClosed, got %v", got)
	}
}

func TestStateString(t *testing.T) {
	cases := []struct {
		s    State
		want string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half_open"},
		{State(99), "unknown"},
	}
	for _, tc := range cases {
		if got := tc.s.String(); got != tc.want {
			t.Errorf("State(%d).String() = %q, want %q", tc.s, got, tc.want)
		}
	}
}
