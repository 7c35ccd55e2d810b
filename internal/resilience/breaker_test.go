package resilience

import (
	"errors"
	"testing"
	"time"
)

var errGateway = errors.New("gateway down")

func failing() error { return errGateway }
func ok() error      { return nil }

func TestBreaker_OpensAfterMaxFailures(t *testing.T) {
	b := NewBreaker(3, time.Minute)

	for i := 0; i < 3; i++ {
		if err := b.Execute(failing); !errors.Is(err, errGateway) {
			t.Fatalf("attempt %d: err = %v, want gateway error", i, err)
		}
	}

	if err := b.Execute(ok); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(3, time.Minute)

	b.Execute(failing)
	b.Execute(failing)
	if err := b.Execute(ok); err != nil {
		t.Fatal(err)
	}
	b.Execute(failing)
	b.Execute(failing)

	if err := b.Execute(ok); err != nil {
		t.Errorf("circuit opened before reaching the threshold: %v", err)
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	clock := time.Now()
	b.now = func() time.Time { return clock }

	b.Execute(failing)
	if err := b.Execute(ok); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}

	// After the timeout a single probe goes through and closes the circuit.
	clock = clock.Add(2 * time.Minute)
	if err := b.Execute(ok); err != nil {
		t.Fatalf("probe should run and succeed: %v", err)
	}
	if err := b.Execute(ok); err != nil {
		t.Errorf("circuit should be closed after a successful probe: %v", err)
	}
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	clock := time.Now()
	b.now = func() time.Time { return clock }

	b.Execute(failing)
	clock = clock.Add(2 * time.Minute)

	if err := b.Execute(failing); !errors.Is(err, errGateway) {
		t.Fatalf("probe should run: %v", err)
	}
	if err := b.Execute(ok); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("failed probe should reopen the circuit, got %v", err)
	}
}
