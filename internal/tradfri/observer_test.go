package tradfri

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestObservationMaxReconnectsExceeded(t *testing.T) {
	errDrop := errors.New("subscription dropped")
	attempts := 0

	obs := &observation{
		target: Target{Kind: TargetDevice, ID: "65537"},
		config: ObserveConfig{
			MinBackoff:    1 * time.Millisecond,
			MaxBackoff:    30 * time.Millisecond,
			Multiplier:    2.0,
			MaxReconnects: 2,
		},
		subscribe: func(ctx context.Context) error {
			attempts++
			return errDrop
		},
	}

	err := obs.run(context.Background())
	if !errors.Is(err, ErrMaxReconnectsExceeded) {
		t.Fatalf("run() error = %v, want ErrMaxReconnectsExceeded", err)
	}
	// Two retries are allowed, so the third failed attempt terminates.
	if attempts != 3 {
		t.Errorf("subscribe attempts = %d, want 3", attempts)
	}
}

func TestObservationLongSessionResetsBackoff(t *testing.T) {
	errDrop := errors.New("subscription dropped")
	attempts := 0

	obs := &observation{
		target: Target{Kind: TargetDevice, ID: "65537"},
		config: ObserveConfig{
			MinBackoff:    1 * time.Millisecond,
			MaxBackoff:    30 * time.Millisecond,
			Multiplier:    2.0,
			MaxReconnects: 2,
		},
		subscribe: func(ctx context.Context) error {
			attempts++
			// The third subscription outlives the max backoff before it
			// fails, which counts as an established session and starts the
			// retry ladder over.
			if attempts == 3 {
				time.Sleep(100 * time.Millisecond)
			}
			return errDrop
		},
	}

	err := obs.run(context.Background())
	if !errors.Is(err, ErrMaxReconnectsExceeded) {
		t.Fatalf("run() error = %v, want ErrMaxReconnectsExceeded", err)
	}
	// Without the reset the run would stop after 3 attempts.
	if attempts != 5 {
		t.Errorf("subscribe attempts = %d, want 5 (ladder restarted after long session)", attempts)
	}
}

func TestObservationStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	obs := &observation{
		target: Target{Kind: TargetDevice, ID: "65537"},
		config: DefaultObserveConfig(),
		subscribe: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}

	done := make(chan error, 1)
	go func() { done <- obs.run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() error = %v, want nil on context cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run() did not return after context cancel")
	}
}

func TestObservationWaitsOutBackoffCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errDrop := errors.New("subscription dropped")
	entered := make(chan struct{}, 1)

	obs := &observation{
		target: Target{Kind: TargetDevice, ID: "65537"},
		config: ObserveConfig{
			MinBackoff: 1 * time.Hour, // never elapses in this test
			MaxBackoff: 2 * time.Hour,
			Multiplier: 2.0,
		},
		subscribe: func(ctx context.Context) error {
			entered <- struct{}{}
			return errDrop
		},
	}

	done := make(chan error, 1)
	go func() { done <- obs.run(ctx) }()

	// Cancel while the observation sleeps between attempts.
	<-entered
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() error = %v, want nil on context cancel during backoff", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run() did not return after context cancel during backoff")
	}
}
