package ai

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"resumescore/internal/config"
)

func testBreakerConfig() config.CircuitBreakerConfig {
	return config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          60 * time.Second,
		MinRequests:      2,
		FailureThreshold: 0.5,
	}
}

func TestNewBreakerDisabled(t *testing.T) {
	cfg := testBreakerConfig()
	cfg.Enabled = false

	b := NewBreaker[string]("Advise", cfg, false, nil)
	if b != nil {
		t.Fatalf("expected nil breaker when disabled, got %+v", b)
	}

	// a nil breaker still runs the call
	got, err := b.Execute(func() (string, error) { return "ok", nil })
	if err != nil || got != "ok" {
		t.Errorf("Execute() = %q, %v; want ok, nil", got, err)
	}
	if !b.IsHealthy() {
		t.Error("nil breaker should report healthy")
	}
	if enabled := b.GetStats()["enabled"]; enabled != false {
		t.Errorf("stats enabled = %v, want false", enabled)
	}
}

func TestBreakerTripsOnFailureRatio(t *testing.T) {
	b := NewBreaker[string]("Advise", testBreakerConfig(), false, nil)
	if b == nil {
		t.Fatal("expected breaker")
	}

	if stats := b.GetStats(); stats["name"] != "AI-Advise" {
		t.Errorf("name = %v, want AI-Advise", stats["name"])
	}

	boom := errors.New("boom")
	for range 2 {
		if _, err := b.Execute(func() (string, error) { return "", boom }); !errors.Is(err, boom) {
			t.Fatalf("expected underlying error, got %v", err)
		}
	}

	if b.IsHealthy() {
		t.Fatal("breaker should be open after two failures")
	}
	called := false
	_, err := b.Execute(func() (string, error) {
		called = true
		return "", nil
	})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected ErrOpenState, got %v", err)
	}
	if called {
		t.Error("open breaker must not run the call")
	}
}

func TestLenientBreakerNeedsMoreFailures(t *testing.T) {
	b := NewBreaker[int]("Model", testBreakerConfig(), true, nil)

	fail := func() (int, error) { return 0, errors.New("unavailable") }
	for range 4 {
		_, _ = b.Execute(fail)
	}
	if !b.IsHealthy() {
		t.Fatal("lenient breaker should stay closed below five requests")
	}

	_, _ = b.Execute(fail)
	if b.IsHealthy() {
		t.Error("lenient breaker should open after five failures")
	}
}
