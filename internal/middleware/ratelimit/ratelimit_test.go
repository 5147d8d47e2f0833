package ratelimit

import (
	"testing"
	"time"
)

func TestAllowWithinBudget(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 3, CleanupInterval: time.Minute})
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d denied within budget", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Error("request over budget was allowed")
	}
}

func TestClientsAreIndependent(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1, CleanupInterval: time.Minute})
	defer rl.Stop()

	if !rl.Allow("10.0.0.1") {
		t.Fatal("first client denied")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("second client denied because of first client's budget")
	}
	if rl.ActiveClients() != 2 {
		t.Errorf("ActiveClients = %d, want 2", rl.ActiveClients())
	}
}

func TestZeroConfigUsesDefaults(t *testing.T) {
	rl := NewLimiter(Config{})
	defer rl.Stop()

	if rl.requestsPerMinute != DefaultConfig().RequestsPerMinute {
		t.Errorf("requestsPerMinute = %d", rl.requestsPerMinute)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	rl := NewLimiter(Config{})
	rl.Stop()
	rl.Stop()
}
