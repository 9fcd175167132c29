package authcore

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledByDefault(t *testing.T) {
	m := NewMetrics(MetricsConfig{})
	m.Inc(MetricLoginSuccess)

	if m.Enabled() {
		t.Fatal("metrics should default to disabled")
	}
	if m.Value(MetricLoginSuccess) != 0 {
		t.Fatal("disabled metrics must not count")
	}
}

func TestMetricsCountConcurrently(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.Inc(MetricLoginSuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricLoginSuccess); got != 8000 {
		t.Fatalf("counter = %d, want 8000", got)
	}
}

func TestAuthorityMetricsFlow(t *testing.T) {
	store := seedStore(t)
	cfg := testConfig()
	cfg.Metrics.Enabled = true
	cfg.Security.MaxLoginAttempts = 2
	authority, _ := newTestAuthority(t, cfg, store)
	ctx := context.Background()

	if result, err := authority.LoginWithCredentials(ctx, "sara", "Str0ng!Pass"); err != nil || !result.Success {
		t.Fatalf("login failed: %v %+v", err, result)
	}
	if result, err := authority.LoginWithCredentials(ctx, "sara", "wrong"); err != nil || result.Success {
		t.Fatalf("unexpected outcome: %v %+v", err, result)
	}
	// Third call exceeds the 2-attempt window.
	if result, err := authority.LoginWithCredentials(ctx, "sara", "wrong"); err != nil || result.Success {
		t.Fatalf("unexpected outcome: %v %+v", err, result)
	}

	snapshot := authority.MetricsSnapshot()
	if snapshot.Counters[MetricLoginSuccess] != 1 {
		t.Fatalf("MetricLoginSuccess = %d", snapshot.Counters[MetricLoginSuccess])
	}
	if snapshot.Counters[MetricLoginFailure] != 1 {
		t.Fatalf("MetricLoginFailure = %d", snapshot.Counters[MetricLoginFailure])
	}
	if snapshot.Counters[MetricLoginRateLimited] != 1 {
		t.Fatalf("MetricLoginRateLimited = %d", snapshot.Counters[MetricLoginRateLimited])
	}
	if snapshot.Counters[MetricSessionCreated] != 1 {
		t.Fatalf("MetricSessionCreated = %d", snapshot.Counters[MetricSessionCreated])
	}
}

func TestSessionExpiryMetric(t *testing.T) {
	store := seedStore(t)
	cfg := testConfig()
	cfg.Metrics.Enabled = true
	authority, _ := newTestAuthority(t, cfg, store)
	ctx := context.Background()

	base := time.Now()
	authority.now = func() time.Time { return base }

	result, err := authority.LoginWithCredentials(ctx, "sara", "Str0ng!Pass")
	if err != nil || !result.Success {
		t.Fatalf("login failed: %v %+v", err, result)
	}

	authority.now = func() time.Time { return base.Add(time.Hour) }
	if ok, _ := authority.ValidateSession(ctx, result.Session.SlotID); ok {
		t.Fatal("session should have expired")
	}

	if got := authority.MetricsSnapshot().Counters[MetricSessionExpired]; got != 1 {
		t.Fatalf("MetricSessionExpired = %d", got)
	}
}
