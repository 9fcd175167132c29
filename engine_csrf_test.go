package authcore

import (
	"context"
	"errors"
	"testing"
)

func TestCSRFRoundTripSingleUse(t *testing.T) {
	store := seedStore(t)
	authority, _ := newTestAuthority(t, testConfig(), store)
	ctx := context.Background()
	slot := loginProgrammer(t, authority)

	token, err := authority.IssueCSRFToken(ctx, slot, "edit-student")
	if err != nil {
		t.Fatalf("IssueCSRFToken: %v", err)
	}

	ok, err := authority.VerifyCSRFToken(ctx, slot, "edit-student", token)
	if err != nil {
		t.Fatalf("VerifyCSRFToken: %v", err)
	}
	if !ok {
		t.Fatal("issued token should verify once")
	}

	if ok, _ := authority.VerifyCSRFToken(ctx, slot, "edit-student", token); ok {
		t.Fatal("token must not verify twice")
	}
}

func TestCSRFRequiresLiveSession(t *testing.T) {
	store := seedStore(t)
	authority, _ := newTestAuthority(t, testConfig(), store)
	ctx := context.Background()

	if _, err := authority.IssueCSRFToken(ctx, "no-such-slot", "edit-student"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Issue err = %v, want ErrUnauthorized", err)
	}
	if _, err := authority.VerifyCSRFToken(ctx, "no-such-slot", "edit-student", "anything"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Verify err = %v, want ErrUnauthorized", err)
	}
}

func TestLogoutPurgesCSRFTokens(t *testing.T) {
	store := seedStore(t)
	authority, _ := newTestAuthority(t, testConfig(), store)
	ctx := context.Background()
	slot := loginProgrammer(t, authority)

	if _, err := authority.IssueCSRFToken(ctx, slot, "edit-student"); err != nil {
		t.Fatalf("IssueCSRFToken: %v", err)
	}

	if err := authority.Logout(ctx, slot); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	// Direct registry check: the slot's namespace is gone.
	if ok, err := authority.csrf.Verify(ctx, slot, "edit-student", "anything"); err != nil || ok {
		t.Fatalf("purged namespace verify = %v %v", ok, err)
	}
}

func TestCSRFMismatchAudited(t *testing.T) {
	store := seedStore(t)
	cfg := testConfig()
	cfg.Metrics.Enabled = true
	authority, _ := newTestAuthority(t, cfg, store)
	ctx := context.Background()
	slot := loginProgrammer(t, authority)

	if _, err := authority.IssueCSRFToken(ctx, slot, "edit-student"); err != nil {
		t.Fatalf("IssueCSRFToken: %v", err)
	}
	if ok, err := authority.VerifyCSRFToken(ctx, slot, "edit-student", "forged"); err != nil || ok {
		t.Fatalf("forged verify = %v %v", ok, err)
	}

	snapshot := authority.MetricsSnapshot()
	if snapshot.Counters[MetricCSRFRejected] != 1 {
		t.Fatalf("MetricCSRFRejected = %d, want 1", snapshot.Counters[MetricCSRFRejected])
	}
}
