package sync

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sweettrack/backend/internal/db/models"
	"github.com/sweettrack/backend/internal/googlefit"
)

func TestRunOnce_SyncsAllActiveConnections(t *testing.T) {
	gdb := newTestDB(t)
	provider := &fakeProvider{steps: 500}
	orch := NewOrchestrator(gdb, provider, nil, nil)
	rec := NewReconciler(gdb, orch, nil, nil, time.Minute)

	for i := 1; i <= 3; i++ {
		seedConnection(t, gdb, fmt.Sprintf("user-%d", i), time.Now().Add(time.Hour))
	}

	rec.RunOnce(context.Background())

	for i := 1; i <= 3; i++ {
		var conn models.Connection
		if err := gdb.Where("user_id = ?", fmt.Sprintf("user-%d", i)).First(&conn).Error; err != nil {
			t.Fatalf("reload connection %d: %v", i, err)
		}
		if conn.LastSync.IsZero() {
			t.Errorf("connection %d was not synced", i)
		}
	}
}

func TestRunOnce_RevokedConnectionDoesNotAbortBatch(t *testing.T) {
	gdb := newTestDB(t)
	// Every refresh fails as revoked, so each expired connection is
	// deactivated in turn; the fresh one still syncs.
	provider := &fakeProvider{refreshErr: fmt.Errorf("gone: %w", googlefit.ErrInvalidGrant)}
	orch := NewOrchestrator(gdb, provider, nil, nil)
	rec := NewReconciler(gdb, orch, nil, nil, time.Minute)

	seedConnection(t, gdb, "user-1", time.Now().Add(-time.Minute)) // expired, revoked
	seedConnection(t, gdb, "user-2", time.Now().Add(time.Hour))    // fresh, fine

	rec.RunOnce(context.Background())

	var revoked models.Connection
	gdb.Where("user_id = ?", "user-1").First(&revoked)
	if revoked.IsActive {
		t.Error("revoked connection still active")
	}

	var healthy models.Connection
	gdb.Where("user_id = ?", "user-2").First(&healthy)
	if healthy.LastSync.IsZero() {
		t.Error("healthy connection was not synced after the revoked one")
	}
}

func TestRunOnce_FailedSyncSchedulesBackoff(t *testing.T) {
	gdb := newTestDB(t)
	provider := &fakeProvider{refreshErr: &googlefit.TransientError{Status: 503}}
	orch := NewOrchestrator(gdb, provider, nil, nil)
	rec := NewReconciler(gdb, orch, nil, nil, time.Minute)

	seedConnection(t, gdb, "user-1", time.Now().Add(-time.Minute))

	rec.RunOnce(context.Background())

	var conn models.Connection
	gdb.Where("user_id = ?", "user-1").First(&conn)
	if conn.SyncFailures != 1 {
		t.Fatalf("sync failures = %d, want 1", conn.SyncFailures)
	}
	if conn.NextRetryAt.IsZero() || !conn.NextRetryAt.After(time.Now()) {
		t.Fatalf("next retry = %v, want a future deadline", conn.NextRetryAt)
	}
}

func TestRunOnce_DefersConnectionsInBackoff(t *testing.T) {
	gdb := newTestDB(t)
	provider := &fakeProvider{}
	orch := NewOrchestrator(gdb, provider, nil, nil)
	rec := NewReconciler(gdb, orch, nil, nil, time.Minute)

	conn := seedConnection(t, gdb, "user-1", time.Now().Add(time.Hour))
	gdb.Model(&conn).Update("next_retry_at", time.Now().Add(time.Hour))

	rec.RunOnce(context.Background())

	var reloaded models.Connection
	gdb.Where("user_id = ?", "user-1").First(&reloaded)
	if !reloaded.LastSync.IsZero() {
		t.Error("deferred connection was synced inside its backoff window")
	}
}

func TestBackoffProgression(t *testing.T) {
	gdb := newTestDB(t)
	rec := NewReconciler(gdb, nil, nil, nil, time.Minute)
	conn := seedConnection(t, gdb, "user-1", time.Now())

	tests := []struct {
		failures int
		want     time.Duration
	}{
		{failures: 0, want: 5 * time.Minute},
		{failures: 1, want: 10 * time.Minute},
		{failures: 2, want: 20 * time.Minute},
		{failures: 6, want: 320 * time.Minute},
		{failures: 7, want: 6 * time.Hour}, // capped
		{failures: 20, want: 6 * time.Hour},
		{failures: 63, want: 6 * time.Hour}, // shift overflow guard
	}

	now := time.Now()
	for _, tc := range tests {
		conn.SyncFailures = tc.failures
		rec.deferConnection(conn, now)

		var reloaded models.Connection
		if err := gdb.Where("id = ?", conn.ID).First(&reloaded).Error; err != nil {
			t.Fatalf("reload: %v", err)
		}
		if reloaded.SyncFailures != tc.failures+1 {
			t.Errorf("failures=%d: recorded %d, want %d", tc.failures, reloaded.SyncFailures, tc.failures+1)
		}
		got := reloaded.NextRetryAt.Sub(now).Round(time.Second)
		if got != tc.want {
			t.Errorf("failures=%d: backoff = %v, want %v", tc.failures, got, tc.want)
		}
	}
}
