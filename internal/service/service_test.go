package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"consultetl/internal/service"
)

// ─────────────────────────────────────────────────────────────
// RunningJobsGuard tests
// ─────────────────────────────────────────────────────────────

func TestRunningGuard_TryLock(t *testing.T) {
	var g service.ExportedRunningGuard

	require.True(t, g.TryLock("consultations"), "first TryLock")
	require.False(t, g.TryLock("consultations"), "second TryLock for same job")
	require.True(t, g.Running("consultations"))
	require.True(t, g.TryLock("other"), "TryLock for different job")

	g.Unlock("consultations")
	g.Unlock("other")
	require.False(t, g.Running("consultations"))

	require.True(t, g.TryLock("consultations"), "TryLock after unlock")
	g.Unlock("consultations")
}

func TestRunningGuard_UnlockWithoutLock(t *testing.T) {
	var g service.ExportedRunningGuard
	g.Unlock("never-locked")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	g.WaitAll(ctx)
	require.NoError(t, ctx.Err(), "WaitAll should return before the deadline")
}

func TestRunningGuard_WaitAll(t *testing.T) {
	var g service.ExportedRunningGuard
	require.True(t, g.TryLock("consultations"))

	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		g.WaitAll(ctx)
		close(done)
	}()

	go func() {
		time.Sleep(20 * time.Millisecond)
		g.Unlock("consultations")
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("WaitAll timed out")
	}
}

// ─────────────────────────────────────────────────────────────
// MockEmitter tests
// ─────────────────────────────────────────────────────────────

func TestMockEmitter_RecordsEvents(t *testing.T) {
	m := &service.MockEmitter{}
	ctx := context.Background()

	m.Emit(ctx, service.EventJobCompleted, map[string]string{"job": "consultations"})
	m.Emit(ctx, "test:event2", nil)

	require.Equal(t, 2, m.Count())
	require.Equal(t, service.EventJobCompleted, m.Events[0].Event)
	require.Equal(t, "test:event2", m.Events[1].Event)
}

func TestMockEmitter_SnapshotIsACopy(t *testing.T) {
	m := &service.MockEmitter{}
	m.Emit(context.Background(), service.EventJobCompleted, nil)

	snap := m.Snapshot()
	m.Emit(context.Background(), "test:later", nil)

	require.Len(t, snap, 1)
	require.Equal(t, 2, m.Count())
}
