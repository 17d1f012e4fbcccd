package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/openmni/mnipipe/pkg/runner"
)

// setupTestJournal creates a file-backed journal in a test directory.
func setupTestJournal(t *testing.T) *Journal {
	t.Helper()

	jnl, err := New(Config{Path: filepath.Join(t.TempDir(), "journal.db")})
	if err != nil {
		t.Fatalf("failed to create journal: %v", err)
	}

	ctx := context.Background()
	if err := jnl.Init(ctx); err != nil {
		t.Fatalf("failed to initialize journal: %v", err)
	}
	if err := jnl.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate journal: %v", err)
	}
	t.Cleanup(func() { _ = jnl.Close() })

	return jnl
}

func TestJournalLifecycle(t *testing.T) {
	jnl := setupTestJournal(t)

	if err := jnl.HealthCheck(context.Background()); err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	if err := jnl.Close(); err != nil {
		t.Fatalf("failed to close journal: %v", err)
	}
}

func TestJournal_RequiresPath(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for missing database path")
	}
}

func TestJournal_RecordAndRecent(t *testing.T) {
	jnl := setupTestJournal(t)
	ctx := context.Background()

	first := runner.Invocation{
		RunID:      "run-1",
		Program:    "param2xfm",
		Args:       []string{"-clobber", "-scales", "-1", "1", "1", "/tmp/a.xfm"},
		OutputPath: "/tmp/a.xfm",
		Duration:   42 * time.Millisecond,
		StartedAt:  time.Now().Add(-time.Minute),
	}
	second := runner.Invocation{
		RunID:      "run-1",
		Program:    "transform_objects",
		Args:       []string{"/tmp/in.obj", "/tmp/a.xfm", "/tmp/out.obj"},
		OutputPath: "/tmp/out.obj",
		ExitCode:   1,
		Error:      "transform_objects exited with code 1",
		Duration:   100 * time.Millisecond,
		StartedAt:  time.Now(),
	}

	if err := jnl.Record(ctx, first); err != nil {
		t.Fatalf("failed to record first invocation: %v", err)
	}
	if err := jnl.Record(ctx, second); err != nil {
		t.Fatalf("failed to record second invocation: %v", err)
	}

	entries, err := jnl.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("failed to query recent invocations: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	// Newest first.
	if entries[0].Program != "transform_objects" {
		t.Errorf("expected transform_objects first, got %s", entries[0].Program)
	}
	if entries[0].ExitCode != 1 || entries[0].Error == "" {
		t.Errorf("failure details not preserved: %+v", entries[0])
	}
	if entries[1].Program != "param2xfm" {
		t.Errorf("expected param2xfm second, got %s", entries[1].Program)
	}
	if len(entries[1].Args) != 6 || entries[1].Args[0] != "-clobber" {
		t.Errorf("args not round-tripped: %v", entries[1].Args)
	}
	if entries[1].DurationMS != 42 {
		t.Errorf("expected 42ms duration, got %d", entries[1].DurationMS)
	}
}

func TestJournal_OrderingWithinOneSecond(t *testing.T) {
	jnl := setupTestJournal(t)
	ctx := context.Background()

	// A start time on an exact second boundary must still sort before one
	// half a second later. A variable-width timestamp encoding puts "…00Z"
	// after "…00.5Z" lexicographically and inverts this order.
	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	older := runner.Invocation{Program: "mincbbox", StartedAt: base}
	newer := runner.Invocation{Program: "mincreshape", StartedAt: base.Add(500 * time.Millisecond)}

	if err := jnl.Record(ctx, older); err != nil {
		t.Fatalf("failed to record older invocation: %v", err)
	}
	if err := jnl.Record(ctx, newer); err != nil {
		t.Fatalf("failed to record newer invocation: %v", err)
	}

	entries, err := jnl.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("failed to query recent invocations: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Program != "mincreshape" || entries[1].Program != "mincbbox" {
		t.Errorf("expected newest first within one second, got %s then %s",
			entries[0].Program, entries[1].Program)
	}
	if !entries[1].StartedAt.Equal(base) {
		t.Errorf("start time not round-tripped: %v", entries[1].StartedAt)
	}
}

func TestJournal_RecentLimit(t *testing.T) {
	jnl := setupTestJournal(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		inv := runner.Invocation{
			Program:   "mincbbox",
			Args:      []string{"-mincreshape", "/tmp/mask.mnc"},
			StartedAt: time.Now().Add(time.Duration(i) * time.Second),
		}
		if err := jnl.Record(ctx, inv); err != nil {
			t.Fatalf("failed to record invocation %d: %v", i, err)
		}
	}

	entries, err := jnl.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("failed to query recent invocations: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("expected 3 entries, got %d", len(entries))
	}
}

func TestJournal_UseBeforeInit(t *testing.T) {
	jnl, err := New(Config{Path: filepath.Join(t.TempDir(), "journal.db")})
	if err != nil {
		t.Fatalf("failed to create journal: %v", err)
	}

	if err := jnl.Record(context.Background(), runner.Invocation{Program: "sh"}); err == nil {
		t.Error("expected error recording before Init")
	}
	if _, err := jnl.Recent(context.Background(), 1); err == nil {
		t.Error("expected error querying before Init")
	}
}
