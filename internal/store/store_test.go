package store

import (
	"context"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open err: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestReadSnapshotMissing(t *testing.T) {
	s := openTestStore(t)

	body, err := s.ReadSnapshot(context.Background(), "conversations")
	if err != nil {
		t.Fatalf("ReadSnapshot err: %v", err)
	}
	if body != "" {
		t.Fatalf("expected empty body for missing snapshot, got %q", body)
	}
}

func TestWriteAndReadSnapshot(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.WriteSnapshot(ctx, "documents", `[{"id":"d1"}]`); err != nil {
		t.Fatalf("WriteSnapshot err: %v", err)
	}

	body, err := s.ReadSnapshot(ctx, "documents")
	if err != nil {
		t.Fatalf("ReadSnapshot err: %v", err)
	}
	if body != `[{"id":"d1"}]` {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestWriteSnapshotReplacesBody(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.WriteSnapshot(ctx, "conversations", `[]`); err != nil {
		t.Fatalf("WriteSnapshot err: %v", err)
	}
	if err := s.WriteSnapshot(ctx, "conversations", `[{"id":"c1"}]`); err != nil {
		t.Fatalf("WriteSnapshot err: %v", err)
	}

	body, err := s.ReadSnapshot(ctx, "conversations")
	if err != nil {
		t.Fatalf("ReadSnapshot err: %v", err)
	}
	if body != `[{"id":"c1"}]` {
		t.Fatalf("expected replaced body, got %q", body)
	}
}

func TestSnapshotsAreIndependent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.WriteSnapshot(ctx, "conversations", `[{"id":"c1"}]`); err != nil {
		t.Fatalf("WriteSnapshot err: %v", err)
	}
	if err := s.WriteSnapshot(ctx, "documents", `[{"id":"d1"}]`); err != nil {
		t.Fatalf("WriteSnapshot err: %v", err)
	}

	body, err := s.ReadSnapshot(ctx, "documents")
	if err != nil {
		t.Fatalf("ReadSnapshot err: %v", err)
	}
	if body != `[{"id":"d1"}]` {
		t.Fatalf("unexpected documents body: %q", body)
	}
}
