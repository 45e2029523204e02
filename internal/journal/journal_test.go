package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestRecordAndReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	j.RecordAsync("node-created", map[string]string{"id": "n-1"})
	j.RecordAsync("node-updated", map[string]string{"id": "n-1"})
	j.RecordAsync("node-deleted", map[string]string{"id": "n-1"})
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Close drained the buffer; a fresh handle sees everything.
	j, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j.Close()

	entries, err := j.Entries(context.Background(), 10)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	// Newest first, seq strictly increasing underneath.
	if entries[0].Kind != "node-deleted" || entries[2].Kind != "node-created" {
		t.Errorf("order = %s..%s", entries[0].Kind, entries[2].Kind)
	}
	if entries[0].Seq <= entries[1].Seq || entries[1].Seq <= entries[2].Seq {
		t.Errorf("seqs not decreasing: %d %d %d", entries[0].Seq, entries[1].Seq, entries[2].Seq)
	}
	if entries[2].Payload != `{"id":"n-1"}` {
		t.Errorf("payload = %s", entries[2].Payload)
	}
	if entries[0].CreatedAt.IsZero() {
		t.Error("created_at not persisted")
	}
}

func TestEntriesLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for i := 0; i < 10; i++ {
		j.RecordAsync("styles-set", map[string]string{"selector": ".hero"})
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	j, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j.Close()

	entries, err := j.Entries(context.Background(), 4)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(entries))
	}
}

func TestBatchFlushWithoutClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer j.Close()

	// Filling a whole batch forces a flush without waiting for the
	// ticker or Close.
	for i := 0; i < 64; i++ {
		j.RecordAsync("node-created", map[string]string{"id": "x"})
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		entries, err := j.Entries(context.Background(), 100)
		if err != nil {
			t.Fatalf("entries: %v", err)
		}
		if len(entries) == 64 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("flush never happened, have %d entries", len(entries))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestUnserializablePayloadDegrades(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	j.RecordAsync("full-state", make(chan int)) // not JSON-serializable
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	j, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j.Close()

	entries, err := j.Entries(context.Background(), 10)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Payload != "{}" {
		t.Fatalf("degraded payload = %+v", entries)
	}
}

func TestOpenIsIdempotentAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	for i := 0; i < 3; i++ {
		j, err := Open(path)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		j.RecordAsync("page-created", map[string]string{"id": "p"})
		if err := j.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}

	j, err := Open(path)
	if err != nil {
		t.Fatalf("final open: %v", err)
	}
	defer j.Close()

	entries, err := j.Entries(context.Background(), 10)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries across restarts, want 3", len(entries))
	}
}
