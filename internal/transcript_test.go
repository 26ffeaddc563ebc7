package internal

import (
	"sync"
	"testing"
	"time"
)

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestTranscriptStore_Append(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	store := NewTranscriptStore()
	store.now = fixedClock(now)

	stored := store.Append(Message{ID: LocalID(1), Role: RoleUser, Content: "hello"})
	if !stored.ReceivedAt.Equal(now) {
		t.Errorf("Append() ReceivedAt = %v, want %v", stored.ReceivedAt, now)
	}

	earlier := now.Add(-time.Hour)
	stored = store.Append(Message{ID: RemoteID("7"), Role: RoleBot, Content: "hi", ReceivedAt: earlier})
	if !stored.ReceivedAt.Equal(earlier) {
		t.Errorf("Append() overwrote existing ReceivedAt: got %v, want %v", stored.ReceivedAt, earlier)
	}

	snapshot := store.Snapshot()
	if len(snapshot) != 2 || store.Len() != 2 {
		t.Fatalf("transcript length = %d (Len %d), want 2", len(snapshot), store.Len())
	}
	if snapshot[0].Content != "hello" || snapshot[1].Content != "hi" {
		t.Errorf("transcript order = [%q %q], want [hello hi]", snapshot[0].Content, snapshot[1].Content)
	}
}

func TestTranscriptStore_ReplaceAll(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	store := NewTranscriptStore()
	store.now = fixedClock(now)
	store.Append(Message{ID: LocalID(1), Role: RoleUser, Content: "discarded"})

	loaded := []Message{
		{ID: RemoteID("1"), Role: RoleUser, Content: "first", ReceivedAt: now.Add(-24 * time.Hour)},
		{ID: RemoteID("2"), Role: RoleBot, Content: "second"},
		{ID: RemoteID("3"), Role: RoleUser, Content: "third"},
	}
	store.ReplaceAll(loaded)

	snapshot := store.Snapshot()
	if len(snapshot) != len(loaded) {
		t.Fatalf("ReplaceAll() length = %d, want %d", len(snapshot), len(loaded))
	}
	for i, msg := range snapshot {
		if msg.ID != loaded[i].ID {
			t.Errorf("message %d id = %v, want %v", i, msg.ID, loaded[i].ID)
		}
		if !msg.ReceivedAt.Equal(now) {
			t.Errorf("message %d ReceivedAt = %v, want local receipt time %v", i, msg.ReceivedAt, now)
		}
	}

	// The caller's slice is left alone
	if !loaded[0].ReceivedAt.Equal(now.Add(-24 * time.Hour)) {
		t.Error("ReplaceAll() mutated the input slice")
	}

	store.ReplaceAll(nil)
	if store.Len() != 0 {
		t.Errorf("ReplaceAll(nil) left %d messages", store.Len())
	}
}

func TestTranscriptStore_SnapshotIsCopy(t *testing.T) {
	store := NewTranscriptStore()
	store.Append(Message{ID: LocalID(1), Role: RoleUser, Content: "original"})

	snapshot := store.Snapshot()
	snapshot[0].Content = "tampered"
	_ = append(snapshot, Message{ID: LocalID(2), Role: RoleBot, Content: "extra"})

	again := store.Snapshot()
	if again[0].Content != "original" {
		t.Errorf("mutating a snapshot changed the store: %q", again[0].Content)
	}
	if len(again) != 1 {
		t.Errorf("store length = %d, want 1", len(again))
	}
}

func TestTranscriptStore_ConcurrentAppend(t *testing.T) {
	store := NewTranscriptStore()

	const writers = 10
	const perWriter = 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				store.Append(Message{ID: LocalID(uint64(w*perWriter + i)), Role: RoleUser, Content: "x"})
				_ = store.Snapshot()
			}
		}(w)
	}
	wg.Wait()

	if store.Len() != writers*perWriter {
		t.Errorf("Len() = %d, want %d", store.Len(), writers*perWriter)
	}
}
