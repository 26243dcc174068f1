package room

import (
	"context"
	"testing"
	"time"

	"devconnect-backend/internal/model"
)

func TestSweepDeletesOnlyAbandonedRooms(t *testing.T) {
	repo := newMemoryRepository()
	now := fixedNow()

	repo.rooms["stale"] = model.RoomItem{
		RoomID:                "stale",
		MaxParticipants:       5,
		LastParticipantLeftAt: now.Add(-30 * time.Minute).Format(time.RFC3339),
	}
	repo.rooms["fresh"] = model.RoomItem{
		RoomID:                "fresh",
		MaxParticipants:       5,
		LastParticipantLeftAt: now.Add(-2 * time.Minute).Format(time.RFC3339),
	}
	repo.rooms["occupied"] = model.RoomItem{
		RoomID:          "occupied",
		MaxParticipants: 5,
		Participants:    []model.Participant{{UserID: "u1"}},
	}
	repo.rooms["neverUsed"] = model.RoomItem{
		RoomID:          "neverUsed",
		MaxParticipants: 5,
	}

	sweeper := NewSweeper(repo, nil)
	sweeper.now = func() time.Time { return now }

	deleted, err := sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deletion, got %d", deleted)
	}

	if _, err := repo.FindRoom(context.Background(), "stale"); err != ErrNotFound {
		t.Fatal("stale room should be gone")
	}
	for _, id := range []string{"fresh", "occupied", "neverUsed"} {
		if _, err := repo.FindRoom(context.Background(), id); err != nil {
			t.Fatalf("room %s should survive the sweep", id)
		}
	}
}
