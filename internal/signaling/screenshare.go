package signaling

// ScreenShareTracker records which users are sharing their screen per room.
// Owned by the hub goroutine. Answers "who is sharing" for late joiners; not
// authoritative for anything else.
type ScreenShareTracker struct {
	sharers map[string][]string
}

func NewScreenShareTracker() *ScreenShareTracker {
	return &ScreenShareTracker{
		sharers: make(map[string][]string),
	}
}

func (t *ScreenShareTracker) Mark(roomID, userID string) {
	if t.IsSharing(roomID, userID) {
		return
	}
	t.sharers[roomID] = append(t.sharers[roomID], userID)
}

func (t *ScreenShareTracker) Unmark(roomID, userID string) {
	users, ok := t.sharers[roomID]
	if !ok {
		return
	}
	out := users[:0]
	for _, id := range users {
		if id != userID {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		delete(t.sharers, roomID)
		return
	}
	t.sharers[roomID] = out
}

func (t *ScreenShareTracker) IsSharing(roomID, userID string) bool {
	for _, id := range t.sharers[roomID] {
		if id == userID {
			return true
		}
	}
	return false
}

// Sharers returns the room's sharing users in the order they started.
func (t *ScreenShareTracker) Sharers(roomID string) []string {
	users := t.sharers[roomID]
	out := make([]string, len(users))
	copy(out, users)
	return out
}
