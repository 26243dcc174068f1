package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"devconnect-backend/internal/model"
	"devconnect-backend/internal/service/room"
)

// fakeStore is an in-memory room.Repository for exercising the hub without a
// live database. Tests drive the hub handlers directly, so everything runs in
// one goroutine.
type fakeStore struct {
	users map[string]model.UserItem
	rooms map[string]model.RoomItem
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: make(map[string]model.UserItem),
		rooms: make(map[string]model.RoomItem),
	}
}

func (f *fakeStore) FindUser(ctx context.Context, userID string) (model.UserItem, error) {
	user, ok := f.users[userID]
	if !ok {
		return model.UserItem{}, room.ErrNotFound
	}
	return user, nil
}

func (f *fakeStore) FindRoom(ctx context.Context, roomID string) (model.RoomItem, error) {
	r, ok := f.rooms[roomID]
	if !ok {
		return model.RoomItem{}, room.ErrNotFound
	}
	return r, nil
}

func (f *fakeStore) FindRoomOfParticipant(ctx context.Context, userID string) (model.RoomItem, error) {
	for _, r := range f.rooms {
		if r.HasParticipant(userID) {
			return r, nil
		}
	}
	return model.RoomItem{}, room.ErrNotFound
}

func (f *fakeStore) CommitJoin(ctx context.Context, write room.JoinWrite) error {
	current, ok := f.rooms[write.NewRoom.RoomID]
	if !ok || current.Version != write.NewRoomReadVersion {
		return fmt.Errorf("condition failed on room %s", write.NewRoom.RoomID)
	}
	if write.OldRoom != nil {
		old, ok := f.rooms[write.OldRoom.RoomID]
		if !ok || old.Version != write.OldRoomReadVersion {
			return fmt.Errorf("condition failed on room %s", write.OldRoom.RoomID)
		}
	}
	f.rooms[write.NewRoom.RoomID] = write.NewRoom
	if write.OldRoom != nil {
		f.rooms[write.OldRoom.RoomID] = *write.OldRoom
	}
	return nil
}

func (f *fakeStore) RemoveParticipant(ctx context.Context, roomID, userID string, leftAt time.Time) error {
	r, ok := f.rooms[roomID]
	if !ok || !r.HasParticipant(userID) {
		return nil
	}
	r.Participants = r.WithoutParticipant(userID)
	if len(r.Participants) == 0 {
		r.LastParticipantLeftAt = leftAt.UTC().Format(time.RFC3339)
	}
	r.Version++
	f.rooms[roomID] = r
	return nil
}

func (f *fakeStore) ListAbandonedRooms(ctx context.Context, emptySince time.Time) ([]model.RoomItem, error) {
	return nil, errors.New("not used")
}

func (f *fakeStore) DeleteRooms(ctx context.Context, roomIDs []string) error {
	return errors.New("not used")
}

func newTestHub(store *fakeStore) *Hub {
	svc := room.NewWithRepository(store, func() time.Time {
		return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	})
	return NewHub(svc, nil, nil)
}

func newTestClient(id, userID string) *Client {
	return &Client{
		ID:     id,
		UserID: userID,
		send:   make(chan *ServerMessage, 32),
		done:   make(chan struct{}),
	}
}

// drain collects everything queued for the client so far.
func drain(c *Client) []*ServerMessage {
	var out []*ServerMessage
	for {
		select {
		case msg := <-c.send:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func eventsOf(msgs []*ServerMessage) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Event)
	}
	return out
}

func findEvent(msgs []*ServerMessage, event string) *ServerMessage {
	for _, m := range msgs {
		if m.Event == event {
			return m
		}
	}
	return nil
}

func join(h *Hub, c *Client, roomID string) {
	h.dispatch(&ClientMessage{
		Event:  EventJoinRoom,
		Data:   json.RawMessage(`{"roomId":"` + roomID + `"}`),
		client: c,
	})
}

func seededHub(capacity int) (*Hub, *fakeStore) {
	store := newFakeStore()
	store.users["u1"] = model.UserItem{UserID: "u1", Fullname: "Ada"}
	store.users["u2"] = model.UserItem{UserID: "u2", Fullname: "Grace"}
	store.users["u3"] = model.UserItem{UserID: "u3", Fullname: "Linus"}
	store.rooms["R"] = model.RoomItem{RoomID: "R", Name: "go talk", MaxParticipants: capacity}
	store.rooms["S"] = model.RoomItem{RoomID: "S", Name: "rust talk", MaxParticipants: capacity}
	return newTestHub(store), store
}

func TestJoinFlowUpToCapacity(t *testing.T) {
	h, store := seededHub(2)

	c1 := newTestClient("conn1", "u1")
	h.handleRegister(c1)
	join(h, c1, "R")

	msgs1 := drain(c1)
	allUsers := findEvent(msgs1, EventAllUsers)
	if allUsers == nil {
		t.Fatalf("joiner got no all-users, events: %v", eventsOf(msgs1))
	}
	if peers := allUsers.Data.([]string); len(peers) != 0 {
		t.Fatalf("first joiner should see no peers, got %v", peers)
	}

	c2 := newTestClient("conn2", "u2")
	h.handleRegister(c2)
	join(h, c2, "R")

	msgs2 := drain(c2)
	allUsers2 := findEvent(msgs2, EventAllUsers)
	if allUsers2 == nil {
		t.Fatal("second joiner got no all-users")
	}
	peers := allUsers2.Data.([]string)
	if len(peers) != 1 || peers[0] != "conn1" {
		t.Fatalf("second joiner peers = %v", peers)
	}

	msgs1 = drain(c1)
	joined := findEvent(msgs1, EventUserJoined)
	if joined == nil || joined.Data.(string) != "conn2" {
		t.Fatalf("first joiner missing user-joined conn2, events: %v", eventsOf(msgs1))
	}
	if findEvent(msgs1, EventUserSocketMap) == nil {
		t.Fatal("first joiner missing refreshed user-socket-map")
	}

	c3 := newTestClient("conn3", "u3")
	h.handleRegister(c3)
	join(h, c3, "R")

	msgs3 := drain(c3)
	errMsg := findEvent(msgs3, EventError)
	if errMsg == nil {
		t.Fatalf("third joiner should be rejected, events: %v", eventsOf(msgs3))
	}
	if errMsg.Data.(ErrorPayload).Code != string(room.ErrorCodeRoomFull) {
		t.Fatalf("expected room_full, got %+v", errMsg.Data)
	}

	stored := store.rooms["R"]
	if len(stored.Participants) != 2 {
		t.Fatalf("participant list changed by rejected join: %+v", stored.Participants)
	}
	if h.presence.Contains("R", "conn3") {
		t.Fatal("rejected joiner must not gain presence")
	}
}

func TestJoinRequiresIdentity(t *testing.T) {
	h, _ := seededHub(5)

	c := newTestClient("conn1", "")
	h.handleRegister(c)
	join(h, c, "R")

	msgs := drain(c)
	errMsg := findEvent(msgs, EventError)
	if errMsg == nil || errMsg.Data.(ErrorPayload).Code != string(room.ErrorCodeAuthRequired) {
		t.Fatalf("expected authentication error, events: %v", eventsOf(msgs))
	}
}

func TestJoinSameRoomTwiceSameConnection(t *testing.T) {
	h, _ := seededHub(5)

	c := newTestClient("conn1", "u1")
	h.handleRegister(c)
	join(h, c, "R")
	drain(c)

	join(h, c, "R")
	msgs := drain(c)
	errMsg := findEvent(msgs, EventError)
	if errMsg == nil || errMsg.Data.(ErrorPayload).Code != string(room.ErrorCodeAlreadyMember) {
		t.Fatalf("expected already_member, events: %v", eventsOf(msgs))
	}
}

func TestSwitchingRoomsLeavesTheOld(t *testing.T) {
	h, store := seededHub(5)

	c1 := newTestClient("conn1", "u1")
	c2 := newTestClient("conn2", "u2")
	h.handleRegister(c1)
	h.handleRegister(c2)
	join(h, c1, "R")
	join(h, c2, "R")
	drain(c1)
	drain(c2)

	join(h, c1, "S")

	if h.presence.Contains("R", "conn1") {
		t.Fatal("conn1 still present in old room")
	}
	if !h.presence.Contains("S", "conn1") {
		t.Fatal("conn1 not present in new room")
	}
	oldRoom := store.rooms["R"]
	if oldRoom.HasParticipant("u1") {
		t.Fatal("u1 still a durable participant of old room")
	}
	newRoom := store.rooms["S"]
	if !newRoom.HasParticipant("u1") {
		t.Fatal("u1 not a durable participant of new room")
	}

	msgs2 := drain(c2)
	left := findEvent(msgs2, EventUserLeft)
	if left == nil || left.Data.(string) != "conn1" {
		t.Fatalf("old room missed user-left, events: %v", eventsOf(msgs2))
	}

	// A connection belongs to at most one presence set.
	if got := h.presence.RoomsOf("conn1"); len(got) != 1 || got[0] != "S" {
		t.Fatalf("RoomsOf(conn1) = %v", got)
	}
}

func TestPrivateRoomRejectionLeavesStateUntouched(t *testing.T) {
	h, store := seededHub(5)
	r := store.rooms["R"]
	r.IsPrivate = true
	r.AllowedUsers = []string{"u2"}
	store.rooms["R"] = r

	c := newTestClient("conn1", "u1")
	h.handleRegister(c)
	join(h, c, "R")

	msgs := drain(c)
	errMsg := findEvent(msgs, EventError)
	if errMsg == nil || errMsg.Data.(ErrorPayload).Code != string(room.ErrorCodeUnauthorized) {
		t.Fatalf("expected unauthorized, events: %v", eventsOf(msgs))
	}
	if len(store.rooms["R"].Participants) != 0 {
		t.Fatal("rejected join changed participants")
	}
	if !h.presence.Empty("R") {
		t.Fatal("rejected join changed presence")
	}
}

func TestRelayOnlyReachesTarget(t *testing.T) {
	h, _ := seededHub(5)

	c1 := newTestClient("conn1", "u1")
	c2 := newTestClient("conn2", "u2")
	c3 := newTestClient("conn3", "u3")
	for _, c := range []*Client{c1, c2, c3} {
		h.handleRegister(c)
		join(h, c, "R")
	}
	drain(c1)
	drain(c2)
	drain(c3)

	h.handleRelay(c1, EventOffer, RelayReq{
		Target: "conn2",
		Offer:  json.RawMessage(`{"sdp":"x"}`),
	})

	msgs2 := drain(c2)
	offer := findEvent(msgs2, EventOffer)
	if offer == nil {
		t.Fatal("target missed the offer")
	}
	body := offer.Data.(map[string]interface{})
	if body["sender"] != "conn1" {
		t.Fatalf("offer sender = %v", body["sender"])
	}
	if _, ok := body["offer"]; !ok {
		t.Fatalf("offer payload missing: %v", body)
	}

	if msgs3 := drain(c3); len(msgs3) != 0 {
		t.Fatalf("relay must never broadcast, conn3 got %v", eventsOf(msgs3))
	}
}

func TestRelayToGoneTargetIsSilent(t *testing.T) {
	h, _ := seededHub(5)

	c1 := newTestClient("conn1", "u1")
	h.handleRegister(c1)
	join(h, c1, "R")
	drain(c1)

	h.handleRelay(c1, EventICECandidate, RelayReq{
		Target:    "gone",
		Candidate: json.RawMessage(`{}`),
	})

	if msgs := drain(c1); len(msgs) != 0 {
		t.Fatalf("sender must see no error, got %v", eventsOf(msgs))
	}

	// The sender keeps working afterwards.
	c2 := newTestClient("conn2", "u2")
	h.handleRegister(c2)
	join(h, c2, "R")
	drain(c2)

	h.handleRelay(c1, EventAnswer, RelayReq{Target: "conn2", Answer: json.RawMessage(`{}`)})
	if findEvent(drain(c2), EventAnswer) == nil {
		t.Fatal("relay after dropped message failed")
	}
}

func TestScreenShareLifecycle(t *testing.T) {
	h, _ := seededHub(5)

	c1 := newTestClient("conn1", "u1")
	h.handleRegister(c1)
	join(h, c1, "R")
	drain(c1)

	h.handleScreenShareStarted(c1, "R")

	// A later joiner learns about the active share during the join handshake.
	c2 := newTestClient("conn2", "u2")
	h.handleRegister(c2)
	join(h, c2, "R")

	msgs2 := drain(c2)
	started := findEvent(msgs2, EventUserScreenShareStarted)
	if started == nil {
		t.Fatalf("joiner missed active screen share, events: %v", eventsOf(msgs2))
	}
	payload := started.Data.(ScreenSharePayload)
	if payload.UserID != "u1" || payload.SocketID != "conn1" {
		t.Fatalf("screen share payload = %+v", payload)
	}

	// Sharer disconnects: room hears the share stop and the departure, and
	// the tracker forgets the user.
	h.handleDisconnect(c1)

	msgs2 = drain(c2)
	if findEvent(msgs2, EventUserScreenShareStopped) == nil {
		t.Fatalf("room missed user-screen-sharing-stopped, events: %v", eventsOf(msgs2))
	}
	left := findEvent(msgs2, EventUserLeft)
	if left == nil || left.Data.(string) != "conn1" {
		t.Fatalf("room missed user-left, events: %v", eventsOf(msgs2))
	}
	if h.screens.IsSharing("R", "u1") {
		t.Fatal("tracker still lists u1 as sharing")
	}
}

func TestScreenShareStopBroadcast(t *testing.T) {
	h, _ := seededHub(5)

	c1 := newTestClient("conn1", "u1")
	c2 := newTestClient("conn2", "u2")
	h.handleRegister(c1)
	h.handleRegister(c2)
	join(h, c1, "R")
	join(h, c2, "R")
	drain(c1)
	drain(c2)

	h.handleScreenShareStarted(c1, "R")
	h.handleScreenShareStopped(c1, "R")

	msgs2 := drain(c2)
	if findEvent(msgs2, EventUserScreenShareStarted) == nil {
		t.Fatal("peer missed share start")
	}
	stopped := findEvent(msgs2, EventUserScreenShareStopped)
	if stopped == nil {
		t.Fatal("peer missed share stop")
	}
	if stopped.Data.(ScreenSharePayload).UserID != "u1" {
		t.Fatalf("stop payload = %+v", stopped.Data)
	}
}

func TestScreenShareRequiresPresence(t *testing.T) {
	h, _ := seededHub(5)

	c := newTestClient("conn1", "u1")
	h.handleRegister(c)

	h.handleScreenShareStarted(c, "R")
	if h.screens.IsSharing("R", "u1") {
		t.Fatal("share marked without room presence")
	}
	if findEvent(drain(c), EventError) == nil {
		t.Fatal("expected an error event")
	}
}

func TestDisconnectSoleParticipant(t *testing.T) {
	h, store := seededHub(5)

	c := newTestClient("conn1", "u1")
	h.handleRegister(c)
	join(h, c, "R")
	drain(c)

	h.handleDisconnect(c)
	h.handleDisconnect(c) // idempotent

	stored := store.rooms["R"]
	if len(stored.Participants) != 0 {
		t.Fatalf("participants remain after disconnect: %+v", stored.Participants)
	}
	if stored.LastParticipantLeftAt == "" {
		t.Fatal("emptied room missing last-left stamp")
	}
	if !h.presence.Empty("R") {
		t.Fatal("presence not cleaned up")
	}
	if _, ok := h.registry.Lookup("conn1"); ok {
		t.Fatal("registry not cleaned up")
	}
}

func TestReconnectOfSameUserIsIdempotent(t *testing.T) {
	h, store := seededHub(5)

	c1 := newTestClient("conn1", "u1")
	h.handleRegister(c1)
	join(h, c1, "R")
	drain(c1)

	// Second connection of the same user joins before the first one's
	// disconnect cleanup ran.
	c2 := newTestClient("conn2", "u1")
	h.handleRegister(c2)
	join(h, c2, "R")

	msgs2 := drain(c2)
	if findEvent(msgs2, EventError) != nil {
		t.Fatalf("reconnect must not error, events: %v", eventsOf(msgs2))
	}

	stored := store.rooms["R"]
	if len(stored.Participants) != 1 {
		t.Fatalf("duplicate durable participant: %+v", stored.Participants)
	}
}
