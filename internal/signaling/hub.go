package signaling

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"devconnect-backend/internal/queue"
	"devconnect-backend/internal/service/room"
)

const storeTimeout = 3 * time.Second

// Hub is the signaling router. A single Run goroutine owns the connection
// registry, the presence table and the screen-share tracker, so every event
// is handled as one non-interleaved unit of work. Durable-store calls happen
// inline with a bounded timeout; in-memory state changes only after a join
// transaction commits.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	Inbound    chan *ClientMessage

	clients  map[string]*Client
	registry *ConnRegistry
	presence *PresenceTable
	screens  *ScreenShareTracker

	rooms     *room.Service
	publisher *Publisher
	jobs      *queue.RequestQueueManager
}

// NewHub wires the router. publisher and jobs may be nil; durable disconnect
// cleanup then runs inline instead of on the worker pool.
func NewHub(rooms *room.Service, publisher *Publisher, jobs *queue.RequestQueueManager) *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan *ClientMessage, 64),
		clients:    make(map[string]*Client),
		registry:   NewConnRegistry(),
		presence:   NewPresenceTable(),
		screens:    NewScreenShareTracker(),
		rooms:      rooms,
		publisher:  publisher,
		jobs:       jobs,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.handleRegister(client)

		case client := <-h.Unregister:
			h.handleDisconnect(client)

		case msg := <-h.Inbound:
			h.dispatch(msg)
		}
	}
}

func (h *Hub) dispatch(msg *ClientMessage) {
	c := msg.client

	switch msg.Event {
	case EventJoinRoom:
		var req JoinRoomReq
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			h.sendError(c, "Malformed join request", "")
			return
		}
		h.handleJoin(c, req.RoomID, req.Password)

	case EventOffer, EventAnswer, EventICECandidate,
		EventScreenOffer, EventScreenAnswer, EventScreenICECandidate:
		var req RelayReq
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			log.Printf("[signaling] malformed %s from %s: %v", msg.Event, c.ID, err)
			return
		}
		h.handleRelay(c, msg.Event, req)

	case EventScreenShareStarted, EventScreenShareStopped:
		roomID := parseRoomID(msg.Data)
		if roomID == "" {
			log.Printf("[signaling] %s from %s without room id", msg.Event, c.ID)
			return
		}
		if msg.Event == EventScreenShareStarted {
			h.handleScreenShareStarted(c, roomID)
		} else {
			h.handleScreenShareStopped(c, roomID)
		}

	default:
		log.Printf("[signaling] unknown event %q from client %s", msg.Event, c.ID)
	}
}

// parseRoomID accepts both {"roomId": "..."} and a bare JSON string, the two
// shapes clients send for screen-share events.
func parseRoomID(data json.RawMessage) string {
	var req ScreenShareReq
	if err := json.Unmarshal(data, &req); err == nil && req.RoomID != "" {
		return req.RoomID
	}
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		return plain
	}
	return ""
}

func (h *Hub) handleRegister(c *Client) {
	h.clients[c.ID] = c
	if c.UserID != "" {
		h.registry.Register(c.ID, c.UserID)
	} else {
		log.Printf("[signaling] client %s connected without user identity", c.ID)
	}
	incConnections()
}

func (h *Hub) handleJoin(c *Client, roomID, password string) {
	userID, ok := h.registry.Lookup(c.ID)
	if !ok {
		h.sendError(c, "Authentication required", string(room.ErrorCodeAuthRequired))
		return
	}

	if h.presence.Contains(roomID, c.ID) {
		h.sendError(c, "Already a member of this room", string(room.ErrorCodeAlreadyMember))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	res, err := h.rooms.Join(ctx, userID, roomID, password)
	if err != nil {
		log.Printf("[signaling] join %s by %s failed: %v", roomID, userID, err)
		h.sendError(c, err.Error(), string(room.CodeOf(err)))
		return
	}

	// Switching rooms implies leaving the previous one. The durable move
	// already happened inside the join transaction; mirror it in memory.
	for _, oldRoomID := range h.presence.RoomsOf(c.ID) {
		h.leaveRoomInMemory(c, oldRoomID, userID)
	}

	h.presence.Add(roomID, c.ID)

	h.deliver(c, &ServerMessage{Event: EventAllUsers, Data: h.presence.Others(roomID, c.ID)})
	h.deliver(c, &ServerMessage{Event: EventRoomParticipants, Data: res.Room.Participants})
	for _, sharerID := range h.screens.Sharers(roomID) {
		if sharerConn := h.connOfUser(roomID, sharerID); sharerConn != "" {
			h.deliver(c, &ServerMessage{
				Event: EventUserScreenShareStarted,
				Data:  ScreenSharePayload{SocketID: sharerConn, UserID: sharerID},
			})
		}
	}

	h.broadcast(roomID, c.ID, &ServerMessage{Event: EventUserJoined, Data: c.ID})
	h.broadcast(roomID, "", &ServerMessage{Event: EventUserSocketMap, Data: h.socketMap(roomID)})

	setActiveRooms(h.presence.ActiveRooms())
	log.Printf("[signaling] user %s joined room %s (conn %s)", userID, roomID, c.ID)
}

// handleRelay forwards a handshake payload to one explicit target. A missing
// target is an expected race with disconnect, logged and dropped.
func (h *Hub) handleRelay(c *Client, event string, req RelayReq) {
	target, ok := h.clients[req.Target]
	if !ok {
		log.Printf("[signaling] relay %s from %s: target %s gone", event, c.ID, req.Target)
		return
	}

	h.deliver(target, &ServerMessage{
		Event: event,
		Data: map[string]interface{}{
			"sender":           c.ID,
			relayField(event): relayPayload(event, req),
		},
	})
	addRelayed()
}

func (h *Hub) handleScreenShareStarted(c *Client, roomID string) {
	userID, ok := h.registry.Lookup(c.ID)
	if !ok {
		h.sendError(c, "Authentication required", string(room.ErrorCodeAuthRequired))
		return
	}
	if !h.presence.Contains(roomID, c.ID) {
		h.sendError(c, "Not joined to this room", string(room.ErrorCodeNotFound))
		return
	}

	h.screens.Mark(roomID, userID)
	h.broadcast(roomID, c.ID, &ServerMessage{
		Event: EventUserScreenShareStarted,
		Data:  ScreenSharePayload{SocketID: c.ID, UserID: userID},
	})
	addScreenShare()
	log.Printf("[signaling] user %s started screen sharing in room %s", userID, roomID)
}

func (h *Hub) handleScreenShareStopped(c *Client, roomID string) {
	userID, ok := h.registry.Lookup(c.ID)
	if !ok {
		return
	}

	h.screens.Unmark(roomID, userID)
	h.broadcast(roomID, c.ID, &ServerMessage{
		Event: EventUserScreenShareStopped,
		Data:  ScreenSharePayload{UserID: userID},
	})
	log.Printf("[signaling] user %s stopped screen sharing in room %s", userID, roomID)
}

// handleDisconnect is the sole cleanup trigger and must stay safe when state
// is partially inconsistent. In-memory tables are cleaned unconditionally;
// the durable write is best-effort.
func (h *Hub) handleDisconnect(c *Client) {
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	delete(h.clients, c.ID)

	userID, _ := h.registry.Lookup(c.ID)

	for _, roomID := range h.presence.RoomsOf(c.ID) {
		h.leaveRoomInMemory(c, roomID, userID)

		if userID != "" {
			h.enqueueDurableLeave(userID, roomID)
		}
	}

	h.registry.Unregister(c.ID)
	close(c.send)
	decConnections()
	setActiveRooms(h.presence.ActiveRooms())
}

// leaveRoomInMemory removes presence, tells the room, and clears any
// screen-share mark the departing user held there.
func (h *Hub) leaveRoomInMemory(c *Client, roomID, userID string) {
	h.presence.Remove(roomID, c.ID)
	h.broadcast(roomID, "", &ServerMessage{Event: EventUserLeft, Data: c.ID})

	if userID != "" && h.screens.IsSharing(roomID, userID) {
		h.screens.Unmark(roomID, userID)
		h.broadcast(roomID, "", &ServerMessage{
			Event: EventUserScreenShareStopped,
			Data:  ScreenSharePayload{UserID: userID},
		})
	}
}

func (h *Hub) enqueueDurableLeave(userID, roomID string) {
	fn := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := h.rooms.Leave(ctx, userID, roomID); err != nil {
			log.Printf("[signaling] durable leave %s/%s failed: %v", roomID, userID, err)
		}
		return nil
	}

	if h.jobs != nil {
		h.jobs.EnqueueJob(queue.Job{Fn: fn})
		return
	}
	fn() //nolint:errcheck
}

// connOfUser finds the connection a user holds inside a room, if any.
func (h *Hub) connOfUser(roomID, userID string) string {
	for _, connID := range h.presence.ConnIDs(roomID) {
		if id, ok := h.registry.Lookup(connID); ok && id == userID {
			return connID
		}
	}
	return ""
}

func (h *Hub) socketMap(roomID string) map[string]string {
	out := make(map[string]string)
	for _, connID := range h.presence.ConnIDs(roomID) {
		if userID, ok := h.registry.Lookup(connID); ok {
			out[connID] = userID
		}
	}
	return out
}

// broadcast sends to every connection present in the room except
// excludeConnID (empty means everyone), and mirrors the event to Redis.
func (h *Hub) broadcast(roomID, excludeConnID string, msg *ServerMessage) {
	for _, connID := range h.presence.ConnIDs(roomID) {
		if connID == excludeConnID {
			continue
		}
		if client, ok := h.clients[connID]; ok {
			h.deliver(client, msg)
		}
	}
	h.publisher.Publish(roomID, msg)
}

// deliver never blocks the event loop; a full send buffer drops the message.
func (h *Hub) deliver(c *Client, msg *ServerMessage) {
	select {
	case c.send <- msg:
	default:
		addDropped()
		log.Printf("[signaling] client %s send buffer full, dropping %s", c.ID, msg.Event)
	}
}

func (h *Hub) sendError(c *Client, message, code string) {
	h.deliver(c, &ServerMessage{
		Event: EventError,
		Data:  ErrorPayload{Message: message, Code: code},
	})
}
