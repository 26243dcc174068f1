package signaling

import "encoding/json"

// Client→server events.
const (
	EventJoinRoom           = "join-room"
	EventOffer              = "offer"
	EventAnswer             = "answer"
	EventICECandidate       = "ice-candidate"
	EventScreenOffer        = "screen-offer"
	EventScreenAnswer       = "screen-answer"
	EventScreenICECandidate = "screen-ice-candidate"
	EventScreenShareStarted = "screen-sharing-started"
	EventScreenShareStopped = "screen-sharing-stopped"
)

// Server→client events.
const (
	EventAllUsers               = "all-users"
	EventUserJoined             = "user-joined"
	EventUserLeft               = "user-left"
	EventUserSocketMap          = "user-socket-map"
	EventRoomParticipants       = "room-participants"
	EventUserScreenShareStarted = "user-screen-sharing-started"
	EventUserScreenShareStopped = "user-screen-sharing-stopped"
	EventError                  = "error"
)

// ClientMessage is the envelope every client frame arrives in.
type ClientMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`

	// client is set by the read pump, never part of the wire format.
	client *Client
}

type ServerMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

type JoinRoomReq struct {
	RoomID   string `json:"roomId"`
	Password string `json:"password,omitempty"`
}

// RelayReq covers all six handshake events; exactly one payload field is set
// depending on the event.
type RelayReq struct {
	Target    string          `json:"target"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

type ScreenShareReq struct {
	RoomID string `json:"roomId"`
}

type ScreenSharePayload struct {
	SocketID string `json:"socketId,omitempty"`
	UserID   string `json:"userId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// relayField names the payload key an event carries and re-emits.
func relayField(event string) string {
	switch event {
	case EventOffer, EventScreenOffer:
		return "offer"
	case EventAnswer, EventScreenAnswer:
		return "answer"
	default:
		return "candidate"
	}
}

func relayPayload(event string, req RelayReq) json.RawMessage {
	switch relayField(event) {
	case "offer":
		return req.Offer
	case "answer":
		return req.Answer
	default:
		return req.Candidate
	}
}
